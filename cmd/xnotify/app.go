package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Scan the ledger and notify every holder in a single pass",
	Long: `Scan the ledger for the holders of MINT, resolve all of them at once and
notify the resolved users. Nothing is written to the user cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		src, err := a.source(sourceScan)
		if err != nil {
			return err
		}

		report, err := a.orch.RunApp(ctx, src)
		a.finish(cmd.OutOrStdout(), report)
		if err != nil {
			return fmt.Errorf("app run failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appCmd)
}
