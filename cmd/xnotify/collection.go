package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/worker"
)

const (
	sourceSnapshot = "snapshot"
	sourceScan     = "scan"
)

var (
	replayFile   string
	holderSource string
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Notify the holders of a collection in throttled batches",
	Long: `Resolve every holder in batches of --batch-size, pausing --delay milliseconds
between batches, append the resolved ids to the user cache and notify them.

With --cache the resolution step is skipped and the ids stored in the given
file are notified instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := setup(ctx, replayFile == "")
		if err != nil {
			return err
		}
		defer a.close()

		var report domain.RunReport
		if replayFile != "" {
			report, err = a.orch.Replay(ctx, replayFile)
		} else {
			src, serr := a.source(holderSource)
			if serr != nil {
				return serr
			}
			report, err = a.orch.RunCollection(ctx, src, worker.BatchOptions{
				Size:  a.cfg.BatchSize,
				Delay: a.cfg.BatchDelay(),
			})
		}

		a.finish(cmd.OutOrStdout(), report)
		if err != nil {
			return fmt.Errorf("%s run failed: %w", report.Mode, err)
		}
		return nil
	},
}

func init() {
	f := collectionCmd.Flags()
	f.IntP("batch-size", "b", 100, "holders resolved concurrently per batch")
	f.IntP("delay", "d", 1000, "pause between batches in milliseconds")
	f.StringVarP(&replayFile, "cache", "c", "", "notify the user ids stored in this JSON file instead of resolving holders")
	f.StringVar(&holderSource, "source", sourceSnapshot, "where holders come from: snapshot or scan")

	bindFlags(f, map[string]string{
		"batch_size":     "batch-size",
		"batch_delay_ms": "delay",
	})

	rootCmd.AddCommand(collectionCmd)
}
