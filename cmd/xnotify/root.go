package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/notifyhub/xnft-notify/internal/config"
)

var (
	vip     = config.New()
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "xnotify",
	Short: "Send one push notification to every holder of an xNFT",
	Long: `xnotify finds the holders of an xNFT, resolves each holder to a user id
through the user info service and sends a single aggregated push notification.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// bindFlags binds config keys to flags of fs. A flag set on the command line
// wins over the environment and the defaults.
func bindFlags(fs *pflag.FlagSet, keyToFlag map[string]string) {
	for key, name := range keyToFlag {
		if err := vip.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
