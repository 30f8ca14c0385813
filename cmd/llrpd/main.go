package main

import (
	"fmt"
	"os"

	"github.com/danmuck/llrpd/internal/logging"
	"github.com/danmuck/llrpd/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "llrpd",
		Short: "LLRP RFID reader client and tag reading pipeline",
		Long: `llrpd connects to LLRP RFID readers, drives the ROSpec handshake and
turns tag reports into normalized readings.

Examples:
  # Run against the readers in config.toml
  llrpd run --config config.toml

  # Decode captured bytes
  llrpd decode 043f0000000a00000001`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.InitLogger("llrpd")
			if logLevel != "" && !logging.SetLevel(logLevel) {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace|debug|info|warn|error|off)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
