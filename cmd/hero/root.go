package main

import (
	"github.com/spf13/cobra"

	"github.com/LinkNavi/HERO/internal/config"
	"github.com/LinkNavi/HERO/internal/util"
)

var (
	// Global flags
	configFile string
	debugMode  bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hero",
	Short: "HERO - lightweight datagram transport over UDP",
	Long: `HERO is a lightweight datagram transport that layers a minimal
connection lifecycle, per-packet acknowledgement, and large-message
fragmentation on top of unreliable unicast UDP.

The demo commands exercise the transport end to end:
  serve    run an echo server
  connect  open an interactive chat session against a server
  ping     measure round-trip time to a server`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(pingCmd)
}

// loadConfig reads the shared config file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Debug = true
	}
	if cfg.Debug {
		util.EnableDebug()
	}
	return cfg, nil
}
