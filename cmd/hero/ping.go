package main

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	hero "github.com/LinkNavi/HERO"
)

var (
	pingHost  string
	pingPort  int
	pingCount int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round-trip time to a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if pingHost != "" {
			cfg.Host = pingHost
		}
		if pingPort != 0 {
			cfg.Port = pingPort
		}

		client := hero.NewClient()
		client.SetConnectTimeout(cfg.ConnectTimeout)
		if !client.Connect(cfg.Host, cfg.Port, nil) {
			pterm.Error.Printfln("cannot reach %s:%d", cfg.Host, cfg.Port)
			return nil
		}
		defer client.Disconnect()

		for i := 0; i < pingCount; i++ {
			if client.Ping() {
				pterm.Printfln("pong from %s:%d  rtt=%v", cfg.Host, cfg.Port, client.RTT())
			} else {
				pterm.Warning.Printfln("ping %d timed out", i+1)
			}
			time.Sleep(time.Second)
		}
		return nil
	},
}

func init() {
	pingCmd.Flags().StringVarP(&pingHost, "host", "H", "", "server host (overrides config)")
	pingCmd.Flags().IntVarP(&pingPort, "port", "p", 0, "server UDP port (overrides config)")
	pingCmd.Flags().IntVarP(&pingCount, "count", "n", 4, "number of pings to send")
}
