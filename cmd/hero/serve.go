package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	hero "github.com/LinkNavi/HERO"
	"github.com/LinkNavi/HERO/internal/util"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an echo server",
	Long: `
Run a HERO echo server: every GIVE payload is answered with the configured
echo prefix followed by the original bytes.

Examples:
  hero serve                  # listen on the configured port (default 9999)
  hero serve -p 8080          # listen on port 8080
  hero serve -c hero.yaml     # listen per config file
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		util.StartStatsReporter(ctx, 10*time.Second)

		server := hero.NewServer(cfg.Port)
		server.SetStaleTimeout(cfg.StaleTimeout)
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		pterm.Info.Printfln("echo server listening on udp port %d", server.Port())

		for ctx.Err() == nil {
			server.Poll(func(pkt *hero.Packet, host string, port int) {
				if pkt.Flag != hero.FlagGive || len(pkt.Payload) == 0 {
					return
				}
				pterm.Printfln("%s:%d → %s", host, port, string(pkt.Payload))
				server.Reply(pkt, append([]byte(cfg.EchoPrefix), pkt.Payload...), host, port)
			})
		}

		pterm.Println("shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "UDP port to listen on (overrides config)")
}
