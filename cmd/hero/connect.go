package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	hero "github.com/LinkNavi/HERO"
)

var (
	connectHost string
	connectPort int
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an interactive chat session against a server",
	Long: `
Connect to a HERO server and exchange text messages interactively. Incoming
GIVE payloads are printed as they arrive; each input line is sent as one
message. Type "quit" or "exit" to leave.

Examples:
  hero connect                          # connect to 127.0.0.1:9999
  hero connect -H 192.168.1.20 -p 8080  # connect to a remote server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if connectHost != "" {
			cfg.Host = connectHost
		}
		if connectPort != 0 {
			cfg.Port = connectPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := hero.NewClient()
		client.SetConnectTimeout(cfg.ConnectTimeout)

		pterm.Info.Printfln("connecting to %s:%d ...", cfg.Host, cfg.Port)
		if !client.Connect(cfg.Host, cfg.Port, nil) {
			pterm.Error.Println("failed to connect")
			os.Exit(1)
		}
		defer client.Disconnect()

		pterm.Success.Println("connected — type messages, \"quit\" to leave")

		// Stdin reads block, so a dedicated goroutine feeds lines to the
		// single goroutine that owns the client.
		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil

			case line, open := <-lines:
				if !open {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					return nil
				}
				if !client.SendText(line) {
					pterm.Error.Println("failed to send message")
					return nil
				}

			default:
				if !client.IsConnected() {
					pterm.Warning.Println("connection closed")
					return nil
				}
				if pkt, ok := client.Receive(cfg.ReceiveTimeout); ok {
					if pkt.Flag == hero.FlagGive && len(pkt.Payload) > 0 {
						pterm.Printfln("[server] %s", string(pkt.Payload))
					}
				}
				client.Update()
			}
		}
	},
}

func init() {
	connectCmd.Flags().StringVarP(&connectHost, "host", "H", "", "server host (overrides config)")
	connectCmd.Flags().IntVarP(&connectPort, "port", "p", 0, "server UDP port (overrides config)")
}
