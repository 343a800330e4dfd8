package main

import (
	"os"
	"strings"

	"github.com/aretw0/domsync"
	"github.com/aretw0/domsync/internal/cli"
	"github.com/aretw0/domsync/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the replication server",
	Long: `Starts a replication hub and serves it over HTTP.

Endpoints:
  GET  /ws       WebSocket peer (send and receive packets)
  GET  /events   Server-Sent Events stream of outbound packets
  POST /packet   apply one packet
  GET  /scene    current scene markup
  GET  /health, /info, /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.Listen, _ = cmd.Flags().GetString("listen")
		}
		if cmd.Flags().Changed("flush-interval") {
			cfg.FlushInterval, _ = cmd.Flags().GetDuration("flush-interval")
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
			cfg.Redis.Enabled = cfg.Redis.Addr != ""
		}
		if cmd.Flags().Changed("echo-suppression") {
			cfg.EchoSuppression, _ = cmd.Flags().GetBool("echo-suppression")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(domsync.Version))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err := cli.Serve(ctx, cli.ServeOptions{Config: cfg, Logger: logger})
		if sig := ctx.Signal(); sig != nil {
			logger.Info("Stopped by signal", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	serveCmd.Flags().Duration("flush-interval", 0, "How often pending changes are broadcast (default from config, 100ms)")
	serveCmd.Flags().String("redis", "", "Redis address to bridge with other servers")
	serveCmd.Flags().Bool("echo-suppression", false, "Do not rebroadcast changes received from peers")
}
