package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/domsync/internal/config"
	"github.com/aretw0/domsync/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "domsync",
	Short: "domsync replicates a scene graph between peers",
	Long: `domsync keeps a tree of scene elements in sync across peers by exchanging
small text packets over WebSocket, Server-Sent Events or Redis pub/sub.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Log.Format, _ = cmd.Flags().GetString("log-format")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, _ := logging.ParseLevel(loaded.Log.Level)
		cfg = loaded
		logger = logging.New(level, loaded.Log.Format)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}
