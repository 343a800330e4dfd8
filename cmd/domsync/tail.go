package main

import (
	"github.com/aretw0/domsync/internal/cli"
	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:     "tail <ws-url>",
	Short:   "Print every packet a server broadcasts",
	Example: `  domsync tail ws://localhost:8080/ws`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Tail(ctx, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
}
