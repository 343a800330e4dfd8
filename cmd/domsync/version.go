package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/domsync"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of domsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "domsync version %s\n", strings.TrimSpace(domsync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
