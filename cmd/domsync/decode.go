package main

import (
	"io"
	"os"

	"github.com/aretw0/domsync/internal/cli"
	"github.com/aretw0/domsync/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a packet and describe its entries",
	Long:  `Reads one packet from a file, or from stdin when no file is given, and prints its entries.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		out := cmd.OutOrStdout()
		if err := cli.Decode(in, out, format); err != nil {
			return &faultError{err: err, h: tui.NewHighlighter(cmd.ErrOrStderr())}
		}
		return nil
	},
}

// faultError highlights the message when printed to a terminal.
type faultError struct {
	err error
	h   *tui.Highlighter
}

func (e *faultError) Error() string { return e.h.Fault(e.err.Error()) }
func (e *faultError) Unwrap() error { return e.err }

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringP("format", "f", cli.FormatText, "Output format (text, json, markdown)")
}
