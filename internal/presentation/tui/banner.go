package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the domsync banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"      _                                  ", "#22d3ee"},
		{"   __| | ___  _ __ ___  ___ _   _ _ __   ___", "#38bdf8"},
		{"  / _` |/ _ \\| '_ ` _ \\/ __| | | | '_ \\ / __|", "#60a5fa"},
		{" | (_| | (_) | | | | | \\__ \\ |_| | | | | (__", "#818cf8"},
		{"  \\__,_|\\___/|_| |_| |_|___/\\__, |_| |_|\\___|", "#a78bfa"},
		{"                            |___/", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
