package tui

import (
	"io"
	"os"
	"regexp"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	tagPattern  = regexp.MustCompile(`</?[A-Za-z][\w:.-]*|/?>`)
	attrPattern = regexp.MustCompile(`([\w:.-]+)=("[^"]*")`)
)

// Highlighter colors packet markup for terminal output.
type Highlighter struct {
	out *termenv.Output
}

// NewHighlighter returns a highlighter for w. Output is left plain unless w
// is a terminal.
func NewHighlighter(w io.Writer) *Highlighter {
	profile := termenv.Ascii
	if IsTerminal(w) {
		profile = termenv.EnvColorProfile()
	}
	return &Highlighter{out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Packet returns msg with tags, attribute names and values colored.
func (h *Highlighter) Packet(msg string) string {
	if h.out.Profile == termenv.Ascii {
		return msg
	}
	tag := h.out.Color("#60a5fa")
	name := h.out.Color("#c084fc")
	value := h.out.Color("#34d399")

	msg = attrPattern.ReplaceAllStringFunc(msg, func(m string) string {
		parts := attrPattern.FindStringSubmatch(m)
		return h.out.String(parts[1]).Foreground(name).String() + "=" + h.out.String(parts[2]).Foreground(value).String()
	})
	return tagPattern.ReplaceAllStringFunc(msg, func(m string) string {
		return h.out.String(m).Foreground(tag).String()
	})
}

// Fault returns msg styled as an error.
func (h *Highlighter) Fault(msg string) string {
	if h.out.Profile == termenv.Ascii {
		return msg
	}
	return h.out.String(msg).Foreground(h.out.Color("#fb7185")).Bold().String()
}
