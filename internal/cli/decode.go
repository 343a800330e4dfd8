package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/domsync/internal/presentation/tui"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/packet"
)

// Decode output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

type entryView struct {
	Kind       string            `json:"kind"`
	Tag        string            `json:"tag,omitempty"`
	UUID       string            `json:"uuid"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Decode reads one packet from r and describes its entries on w.
// A malformed packet is returned as a *domain.ParseError.
func Decode(r io.Reader, w io.Writer, format string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read packet: %w", err)
	}
	ds, err := packet.Decode(data)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case FormatText, "":
		for _, d := range ds {
			fmt.Fprintln(w, describe(d))
		}
		return nil

	case FormatJSON:
		views := make([]entryView, 0, len(ds))
		for _, d := range ds {
			views = append(views, view(d))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)

	case FormatMarkdown:
		render, err := tui.NewRenderer(tui.IsTerminal(w))
		if err != nil {
			return err
		}
		out, err := render(tui.DescriptorsMarkdown(ds))
		if err != nil {
			return fmt.Errorf("failed to render packet: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

func view(d domain.Descriptor) entryView {
	v := entryView{UUID: d.DescriptorID()}
	var attrs []domain.Attribute
	switch d := d.(type) {
	case domain.Element:
		v.Kind, v.Tag, attrs = "element", d.Tag, d.Attributes
	case domain.Tombstone:
		v.Kind = "tombstone"
	case domain.Event:
		v.Kind, attrs = "event", d.Attributes
	}
	if len(attrs) > 0 {
		v.Attributes = make(map[string]string, len(attrs))
		for _, a := range attrs {
			v.Attributes[a.Name] = a.Value
		}
	}
	return v
}

func describe(d domain.Descriptor) string {
	switch d := d.(type) {
	case domain.Element:
		var b strings.Builder
		fmt.Fprintf(&b, "element %s %s", d.Tag, d.ID)
		for _, a := range d.Attributes {
			fmt.Fprintf(&b, " %s=%q", a.Name, a.Value)
		}
		return b.String()
	case domain.Tombstone:
		return "tombstone " + d.ID
	case domain.Event:
		return "event " + d.ID
	}
	return "unknown " + d.DescriptorID()
}
