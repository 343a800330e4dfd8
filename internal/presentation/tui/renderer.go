package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/domsync/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Styled output follows the terminal background; otherwise it is plain text.
func NewRenderer(styled bool) (func(string) (string, error), error) {
	style := glamour.WithStandardStyle("notty")
	if styled {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// DescriptorsMarkdown lists decoded packet entries as a markdown table.
func DescriptorsMarkdown(ds []domain.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Packet (%d entries)\n\n", len(ds))
	b.WriteString("| # | Kind | Tag | UUID | Attributes |\n")
	b.WriteString("|---|------|-----|------|------------|\n")
	for i, d := range ds {
		kind, tag, attrs := describe(d)
		fmt.Fprintf(&b, "| %d | %s | %s | `%s` | %s |\n", i+1, kind, tag, d.DescriptorID(), attrs)
	}
	return b.String()
}

func describe(d domain.Descriptor) (kind, tag, attrs string) {
	switch v := d.(type) {
	case domain.Element:
		return "element", v.Tag, formatAttrs(v.Attributes)
	case domain.Tombstone:
		return "tombstone", domain.TagDead, ""
	case domain.Event:
		return "event", domain.TagEvent, formatAttrs(v.Attributes)
	}
	return "unknown", "", ""
}

func formatAttrs(attrs []domain.Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = fmt.Sprintf("`%s=%q`", a.Name, a.Value)
	}
	return strings.Join(parts, " ")
}
