package packet

import (
	"encoding/xml"
	"strings"
	"unicode"

	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/ports"
)

const separator = "\n"

// Encode renders descriptors as a packet.
// It returns false, and no bytes, when there is nothing to send.
// Elements and events whose tag is not a valid name are left out, and so are
// attributes with invalid names; see InvalidNames.
func Encode(ds []domain.Descriptor) ([]byte, bool) {
	var b strings.Builder
	n := 0
	for _, d := range ds {
		if !encodable(d) {
			continue
		}
		if n == 0 {
			b.WriteString("<" + domain.TagPacket + ">")
		} else {
			b.WriteString(separator)
		}
		writeEntry(&b, d)
		n++
	}
	if n == 0 {
		return nil, false
	}
	b.WriteString("</" + domain.TagPacket + ">")
	return []byte(b.String()), true
}

// EncodeChanges builds a packet from drained tracker state.
// Nodes that opted out of replication are skipped; tombstones are always sent.
// An id that is both dead and dirty was replaced: its tombstone goes right
// before its element.
func EncodeChanges(dirty []ports.Node, dead []string) ([]byte, bool) {
	replaced := make(map[string]bool, len(dead))
	for _, id := range dead {
		replaced[id] = false
	}

	ds := make([]domain.Descriptor, 0, len(dirty)+len(dead))
	for _, n := range dirty {
		if !n.Reflects() {
			continue
		}
		if done, ok := replaced[n.ID()]; ok && !done {
			ds = append(ds, domain.Tombstone{ID: n.ID()})
			replaced[n.ID()] = true
		}
		ds = append(ds, domain.Element{ID: n.ID(), Tag: n.Tag(), Attributes: n.Attributes()})
	}
	for _, id := range dead {
		if replaced[id] {
			continue
		}
		ds = append(ds, domain.Tombstone{ID: id})
		replaced[id] = true
	}
	return Encode(ds)
}

// ValidName reports whether s can be written as a tag or attribute name.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_', r == ':':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// InvalidNames returns the tag and attribute names of n that cannot be
// encoded. EncodeChanges drops the whole node for an invalid tag and only the
// attribute otherwise.
func InvalidNames(n ports.Node) []string {
	var out []string
	if !ValidName(n.Tag()) {
		out = append(out, n.Tag())
	}
	for _, a := range n.Attributes() {
		if !ValidName(a.Name) {
			out = append(out, a.Name)
		}
	}
	return out
}

func encodable(d domain.Descriptor) bool {
	switch d := d.(type) {
	case domain.Element:
		return ValidName(d.Tag)
	case domain.Event, domain.Tombstone:
		return true
	}
	return false
}

func writeEntry(b *strings.Builder, d domain.Descriptor) {
	switch d := d.(type) {
	case domain.Element:
		writeOpen(b, d.Tag, d.ID, d.Attributes)
		b.WriteString("></" + d.Tag + ">")
	case domain.Event:
		writeOpen(b, domain.TagEvent, d.ID, d.Attributes)
		b.WriteString("></" + domain.TagEvent + ">")
	case domain.Tombstone:
		writeOpen(b, domain.TagDead, d.ID, nil)
		b.WriteString(" />")
	}
}

func writeOpen(b *strings.Builder, tag, id string, attrs []domain.Attribute) {
	b.WriteString("<" + tag)
	writeAttr(b, domain.AttrUUID, id)
	for _, a := range attrs {
		if a.Name == domain.AttrUUID || !ValidName(a.Name) {
			continue
		}
		writeAttr(b, a.Name, a.Value)
	}
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" " + name + `="`)
	// EscapeText only fails when the writer fails; strings.Builder never does.
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}
