// Package reconcile merges remote packet entries into a local tree.
//
// Identity is what survives: an entry whose identifier is already live but
// whose tag differs replaces the node with a fresh one of the new tag, carrying
// the old attributes forward before the entry's own values are applied.
// Attributes are merged per attribute (last writer wins); attributes absent
// from an entry are left untouched.
//
// A tombstone directly followed by an entry for the same identifier replaces
// the node. When the live node already has exactly that tag and attribute set,
// ApplyAll treats the pair as applied without touching the tree, so a replace
// that comes back as an echo settles.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/ports"
	"go.uber.org/multierr"
)

// Apply merges a single descriptor into tree.
//
// Events fail with a *domain.ProtocolViolation wrapping
// domain.ErrUnsupportedOperation; entries without an identifier fail with a
// *domain.ProtocolViolation. Tree failures are returned wrapped.
func Apply(tree ports.Tree, d domain.Descriptor) error {
	var (
		tag       string
		attrs     []domain.Attribute
		tombstone bool
	)

	switch d := d.(type) {
	case domain.Event:
		return &domain.ProtocolViolation{
			Tag:    domain.TagEvent,
			ID:     d.ID,
			Reason: "events are reserved for a future protocol version",
			Err:    domain.ErrUnsupportedOperation,
		}
	case domain.Tombstone:
		tag, tombstone = domain.TagDead, true
	case domain.Element:
		tag, attrs = d.Tag, d.Attributes
	default:
		return &domain.ProtocolViolation{Reason: fmt.Sprintf("unknown descriptor %T", d)}
	}

	id := d.DescriptorID()
	if id == "" {
		return &domain.ProtocolViolation{Tag: tag, Reason: "missing " + domain.AttrUUID}
	}

	node, found := tree.Lookup(id)

	var carried []domain.Attribute
	if found && (tombstone || !strings.EqualFold(node.Tag(), tag)) {
		carried = node.Attributes()
		if err := tree.Detach(node); err != nil {
			return fmt.Errorf("detach %q: %w", id, err)
		}
		node, found = nil, false
	}

	if tombstone {
		return nil
	}

	if !found {
		created, err := tree.CreateNode(tag, id)
		if err != nil {
			return fmt.Errorf("create <%s uuid=%q>: %w", tag, id, err)
		}
		// Attributes go on before the node is attached so it enters the tree
		// with its full state.
		setAll(created, carried)
		setAll(created, attrs)
		if err := tree.AttachToRoot(created); err != nil {
			return fmt.Errorf("attach %q: %w", id, err)
		}
		return nil
	}

	setAll(node, attrs)
	return nil
}

func setAll(n ports.Node, attrs []domain.Attribute) {
	for _, a := range attrs {
		if a.Name == domain.AttrUUID {
			continue
		}
		n.SetAttribute(a.Name, a.Value)
	}
}

// ApplyAll applies descriptors in order. A failing descriptor is skipped and
// the remaining ones are still applied; all failures are returned combined.
func ApplyAll(tree ports.Tree, ds []domain.Descriptor) (applied int, err error) {
	for i := 0; i < len(ds); i++ {
		if i+1 < len(ds) && replacesWithCurrent(tree, ds[i], ds[i+1]) {
			applied += 2
			i++
			continue
		}
		if e := Apply(tree, ds[i]); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		applied++
	}
	return applied, err
}

// replacesWithCurrent reports whether d and next form a replace pair whose
// result is already the live state.
func replacesWithCurrent(tree ports.Tree, d, next domain.Descriptor) bool {
	dead, ok := d.(domain.Tombstone)
	if !ok || dead.ID == "" {
		return false
	}
	el, ok := next.(domain.Element)
	if !ok || el.ID != dead.ID {
		return false
	}
	node, found := tree.Lookup(el.ID)
	if !found || !strings.EqualFold(node.Tag(), el.Tag) {
		return false
	}
	return sameAttributes(node.Attributes(), el.Attributes)
}

func sameAttributes(have, want []domain.Attribute) bool {
	a, b := attributeSet(have), attributeSet(want)
	if len(a) != len(b) {
		return false
	}
	for name, v := range b {
		if cur, ok := a[name]; !ok || cur != v {
			return false
		}
	}
	return true
}

func attributeSet(attrs []domain.Attribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name != domain.AttrUUID {
			out[a.Name] = a.Value
		}
	}
	return out
}
