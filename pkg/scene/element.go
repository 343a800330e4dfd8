package scene

import (
	"encoding/xml"
	"strings"

	"github.com/aretw0/domsync/pkg/domain"
)

// Element is a node of a Document.
type Element struct {
	doc      *Document
	tag      string
	uuid     string
	attrs    []domain.Attribute
	parent   *Element
	children []*Element
	reflect  bool
}

// ID returns the element's replication identifier.
func (e *Element) ID() string { return e.uuid }

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// Reflects reports whether the element is included in outbound packets.
func (e *Element) Reflects() bool { return e.reflect }

// SetReflect opts the element in or out of replication.
// It only affects encoding; the element is still tracked.
func (e *Element) SetReflect(on bool) { e.reflect = on }

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element { return e.parent }

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	return append([]*Element(nil), e.children...)
}

// Attributes returns a copy of the attributes in insertion order.
func (e *Element) Attributes() []domain.Attribute {
	return append([]domain.Attribute(nil), e.attrs...)
}

// Attribute returns the value of a single attribute.
func (e *Element) Attribute(name string) (string, bool) {
	if name == domain.AttrUUID {
		return e.uuid, true
	}
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute creates or overwrites an attribute. Writing the value an
// attribute already has is not a change.
// Setting uuid re-identifies the element; see SetID.
func (e *Element) SetAttribute(name, value string) {
	if name == domain.AttrUUID {
		_ = e.SetID(value)
		return
	}

	found := false
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			if e.attrs[i].Value == value {
				return
			}
			e.attrs[i].Value = value
			found = true
			break
		}
	}
	if !found {
		e.attrs = append(e.attrs, domain.Attribute{Name: name, Value: value})
	}

	if e != e.doc.scene && e.Connected() {
		e.doc.mark(func() { e.doc.changes.MarkDirty(e.uuid, e) })
	}
}

// SetID re-identifies the element. On a live element the old identifier is
// announced as removed and the new one as created. An identifier held by
// another live element is rejected with ErrDuplicateID and the element keeps
// its current one.
func (e *Element) SetID(id string) error {
	return e.doc.reidentify(e, id)
}

// Connected reports whether the element is reachable from the document's scene.
func (e *Element) Connected() bool {
	for n := e; n != nil; n = n.parent {
		if n == e.doc.scene {
			return true
		}
	}
	return false
}

// AppendChild attaches child as the last child of e, moving it if it already
// has a parent. Moving an element within the live tree is not a replication event.
// A subtree that would bring an identifier into the live tree twice is
// rejected with ErrDuplicateID.
func (e *Element) AppendChild(child *Element) error {
	if child.doc != e.doc {
		return domain.ErrForeignNode
	}
	if child == e.doc.scene {
		return ErrCycle
	}
	for n := e; n != nil; n = n.parent {
		if n == child {
			return ErrCycle
		}
	}

	wasLive := child.Connected()
	if !wasLive && e.Connected() {
		if err := e.doc.checkIDs(child); err != nil {
			return err
		}
	}
	if child.parent != nil {
		child.parent.unlink(child)
	}
	child.parent = e
	e.children = append(e.children, child)

	switch live := child.Connected(); {
	case !wasLive && live:
		e.doc.attach(child)
	case wasLive && !live:
		e.doc.detach(child)
	}
	return nil
}

// RemoveChild detaches child from e.
func (e *Element) RemoveChild(child *Element) error {
	if child.parent != e {
		return ErrNotChild
	}
	wasLive := child.Connected()
	e.unlink(child)
	child.parent = nil
	if wasLive {
		e.doc.detach(child)
	}
	return nil
}

// Remove detaches the element from its parent, if any.
func (e *Element) Remove() error {
	if e.parent == nil {
		return nil
	}
	return e.parent.RemoveChild(e)
}

func (e *Element) unlink(child *Element) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

func (e *Element) walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.children {
		c.walk(fn)
	}
}

// String renders the element and its subtree as markup.
func (e *Element) String() string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

func (e *Element) render(b *strings.Builder) {
	b.WriteString("<" + e.tag)
	if e.uuid != "" {
		writeAttr(b, domain.AttrUUID, e.uuid)
	}
	for _, a := range e.attrs {
		writeAttr(b, a.Name, a.Value)
	}
	b.WriteString(">")
	for _, c := range e.children {
		c.render(b)
	}
	b.WriteString("</" + e.tag + ">")
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" " + name + `="`)
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}
