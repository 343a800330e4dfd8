package scene

import (
	"errors"
	"fmt"

	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/tracker"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrCycle is returned when an element would become its own ancestor.
	ErrCycle = errors.New("scene: element cannot contain itself")

	// ErrNotChild is returned by RemoveChild for an element with another parent.
	ErrNotChild = errors.New("scene: element is not a child")

	// ErrDuplicateID is returned when an identifier would be held by two live elements.
	ErrDuplicateID = errors.New("scene: identifier already in use")

	// ErrRootID is returned when re-identifying the scene root.
	ErrRootID = errors.New("scene: the scene root has no identifier")
)

// Document is a scene tree with built-in change tracking.
type Document struct {
	scene   *Element
	byUUID  map[string]*Element
	changes *tracker.Tracker[*Element]
	muted   bool
}

var (
	_ ports.Tree  = (*Document)(nil)
	_ ports.Muter = (*Document)(nil)
)

// New creates an empty document with a <scene> root.
func New() *Document {
	d := &Document{
		byUUID:  make(map[string]*Element),
		changes: tracker.New[*Element](),
	}
	d.scene = &Element{doc: d, tag: domain.TagScene, reflect: false}
	return d
}

// Scene returns the root container.
func (d *Document) Scene() *Element { return d.scene }

// CreateElement returns a detached element with a fresh identifier.
func (d *Document) CreateElement(tag string) *Element {
	return &Element{doc: d, tag: tag, uuid: ulid.Make().String(), reflect: true}
}

// ElementByUUID returns the live element with the given identifier.
func (d *Document) ElementByUUID(id string) *Element {
	return d.byUUID[id]
}

// ElementByID returns the first live element whose id attribute equals id.
func (d *Document) ElementByID(id string) *Element {
	var found *Element
	d.scene.walk(func(e *Element) {
		if found != nil || e == d.scene {
			return
		}
		if v, ok := e.Attribute("id"); ok && v == id {
			found = e
		}
	})
	return found
}

// Len returns the number of live elements, excluding the scene root.
func (d *Document) Len() int { return len(d.byUUID) }

// String renders the whole scene as markup.
func (d *Document) String() string { return d.scene.String() }

// Pending reports whether there are changes waiting to be drained.
func (d *Document) Pending() bool { return d.changes.Pending() }

// CreateNode implements ports.Tree.
func (d *Document) CreateNode(tag, id string) (ports.Node, error) {
	if id == "" {
		return nil, fmt.Errorf("create <%s>: empty identifier", tag)
	}
	return &Element{doc: d, tag: tag, uuid: id, reflect: true}, nil
}

// Lookup implements ports.Tree.
func (d *Document) Lookup(id string) (ports.Node, bool) {
	e, ok := d.byUUID[id]
	if !ok {
		return nil, false
	}
	return e, true
}

// AttachToRoot implements ports.Tree.
func (d *Document) AttachToRoot(n ports.Node) error {
	e, err := d.own(n)
	if err != nil {
		return err
	}
	return d.scene.AppendChild(e)
}

// Detach implements ports.Tree.
func (d *Document) Detach(n ports.Node) error {
	e, err := d.own(n)
	if err != nil {
		return err
	}
	return e.Remove()
}

// Drain implements ports.Tree.
func (d *Document) Drain() ([]ports.Node, []string) {
	changes := d.changes.Drain()
	dirty := make([]ports.Node, 0, len(changes.Dirty))
	for _, e := range changes.Dirty {
		dirty = append(dirty, e)
	}
	return dirty, changes.Dead
}

// WithoutTracking runs fn without recording changes.
func (d *Document) WithoutTracking(fn func()) {
	prev := d.muted
	d.muted = true
	defer func() { d.muted = prev }()
	fn()
}

func (d *Document) own(n ports.Node) (*Element, error) {
	e, ok := n.(*Element)
	if !ok || e.doc != d {
		return nil, domain.ErrForeignNode
	}
	return e, nil
}

func (d *Document) mark(fn func()) {
	if !d.muted {
		fn()
	}
}

// attach registers a subtree that just became live.
func (d *Document) attach(root *Element) {
	root.walk(func(e *Element) {
		d.byUUID[e.uuid] = e
		d.mark(func() { d.changes.MarkCreated(e.uuid, e) })
	})
}

// detach unregisters a subtree that just left the live tree.
func (d *Document) detach(root *Element) {
	root.walk(func(e *Element) {
		if d.byUUID[e.uuid] == e {
			delete(d.byUUID, e.uuid)
		}
		d.mark(func() { d.changes.MarkDead(e.uuid) })
	})
}

// checkIDs rejects a subtree about to go live whose identifiers are already
// live or repeat within the subtree.
func (d *Document) checkIDs(root *Element) error {
	seen := make(map[string]struct{})
	var err error
	root.walk(func(e *Element) {
		if err != nil {
			return
		}
		_, repeated := seen[e.uuid]
		if other, live := d.byUUID[e.uuid]; repeated || (live && other != e) {
			err = fmt.Errorf("attach %q: %w", e.uuid, ErrDuplicateID)
			return
		}
		seen[e.uuid] = struct{}{}
	})
	return err
}

// reidentify moves an element to a new identifier.
func (d *Document) reidentify(e *Element, id string) error {
	switch {
	case e == d.scene:
		return ErrRootID
	case id == "":
		return fmt.Errorf("set %s: empty identifier", domain.AttrUUID)
	case id == e.uuid:
		return nil
	}
	if !e.Connected() {
		e.uuid = id
		return nil
	}
	if other, ok := d.byUUID[id]; ok && other != e {
		return fmt.Errorf("reidentify %q as %q: %w", e.uuid, id, ErrDuplicateID)
	}
	old := e.uuid
	delete(d.byUUID, old)
	d.mark(func() { d.changes.MarkDead(old) })
	e.uuid = id
	d.byUUID[id] = e
	d.mark(func() { d.changes.MarkCreated(id, e) })
	return nil
}
