package ports

import "github.com/aretw0/domsync/pkg/domain"

// Node is a tagged, attributed node addressed by a stable identifier.
type Node interface {
	// ID returns the identifier that is unique among live nodes.
	ID() string

	// Tag returns the node's tag name.
	Tag() string

	// Attributes returns a copy of the node's attributes, excluding the identifier.
	Attributes() []domain.Attribute

	// SetAttribute creates or overwrites a single attribute.
	SetAttribute(name, value string)

	// Reflects reports whether changes to this node are included in outbound packets.
	Reflects() bool
}

// Tree is the scene structure the reconciler and the hub operate on.
// Implementations are not required to be safe for concurrent use; the hub
// serializes every call.
type Tree interface {
	// CreateNode returns a new detached node with the given tag and identifier.
	CreateNode(tag, id string) (Node, error)

	// Lookup finds a live node by identifier.
	Lookup(id string) (Node, bool)

	// AttachToRoot appends the node under the tree's scene container.
	AttachToRoot(n Node) error

	// Detach removes the node (and its subtree) from its parent.
	Detach(n Node) error

	// Drain returns the nodes marked dirty and the identifiers marked dead since
	// the previous call, and resets the tree's change tracker.
	Drain() (dirty []Node, dead []string)
}

// Muter is implemented by trees that can run a function without recording
// changes in their tracker.
type Muter interface {
	WithoutTracking(fn func())
}
