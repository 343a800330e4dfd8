package domain

import "strings"

// Attribute is a single name/value pair of a node.
type Attribute struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Descriptor is one decoded packet entry.
// The set of implementations is closed: Element, Tombstone and Event.
type Descriptor interface {
	// DescriptorID returns the identifier carried by the entry (may be empty).
	DescriptorID() string
	descriptor()
}

// Element announces the current (possibly partial) attribute state of a node.
type Element struct {
	ID         string      `json:"uuid"`
	Tag        string      `json:"tag"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Tombstone announces that the node with ID has been removed.
type Tombstone struct {
	ID string `json:"uuid"`
}

// Event is a syntactically valid entry whose semantics are not defined yet.
type Event struct {
	ID         string      `json:"uuid,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

func (e Element) DescriptorID() string   { return e.ID }
func (t Tombstone) DescriptorID() string { return t.ID }
func (e Event) DescriptorID() string     { return e.ID }

func (Element) descriptor()   {}
func (Tombstone) descriptor() {}
func (Event) descriptor()     {}

// NewDescriptor classifies a raw entry by its tag.
// Attributes must not include the identifier.
func NewDescriptor(tag, id string, attrs []Attribute) Descriptor {
	switch {
	case strings.EqualFold(tag, TagDead):
		return Tombstone{ID: id}
	case strings.EqualFold(tag, TagEvent):
		return Event{ID: id, Attributes: attrs}
	default:
		return Element{ID: id, Tag: tag, Attributes: attrs}
	}
}

// Lookup returns the value of the named attribute.
func (e Element) Lookup(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
