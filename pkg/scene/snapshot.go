package scene

import (
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is a detached copy of an element subtree for tooling and export.
type Snapshot struct {
	Tag        string             `json:"tag" msgpack:"tag"`
	UUID       string             `json:"uuid,omitempty" msgpack:"uuid,omitempty"`
	Attributes []domain.Attribute `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
	Children   []Snapshot         `json:"children,omitempty" msgpack:"children,omitempty"`
}

// Snapshot copies the element and its subtree.
func (e *Element) Snapshot() Snapshot {
	s := Snapshot{Tag: e.tag, UUID: e.uuid, Attributes: e.Attributes()}
	for _, c := range e.children {
		s.Children = append(s.Children, c.Snapshot())
	}
	return s
}

// Snapshot copies the whole scene.
func (d *Document) Snapshot() Snapshot { return d.scene.Snapshot() }

// EncodeSnapshot encodes s with msgpack.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// DecodeSnapshot decodes a msgpack-encoded snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := msgpack.Unmarshal(data, &s)
	return s, err
}
