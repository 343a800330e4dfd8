package packet

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/domsync/pkg/domain"
)

// Decode parses a packet into its ordered entries.
// It fails with a *domain.ParseError when the bytes are not a single
// well-formed packet envelope of childless entries.
func Decode(data []byte) ([]domain.Descriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.ParseError{Reason: "empty packet"}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	p := &parser{dec: dec}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.out, nil
}

type parser struct {
	dec *xml.Decoder
	out []domain.Descriptor

	// current entry while depth == 2
	tag   string
	id    string
	attrs []domain.Attribute
}

func (p *parser) fail(reason string, err error) error {
	return &domain.ParseError{Offset: p.dec.InputOffset(), Reason: reason, Err: err}
}

func (p *parser) run() error {
	depth := 0
	closed := false

	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			if !closed {
				return p.fail("unexpected end of packet", nil)
			}
			return nil
		}
		if err != nil {
			return p.fail("invalid markup", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case closed:
				return p.fail(fmt.Sprintf("unexpected <%s> after envelope", t.Name.Local), nil)
			case depth == 0:
				if t.Name.Local != domain.TagPacket {
					return p.fail(fmt.Sprintf("envelope must be <%s>, got <%s>", domain.TagPacket, t.Name.Local), nil)
				}
			case depth == 1:
				p.begin(t)
			default:
				return p.fail(fmt.Sprintf("<%s> must not have children", p.tag), nil)
			}
			depth++

		case xml.EndElement:
			depth--
			switch depth {
			case 0:
				closed = true
			case 1:
				p.out = append(p.out, domain.NewDescriptor(p.tag, p.id, p.attrs))
			}

		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return p.fail("unexpected text content", nil)
			}

		case xml.Comment, xml.ProcInst:
			// ignored

		case xml.Directive:
			return p.fail("directives are not allowed", nil)
		}
	}
}

func (p *parser) begin(t xml.StartElement) {
	p.tag = t.Name.Local
	p.id = ""
	p.attrs = nil
	for _, a := range t.Attr {
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		if name == domain.AttrUUID {
			p.id = a.Value
			continue
		}
		p.attrs = append(p.attrs, domain.Attribute{Name: name, Value: a.Value})
	}
}
