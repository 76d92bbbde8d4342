package tree

import (
	"context"
	"errors"

	"github.com/zoobzio/arbor"
)

// Snapshot is the plain-data form of a tree, for document encodings that
// cannot carry mixed content directly. A snapshot with an empty Tag is a
// text node.
type Snapshot struct {
	Tag      string            `json:"tag,omitempty" yaml:"tag,omitempty" msgpack:"tag,omitempty" bson:"tag,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty" msgpack:"attrs,omitempty" bson:"attrs,omitempty"`
	Children []Snapshot        `json:"children,omitempty" yaml:"children,omitempty" msgpack:"children,omitempty" bson:"children,omitempty"`
	Text     string            `json:"text,omitempty" yaml:"text,omitempty" msgpack:"text,omitempty" bson:"text,omitempty"`
}

// ErrTextRoot is returned when a snapshot's root is a text node.
var ErrTextRoot = errors.New("snapshot root is a text node")

// Snapshot converts e.
func (e Element) Snapshot() Snapshot {
	s := Snapshot{Tag: e.Tag}
	if len(e.Attrs) > 0 {
		s.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			s.Attrs[k] = v
		}
	}
	for _, c := range e.Children {
		switch c := c.(type) {
		case Text:
			s.Children = append(s.Children, Snapshot{Text: string(c)})
		case Element:
			s.Children = append(s.Children, c.Snapshot())
		}
	}
	return s
}

// Element converts s back into a tree.
func (s Snapshot) Element() (Element, error) {
	if s.Tag == "" {
		return Element{}, ErrTextRoot
	}
	return s.element(), nil
}

func (s Snapshot) element() Element {
	e := Element{Tag: s.Tag}
	if len(s.Attrs) > 0 {
		e.Attrs = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			e.Attrs[k] = v
		}
	}
	for _, c := range s.Children {
		if c.Tag == "" {
			e.Children = append(e.Children, Text(c.Text))
			continue
		}
		e.Children = append(e.Children, c.element())
	}
	return e
}

// SnapshotCodec carries values as snapshots in a document encoding.
type SnapshotCodec struct {
	contentType string
	marshal     func(any) ([]byte, error)
	unmarshal   func([]byte, any) error
	opts        []arbor.Option
}

// NewSnapshotCodec builds a codec from an encoding's marshal functions.
func NewSnapshotCodec(contentType string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error, opts ...arbor.Option) *SnapshotCodec {
	return &SnapshotCodec{
		contentType: contentType,
		marshal:     marshal,
		unmarshal:   unmarshal,
		opts:        opts,
	}
}

// ContentType returns the MIME type of the encoding.
func (c *SnapshotCodec) ContentType() string {
	return c.contentType
}

// Marshal encodes v.
func (c *SnapshotCodec) Marshal(v any) ([]byte, error) {
	return c.MarshalContext(context.Background(), v)
}

// Unmarshal decodes data into v.
func (c *SnapshotCodec) Unmarshal(data []byte, v any) error {
	return c.UnmarshalContext(context.Background(), data, v)
}

// MarshalContext implements arbor.ContextCodec.
func (c *SnapshotCodec) MarshalContext(ctx context.Context, v any) ([]byte, error) {
	e, err := FromValue(ctx, v)
	if err != nil {
		return nil, err
	}
	return c.marshal(e.Snapshot())
}

// UnmarshalContext implements arbor.ContextCodec.
func (c *SnapshotCodec) UnmarshalContext(ctx context.Context, data []byte, v any) error {
	var s Snapshot
	if err := c.unmarshal(data, &s); err != nil {
		return err
	}
	e, err := s.Element()
	if err != nil {
		return err
	}
	return ToValue(ctx, e, v, c.opts...)
}
