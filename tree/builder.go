package tree

import (
	"context"
	"errors"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/xml"
)

// ErrNoRoot is returned when nothing was written to a Builder.
var ErrNoRoot = errors.New("no root element")

// Builder is an arbor.Sink that assembles an element tree. Namespaces,
// comments and doctypes are not kept.
type Builder struct {
	stack []*Element
	root  *Element
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Root returns the completed root element.
func (b *Builder) Root() (Element, error) {
	if b.root == nil {
		return Element{}, ErrNoRoot
	}
	return *b.root, nil
}

// FormatNamespace implements arbor.FormatNamespacer.
func (b *Builder) FormatNamespace() string {
	return FormatNamespace
}

func (b *Builder) top() *Element {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// ElementStart implements arbor.Sink.
func (b *Builder) ElementStart(tag, _ string) error {
	if b.root != nil && len(b.stack) == 0 {
		return errors.New("second root element " + tag)
	}
	b.stack = append(b.stack, &Element{Tag: tag})
	return nil
}

// Attribute implements arbor.Sink.
func (b *Builder) Attribute(name, value, _ string) error {
	e := b.top()
	if e == nil {
		return errors.New("attribute outside an element")
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	return nil
}

// ChildrenStart implements arbor.Sink.
func (b *Builder) ChildrenStart() error { return nil }

// ChildrenEnd implements arbor.Sink.
func (b *Builder) ChildrenEnd() error { return nil }

// ElementEnd implements arbor.Sink.
func (b *Builder) ElementEnd(string) error {
	e := b.top()
	if e == nil {
		return errors.New("element end without start")
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.attach(*e)
	return nil
}

func (b *Builder) attach(e Element) {
	if parent := b.top(); parent != nil {
		parent.Children = append(parent.Children, e)
		return
	}
	b.root = &e
}

// Text implements arbor.Sink.
func (b *Builder) Text(content string) error {
	e := b.top()
	if e == nil {
		return errors.New("text outside an element")
	}
	e.Children = append(e.Children, Text(content))
	return nil
}

// Raw implements arbor.RawSink by parsing the markup as XML.
func (b *Builder) Raw(markup string) error {
	e, err := Parse([]byte(markup))
	if err != nil {
		return err
	}
	b.attach(e)
	return nil
}

// FromValue encodes v into a tree.
func FromValue(ctx context.Context, v any) (Element, error) {
	b := NewBuilder()
	if err := arbor.Encode(ctx, b, v); err != nil {
		return Element{}, err
	}
	return b.Root()
}

// XML renders e as XML.
func (e Element) XML(opts ...arbor.Option) ([]byte, error) {
	return xml.Marshal(e, opts...)
}
