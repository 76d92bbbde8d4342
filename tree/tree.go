// Package tree holds markup as an in-memory element tree.
//
// Element captures any element: its name, attributes and mixed content.
// It decodes from every arbor source and is the interchange form used by
// the json, yaml, msgpack and bson codecs.
package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/arbor"
)

func init() {
	arbor.RegisterEnum[Content](arbor.EnumOptions{},
		arbor.Case[Text](arbor.AsText()),
		arbor.Case[Element](arbor.AsCustomElement()),
	)
}

// Content is a child of an element: Text or Element.
type Content interface {
	isContent()
}

// Text is a text node.
type Text string

func (Text) isContent() {}

// Element is an element with any name.
type Element struct {
	Tag      string            `dom:",tag"`
	Attrs    map[string]string `dom:",flatten"`
	Children []Content         `dom:",flatten"`
}

func (Element) isContent() {}

// New returns an element named tag.
func New(tag string) Element {
	return Element{Tag: tag}
}

// WithAttr returns e with the attribute set.
func (e Element) WithAttr(name, value string) Element {
	attrs := make(map[string]string, len(e.Attrs)+1)
	for k, v := range e.Attrs {
		attrs[k] = v
	}
	attrs[name] = value
	e.Attrs = attrs
	return e
}

// WithChild returns e with child appended.
func (e Element) WithChild(child Element) Element {
	e.Children = append(e.Children[:len(e.Children):len(e.Children)], child)
	return e
}

// WithText returns e with a text node appended.
func (e Element) WithText(text string) Element {
	e.Children = append(e.Children[:len(e.Children):len(e.Children)], Text(text))
	return e
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// AttrNames returns the attribute names in sorted order.
func (e Element) AttrNames() []string {
	names := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ChildElements returns the element children, skipping text.
func (e Element) ChildElements() []Element {
	var out []Element
	for _, c := range e.Children {
		if el, ok := c.(Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// TextContent concatenates all descendant text.
func (e Element) TextContent() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e Element) writeText(b *strings.Builder) {
	for _, c := range e.Children {
		switch c := c.(type) {
		case Text:
			b.WriteString(string(c))
		case Element:
			c.writeText(b)
		}
	}
}

// PathError reports a ContentAt path that does not resolve.
type PathError struct {
	Path   []int
	Index  int
	Len    int
	Reason string
}

func (e *PathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %v", e.Reason, e.Path)
	}
	return fmt.Sprintf("index %d out of bounds (len=%d) at path %v", e.Index, e.Len, e.Path)
}

// ContentAt follows path, a sequence of child indices, from e.
func (e Element) ContentAt(path []int) (Content, error) {
	if len(path) == 0 {
		return nil, &PathError{Path: path, Reason: "empty path"}
	}
	cur := e
	for i, idx := range path {
		if idx < 0 || idx >= len(cur.Children) {
			return nil, &PathError{Path: path, Index: idx, Len: len(cur.Children)}
		}
		child := cur.Children[idx]
		if i == len(path)-1 {
			return child, nil
		}
		el, ok := child.(Element)
		if !ok {
			return nil, &PathError{Path: path, Reason: "text node has no children"}
		}
		cur = el
	}
	return nil, nil
}
