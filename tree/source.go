package tree

import (
	"context"
	"errors"
	"io"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/xml"
)

// FormatNamespace selects proxies registered for trees (proxy.tree=...).
const FormatNamespace = "tree"

// Tokenizer walks an element tree as events.
type Tokenizer struct {
	events []arbor.Event
	owner  map[int]Element // start index -> element
	end    map[int]int     // start index -> index of its ElementEnd
	pos    int
}

// NewTokenizer flattens root into events. Attributes are reported in name
// order.
func NewTokenizer(root Element) *Tokenizer {
	t := &Tokenizer{
		owner: make(map[int]Element),
		end:   make(map[int]int),
	}
	t.walk(root)
	return t
}

func (t *Tokenizer) walk(e Element) {
	start := len(t.events)
	t.owner[start] = e
	t.events = append(t.events, arbor.Event{Kind: arbor.EventElementStart, Name: e.Tag})
	for _, name := range e.AttrNames() {
		t.events = append(t.events, arbor.Event{Kind: arbor.EventAttribute, Name: name, Value: e.Attrs[name]})
	}
	t.events = append(t.events, arbor.Event{Kind: arbor.EventChildrenStart})
	for _, c := range e.Children {
		switch c := c.(type) {
		case Text:
			t.events = append(t.events, arbor.Event{Kind: arbor.EventText, Value: string(c)})
		case Element:
			t.walk(c)
		}
	}
	t.events = append(t.events, arbor.Event{Kind: arbor.EventChildrenEnd})
	t.end[start] = len(t.events)
	t.events = append(t.events, arbor.Event{Kind: arbor.EventElementEnd, Name: e.Tag})
}

// Next returns the next event, or io.EOF after the root closes.
func (t *Tokenizer) Next() (arbor.Event, error) {
	if t.pos >= len(t.events) {
		return arbor.Event{}, io.EOF
	}
	ev := t.events[t.pos]
	t.pos++
	return ev, nil
}

// Span reports the event index as the offset.
func (t *Tokenizer) Span() arbor.Span {
	return arbor.Span{Offset: int64(t.pos)}
}

// CaptureRaw renders the element whose start was just returned as XML.
func (t *Tokenizer) CaptureRaw(arbor.Event) (string, error) {
	start := t.pos - 1
	e, ok := t.owner[start]
	if !ok {
		return "", errors.New("raw capture outside an element start")
	}
	data, err := xml.Marshal(e)
	if err != nil {
		return "", err
	}
	t.pos = t.end[start] + 1
	return string(data), nil
}

// NewSource returns a Source over root.
func NewSource(root Element, opts ...arbor.Option) *arbor.Cursor {
	cfg := arbor.NewConfig(opts...)
	lenient := cfg.Lenient != nil && *cfg.Lenient
	return arbor.NewCursor(NewTokenizer(root), FormatNamespace, lenient, cfg)
}

// ToValue decodes root into v.
func ToValue(ctx context.Context, root Element, v any, opts ...arbor.Option) error {
	return arbor.Decode(ctx, NewSource(root, opts...), v, opts...)
}

// Parse reads an XML document into a tree.
func Parse(data []byte, opts ...arbor.Option) (Element, error) {
	var e Element
	err := xml.Unmarshal(data, &e, opts...)
	return e, err
}
