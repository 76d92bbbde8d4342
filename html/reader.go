// Package html reads and writes HTML for the arbor engine.
//
// Reading is lenient: void elements close themselves, unclosed elements are
// closed by their parent's end tag or at the end of input, and stray end
// tags are ignored.
package html

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/zoobzio/arbor"
	nethtml "golang.org/x/net/html"
)

// FormatNamespace selects proxies registered for HTML (proxy.html=...).
const FormatNamespace = "html"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// IsVoid reports whether tag never has content.
func IsVoid(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

// Tokenizer turns HTML into tree events.
type Tokenizer struct {
	z        *nethtml.Tokenizer
	preserve bool

	open    []string
	queue   []arbor.Event
	lastRaw []byte
	offset  int64
	span    arbor.Span
	done    bool
}

// NewTokenizer reads HTML from r.
func NewTokenizer(r io.Reader, cfg *arbor.Config) *Tokenizer {
	if cfg == nil {
		cfg = arbor.DefaultConfig()
	}
	return &Tokenizer{
		z:        nethtml.NewTokenizer(r),
		preserve: cfg.PreserveWhitespace,
	}
}

// Next returns the next event, or io.EOF once every open element is closed.
func (t *Tokenizer) Next() (arbor.Event, error) {
	for len(t.queue) == 0 {
		if t.done {
			return arbor.Event{}, io.EOF
		}
		if err := t.fill(); err != nil {
			return arbor.Event{}, err
		}
	}
	ev := t.queue[0]
	t.queue = t.queue[1:]
	return ev, nil
}

// Span reports the byte offset of the most recent token.
func (t *Tokenizer) Span() arbor.Span {
	return t.span
}

func (t *Tokenizer) closeElement(name string) {
	t.queue = append(t.queue,
		arbor.Event{Kind: arbor.EventChildrenEnd},
		arbor.Event{Kind: arbor.EventElementEnd, Name: name},
	)
}

func (t *Tokenizer) fill() error {
	tt := t.z.Next()
	raw := t.z.Raw()
	t.span = arbor.Span{Offset: t.offset}
	t.offset += int64(len(raw))

	switch tt {
	case nethtml.ErrorToken:
		if err := t.z.Err(); !errors.Is(err, io.EOF) {
			return err
		}
		for i := len(t.open) - 1; i >= 0; i-- {
			t.closeElement(t.open[i])
		}
		t.open = nil
		t.done = true

	case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
		t.lastRaw = append(t.lastRaw[:0], raw...)
		tok := t.z.Token()
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventElementStart, Name: tok.Data})
		for _, a := range tok.Attr {
			t.queue = append(t.queue, arbor.Event{
				Kind:      arbor.EventAttribute,
				Name:      a.Key,
				Namespace: a.Namespace,
				Value:     a.Val,
			})
		}
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventChildrenStart})
		if tt == nethtml.SelfClosingTagToken || IsVoid(tok.Data) {
			t.closeElement(tok.Data)
			return nil
		}
		t.open = append(t.open, tok.Data)

	case nethtml.EndTagToken:
		tok := t.z.Token()
		i := len(t.open) - 1
		for ; i >= 0 && t.open[i] != tok.Data; i-- {
		}
		if i < 0 {
			return nil
		}
		for j := len(t.open) - 1; j >= i; j-- {
			t.closeElement(t.open[j])
		}
		t.open = t.open[:i]

	case nethtml.TextToken:
		text := string(t.z.Text())
		if !t.preserve {
			text = strings.TrimSpace(text)
			if text == "" {
				return nil
			}
		}
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventText, Value: text})

	case nethtml.CommentToken:
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventComment, Value: string(t.z.Text())})

	case nethtml.DoctypeToken:
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventDoctype, Value: string(t.z.Text())})
	}
	return nil
}

// CaptureRaw returns the source markup of the element whose start event
// was just returned, and consumes the rest of it.
func (t *Tokenizer) CaptureRaw(start arbor.Event) (string, error) {
	var b bytes.Buffer
	b.Write(t.lastRaw)

	// Void and self-closing elements were closed by the tokenizer already.
	closed := len(t.queue) > 0 && t.queue[len(t.queue)-1].Kind == arbor.EventElementEnd
	t.queue = t.queue[:0]
	if closed || len(t.open) == 0 || t.open[len(t.open)-1] != start.Name {
		return b.String(), nil
	}

	depth := 1
	for depth > 0 {
		tt := t.z.Next()
		raw := t.z.Raw()
		t.offset += int64(len(raw))
		b.Write(raw)
		switch tt {
		case nethtml.ErrorToken:
			if err := t.z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			depth = 0
		case nethtml.StartTagToken:
			name, _ := t.z.TagName()
			if !IsVoid(string(name)) {
				depth++
			}
		case nethtml.EndTagToken:
			depth--
		}
	}
	t.open = t.open[:len(t.open)-1]
	return b.String(), nil
}

// NewSource returns a lenient Source over r. WithLenient(false) makes text
// handling strict; the tokenizer itself stays tolerant.
func NewSource(r io.Reader, opts ...arbor.Option) *arbor.Cursor {
	cfg := arbor.NewConfig(opts...)
	lenient := true
	if cfg.Lenient != nil {
		lenient = *cfg.Lenient
	}
	return arbor.NewCursor(NewTokenizer(r, cfg), FormatNamespace, lenient, cfg)
}
