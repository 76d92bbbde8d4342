package xml

import (
	"bytes"
	stdxml "encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/zoobzio/arbor"
)

// FormatNamespace selects proxies registered for XML (proxy.xml=...).
const FormatNamespace = "xml"

// Tokenizer turns XML text into tree events. Element names carry their
// resolved namespace URI; namespace declarations are not reported as
// attributes.
type Tokenizer struct {
	data     []byte
	dec      *stdxml.Decoder
	preserve bool

	queue     []arbor.Event
	lastStart int64
	span      arbor.Span
}

// NewTokenizer reads data. Lenient configurations accept HTML-style
// entities and unclosed tags.
func NewTokenizer(data []byte, cfg *arbor.Config) *Tokenizer {
	if cfg == nil {
		cfg = arbor.DefaultConfig()
	}
	dec := stdxml.NewDecoder(bytes.NewReader(data))
	if cfg.Lenient != nil && *cfg.Lenient {
		dec.Strict = false
		dec.AutoClose = stdxml.HTMLAutoClose
		dec.Entity = stdxml.HTMLEntity
	}
	return &Tokenizer{
		data:     data,
		dec:      dec,
		preserve: cfg.PreserveWhitespace,
	}
}

// Next returns the next event, or io.EOF at the end of input.
func (t *Tokenizer) Next() (arbor.Event, error) {
	for len(t.queue) == 0 {
		if err := t.fill(); err != nil {
			return arbor.Event{}, err
		}
	}
	ev := t.queue[0]
	t.queue = t.queue[1:]
	return ev, nil
}

// Span is the position of the most recently read token.
func (t *Tokenizer) Span() arbor.Span {
	return t.span
}

func (t *Tokenizer) fill() error {
	offset := t.dec.InputOffset()
	tok, err := t.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	line, col := t.dec.InputPos()
	t.span = arbor.Span{Offset: offset, Line: line, Column: col}

	switch tok := tok.(type) {
	case stdxml.StartElement:
		t.lastStart = offset
		t.queue = append(t.queue, arbor.Event{
			Kind:      arbor.EventElementStart,
			Name:      tok.Name.Local,
			Namespace: tok.Name.Space,
		})
		for _, a := range tok.Attr {
			if isNamespaceDecl(a.Name) {
				continue
			}
			t.queue = append(t.queue, arbor.Event{
				Kind:      arbor.EventAttribute,
				Name:      a.Name.Local,
				Namespace: a.Name.Space,
				Value:     a.Value,
			})
		}
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventChildrenStart})

	case stdxml.EndElement:
		t.queue = append(t.queue,
			arbor.Event{Kind: arbor.EventChildrenEnd},
			arbor.Event{Kind: arbor.EventElementEnd, Name: tok.Name.Local, Namespace: tok.Name.Space},
		)

	case stdxml.CharData:
		text := string(tok)
		if !t.preserve {
			text = strings.TrimSpace(text)
			if text == "" {
				return nil
			}
		}
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventText, Value: text})

	case stdxml.Comment:
		t.queue = append(t.queue, arbor.Event{Kind: arbor.EventComment, Value: string(tok)})

	case stdxml.Directive:
		if rest, ok := cutDoctype(string(tok)); ok {
			t.queue = append(t.queue, arbor.Event{Kind: arbor.EventDoctype, Value: rest})
		}
	}
	return nil
}

// CaptureRaw returns the source text of the element whose start event was
// just returned, and consumes the rest of it.
func (t *Tokenizer) CaptureRaw(start arbor.Event) (string, error) {
	t.queue = t.queue[:0]
	for depth := 1; depth > 0; {
		tok, err := t.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", arbor.ErrUnexpectedEOF
			}
			return "", err
		}
		switch tok.(type) {
		case stdxml.StartElement:
			depth++
		case stdxml.EndElement:
			depth--
		}
	}
	end := t.dec.InputOffset()
	return string(t.data[t.lastStart:end]), nil
}

func isNamespaceDecl(n stdxml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}

// cutDoctype returns the body of a <!DOCTYPE ...> directive.
func cutDoctype(d string) (string, bool) {
	const kw = "DOCTYPE"
	if len(d) < len(kw) || !strings.EqualFold(d[:len(kw)], kw) {
		return "", false
	}
	return strings.TrimSpace(d[len(kw):]), true
}

// NewSource returns a Source over data.
func NewSource(data []byte, opts ...arbor.Option) *arbor.Cursor {
	cfg := arbor.NewConfig(opts...)
	lenient := cfg.Lenient != nil && *cfg.Lenient
	return arbor.NewCursor(NewTokenizer(data, cfg), FormatNamespace, lenient, cfg)
}

// NewReaderSource reads r fully and returns a Source over it. Raw capture
// slices the input, so the whole document is held in memory.
func NewReaderSource(r io.Reader, opts ...arbor.Option) (*arbor.Cursor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewSource(data, opts...), nil
}
