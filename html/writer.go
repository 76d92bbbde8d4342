package html

import (
	"bytes"
	"errors"
	"strings"

	"github.com/zoobzio/arbor"
	nethtml "golang.org/x/net/html"
)

type openElement struct {
	name    string
	started bool
	nested  bool
}

// Writer is an arbor.Sink producing HTML. Void elements are written
// without an end tag; namespaces are ignored.
type Writer struct {
	buf    bytes.Buffer
	pretty bool
	indent string
	stack  []*openElement
}

// NewWriter returns an empty writer.
func NewWriter(opts ...arbor.Option) *Writer {
	cfg := arbor.NewConfig(opts...)
	return &Writer{pretty: cfg.Pretty, indent: cfg.Indent}
}

// Bytes returns the document written so far.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// String returns the document written so far.
func (w *Writer) String() string { return w.buf.String() }

// FormatNamespace implements arbor.FormatNamespacer.
func (w *Writer) FormatNamespace() string { return FormatNamespace }

func (w *Writer) top() *openElement {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *Writer) finishStart() {
	if el := w.top(); el != nil && !el.started {
		w.buf.WriteByte('>')
		el.started = true
	}
}

func (w *Writer) breakLine(depth int) {
	if !w.pretty || w.buf.Len() == 0 {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(w.indent, depth))
}

// ElementStart implements arbor.Sink.
func (w *Writer) ElementStart(tag, _ string) error {
	w.finishStart()
	if el := w.top(); el != nil {
		el.nested = true
	}
	w.breakLine(len(w.stack))
	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	w.stack = append(w.stack, &openElement{name: tag})
	return nil
}

// Attribute implements arbor.Sink.
func (w *Writer) Attribute(name, value, _ string) error {
	el := w.top()
	if el == nil || el.started {
		return errors.New("attribute outside a start tag")
	}
	w.buf.WriteByte(' ')
	w.buf.WriteString(name)
	w.buf.WriteString(`="`)
	w.buf.WriteString(nethtml.EscapeString(value))
	w.buf.WriteByte('"')
	return nil
}

// ChildrenStart implements arbor.Sink.
func (w *Writer) ChildrenStart() error { return nil }

// ChildrenEnd implements arbor.Sink.
func (w *Writer) ChildrenEnd() error { return nil }

// ElementEnd implements arbor.Sink.
func (w *Writer) ElementEnd(string) error {
	el := w.top()
	if el == nil {
		return errors.New("element end without start")
	}
	w.stack = w.stack[:len(w.stack)-1]
	if !el.started {
		w.buf.WriteByte('>')
		if IsVoid(el.name) {
			return nil
		}
	} else if el.nested {
		w.breakLine(len(w.stack))
	}
	w.buf.WriteString("</")
	w.buf.WriteString(el.name)
	w.buf.WriteByte('>')
	return nil
}

// Text implements arbor.Sink.
func (w *Writer) Text(content string) error {
	w.finishStart()
	w.buf.WriteString(nethtml.EscapeString(content))
	return nil
}

// Comment implements arbor.CommentSink.
func (w *Writer) Comment(content string) error {
	w.finishStart()
	if el := w.top(); el != nil {
		el.nested = true
	}
	w.breakLine(len(w.stack))
	w.buf.WriteString("<!--")
	w.buf.WriteString(content)
	w.buf.WriteString("-->")
	return nil
}

// Doctype implements arbor.DoctypeSink.
func (w *Writer) Doctype(content string) error {
	w.breakLine(len(w.stack))
	w.buf.WriteString("<!DOCTYPE ")
	w.buf.WriteString(content)
	w.buf.WriteByte('>')
	return nil
}

// Raw implements arbor.RawSink.
func (w *Writer) Raw(markup string) error {
	w.finishStart()
	if el := w.top(); el != nil {
		el.nested = true
	}
	w.breakLine(len(w.stack))
	w.buf.WriteString(markup)
	return nil
}
