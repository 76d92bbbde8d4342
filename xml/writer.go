package xml

import (
	"bytes"
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/zoobzio/arbor"
)

// Well-known namespace URIs and their conventional prefixes.
var wellKnownPrefixes = map[string]string{
	"http://www.w3.org/2001/XMLSchema-instance":  "xsi",
	"http://www.w3.org/2001/XMLSchema":           "xs",
	"http://www.w3.org/XML/1998/namespace":       "xml",
	"http://www.w3.org/1999/xlink":               "xlink",
	"http://www.w3.org/2000/svg":                 "svg",
	"http://www.w3.org/1999/xhtml":               "xhtml",
	"http://schemas.xmlsoap.org/soap/envelope/":  "soap",
	"http://www.w3.org/2003/05/soap-envelope":    "soap12",
	"http://schemas.android.com/apk/res/android": "android",
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ErrNotInStartTag is returned for attributes written after content.
var ErrNotInStartTag = errors.New("attribute outside a start tag")

type openElement struct {
	name      string
	defaultNS string
	declared  []string
	started   bool // '>' written
	nested    bool // child markup written
}

// Writer is an arbor.Sink producing XML text.
//
// The root element's namespace becomes the default namespace. Other
// namespaces get a prefix, declared on the first element that uses them.
type Writer struct {
	buf    bytes.Buffer
	pretty bool
	indent string

	stack    []*openElement
	prefixes map[string]string
	used     map[string]bool
	next     int
}

// NewWriter returns an empty writer. WithPretty and WithIndent control
// layout.
func NewWriter(opts ...arbor.Option) *Writer {
	cfg := arbor.NewConfig(opts...)
	return &Writer{
		pretty:   cfg.Pretty,
		indent:   cfg.Indent,
		prefixes: make(map[string]string),
		used:     make(map[string]bool),
	}
}

// Bytes returns the document written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// String returns the document written so far.
func (w *Writer) String() string {
	return w.buf.String()
}

// FormatNamespace implements arbor.FormatNamespacer.
func (w *Writer) FormatNamespace() string {
	return FormatNamespace
}

func (w *Writer) top() *openElement {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

// finishStart writes the pending '>' of the innermost start tag.
func (w *Writer) finishStart() {
	if el := w.top(); el != nil && !el.started {
		w.buf.WriteByte('>')
		el.started = true
	}
}

// breakLine starts a new indented line for nested markup.
func (w *Writer) breakLine(depth int) {
	if !w.pretty || w.buf.Len() == 0 {
		return
	}
	w.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.buf.WriteString(w.indent)
	}
}

func (w *Writer) inScope(uri string) bool {
	for _, el := range w.stack {
		for _, d := range el.declared {
			if d == uri {
				return true
			}
		}
	}
	return false
}

// prefix returns the prefix bound to uri, allocating one if needed.
func (w *Writer) prefix(uri string) string {
	if p, ok := w.prefixes[uri]; ok {
		return p
	}
	p, ok := wellKnownPrefixes[uri]
	if !ok || w.used[p] {
		for {
			p = fmt.Sprintf("ns%d", w.next)
			w.next++
			if !w.used[p] {
				break
			}
		}
	}
	w.prefixes[uri] = p
	w.used[p] = true
	return p
}

// declare writes an xmlns:prefix declaration on the open start tag unless
// uri is already in scope.
func (w *Writer) declare(el *openElement, uri string) string {
	p := w.prefix(uri)
	if !w.inScope(uri) {
		w.buf.WriteString(" xmlns:")
		w.buf.WriteString(p)
		w.buf.WriteString(`="`)
		w.writeAttrValue(uri)
		w.buf.WriteByte('"')
		el.declared = append(el.declared, uri)
	}
	return p
}

// ElementStart implements arbor.Sink.
func (w *Writer) ElementStart(tag, namespace string) error {
	w.finishStart()
	parent := w.top()
	inherited := ""
	if parent != nil {
		parent.nested = true
		inherited = parent.defaultNS
	}
	w.breakLine(len(w.stack))

	el := &openElement{name: tag, defaultNS: inherited}
	w.buf.WriteByte('<')
	switch {
	case namespace == inherited:
		w.buf.WriteString(tag)
	case namespace == "":
		w.buf.WriteString(tag)
		w.buf.WriteString(` xmlns=""`)
		el.defaultNS = ""
	case parent == nil:
		w.buf.WriteString(tag)
		w.buf.WriteString(` xmlns="`)
		w.writeAttrValue(namespace)
		w.buf.WriteByte('"')
		el.defaultNS = namespace
	default:
		p := w.prefix(namespace)
		el.name = p + ":" + tag
		w.buf.WriteString(el.name)
		w.stack = append(w.stack, el)
		w.declare(el, namespace)
		return nil
	}
	w.stack = append(w.stack, el)
	return nil
}

// Attribute implements arbor.Sink.
func (w *Writer) Attribute(name, value, namespace string) error {
	el := w.top()
	if el == nil || el.started {
		return ErrNotInStartTag
	}
	prefix := ""
	if namespace != "" {
		prefix = w.declare(el, namespace)
	}
	w.buf.WriteByte(' ')
	if prefix != "" {
		w.buf.WriteString(prefix)
		w.buf.WriteByte(':')
	}
	w.buf.WriteString(name)
	w.buf.WriteString(`="`)
	w.writeAttrValue(value)
	w.buf.WriteByte('"')
	return nil
}

func (w *Writer) writeAttrValue(v string) {
	_ = stdxml.EscapeText(&w.buf, []byte(v))
}

// ChildrenStart implements arbor.Sink. The start tag stays open so that
// empty elements can be written self-closing.
func (w *Writer) ChildrenStart() error {
	return nil
}

// ChildrenEnd implements arbor.Sink.
func (w *Writer) ChildrenEnd() error {
	return nil
}

// ElementEnd implements arbor.Sink.
func (w *Writer) ElementEnd(string) error {
	el := w.top()
	if el == nil {
		return errors.New("element end without start")
	}
	w.stack = w.stack[:len(w.stack)-1]
	if !el.started {
		w.buf.WriteString("/>")
		return nil
	}
	if el.nested {
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
	_, err := textEscaper.WriteString(&w.buf, content)
	return err
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
