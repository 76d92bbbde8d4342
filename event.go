package arbor

import "fmt"

// EventKind identifies a tree event.
type EventKind uint8

const (
	EventElementStart EventKind = iota + 1
	EventAttribute
	EventChildrenStart
	EventText
	EventComment
	EventChildrenEnd
	EventElementEnd
	EventDoctype
)

var eventNames = [...]string{
	EventElementStart:  "ElementStart",
	EventAttribute:     "Attribute",
	EventChildrenStart: "ChildrenStart",
	EventText:          "Text",
	EventComment:       "Comment",
	EventChildrenEnd:   "ChildrenEnd",
	EventElementEnd:    "ElementEnd",
	EventDoctype:       "Doctype",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) && eventNames[k] != "" {
		return eventNames[k]
	}
	return "Invalid"
}

// Event is one step of a tree walk.
//
// Name holds the tag of an ElementStart or ElementEnd and the name of an
// Attribute. Value holds attribute values, text, comment and doctype content.
// An empty Namespace means the name carries no namespace.
type Event struct {
	Kind      EventKind
	Name      string
	Namespace string
	Value     string
}

func (e Event) String() string {
	switch e.Kind {
	case EventElementStart, EventElementEnd:
		if e.Namespace != "" {
			return fmt.Sprintf("%s{%s:%s}", e.Kind, e.Namespace, e.Name)
		}
		return fmt.Sprintf("%s{%s}", e.Kind, e.Name)
	case EventAttribute:
		return fmt.Sprintf("%s{%s=%q}", e.Kind, e.Name, e.Value)
	case EventText, EventComment, EventDoctype:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Value)
	default:
		return e.Kind.String()
	}
}

// Span locates an event in its input for diagnostics.
// Line and Column are 1-based and zero when unknown.
type Span struct {
	Offset int64
	Line   int
	Column int
}

// Tokenizer is implemented by concrete formats. It yields events in order and
// returns io.EOF after the last one.
type Tokenizer interface {
	Next() (Event, error)
	Span() Span
}

// RawCapturer is implemented by tokenizers that can return the raw markup of
// an element. CaptureRaw is called right after start has been returned by
// Next; it consumes the rest of that element and returns its full markup.
type RawCapturer interface {
	CaptureRaw(start Event) (string, error)
}

// Source is the peekable, single-pass cursor consumed by the decoder.
type Source interface {
	// Peek returns the next event without consuming it.
	Peek() (Event, error)

	// Next consumes and returns the next event.
	Next() (Event, error)

	// SkipSubtree discards the next event; if it starts an element, the whole
	// element up to and including its matching end is discarded.
	SkipSubtree() error

	// Span returns the position of the most recently returned event.
	Span() Span

	// CaptureRaw consumes the next element and returns its markup, or
	// ErrRawUnsupported.
	CaptureRaw() (string, error)

	// Lenient reports whether HTML-style error tolerance applies.
	Lenient() bool

	// FormatNamespace selects which per-format proxies apply ("xml", "html").
	FormatNamespace() string
}

// Sink receives events from the encoder.
type Sink interface {
	ElementStart(tag, namespace string) error
	Attribute(name, value, namespace string) error
	ChildrenStart() error
	ChildrenEnd() error
	ElementEnd(tag string) error
	Text(content string) error
}

// CommentSink is implemented by sinks that can write comments.
type CommentSink interface {
	Comment(content string) error
}

// DoctypeSink is implemented by sinks that can write doctype declarations.
type DoctypeSink interface {
	Doctype(content string) error
}

// RawSink is implemented by sinks that can splice raw markup.
type RawSink interface {
	Raw(markup string) error
}

// StructHook is notified before a struct is written.
type StructHook interface {
	StructMetadata(s *Shape) error
}

// FieldHook is notified before each field is written.
type FieldHook interface {
	FieldMetadata(f *Field) error
}

// VariantHook is notified before an enum variant is written.
type VariantHook interface {
	VariantMetadata(v *Variant) error
}

// FloatFormatter overrides how floats are rendered. bits is 32 or 64.
type FloatFormatter interface {
	FormatFloat(v float64, bits int) string
}

// FormatNamespacer names the format a sink writes, selecting per-format proxies.
type FormatNamespacer interface {
	FormatNamespace() string
}
