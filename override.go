package arbor

// Override interfaces let a type control its own text form. A type that
// implements them is treated as a scalar: it is read from attribute values
// and text content, and written as text.
//
// They take precedence over encoding.TextMarshaler and
// encoding.TextUnmarshaler, so a type can keep a different text form for
// other encodings.

// TextMarshaler renders the receiver as tree text.
type TextMarshaler interface {
	MarshalDOMText() (string, error)
}

// TextUnmarshaler parses tree text into the receiver.
type TextUnmarshaler interface {
	UnmarshalDOMText(text string) error
}
