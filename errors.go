package arbor

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnknownElement indicates a child element matched no field or variant.
	ErrUnknownElement = errors.New("unknown element")

	// ErrUnknownAttribute indicates an attribute matched no field.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrTypeMismatch indicates the stream presented an event the current
	// handler cannot accept.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupported indicates a shape or combination the engine does not model.
	ErrUnsupported = errors.New("unsupported")

	// ErrBuilder indicates the value builder rejected an operation.
	ErrBuilder = errors.New("builder error")

	// ErrBackend indicates the concrete event source or sink failed.
	ErrBackend = errors.New("backend error")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrDepthExceeded indicates the event stream nested deeper than allowed.
	ErrDepthExceeded = errors.New("max depth exceeded")

	// ErrRawUnsupported indicates the source cannot capture raw markup.
	ErrRawUnsupported = errors.New("raw markup capture unsupported")

	// ErrUnexpectedEOF indicates the stream ended inside an element.
	ErrUnexpectedEOF = errors.New("unexpected end of input")
)

// UnknownElementError reports an element no field or variant accepts.
type UnknownElementError struct {
	Tag string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unknown element <%s>", e.Tag)
}

func (e *UnknownElementError) Unwrap() error {
	return ErrUnknownElement
}

// UnknownAttributeError reports an attribute no field accepts.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

func (e *UnknownAttributeError) Unwrap() error {
	return ErrUnknownAttribute
}

// TypeMismatchError reports an unexpected event.
type TypeMismatchError struct {
	Expected string // what the handler required
	Got      string // what the stream produced
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// UnsupportedError reports a shape the engine cannot map.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Reason
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// BuilderError represents a failed builder operation.
type BuilderError struct {
	Op    string // builder operation (begin_field, set_text, ...)
	Path  string // builder path at the time of failure
	Cause error  // underlying failure, e.g. a parse or proxy conversion error
}

func (e *BuilderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *BuilderError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrBuilder}
	}
	return []error{ErrBuilder, e.Cause}
}

// BackendError wraps a failure of a concrete source or sink.
type BackendError struct {
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", ErrBackend.Error(), e.Cause)
}

func (e *BackendError) Unwrap() []error {
	return []error{ErrBackend, e.Cause}
}

// ConfigError represents an invalid type declaration found while building a shape.
type ConfigError struct {
	Err    error  // Underlying sentinel error (ErrInvalidTag, ErrUnsupported)
	Type   string // Type being described
	Field  string // Field that triggered the error
	Detail string
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("%s (field %s.%s)", msg, e.Type, e.Field)
	case e.Type != "":
		return fmt.Sprintf("%s (type %s)", msg, e.Type)
	case e.Field != "":
		return fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DecodeError carries the builder path and stream position of a failed decode.
type DecodeError struct {
	Err  error
	Path string
	Span Span
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Span.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Span.Line, e.Span.Column)
	} else if e.Span.Offset > 0 {
		fmt.Fprintf(&b, " (offset %d)", e.Span.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError carries the Go type whose serialization failed.
type EncodeError struct {
	Err  error
	Type string
}

func (e *EncodeError) Error() string {
	if e.Type == "" {
		return "encode: " + e.Err.Error()
	}
	return fmt.Sprintf("encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError for an invalid declaration.
func newConfigError(sentinel error, typ, field, detail string) error {
	return &ConfigError{
		Err:    sentinel,
		Type:   typ,
		Field:  field,
		Detail: detail,
	}
}

// newBuilderError creates a BuilderError for a failed builder operation.
func newBuilderError(op, path string, cause error) error {
	return &BuilderError{Op: op, Path: path, Cause: cause}
}

// newMismatch creates a TypeMismatchError describing the offending event.
func newMismatch(expected string, got Event) error {
	return &TypeMismatchError{Expected: expected, Got: got.String()}
}

// unsupportedf creates an UnsupportedError.
func unsupportedf(format string, args ...any) error {
	return &UnsupportedError{Reason: fmt.Sprintf(format, args...)}
}

// backend wraps a tokenizer or sink failure, leaving engine errors untouched.
func backend(err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	for _, s := range []error{ErrDepthExceeded, ErrUnexpectedEOF, ErrRawUnsupported} {
		if errors.Is(err, s) {
			return err
		}
	}
	return &BackendError{Cause: err}
}
