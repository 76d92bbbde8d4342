package arbor

import (
	"errors"
	"io"
)

// Cursor adapts a Tokenizer into a Source. It adds one event of lookahead,
// subtree skipping, raw capture delegation and a nesting guard.
type Cursor struct {
	tok      Tokenizer
	format   string
	lenient  bool
	maxDepth int

	peeked  Event
	peekErr error
	hasPeek bool

	depth int
	span  Span
}

// NewCursor wraps tok. format names the format namespace used to select
// per-format proxies; lenient enables HTML-style tolerance. cfg may be nil.
func NewCursor(tok Tokenizer, format string, lenient bool, cfg *Config) *Cursor {
	maxDepth := DefaultMaxDepth
	if cfg != nil && cfg.MaxDepth > 0 {
		maxDepth = cfg.MaxDepth
	}
	return &Cursor{
		tok:      tok,
		format:   format,
		lenient:  lenient,
		maxDepth: maxDepth,
	}
}

// read pulls one event from the tokenizer and tracks nesting.
func (c *Cursor) read() (Event, error) {
	ev, err := c.tok.Next()
	c.span = c.tok.Span()
	if err != nil {
		if errors.Is(err, io.EOF) && c.depth > 0 {
			return Event{}, ErrUnexpectedEOF
		}
		return Event{}, err
	}
	switch ev.Kind {
	case EventElementStart:
		c.depth++
		if c.depth > c.maxDepth {
			return Event{}, ErrDepthExceeded
		}
	case EventElementEnd:
		c.depth--
	}
	return ev, nil
}

// Peek returns the next event without consuming it.
func (c *Cursor) Peek() (Event, error) {
	if !c.hasPeek {
		c.peeked, c.peekErr = c.read()
		c.hasPeek = true
	}
	return c.peeked, c.peekErr
}

// Next consumes and returns the next event.
func (c *Cursor) Next() (Event, error) {
	if c.hasPeek {
		c.hasPeek = false
		return c.peeked, c.peekErr
	}
	return c.read()
}

// SkipSubtree discards the next event, or the whole element it starts.
func (c *Cursor) SkipSubtree() error {
	ev, err := c.Next()
	if err != nil {
		return err
	}
	if ev.Kind != EventElementStart {
		return nil
	}
	level := 1
	for level > 0 {
		ev, err = c.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrUnexpectedEOF
			}
			return err
		}
		switch ev.Kind {
		case EventElementStart:
			level++
		case EventElementEnd:
			level--
		}
	}
	return nil
}

// Span returns the position of the most recently read event.
func (c *Cursor) Span() Span {
	return c.span
}

// CaptureRaw consumes the next element and returns its markup.
func (c *Cursor) CaptureRaw() (string, error) {
	rc, ok := c.tok.(RawCapturer)
	if !ok {
		return "", ErrRawUnsupported
	}
	ev, err := c.Peek()
	if err != nil {
		return "", err
	}
	if ev.Kind != EventElementStart {
		return "", newMismatch("ElementStart", ev)
	}
	if _, err := c.Next(); err != nil {
		return "", err
	}
	raw, err := rc.CaptureRaw(ev)
	if err != nil {
		return "", err
	}
	c.depth--
	return raw, nil
}

// Lenient reports whether HTML-style tolerance applies.
func (c *Cursor) Lenient() bool {
	return c.lenient
}

// FormatNamespace returns the format namespace.
func (c *Cursor) FormatNamespace() string {
	return c.format
}

// Depth returns the current element nesting.
func (c *Cursor) Depth() int {
	return c.depth
}
