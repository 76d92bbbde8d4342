package arbor

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"time"
)

// errTextDropped reports that lenient mode discarded text meant for an enum.
// Callers leave the position unconstructed.
var errTextDropped = errors.New("text dropped")

// decoder holds the per-call state shared by every handler.
type decoder struct {
	ctx     context.Context
	src     Source
	cfg     *Config
	lenient bool
	format  string
}

// Decode reads one value from src into v, which must be a non-nil pointer.
func Decode(ctx context.Context, src Source, v any, opts ...Option) (retErr error) {
	start := time.Now()
	format := src.FormatNamespace()
	name := "nil"
	if t := reflect.TypeOf(v); t != nil {
		name = typeName(t)
	}
	emitDecodeStart(ctx, format, name)
	defer func() {
		emitDecodeComplete(ctx, format, name, time.Since(start), retErr)
	}()

	p, err := NewPartial(v)
	if err != nil {
		return err
	}

	cfg := NewConfig(opts...)
	d := &decoder{
		ctx:     ctx,
		src:     src,
		cfg:     cfg,
		lenient: src.Lenient(),
		format:  format,
	}
	if cfg.Lenient != nil {
		d.lenient = *cfg.Lenient
	}

	expected := ""
	if s := p.Shape().Unwrap(); s.Kind == KindStruct {
		expected = s.ElementName()
	}
	if err := d.value(p, nil, expected); err != nil {
		if errors.Is(err, errTextDropped) {
			return nil
		}
		return d.wrap(err, p)
	}
	return nil
}

// wrap attaches the builder path and stream position to err.
func (d *decoder) wrap(err error, p *Partial) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return err
	}
	return &DecodeError{Err: err, Path: p.Path(), Span: d.src.Span()}
}

func (d *decoder) peek() (Event, error) {
	ev, err := d.src.Peek()
	if err != nil && !errors.Is(err, io.EOF) {
		return ev, backend(err)
	}
	return ev, err
}

func (d *decoder) next() (Event, error) {
	ev, err := d.src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ev, ErrUnexpectedEOF
		}
		return ev, backend(err)
	}
	return ev, nil
}

// peekContent peeks past comments. io.EOF is returned as a zero event.
func (d *decoder) peekContent() (Event, error) {
	for {
		ev, err := d.peek()
		if errors.Is(err, io.EOF) {
			return Event{}, nil
		}
		if err != nil {
			return ev, err
		}
		if ev.Kind != EventComment {
			return ev, nil
		}
		if _, err := d.next(); err != nil {
			return ev, err
		}
	}
}

// expect consumes the next event and checks its kind.
func (d *decoder) expect(kind EventKind) (Event, error) {
	ev, err := d.next()
	if err != nil {
		return ev, err
	}
	if ev.Kind != kind {
		return ev, newMismatch(kind.String(), ev)
	}
	return ev, nil
}

func (d *decoder) denyUnknown(s *Shape) bool {
	return d.cfg.DenyUnknown || s.DenyUnknown
}

// value is the type-driven entry point. f is the field being filled, if
// any, for field-level proxies. expected is the element name the value
// is written under at its usage site.
func (d *decoder) value(p *Partial, f *Field, expected string) error {
	s := p.Shape()

	px, err := effectiveProxy(f, s, d.format)
	if err != nil {
		return err
	}
	if px != nil && px.Wire() != s.Type {
		return d.viaProxy(p, px, expected)
	}

	switch s.Kind {
	case KindStruct:
		if s.Transparent {
			if err := p.BeginInner(); err != nil {
				return err
			}
			if err := d.value(p, nil, expected); err != nil {
				return err
			}
			return p.End()
		}
		return d.decodeStruct(p, expected, "", "")
	case KindEnum:
		return d.decodeEnum(p, expected)
	case KindScalar:
		return d.decodeScalar(p)
	case KindRaw:
		return d.decodeRaw(p)
	case KindOption:
		return d.decodeOption(p, expected)
	case KindPointer:
		if err := p.BeginSmartPtr(); err != nil {
			return err
		}
		if err := d.value(p, nil, expected); err != nil {
			return err
		}
		return p.End()
	case KindList, KindSet, KindArray:
		return d.decodeSeq(p, expected)
	case KindMap:
		return d.decodeMap(p)
	}
	return unsupportedf("cannot decode %s", s.Kind)
}

// viaProxy decodes the wire form into a scratch value and converts it.
func (d *decoder) viaProxy(p *Partial, px Proxy, expected string) error {
	wire := reflect.New(px.Wire()).Elem()
	sub, err := newPartialValue(wire)
	if err != nil {
		return err
	}
	if err := d.value(sub, nil, expected); err != nil {
		return err
	}
	out, err := px.fromWire(wire)
	if err != nil {
		return newBuilderError("proxy", p.Path(), err)
	}
	return p.Set(out)
}

// setText stores an attribute value or text content, honoring proxies.
func (d *decoder) setText(p *Partial, f *Field, text string) error {
	s := p.Shape()
	px, err := effectiveProxy(f, s, d.format)
	if err != nil {
		return err
	}
	if px == nil || px.Wire() == s.Type {
		return p.SetText(text)
	}

	wire := reflect.New(px.Wire()).Elem()
	sub, err := newPartialValue(wire)
	if err != nil {
		return err
	}
	if err := sub.SetText(text); err != nil {
		return err
	}
	out, err := px.fromWire(wire)
	if err != nil {
		return newBuilderError("proxy", p.Path(), err)
	}
	return p.Set(out)
}

// decodeScalar reads inline text or an element holding only text. A void
// element yields the empty string.
func (d *decoder) decodeScalar(p *Partial) error {
	ev, err := d.peekContent()
	if err != nil {
		return err
	}
	switch ev.Kind {
	case EventText:
		if _, err := d.next(); err != nil {
			return err
		}
		return p.SetText(ev.Value)
	case EventElementStart:
		if _, err := d.next(); err != nil {
			return err
		}
		text, err := d.elementText()
		if err != nil {
			return err
		}
		return p.SetText(text)
	}
	return newMismatch("Text or ElementStart", ev)
}

// elementText consumes the rest of an element whose start was already read
// and returns its concatenated text. Attributes are ignored; nested elements
// are skipped in lenient mode.
func (d *decoder) elementText() (string, error) {
	for {
		ev, err := d.next()
		if err != nil {
			return "", err
		}
		switch ev.Kind {
		case EventAttribute:
			continue
		case EventElementEnd:
			return "", nil
		case EventChildrenStart:
		default:
			return "", newMismatch("Attribute or ChildrenStart", ev)
		}
		break
	}

	var b strings.Builder
	for {
		ev, err := d.peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrUnexpectedEOF
			}
			return "", err
		}
		switch ev.Kind {
		case EventText:
			b.WriteString(ev.Value)
			if _, err := d.next(); err != nil {
				return "", err
			}
		case EventComment:
			if _, err := d.next(); err != nil {
				return "", err
			}
		case EventElementStart:
			if !d.lenient {
				return "", newMismatch("Text", ev)
			}
			if err := d.src.SkipSubtree(); err != nil {
				return "", backend(err)
			}
		case EventChildrenEnd:
			if _, err := d.next(); err != nil {
				return "", err
			}
			if _, err := d.expect(EventElementEnd); err != nil {
				return "", err
			}
			return b.String(), nil
		default:
			return "", newMismatch("Text or ChildrenEnd", ev)
		}
	}
}

// skipElement consumes a whole element, including its content.
func (d *decoder) skipElement() error {
	if err := d.src.SkipSubtree(); err != nil {
		return backend(err)
	}
	return nil
}

func (d *decoder) decodeRaw(p *Partial) error {
	raw, err := d.src.CaptureRaw()
	if err != nil {
		return backend(err)
	}
	return p.SetText(raw)
}

// decodeOption leaves the option absent when the enclosing element closes
// immediately; otherwise it decodes the target.
func (d *decoder) decodeOption(p *Partial, expected string) error {
	ev, err := d.peekContent()
	if err != nil {
		return err
	}
	switch ev.Kind {
	case EventChildrenEnd, EventElementEnd, 0:
		return p.SetDefault()
	}

	if err := p.BeginSome(); err != nil {
		return err
	}
	if err := d.value(p, nil, expected); err != nil {
		if errors.Is(err, errTextDropped) {
			if err := p.Discard(); err != nil {
				return err
			}
			return p.SetDefault()
		}
		return err
	}
	return p.End()
}

// beginItem enters a new item of the list, set or array at the cursor.
// next is the positional index used for arrays and tuples.
func (d *decoder) beginItem(p *Partial, next int) error {
	switch s := p.Shape(); {
	case s.Kind == KindList:
		return p.BeginListItem()
	case s.Kind == KindSet:
		return p.BeginSetItem()
	case s.Kind == KindArray, s.Kind == KindStruct && s.StructKind == StructTuple:
		return p.BeginNth(next)
	default:
		return unsupportedf("%s is not a sequence", s.Kind)
	}
}

// initSeq initializes the collection at the cursor without dropping items.
func initSeq(p *Partial) error {
	switch p.Shape().Kind {
	case KindList:
		return p.InitList()
	case KindSet:
		return p.InitSet()
	case KindArray:
		return p.InitArray()
	case KindMap:
		return p.InitMap()
	}
	return nil
}

// decodeSeq reads sibling items named expected until the enclosing
// element closes or a differently named element appears.
func (d *decoder) decodeSeq(p *Partial, expected string) error {
	if err := initSeq(p); err != nil {
		return err
	}
	item := p.Shape().Elem

	for n := 0; ; {
		ev, err := d.peekContent()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case 0, EventChildrenEnd, EventElementEnd:
			return nil
		case EventDoctype:
			if _, err := d.next(); err != nil {
				return err
			}
			continue
		case EventText:
			if item.Kind != KindScalar && item.Kind != KindEnum {
				if _, err := d.next(); err != nil {
					return err
				}
				continue
			}
		case EventElementStart:
			if expected != "" && ev.Name != expected {
				return nil
			}
		default:
			return newMismatch("ElementStart", ev)
		}

		if err := d.beginItem(p, n); err != nil {
			return err
		}
		if err := d.value(p, nil, expected); err != nil {
			if errors.Is(err, errTextDropped) {
				if err := p.Discard(); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if err := p.End(); err != nil {
			return err
		}
		n++
	}
}

// decodeMap reads a wrapper element whose children are entries keyed by tag.
func (d *decoder) decodeMap(p *Partial) error {
	if err := p.InitMap(); err != nil {
		return err
	}
	ev, err := d.peekContent()
	if err != nil {
		return err
	}
	if ev.Kind != EventElementStart {
		return newMismatch("ElementStart", ev)
	}
	if _, err := d.next(); err != nil {
		return err
	}

	for {
		ev, err := d.next()
		if err != nil {
			return err
		}
		if ev.Kind == EventElementEnd {
			return nil
		}
		if ev.Kind == EventChildrenStart {
			break
		}
		if ev.Kind != EventAttribute {
			return newMismatch("Attribute or ChildrenStart", ev)
		}
	}

	for {
		ev, err := d.peekContent()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case EventText, EventDoctype:
			if _, err := d.next(); err != nil {
				return err
			}
			continue
		case EventChildrenEnd:
			if _, err := d.next(); err != nil {
				return err
			}
			_, err := d.expect(EventElementEnd)
			return err
		case EventElementStart:
		default:
			return newMismatch("ElementStart or ChildrenEnd", ev)
		}

		if err := p.BeginKey(); err != nil {
			return err
		}
		if err := p.SetText(ev.Name); err != nil {
			return err
		}
		if err := p.End(); err != nil {
			return err
		}
		if err := p.BeginValue(); err != nil {
			return err
		}
		if err := d.value(p, nil, ev.Name); err != nil {
			return err
		}
		if err := p.End(); err != nil {
			return err
		}
	}
}
