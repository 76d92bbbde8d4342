package arbor

import (
	"errors"
	"strings"
)

// decodeEnum selects a variant from the next event. An element named
// expected is a wrapper around the variant; other elements name the
// variant themselves, and text goes to the text variant.
func (d *decoder) decodeEnum(p *Partial, expected string) error {
	s := p.Shape()
	ev, err := d.peekContent()
	if err != nil {
		return err
	}

	switch ev.Kind {
	case EventText:
		if _, err := d.next(); err != nil {
			return err
		}
		return d.textInto(p, ev.Value)
	case EventElementStart:
	default:
		return newMismatch("ElementStart or Text", ev)
	}

	if s.Untagged {
		name := expected
		if name == "" {
			name = s.ElementName()
		}
		return d.variant(p, s, s.Variants[0], name)
	}

	if expected != "" && ev.Name == expected {
		return d.enumWrapper(p)
	}

	v, ok := s.VariantByKey(ev.Name)
	if !ok {
		if v, ok = s.CustomVariant(); !ok {
			return &UnknownElementError{Tag: ev.Name}
		}
	}
	return d.variant(p, s, v, ev.Name)
}

// enumWrapper reads <name>...</name> around a variant element or text.
// An empty wrapper leaves the enum unset.
func (d *decoder) enumWrapper(p *Partial) error {
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

	done := false
	for {
		ev, err := d.peekContent()
		if err != nil {
			return err
		}
		switch {
		case ev.Kind == EventChildrenEnd:
			if _, err := d.next(); err != nil {
				return err
			}
			_, err := d.expect(EventElementEnd)
			return err
		case ev.Kind == EventText && (done || strings.TrimSpace(ev.Value) == ""):
			if _, err := d.next(); err != nil {
				return err
			}
			continue
		case done:
			return newMismatch("ChildrenEnd", ev)
		}

		if err := d.decodeEnum(p, ""); err != nil && !errors.Is(err, errTextDropped) {
			return err
		}
		done = true
	}
}

// variant builds v from the element at the cursor, named tag.
func (d *decoder) variant(p *Partial, enum *Shape, v *Variant, tag string) error {
	if err := p.SelectVariant(v.Index); err != nil {
		return err
	}

	switch v.Kind {
	case VariantUnit:
		if err := d.skipElement(); err != nil {
			return err
		}

	case VariantNewtype:
		if v.Wrapped {
			if err := p.BeginField(0); err != nil {
				return err
			}
		}
		if err := d.value(p, nil, tag); err != nil {
			return err
		}
		if v.Wrapped {
			if err := p.End(); err != nil {
				return err
			}
		}

	case VariantStruct:
		if err := d.decodeStruct(p, tag, "", enum.RenameAll); err != nil {
			return err
		}
	}
	return p.End()
}

// textInto feeds text to the enum at the cursor: a unit variant with that
// name, else the text variant. Without a text variant lenient mode drops
// the text and strict mode fails. Non-enum targets take the text directly.
func (d *decoder) textInto(p *Partial, text string) error {
	if p.Shape().Kind != KindEnum {
		return p.SetText(text)
	}
	err := p.SetText(text)
	if err == nil || !errors.Is(err, errNoTextVariant) {
		return err
	}
	if d.lenient {
		return errTextDropped
	}
	return unsupportedf("text %q reached enum %s, which has no text variant", text, p.Shape().Name)
}
