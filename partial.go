package arbor

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// frame is one navigation step of a Partial.
type frame struct {
	shape  *Shape
	val    reflect.Value
	label  string
	commit func() error

	// pending map key between BeginKey/End and BeginValue.
	key    reflect.Value
	hasKey bool
}

// Partial is a cursor into a value under construction. Every Begin call
// pushes a frame that must be closed with End; End writes temporary values
// (list items, set items, map keys and values, enum variants) into their
// parent.
type Partial struct {
	frames   []*frame
	deferred []int
}

// NewPartial starts building into the value ptr points to.
func NewPartial(ptr any) (*Partial, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, newBuilderError("new", "", fmt.Errorf("target must be a non-nil pointer, got %T", ptr))
	}
	return newPartialValue(rv.Elem())
}

func newPartialValue(v reflect.Value) (*Partial, error) {
	s, err := ShapeOf(v.Type())
	if err != nil {
		return nil, err
	}
	return &Partial{frames: []*frame{{shape: s, val: v, label: s.Name}}}, nil
}

func (p *Partial) top() *frame {
	return p.frames[len(p.frames)-1]
}

func (p *Partial) push(f *frame) {
	p.frames = append(p.frames, f)
}

func (p *Partial) fail(op string, format string, args ...any) error {
	return newBuilderError(op, p.Path(), fmt.Errorf(format, args...))
}

// Shape returns the shape at the cursor.
func (p *Partial) Shape() *Shape {
	return p.top().shape
}

// Value returns the value at the cursor.
func (p *Partial) Value() reflect.Value {
	return p.top().val
}

// Depth returns the number of open frames below the root.
func (p *Partial) Depth() int {
	return len(p.frames) - 1
}

// Path renders the frame labels, for diagnostics.
func (p *Partial) Path() string {
	var b strings.Builder
	for i, f := range p.frames {
		if i > 0 && !strings.HasPrefix(f.label, "[") {
			b.WriteByte('.')
		}
		b.WriteString(f.label)
	}
	return b.String()
}

// BeginField enters the i-th mapped field of a struct.
func (p *Partial) BeginField(i int) error {
	t := p.top()
	if t.shape.Kind != KindStruct {
		return p.fail("begin_field", "%s is not a struct", t.shape.Kind)
	}
	if i < 0 || i >= len(t.shape.Fields) {
		return p.fail("begin_field", "field %d out of range", i)
	}
	f := t.shape.Fields[i]
	p.push(&frame{shape: f.Shape, val: t.val.FieldByIndex(f.GoIndex), label: f.Name})
	return nil
}

// BeginNth enters position i of a tuple struct or array.
func (p *Partial) BeginNth(i int) error {
	t := p.top()
	switch {
	case t.shape.Kind == KindStruct:
		return p.BeginField(i)
	case t.shape.Kind == KindArray:
		if i < 0 || i >= t.shape.Len {
			return p.fail("begin_nth", "index %d out of range for array of %d", i, t.shape.Len)
		}
		p.push(&frame{shape: t.shape.Elem, val: t.val.Index(i), label: "[" + strconv.Itoa(i) + "]"})
		return nil
	}
	return p.fail("begin_nth", "%s is not positional", t.shape.Kind)
}

// End closes the current frame.
func (p *Partial) End() error {
	if len(p.frames) == 1 {
		return p.fail("end", "no open frame")
	}
	if n := len(p.deferred); n > 0 && p.deferred[n-1] == len(p.frames) {
		return p.fail("end", "frame owns an unfinished deferred session")
	}
	t := p.top()
	p.frames = p.frames[:len(p.frames)-1]
	if t.commit != nil {
		if err := t.commit(); err != nil {
			return newBuilderError("end", p.Path(), err)
		}
	}
	return nil
}

// Discard closes the current frame without committing it.
func (p *Partial) Discard() error {
	if len(p.frames) == 1 {
		return p.fail("discard", "no open frame")
	}
	p.frames = p.frames[:len(p.frames)-1]
	return nil
}

// InitList makes sure the list at the cursor is non-nil. Existing items are kept.
func (p *Partial) InitList() error {
	t := p.top()
	if t.shape.Kind != KindList {
		return p.fail("init_list", "%s is not a list", t.shape.Kind)
	}
	if t.val.IsNil() {
		t.val.Set(reflect.MakeSlice(t.val.Type(), 0, 0))
	}
	return nil
}

// InitSet makes sure the set at the cursor is non-nil.
func (p *Partial) InitSet() error {
	t := p.top()
	if t.shape.Kind != KindSet {
		return p.fail("init_set", "%s is not a set", t.shape.Kind)
	}
	if t.val.IsNil() {
		t.val.Set(reflect.MakeMap(t.val.Type()))
	}
	return nil
}

// InitArray checks that the cursor is on an array. Arrays are always allocated.
func (p *Partial) InitArray() error {
	if k := p.top().shape.Kind; k != KindArray {
		return p.fail("init_array", "%s is not an array", k)
	}
	return nil
}

// InitMap makes sure the map at the cursor is non-nil.
func (p *Partial) InitMap() error {
	t := p.top()
	if t.shape.Kind != KindMap {
		return p.fail("init_map", "%s is not a map", t.shape.Kind)
	}
	if t.val.IsNil() {
		t.val.Set(reflect.MakeMap(t.val.Type()))
	}
	return nil
}

// BeginListItem enters a new item that End appends to the list.
func (p *Partial) BeginListItem() error {
	t := p.top()
	if t.shape.Kind != KindList {
		return p.fail("begin_list_item", "%s is not a list", t.shape.Kind)
	}
	list := t.val
	item := reflect.New(list.Type().Elem()).Elem()
	p.push(&frame{
		shape: t.shape.Elem,
		val:   item,
		label: "[" + strconv.Itoa(list.Len()) + "]",
		commit: func() error {
			list.Set(reflect.Append(list, item))
			return nil
		},
	})
	return nil
}

// BeginSetItem enters a new member that End inserts into the set.
func (p *Partial) BeginSetItem() error {
	t := p.top()
	if t.shape.Kind != KindSet {
		return p.fail("begin_set_item", "%s is not a set", t.shape.Kind)
	}
	set := t.val
	member := reflect.New(set.Type().Key()).Elem()
	p.push(&frame{
		shape: t.shape.Elem,
		val:   member,
		label: "[]",
		commit: func() error {
			set.SetMapIndex(member, reflect.New(set.Type().Elem()).Elem())
			return nil
		},
	})
	return nil
}

// BeginKey enters the key of a new map entry.
func (p *Partial) BeginKey() error {
	t := p.top()
	if t.shape.Kind != KindMap {
		return p.fail("begin_key", "%s is not a map", t.shape.Kind)
	}
	key := reflect.New(t.val.Type().Key()).Elem()
	p.push(&frame{
		shape: t.shape.Key,
		val:   key,
		label: "<key>",
		commit: func() error {
			t.key = key
			t.hasKey = true
			return nil
		},
	})
	return nil
}

// BeginValue enters the value for the key set by the last BeginKey.
func (p *Partial) BeginValue() error {
	t := p.top()
	if t.shape.Kind != KindMap {
		return p.fail("begin_value", "%s is not a map", t.shape.Kind)
	}
	if !t.hasKey {
		return p.fail("begin_value", "no pending key")
	}
	key := t.key
	m := t.val
	val := reflect.New(m.Type().Elem()).Elem()
	p.push(&frame{
		shape: t.shape.Elem,
		val:   val,
		label: "[" + fmt.Sprint(key.Interface()) + "]",
		commit: func() error {
			m.SetMapIndex(key, val)
			t.hasKey = false
			return nil
		},
	})
	return nil
}

// BeginSome enters the target of an option, allocating it when absent. In
// deferred mode an existing target is re-entered so partial writes accumulate.
func (p *Partial) BeginSome() error {
	t := p.top()
	if t.shape.Kind != KindOption {
		return p.fail("begin_some", "%s is not an option", t.shape.Kind)
	}
	if t.val.IsNil() || !p.IsDeferred() {
		t.val.Set(reflect.New(t.val.Type().Elem()))
	}
	p.push(&frame{shape: t.shape.Elem, val: t.val.Elem(), label: "*"})
	return nil
}

// SetDefault resets the value at the cursor to its zero value.
func (p *Partial) SetDefault() error {
	t := p.top()
	t.val.Set(reflect.Zero(t.val.Type()))
	return nil
}

// SelectVariant enters a fresh value of variant i. End stores it in the enum.
func (p *Partial) SelectVariant(i int) error {
	t := p.top()
	if t.shape.Kind != KindEnum {
		return p.fail("select_variant", "%s is not an enum", t.shape.Kind)
	}
	if i < 0 || i >= len(t.shape.Variants) {
		return p.fail("select_variant", "variant %d out of range", i)
	}
	v := t.shape.Variants[i]
	iface := t.val

	var holder, target reflect.Value
	if v.Type.Kind() == reflect.Pointer {
		holder = reflect.New(v.Type.Elem())
		target = holder.Elem()
	} else {
		holder = reflect.New(v.Type).Elem()
		target = holder
	}
	p.push(&frame{
		shape: v.Shape,
		val:   target,
		label: v.Name,
		commit: func() error {
			iface.Set(holder)
			return nil
		},
	})
	return nil
}

// BeginInner enters the wrapped field of a transparent struct.
func (p *Partial) BeginInner() error {
	t := p.top()
	if t.shape.Kind != KindStruct || !t.shape.Transparent {
		return p.fail("begin_inner", "%s is not a transparent wrapper", t.shape.Name)
	}
	if err := p.BeginField(0); err != nil {
		return err
	}
	p.top().label = "inner"
	return nil
}

// BeginSmartPtr enters the collection behind a pointer, allocating it when nil.
func (p *Partial) BeginSmartPtr() error {
	t := p.top()
	if t.shape.Kind != KindPointer {
		return p.fail("begin_smart_ptr", "%s is not a pointer", t.shape.Kind)
	}
	if t.val.IsNil() {
		t.val.Set(reflect.New(t.val.Type().Elem()))
	}
	p.push(&frame{shape: t.shape.Elem, val: t.val.Elem(), label: "*"})
	return nil
}

// BeginDeferred opens a deferred session at the current frame. While one
// is open, options are re-entered instead of replaced.
func (p *Partial) BeginDeferred() error {
	p.deferred = append(p.deferred, len(p.frames))
	return nil
}

// FinishDeferred closes the innermost deferred session. The cursor must be
// back on the frame that opened it.
func (p *Partial) FinishDeferred() error {
	n := len(p.deferred)
	if n == 0 {
		return p.fail("finish_deferred", "no deferred session")
	}
	if p.deferred[n-1] != len(p.frames) {
		return p.fail("finish_deferred", "unbalanced frames: opened at depth %d, at %d", p.deferred[n-1], len(p.frames))
	}
	p.deferred = p.deferred[:n-1]
	return nil
}

// IsDeferred reports whether a deferred session is open.
func (p *Partial) IsDeferred() bool {
	return len(p.deferred) > 0
}

var errNoTextVariant = errors.New("enum has no variant that accepts text")

// SetText parses text into the value at the cursor. Enums select a unit
// variant by name or the text variant; options are allocated.
func (p *Partial) SetText(text string) error {
	t := p.top()
	switch t.shape.Kind {
	case KindScalar, KindRaw:
		if err := parseScalar(t.val, text); err != nil {
			return newBuilderError("set_text", p.Path(), err)
		}
		return nil

	case KindOption:
		if err := p.BeginSome(); err != nil {
			return err
		}
		if err := p.SetText(text); err != nil {
			return err
		}
		return p.End()

	case KindEnum:
		if v, ok := t.shape.VariantByKey(text); ok && v.Kind == VariantUnit {
			if err := p.SelectVariant(v.Index); err != nil {
				return err
			}
			return p.End()
		}
		v, ok := t.shape.TextVariant()
		if !ok {
			return newBuilderError("set_text", p.Path(), errNoTextVariant)
		}
		if err := p.SelectVariant(v.Index); err != nil {
			return err
		}
		if v.Wrapped {
			if err := p.BeginField(0); err != nil {
				return err
			}
			if err := p.SetText(text); err != nil {
				return err
			}
			if err := p.End(); err != nil {
				return err
			}
		} else if err := p.SetText(text); err != nil {
			return err
		}
		return p.End()

	case KindStruct:
		if t.shape.Transparent {
			if err := p.BeginInner(); err != nil {
				return err
			}
			if err := p.SetText(text); err != nil {
				return err
			}
			return p.End()
		}
	}
	return p.fail("set_text", "cannot set text on %s", t.shape.Kind)
}

// Set stores v at the cursor.
func (p *Partial) Set(v reflect.Value) error {
	t := p.top()
	if !v.Type().AssignableTo(t.val.Type()) {
		if !v.Type().ConvertibleTo(t.val.Type()) {
			return p.fail("set", "cannot assign %s to %s", v.Type(), t.val.Type())
		}
		v = v.Convert(t.val.Type())
	}
	t.val.Set(v)
	return nil
}
