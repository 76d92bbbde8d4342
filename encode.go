package arbor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"time"
)

// encoder walks a value and writes events to a sink.
type encoder struct {
	ctx    context.Context
	sink   Sink
	format string
	floats FloatFormatter

	structs  StructHook
	fields   FieldHook
	variants VariantHook
}

// Encode writes v to sink. v may be a value or a pointer to one.
func Encode(ctx context.Context, sink Sink, v any) (retErr error) {
	start := time.Now()
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return &EncodeError{Err: errors.New("nil value")}
	}
	for rv.Kind() == reflect.Pointer && !isCollectionPointer(rv.Type()) {
		if rv.IsNil() {
			return &EncodeError{Err: errors.New("nil pointer"), Type: typeName(rv.Type())}
		}
		rv = rv.Elem()
	}
	// Work on an addressable copy so pointer-receiver marshalers apply.
	cp := reflect.New(rv.Type()).Elem()
	cp.Set(rv)

	e := newEncoder(ctx, sink)
	name := typeName(cp.Type())
	emitEncodeStart(ctx, e.format, name)
	defer func() {
		emitEncodeComplete(ctx, e.format, name, time.Since(start), retErr)
	}()

	s, err := ShapeOf(cp.Type())
	if err != nil {
		return err
	}
	if err := e.value(cp, s, nil, "", ""); err != nil {
		var ee *EncodeError
		if errors.As(err, &ee) {
			return err
		}
		return &EncodeError{Err: err, Type: name}
	}
	return nil
}

func isCollectionPointer(t reflect.Type) bool {
	k := t.Elem().Kind()
	return k == reflect.Slice || k == reflect.Map
}

func newEncoder(ctx context.Context, sink Sink) *encoder {
	e := &encoder{ctx: ctx, sink: sink}
	if fn, ok := sink.(FormatNamespacer); ok {
		e.format = fn.FormatNamespace()
	}
	e.floats, _ = sink.(FloatFormatter)
	e.structs, _ = sink.(StructHook)
	e.fields, _ = sink.(FieldHook)
	e.variants, _ = sink.(VariantHook)
	return e
}

// scalarElement writes text under name, or bare text without one.
func (e *encoder) scalarElement(name, ns, text string) error {
	if name == "" {
		return backend(e.sink.Text(text))
	}
	if err := e.sink.ElementStart(name, ns); err != nil {
		return backend(err)
	}
	if err := e.sink.ChildrenStart(); err != nil {
		return backend(err)
	}
	if err := e.sink.Text(text); err != nil {
		return backend(err)
	}
	if err := e.sink.ChildrenEnd(); err != nil {
		return backend(err)
	}
	return backend(e.sink.ElementEnd(name))
}

// open writes an element start and its children marker.
func (e *encoder) open(name, ns string) error {
	if err := e.sink.ElementStart(name, ns); err != nil {
		return backend(err)
	}
	return backend(e.sink.ChildrenStart())
}

func (e *encoder) close(name string) error {
	if err := e.sink.ChildrenEnd(); err != nil {
		return backend(err)
	}
	return backend(e.sink.ElementEnd(name))
}

// value writes v of shape s under name. f is the field being written, for
// field-level proxies.
func (e *encoder) value(v reflect.Value, s *Shape, f *Field, name, ns string) error {
	px, err := effectiveProxy(f, s, e.format)
	if err != nil {
		return err
	}
	if px != nil && px.Wire() != s.Type {
		wire, err := px.toWire(v)
		if err != nil {
			return &EncodeError{Err: err, Type: s.Name}
		}
		ws, err := ShapeOf(wire.Type())
		if err != nil {
			return err
		}
		return e.value(wire, ws, nil, name, ns)
	}

	switch s.Kind {
	case KindScalar:
		text, err := formatScalar(v, e.floats)
		if err != nil {
			return err
		}
		return e.scalarElement(name, ns, text)

	case KindRaw:
		if rs, ok := e.sink.(RawSink); ok {
			return backend(rs.Raw(v.String()))
		}
		return e.scalarElement(name, ns, v.String())

	case KindOption, KindPointer:
		if v.IsNil() {
			return nil
		}
		return e.value(v.Elem(), s.Elem, nil, name, ns)

	case KindList, KindArray:
		for i := 0; i < v.Len(); i++ {
			if err := e.value(v.Index(i), s.Elem, nil, name, ns); err != nil {
				return err
			}
		}
		return nil

	case KindSet:
		keys, err := e.sortedKeys(v)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := e.value(k.val, s.Elem, nil, name, ns); err != nil {
				return err
			}
		}
		return nil

	case KindMap:
		return e.encodeMap(v, s, name, ns)

	case KindStruct:
		switch {
		case s.Transparent:
			return e.value(v.FieldByIndex(s.Fields[0].GoIndex), s.Elem, nil, name, ns)
		case s.StructKind == StructTuple && name != "":
			for _, tf := range s.Fields {
				if err := e.value(v.FieldByIndex(tf.GoIndex), tf.Shape, tf, name, ns); err != nil {
					return err
				}
			}
			return nil
		}
		return e.encodeStruct(v, s, name, ns, "")

	case KindEnum:
		return e.encodeEnum(v, s, name, ns)
	}
	return unsupportedf("cannot encode %s", s.Kind)
}

type mapKey struct {
	text string
	val  reflect.Value
}

// sortedKeys returns map keys ordered by their text form.
func (e *encoder) sortedKeys(m reflect.Value) ([]mapKey, error) {
	keys := make([]mapKey, 0, m.Len())
	for _, k := range m.MapKeys() {
		text, err := formatScalar(k, e.floats)
		if err != nil {
			return nil, err
		}
		keys = append(keys, mapKey{text: text, val: k})
	}
	slices.SortFunc(keys, func(a, b mapKey) int { return cmp.Compare(a.text, b.text) })
	return keys, nil
}

// encodeMap writes a wrapper element with one child per entry, keyed by tag.
func (e *encoder) encodeMap(v reflect.Value, s *Shape, name, ns string) error {
	if name != "" {
		if err := e.open(name, ns); err != nil {
			return err
		}
	}
	keys, err := e.sortedKeys(v)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.value(v.MapIndex(k.val), s.Elem, nil, k.text, ""); err != nil {
			return err
		}
	}
	if name != "" {
		return e.close(name)
	}
	return nil
}

// fieldText renders a field value for an attribute, tag or doctype. ok is
// false for absent options.
func (e *encoder) fieldText(v reflect.Value, s *Shape, f *Field) (string, bool, error) {
	px, err := effectiveProxy(f, s, e.format)
	if err != nil {
		return "", false, err
	}
	if px != nil && px.Wire() != s.Type {
		wire, err := px.toWire(v)
		if err != nil {
			return "", false, &EncodeError{Err: err, Type: s.Name}
		}
		ws, err := ShapeOf(wire.Type())
		if err != nil {
			return "", false, err
		}
		return e.fieldText(wire, ws, nil)
	}

	switch s.Kind {
	case KindScalar, KindRaw:
		text, err := formatScalar(v, e.floats)
		return text, err == nil, err
	case KindOption:
		if v.IsNil() {
			return "", false, nil
		}
		return e.fieldText(v.Elem(), s.Elem, nil)
	case KindStruct:
		if s.Transparent {
			return e.fieldText(v.FieldByIndex(s.Fields[0].GoIndex), s.Elem, nil)
		}
	case KindEnum:
		variant, ok := s.VariantOf(v)
		if !ok {
			return "", false, nil
		}
		switch {
		case variant.Kind == VariantUnit:
			return variant.Key, true, nil
		case variant.Text:
			payload, ps := variantPayload(v, variant)
			return e.fieldText(payload, ps, nil)
		}
		return "", false, unsupportedf("variant %s of %s has no text form", variant.Name, s.Name)
	}
	return "", false, unsupportedf("%s has no text form", s.Kind)
}

// variantPayload returns the newtype payload of the enum value v.
func variantPayload(v reflect.Value, variant *Variant) (reflect.Value, *Shape) {
	inner := v.Elem()
	if inner.Kind() == reflect.Pointer {
		inner = inner.Elem()
	}
	if variant.Wrapped {
		return inner.FieldByIndex(variant.Shape.Fields[0].GoIndex), variant.Payload
	}
	if variant.Payload == nil {
		return inner, variant.Shape
	}
	return inner, variant.Payload
}

func (e *encoder) encodeStruct(v reflect.Value, s *Shape, name, ns string, renameAll CaseStyle) error {
	t, err := tableFor(s, "", renameAll, e.format)
	if err != nil {
		return err
	}
	if e.structs != nil {
		if err := e.structs.StructMetadata(s); err != nil {
			return backend(err)
		}
	}

	tagValue, doctype := "", ""
	if t.tag != nil {
		f := t.tag
		if tagValue, _, err = e.fieldText(v.FieldByIndex(f.GoIndex), f.Shape, f); err != nil {
			return err
		}
	}
	if t.doctype != nil {
		f := t.doctype
		if doctype, _, err = e.fieldText(v.FieldByIndex(f.GoIndex), f.Shape, f); err != nil {
			return err
		}
	}

	elem := tagValue
	if elem == "" {
		elem = name
	}
	if elem == "" {
		elem = s.ElementName()
	}
	if ns == "" {
		ns = t.nsAll
	}

	if doctype != "" {
		if ds, ok := e.sink.(DoctypeSink); ok {
			if err := ds.Doctype(doctype); err != nil {
				return backend(err)
			}
		}
	}

	if err := e.sink.ElementStart(elem, ns); err != nil {
		return backend(err)
	}
	if err := e.attributes(v, s, t); err != nil {
		return err
	}
	if err := e.sink.ChildrenStart(); err != nil {
		return backend(err)
	}
	if err := e.children(v, s, t); err != nil {
		return err
	}
	return e.close(elem)
}

func (e *encoder) notifyField(f *Field) error {
	if e.fields == nil {
		return nil
	}
	return backend(e.fields.FieldMetadata(f))
}

func (e *encoder) attributes(v reflect.Value, s *Shape, t *fieldTable) error {
	for _, f := range s.Fields {
		fv := v.FieldByIndex(f.GoIndex)
		switch f.Role {
		case RoleAttribute:
			if err := e.notifyField(f); err != nil {
				return err
			}
			if f == t.attrCatchAll {
				if err := e.catchAllAttrs(fv, f, t); err != nil {
					return err
				}
				continue
			}
			text, ok, err := e.fieldText(fv, f.Shape, f)
			if err != nil {
				return err
			}
			if ok {
				if err := e.sink.Attribute(f.Key(t.renameAll), text, f.Namespace); err != nil {
					return backend(err)
				}
			}

		case RoleFlatten:
			if err := e.flattenedAttrs(fv, f, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// catchAllAttrs writes the values of an attribute catch-all list under
// numbered names.
func (e *encoder) catchAllAttrs(fv reflect.Value, f *Field, t *fieldTable) error {
	s := f.Shape
	if s.Kind == KindPointer {
		if fv.IsNil() {
			return nil
		}
		fv, s = fv.Elem(), s.Elem
	}
	var items []reflect.Value
	if s.Kind == KindSet {
		keys, err := e.sortedKeys(fv)
		if err != nil {
			return err
		}
		for _, k := range keys {
			items = append(items, k.val)
		}
	} else {
		for i := 0; i < fv.Len(); i++ {
			items = append(items, fv.Index(i))
		}
	}

	key := f.Key(t.renameAll)
	for i, item := range items {
		text, ok, err := e.fieldText(item, s.Elem, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := e.sink.Attribute(key+strconv.Itoa(i), text, f.Namespace); err != nil {
			return backend(err)
		}
	}
	return nil
}

// flattenedAttrs writes the attributes promoted by a flattened field.
func (e *encoder) flattenedAttrs(fv reflect.Value, f *Field, t *fieldTable) error {
	s := f.Shape
	if s.Kind == KindOption {
		if fv.IsNil() {
			return nil
		}
		fv, s = fv.Elem(), s.Elem
	}

	switch s.Kind {
	case KindMap:
		return e.mapAttrs(fv, s)
	case KindStruct:
		childRename := t.renameAll
		if s.RenameAll != "" {
			childRename = s.RenameAll
		}
		for _, child := range s.Fields {
			cv := child.Shape
			chv := fv.FieldByIndex(child.GoIndex)
			switch child.Role {
			case RoleAttribute:
				if err := e.notifyField(child); err != nil {
					return err
				}
				text, ok, err := e.fieldText(chv, cv, child)
				if err != nil {
					return err
				}
				if ok {
					if err := e.sink.Attribute(child.Key(childRename), text, child.Namespace); err != nil {
						return backend(err)
					}
				}
			case RoleFlatten:
				if cv.Kind == KindOption {
					if chv.IsNil() {
						continue
					}
					chv, cv = chv.Elem(), cv.Elem
				}
				if cv.Kind == KindMap {
					if err := e.mapAttrs(chv, cv); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// mapAttrs writes map entries as attributes in key order.
func (e *encoder) mapAttrs(m reflect.Value, s *Shape) error {
	keys, err := e.sortedKeys(m)
	if err != nil {
		return err
	}
	for _, k := range keys {
		text, ok, err := e.fieldText(m.MapIndex(k.val), s.Elem, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := e.sink.Attribute(k.text, text, ""); err != nil {
			return backend(err)
		}
	}
	return nil
}

func (e *encoder) children(v reflect.Value, s *Shape, t *fieldTable) error {
	for _, f := range s.Fields {
		fv := v.FieldByIndex(f.GoIndex)
		switch f.Role {
		case RoleAttribute, RoleTag, RoleDoctype:
			continue

		case RoleText:
			if err := e.notifyField(f); err != nil {
				return err
			}
			if err := e.text(fv, f); err != nil {
				return err
			}

		case RoleElements:
			if err := e.notifyField(f); err != nil {
				return err
			}
			if err := e.elements(fv, f, t); err != nil {
				return err
			}

		case RoleFlatten:
			if err := e.notifyField(f); err != nil {
				return err
			}
			if err := e.flattenedChildren(fv, f, t); err != nil {
				return err
			}

		default:
			if err := e.notifyField(f); err != nil {
				return err
			}
			if err := e.value(fv, f.Shape, f, f.Key(t.renameAll), t.elementNS(f)); err != nil {
				return err
			}
		}
	}
	return nil
}

// text writes a text field as bare text, one node per item for lists.
func (e *encoder) text(fv reflect.Value, f *Field) error {
	s := f.Shape
	if s.Kind == KindPointer {
		if fv.IsNil() {
			return nil
		}
		fv, s = fv.Elem(), s.Elem
	}
	if s.Kind == KindList || s.Kind == KindSet {
		return e.value(fv, s, nil, "", "")
	}
	text, ok, err := e.fieldText(fv, s, f)
	if err != nil || !ok || text == "" {
		return err
	}
	return backend(e.sink.Text(text))
}

// elements writes an elements collection. Items name themselves unless the
// field is renamed.
func (e *encoder) elements(fv reflect.Value, f *Field, t *fieldTable) error {
	s := f.Shape
	if s.Kind == KindPointer {
		if fv.IsNil() {
			return nil
		}
		fv, s = fv.Elem(), s.Elem
	}
	item := s.Elem
	name := f.Rename
	if name == "" && item.Kind != KindEnum && !(item.Kind == KindStruct && item.Named()) {
		name = Singularize(f.Key(t.renameAll))
	}
	ns := t.elementNS(f)
	for i := 0; i < fv.Len(); i++ {
		if err := e.value(fv.Index(i), item, nil, name, ns); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) flattenedChildren(fv reflect.Value, f *Field, t *fieldTable) error {
	s := f.Shape
	if s.Kind == KindOption {
		if fv.IsNil() {
			return nil
		}
		fv, s = fv.Elem(), s.Elem
	}

	switch s.Kind {
	case KindStruct:
		childRename := t.renameAll
		if s.RenameAll != "" {
			childRename = s.RenameAll
		}
		for _, child := range s.Fields {
			switch child.Role {
			case RoleAttribute, RoleText, RoleTag, RoleDoctype, RoleFlatten:
				continue
			}
			if err := e.notifyField(child); err != nil {
				return err
			}
			cv := fv.FieldByIndex(child.GoIndex)
			if err := e.value(cv, child.Shape, child, child.Key(childRename), t.elementNS(child)); err != nil {
				return err
			}
		}
		return nil

	case KindEnum:
		return e.value(fv, s, nil, "", "")

	case KindList:
		for i := 0; i < fv.Len(); i++ {
			if err := e.value(fv.Index(i), s.Elem, nil, "", ""); err != nil {
				return err
			}
		}
		return nil

	case KindMap:
		// Entries were written as attributes.
		return nil
	}
	return unsupportedf("cannot flatten a %s", s.Kind)
}

// encodeEnum writes the variant held by v. A name wraps the variant in an
// element of that name, except for untagged enums where the payload takes it.
func (e *encoder) encodeEnum(v reflect.Value, s *Shape, name, ns string) error {
	if v.IsNil() {
		return nil
	}
	variant, ok := s.VariantOf(v)
	if !ok {
		return unsupportedf("%s is not a registered variant of %s", v.Elem().Type(), s.Name)
	}
	if e.variants != nil {
		if err := e.variants.VariantMetadata(variant); err != nil {
			return backend(err)
		}
	}

	if s.Untagged {
		if name == "" {
			name = s.ElementName()
		}
		return e.variantBody(v, s, variant, name, ns)
	}

	if name == "" {
		return e.variantBody(v, s, variant, variant.Key, "")
	}
	if err := e.open(name, ns); err != nil {
		return err
	}
	if err := e.variantBody(v, s, variant, variant.Key, ""); err != nil {
		return err
	}
	return e.close(name)
}

// variantBody writes the variant itself under tag. Unit variants are their
// name as text; text variants are bare text.
func (e *encoder) variantBody(v reflect.Value, s *Shape, variant *Variant, tag, ns string) error {
	switch variant.Kind {
	case VariantUnit:
		if s.Untagged {
			return e.scalarElement(tag, ns, variant.Key)
		}
		return backend(e.sink.Text(variant.Key))

	case VariantNewtype:
		payload, ps := variantPayload(v, variant)
		if variant.Text {
			return e.value(payload, ps, nil, "", "")
		}
		return e.value(payload, ps, nil, tag, ns)

	case VariantStruct:
		inner := v.Elem()
		if inner.Kind() == reflect.Pointer {
			inner = inner.Elem()
		}
		return e.encodeStruct(inner, variant.Shape, tag, ns, s.RenameAll)
	}
	return fmt.Errorf("unknown variant kind %d", variant.Kind)
}
