package arbor

import (
	"errors"
	"strings"
)

// openKind names the collection frame a struct decoder currently has open.
type openKind uint8

const (
	openNone openKind = iota
	openSeq
	openElements
	openFlatEnum
	openTextList
)

// openFrame records the open collection and how many frames it pushed.
type openFrame struct {
	kind   openKind
	field  int
	frames int
}

// seqState tracks a flat sequence across interruptions.
type seqState struct {
	next int // positional cursor for arrays and tuples
}

// structDecoder is the parse state of one struct instance.
type structDecoder struct {
	d        *decoder
	p        *Partial
	t        *fieldTable
	expected string
	tag      string

	usingDeferred bool

	open openFrame

	seqs            map[int]*seqState
	elementsStarted map[int]bool
	flatEnumStarted bool
	textListStarted bool
	attrListStarted bool

	text     strings.Builder
	hasText  bool
	tuplePos int
}

// decodeStruct runs the struct state machine over the element at the cursor.
func (d *decoder) decodeStruct(p *Partial, expected, nsAll string, renameAll CaseStyle) error {
	t, err := tableFor(p.Shape(), nsAll, renameAll, d.format)
	if err != nil {
		return err
	}
	sd := &structDecoder{
		d:               d,
		p:               p,
		t:               t,
		expected:        expected,
		seqs:            make(map[int]*seqState),
		elementsStarted: make(map[int]bool),
	}
	return sd.run()
}

func (sd *structDecoder) run() error {
	if sd.t.hasFlatten && !sd.p.IsDeferred() {
		if err := sd.p.BeginDeferred(); err != nil {
			return err
		}
		sd.usingDeferred = true
	}

	if err := sd.prelude(); err != nil {
		return err
	}

	start, err := sd.d.expect(EventElementStart)
	if err != nil {
		return err
	}
	sd.tag = start.Name

	if sd.t.tag == nil && sd.expected != "" && sd.tag != sd.expected {
		if sd.t.other == nil {
			return &UnknownElementError{Tag: sd.tag}
		}
		if err := sd.redirectToOther(); err != nil {
			return err
		}
		return sd.finish()
	}

	if err := sd.body(); err != nil {
		return err
	}
	return sd.finish()
}

func (sd *structDecoder) finish() error {
	if sd.usingDeferred {
		return sd.p.FinishDeferred()
	}
	return nil
}

// prelude consumes comments and doctype declarations before the element,
// storing the first doctype when the struct captures it.
func (sd *structDecoder) prelude() error {
	captured := false
	for {
		ev, err := sd.d.peekContent()
		if err != nil {
			return err
		}
		if ev.Kind != EventDoctype {
			if ev.Kind == EventText && strings.TrimSpace(ev.Value) == "" {
				if _, err := sd.d.next(); err != nil {
					return err
				}
				continue
			}
			return nil
		}
		if _, err := sd.d.next(); err != nil {
			return err
		}
		if sd.t.doctype != nil && !captured {
			if err := sd.setField(sd.t.doctype, ev.Value); err != nil {
				return err
			}
			captured = true
		}
	}
}

// redirectToOther feeds the already-started element into the "other" field.
// Only struct targets are supported.
func (sd *structDecoder) redirectToOther() error {
	f := sd.t.other
	p := sd.p
	if err := p.BeginField(f.Index); err != nil {
		return err
	}
	depth := 1
	if p.Shape().Kind == KindOption {
		if err := p.BeginSome(); err != nil {
			return err
		}
		depth++
	}
	target := p.Shape()
	if target.Kind != KindStruct {
		return unsupportedf("other field %s must hold a struct, not a %s", f.Name, target.Kind)
	}

	t, err := tableFor(target, "", "", sd.d.format)
	if err != nil {
		return err
	}
	sub := &structDecoder{
		d:               sd.d,
		p:               p,
		t:               t,
		expected:        sd.tag,
		tag:             sd.tag,
		seqs:            make(map[int]*seqState),
		elementsStarted: make(map[int]bool),
	}
	if t.hasFlatten && !p.IsDeferred() {
		if err := p.BeginDeferred(); err != nil {
			return err
		}
		sub.usingDeferred = true
	}
	if err := sub.body(); err != nil {
		return err
	}
	if err := sub.finish(); err != nil {
		return err
	}
	for ; depth > 0; depth-- {
		if err := p.End(); err != nil {
			return err
		}
	}
	return nil
}

// body processes the tag, attributes and children of an element whose
// start has been consumed.
func (sd *structDecoder) body() error {
	if sd.t.tag != nil {
		if err := sd.setField(sd.t.tag, sd.tag); err != nil {
			return err
		}
	}

	void, err := sd.attributes()
	if err != nil {
		return err
	}
	if void {
		return sd.cleanup()
	}

	if err := sd.children(); err != nil {
		return err
	}
	if err := sd.cleanup(); err != nil {
		return err
	}
	_, err = sd.d.expect(EventElementEnd)
	return err
}

// setField stores text into a top-level field.
func (sd *structDecoder) setField(f *Field, text string) error {
	if err := sd.p.BeginField(f.Index); err != nil {
		return err
	}
	if err := sd.d.setText(sd.p, f, text); err != nil {
		return err
	}
	return sd.p.End()
}

// attributes consumes attributes up to ChildrenStart. It reports whether
// the element closed without children.
func (sd *structDecoder) attributes() (bool, error) {
	for {
		ev, err := sd.d.next()
		if err != nil {
			return false, err
		}
		switch ev.Kind {
		case EventAttribute:
			if err := sd.attribute(ev); err != nil {
				return false, err
			}
		case EventChildrenStart:
			return false, nil
		case EventElementEnd:
			return true, nil
		case EventComment:
		default:
			return false, newMismatch("Attribute or ChildrenStart", ev)
		}
	}
}

func (sd *structDecoder) attribute(ev Event) error {
	t, p := sd.t, sd.p

	if info, ok := t.findAttr(ev.Name, ev.Namespace); ok {
		return sd.setField(info.field, ev.Value)
	}

	if info, ok := t.findFlatAttr(ev.Name, ev.Namespace); ok {
		n, err := sd.enterParent(info.parent, info.parentOptional)
		if err != nil {
			return err
		}
		if err := sd.setField(info.field, ev.Value); err != nil {
			return err
		}
		return sd.endN(n)
	}

	if f := t.attrCatchAll; f != nil {
		n, err := sd.enterCollection(f)
		if err != nil {
			return err
		}
		sd.attrListStarted = true
		if err := sd.d.beginItem(p, 0); err != nil {
			return err
		}
		if err := p.SetText(ev.Value); err != nil {
			return err
		}
		if err := p.End(); err != nil {
			return err
		}
		return sd.endN(n)
	}

	if len(t.flatAttrMaps) > 0 {
		return sd.insertFlatMap(t.flatAttrMaps[0], ev.Name, ev.Value)
	}
	if len(t.nestedFlatMap) > 0 {
		return sd.insertFlatMap(t.nestedFlatMap[0], ev.Name, ev.Value)
	}

	if sd.d.denyUnknown(t.shape) {
		return &UnknownAttributeError{Name: ev.Name}
	}
	emitAttributeDropped(sd.d.ctx, t.shape.Name, ev.Name)
	return nil
}

// enterParent enters a flattened parent field, unwrapping an option.
func (sd *structDecoder) enterParent(parent int, optional bool) (int, error) {
	if err := sd.p.BeginField(parent); err != nil {
		return 0, err
	}
	if !optional {
		return 1, nil
	}
	if err := sd.p.BeginSome(); err != nil {
		return 1, err
	}
	return 2, nil
}

func (sd *structDecoder) endN(n int) error {
	for ; n > 0; n-- {
		if err := sd.p.End(); err != nil {
			return err
		}
	}
	return nil
}

// enterCollection enters field f and initializes the collection behind it,
// looking through a smart pointer. It returns the number of frames pushed.
func (sd *structDecoder) enterCollection(f *Field) (int, error) {
	p := sd.p
	if err := p.BeginField(f.Index); err != nil {
		return 0, err
	}
	n := 1
	if p.Shape().Kind == KindPointer {
		if err := p.BeginSmartPtr(); err != nil {
			return n, err
		}
		n++
	}
	return n, initSeq(p)
}

// insertFlatMap stores key/value into a flattened map.
func (sd *structDecoder) insertFlatMap(m flatMapInfo, key, value string) error {
	p := sd.p
	n := 0
	if m.nested {
		var err error
		if n, err = sd.enterParent(m.parent, m.parentOptional); err != nil {
			return err
		}
	}
	if err := p.BeginField(m.field.Index); err != nil {
		return err
	}
	n++
	if p.Shape().Kind == KindOption {
		if err := p.BeginSome(); err != nil {
			return err
		}
		n++
	}
	if err := p.InitMap(); err != nil {
		return err
	}
	if err := p.BeginKey(); err != nil {
		return err
	}
	if err := p.SetText(key); err != nil {
		return err
	}
	if err := p.End(); err != nil {
		return err
	}
	if err := p.BeginValue(); err != nil {
		return err
	}
	if err := p.SetText(value); err != nil {
		return err
	}
	if err := p.End(); err != nil {
		return err
	}
	return sd.endN(n)
}

// leave closes whatever collection is open.
func (sd *structDecoder) leave() error {
	if sd.open.kind == openNone {
		return nil
	}
	n := sd.open.frames
	sd.open = openFrame{}
	return sd.endN(n)
}

// reenter makes the collection of f the open one, keeping its items.
func (sd *structDecoder) reenter(kind openKind, f *Field) error {
	if sd.open.kind == kind && sd.open.field == f.Index {
		return nil
	}
	if err := sd.leave(); err != nil {
		return err
	}
	n, err := sd.enterCollection(f)
	if err != nil {
		return err
	}
	sd.open = openFrame{kind: kind, field: f.Index, frames: n}
	return nil
}

func (sd *structDecoder) children() error {
	for {
		ev, err := sd.d.peek()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case EventChildrenEnd:
			_, err := sd.d.next()
			return err
		case EventText:
			if _, err := sd.d.next(); err != nil {
				return err
			}
			if err := sd.handleText(ev.Value); err != nil {
				return err
			}
		case EventComment, EventDoctype:
			if _, err := sd.d.next(); err != nil {
				return err
			}
		case EventElementStart:
			if err := sd.handleElement(ev); err != nil {
				return err
			}
		default:
			return newMismatch("child content or ChildrenEnd", ev)
		}
	}
}

func (sd *structDecoder) handleText(text string) error {
	t, p := sd.t, sd.p

	switch {
	case sd.open.kind == openElements || len(sd.elementsStarted) > 0:
		return nil

	case sd.open.kind == openFlatEnum:
		return sd.flatEnumText(text)

	case t.text != nil:
		if !isBareSequence(t.text.Shape) {
			sd.text.WriteString(text)
			sd.hasText = true
			return nil
		}
		if err := sd.reenter(openTextList, t.text); err != nil {
			return err
		}
		sd.textListStarted = true
		if err := sd.d.beginItem(p, 0); err != nil {
			return err
		}
		if err := p.SetText(text); err != nil {
			return err
		}
		return p.End()

	case len(t.elementsAll) > 0:
		return nil

	case t.flatEnum != nil:
		if t.flatEnum.list {
			return sd.flatEnumText(text)
		}
		if err := sd.leave(); err != nil {
			return err
		}
		if err := p.BeginField(t.flatEnum.field.Index); err != nil {
			return err
		}
		if err := sd.d.textInto(p, text); err != nil {
			if errors.Is(err, errTextDropped) {
				sd.dropText(text)
				return p.Discard()
			}
			return err
		}
		return p.End()

	case t.shape.StructKind == StructTuple && len(t.shape.Fields) == 1:
		if err := sd.leave(); err != nil {
			return err
		}
		return sd.setField(t.shape.Fields[0], text)
	}

	sd.dropText(text)
	return nil
}

func (sd *structDecoder) dropText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	emitTextDropped(sd.d.ctx, sd.t.shape.Name, len(text))
}

// flatEnumText appends text to the flattened enum list as a text variant.
func (sd *structDecoder) flatEnumText(text string) error {
	p := sd.p
	if _, ok := sd.t.flatEnum.enum.TextVariant(); !ok && sd.d.lenient {
		sd.dropText(text)
		return nil
	}
	if err := sd.reenter(openFlatEnum, sd.t.flatEnum.field); err != nil {
		return err
	}
	sd.flatEnumStarted = true
	if err := p.BeginListItem(); err != nil {
		return err
	}
	if err := sd.d.textInto(p, text); err != nil {
		if errors.Is(err, errTextDropped) {
			sd.dropText(text)
			return p.Discard()
		}
		return err
	}
	return p.End()
}

func (sd *structDecoder) handleElement(ev Event) error {
	t := sd.t
	tag, ns := ev.Name, ev.Namespace

	if info, ok := t.findElement(tag, ns); ok {
		f := info.field
		px, err := fieldProxy(f, sd.d.format)
		if err != nil {
			return err
		}
		if px == nil && isFlatSequence(f.Shape) {
			return sd.flatSequence(f, tag)
		}
		return sd.singleElement(f, tag)
	}

	if t.shape.StructKind == StructTuple && tag == "item" {
		return sd.tupleItem()
	}

	if info, ok := t.findFlatElement(tag, ns); ok {
		return sd.flattenedChild(info, tag)
	}

	if _, ok := t.matchFlatEnum(tag); ok {
		return sd.flattenedEnum()
	}

	if info, ok := t.findElements(tag, ns); ok {
		return sd.elementsItem(info.field)
	}
	if t.elementsAny != nil {
		return sd.elementsItem(t.elementsAny)
	}

	if len(t.flatMaps) > 0 {
		return sd.flatMapElement(t.flatMaps[0], tag)
	}
	if len(t.nestedFlatMap) > 0 {
		return sd.flatMapElement(t.nestedFlatMap[0], tag)
	}

	return sd.unknownElement(tag)
}

// isFlatSequence reports field shapes whose items are bare siblings.
func isFlatSequence(s *Shape) bool {
	if s.Kind == KindPointer {
		s = s.Elem
	}
	return s.IsSequence()
}

// flatSequence adds one item to a sequence field, opening, switching to or
// re-entering it as needed.
func (sd *structDecoder) flatSequence(f *Field, tag string) error {
	if err := sd.reenter(openSeq, f); err != nil {
		return err
	}
	st, ok := sd.seqs[f.Index]
	if !ok {
		st = &seqState{}
		sd.seqs[f.Index] = st
	}

	p := sd.p
	s := p.Shape()
	if (s.Kind == KindArray && st.next >= s.Len) || (s.Kind == KindStruct && st.next >= len(s.Fields)) {
		return newBuilderError("begin_nth", p.Path(), errors.New("too many items for fixed-size field"))
	}
	if err := sd.d.beginItem(p, st.next); err != nil {
		return err
	}
	var itemField *Field
	if s.Kind == KindStruct {
		itemField = s.Fields[st.next]
	}
	if err := sd.d.value(p, itemField, tag); err != nil {
		if errors.Is(err, errTextDropped) {
			return p.Discard()
		}
		return err
	}
	if err := p.End(); err != nil {
		return err
	}
	st.next++
	return nil
}

// singleElement decodes one element into a non-sequence field.
func (sd *structDecoder) singleElement(f *Field, tag string) error {
	if err := sd.leave(); err != nil {
		return err
	}
	p := sd.p
	if err := p.BeginField(f.Index); err != nil {
		return err
	}
	if err := sd.d.value(p, f, tag); err != nil && !errors.Is(err, errTextDropped) {
		return err
	}
	return p.End()
}

// tupleItem matches <item> children of a tuple struct by position.
func (sd *structDecoder) tupleItem() error {
	if err := sd.leave(); err != nil {
		return err
	}
	if sd.tuplePos >= len(sd.t.tuple) {
		return sd.unknownElement("item")
	}
	f := sd.t.tuple[sd.tuplePos]
	sd.tuplePos++
	return sd.singleElement(f, "item")
}

func (sd *structDecoder) flattenedChild(info fieldInfo, tag string) error {
	if err := sd.leave(); err != nil {
		return err
	}
	n, err := sd.enterParent(info.parent, info.parentOptional)
	if err != nil {
		return err
	}
	if err := sd.singleElement(info.field, tag); err != nil {
		return err
	}
	return sd.endN(n)
}

func (sd *structDecoder) flattenedEnum() error {
	fe := sd.t.flatEnum
	p := sd.p
	if !fe.list {
		if err := sd.leave(); err != nil {
			return err
		}
		if err := p.BeginField(fe.field.Index); err != nil {
			return err
		}
		if err := sd.d.value(p, nil, ""); err != nil && !errors.Is(err, errTextDropped) {
			return err
		}
		return p.End()
	}

	if err := sd.reenter(openFlatEnum, fe.field); err != nil {
		return err
	}
	sd.flatEnumStarted = true
	if err := p.BeginListItem(); err != nil {
		return err
	}
	if err := sd.d.value(p, nil, ""); err != nil {
		if errors.Is(err, errTextDropped) {
			return p.Discard()
		}
		return err
	}
	return p.End()
}

// elementsItem appends the element at the cursor to an elements collection.
func (sd *structDecoder) elementsItem(f *Field) error {
	if err := sd.reenter(openElements, f); err != nil {
		return err
	}
	sd.elementsStarted[f.Index] = true
	p := sd.p
	if err := sd.d.beginItem(p, 0); err != nil {
		return err
	}
	if err := sd.d.value(p, nil, ""); err != nil {
		if errors.Is(err, errTextDropped) {
			return p.Discard()
		}
		return err
	}
	return p.End()
}

// flatMapElement captures an unmatched element as key = tag, value = text.
func (sd *structDecoder) flatMapElement(m flatMapInfo, tag string) error {
	if err := sd.leave(); err != nil {
		return err
	}
	if _, err := sd.d.next(); err != nil {
		return err
	}
	text, err := sd.d.elementText()
	if err != nil {
		return err
	}
	return sd.insertFlatMap(m, tag, text)
}

func (sd *structDecoder) unknownElement(tag string) error {
	if sd.d.denyUnknown(sd.t.shape) {
		return &UnknownElementError{Tag: tag}
	}
	emitElementSkipped(sd.d.ctx, sd.t.shape.Name, tag)
	return sd.d.skipElement()
}

// cleanup closes the open collection and initializes collections that
// never received an item.
func (sd *structDecoder) cleanup() error {
	if err := sd.leave(); err != nil {
		return err
	}
	t := sd.t

	for _, f := range t.elementsAll {
		if !sd.elementsStarted[f.Index] {
			if err := sd.initEmpty(f); err != nil {
				return err
			}
		}
	}

	if t.attrCatchAll != nil && !sd.attrListStarted {
		if err := sd.initEmpty(t.attrCatchAll); err != nil {
			return err
		}
	}

	if f := t.text; f != nil {
		switch {
		case isBareSequence(f.Shape):
			if !sd.textListStarted {
				if err := sd.initEmpty(f); err != nil {
					return err
				}
			}
		case sd.hasText && sd.text.Len() > 0:
			if err := sd.setField(f, sd.text.String()); err != nil {
				return err
			}
		}
	}

	if fe := t.flatEnum; fe != nil && fe.list && !sd.flatEnumStarted {
		if err := sd.initEmpty(fe.field); err != nil {
			return err
		}
	}
	return nil
}

func (sd *structDecoder) initEmpty(f *Field) error {
	n, err := sd.enterCollection(f)
	if err != nil {
		return err
	}
	return sd.endN(n)
}
