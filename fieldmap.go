package arbor

import (
	"sync"
)

// fieldInfo is one lookup entry of a field table.
type fieldInfo struct {
	field *Field
	key   string
	ns    string // required namespace; empty matches any

	// Set for fields promoted out of a flattened struct.
	flat           bool
	parent         int
	parentOptional bool
}

// flatMapInfo locates a flattened map, directly or one flatten level down.
type flatMapInfo struct {
	field          *Field
	nested         bool
	parent         int
	parentOptional bool
}

// flatEnumInfo describes the struct's flattened enum.
type flatEnumInfo struct {
	field    *Field
	enum     *Shape
	list     bool // []Enum
	optional bool // *Enum
}

// fieldTable resolves incoming names to fields of one struct shape.
type fieldTable struct {
	shape     *Shape
	renameAll CaseStyle
	nsAll     string

	attrs     map[string][]fieldInfo
	elems     map[string][]fieldInfo
	flatAttrs map[string][]fieldInfo
	flatElems map[string][]fieldInfo
	elements  map[string][]fieldInfo

	attrCatchAll  *Field
	elementsAny   *Field
	elementsAll   []*Field
	flatEnum      *flatEnumInfo
	flatMaps      []flatMapInfo
	flatAttrMaps  []flatMapInfo
	nestedFlatMap []flatMapInfo

	text    *Field
	tag     *Field
	doctype *Field
	other   *Field

	tuple      []*Field
	hasFlatten bool
}

type tableKey struct {
	shape     *Shape
	nsAll     string
	renameAll CaseStyle
	format    string
}

var tableCache sync.Map // tableKey -> *fieldTable

// tableFor returns the cached field table of s. nsAll and renameAll are the
// inherited defaults; the shape's own options take precedence.
func tableFor(s *Shape, nsAll string, renameAll CaseStyle, format string) (*fieldTable, error) {
	key := tableKey{shape: s, nsAll: nsAll, renameAll: renameAll, format: format}
	if t, ok := tableCache.Load(key); ok {
		return t.(*fieldTable), nil
	}
	t, err := buildTable(s, nsAll, renameAll, format)
	if err != nil {
		return nil, err
	}
	actual, _ := tableCache.LoadOrStore(key, t)
	return actual.(*fieldTable), nil
}

func buildTable(s *Shape, nsAll string, renameAll CaseStyle, format string) (*fieldTable, error) {
	if s.Namespace != "" {
		nsAll = s.Namespace
	}
	if s.RenameAll != "" {
		renameAll = s.RenameAll
	}

	t := &fieldTable{
		shape:     s,
		renameAll: renameAll,
		nsAll:     nsAll,
		attrs:     make(map[string][]fieldInfo),
		elems:     make(map[string][]fieldInfo),
		flatAttrs: make(map[string][]fieldInfo),
		flatElems: make(map[string][]fieldInfo),
		elements:  make(map[string][]fieldInfo),
	}

	for _, f := range s.Fields {
		if s.StructKind == StructTuple {
			t.tuple = append(t.tuple, f)
		}

		switch f.Role {
		case RoleFlatten:
			t.hasFlatten = true
			if err := t.addFlatten(f, format); err != nil {
				return nil, err
			}

		case RoleAttribute:
			if isBareSequence(f.Shape) && f.Rename == "" {
				t.attrCatchAll = f
				continue
			}
			t.addAttr(t.attrs, fieldInfo{field: f, key: f.Key(renameAll), ns: f.Namespace})

		case RoleText:
			t.text = f
		case RoleTag:
			t.tag = f
		case RoleDoctype:
			t.doctype = f

		case RoleElements:
			if err := t.addElements(f, format); err != nil {
				return nil, err
			}

		case RoleOther:
			t.other = f
			t.addElement(t.elems, f, false, -1, false)

		default:
			t.addElement(t.elems, f, false, -1, false)
		}
	}
	return t, nil
}

// isBareSequence reports list and set shapes, looking through smart pointers.
func isBareSequence(s *Shape) bool {
	if s.Kind == KindPointer {
		s = s.Elem
	}
	return s.Kind == KindList || s.Kind == KindSet
}

func (t *fieldTable) addAttr(m map[string][]fieldInfo, info fieldInfo) {
	m[info.key] = append(m[info.key], info)
	if info.field.Alias != "" {
		alias := info
		alias.key = info.field.Alias
		m[alias.key] = append(m[alias.key], alias)
	}
}

// elementNS is the namespace an element field requires.
func (t *fieldTable) elementNS(f *Field) string {
	if f.Namespace != "" {
		return f.Namespace
	}
	return t.nsAll
}

func (t *fieldTable) addElement(m map[string][]fieldInfo, f *Field, flat bool, parent int, parentOptional bool) {
	info := fieldInfo{
		field:          f,
		key:            f.Key(t.renameAll),
		ns:             t.elementNS(f),
		flat:           flat,
		parent:         parent,
		parentOptional: parentOptional,
	}
	m[info.key] = append(m[info.key], info)

	if isBareSequence(f.Shape) && f.Rename == "" {
		if singular := Singularize(info.key); singular != info.key {
			s := info
			s.key = singular
			m[singular] = append(m[singular], s)
		}
	}
	if f.Alias != "" {
		a := info
		a.key = f.Alias
		m[a.key] = append(m[a.key], a)
	}
}

func (t *fieldTable) addFlatten(f *Field, format string) error {
	inner := f.Shape
	optional := false
	if inner.Kind == KindOption {
		inner = inner.Elem
		optional = true
	}

	switch inner.Kind {
	case KindStruct:
		childRename := t.renameAll
		if inner.RenameAll != "" {
			childRename = inner.RenameAll
		}
		for _, child := range inner.Fields {
			switch child.Role {
			case RoleAttribute:
				info := fieldInfo{
					field:          child,
					key:            child.Key(childRename),
					ns:             child.Namespace,
					flat:           true,
					parent:         f.Index,
					parentOptional: optional,
				}
				t.addAttr(t.flatAttrs, info)
			case RoleFlatten:
				if child.Shape.Unwrap().Kind == KindMap {
					t.nestedFlatMap = append(t.nestedFlatMap, flatMapInfo{
						field:          child,
						nested:         true,
						parent:         f.Index,
						parentOptional: optional,
					})
				}
			case RoleText, RoleTag, RoleDoctype:
				// Captures are not promoted through a flatten.
			default:
				saved := t.renameAll
				t.renameAll = childRename
				t.addElement(t.flatElems, child, true, f.Index, optional)
				t.renameAll = saved
			}
		}

	case KindEnum:
		if t.flatEnum != nil {
			return newConfigError(ErrInvalidTag, t.shape.Name, f.Name, "only one flattened enum per struct")
		}
		t.flatEnum = &flatEnumInfo{field: f, enum: inner, optional: optional}

	case KindList:
		if inner.Elem.Kind != KindEnum || optional {
			return newConfigError(ErrUnsupported, t.shape.Name, f.Name, "flattened lists must hold an enum")
		}
		if t.flatEnum != nil {
			return newConfigError(ErrInvalidTag, t.shape.Name, f.Name, "only one flattened enum per struct")
		}
		t.flatEnum = &flatEnumInfo{field: f, enum: inner.Elem, list: true}

	case KindMap:
		info := flatMapInfo{field: f}
		t.flatMaps = append(t.flatMaps, info)
		t.flatAttrMaps = append(t.flatAttrMaps, info)

	default:
		return newConfigError(ErrUnsupported, t.shape.Name, f.Name, "cannot flatten a "+inner.Kind.String())
	}
	return nil
}

// addElements registers an elements-collection field.
func (t *fieldTable) addElements(f *Field, format string) error {
	t.elementsAll = append(t.elementsAll, f)

	item := f.Shape
	if item.Kind == KindPointer {
		item = item.Elem
	}
	item = item.Elem

	ns := t.elementNS(f)
	add := func(key string) {
		t.elements[key] = append(t.elements[key], fieldInfo{field: f, key: key, ns: ns, parent: -1})
	}

	wire := item
	if p := typeProxy(item.Type, format); p != nil && p.Wire() != item.Type {
		ws, err := ShapeOf(p.Wire())
		if err != nil {
			return err
		}
		wire = ws
	}

	switch {
	case item.Kind == KindStruct && item.HasTagField():
		if t.elementsAny == nil {
			t.elementsAny = f
		}
	case f.Rename != "":
		add(f.Rename)
	case wire.Kind == KindEnum:
		for _, v := range wire.Variants {
			if !v.Text {
				add(v.Key)
			}
		}
		if _, ok := wire.CustomVariant(); ok && t.elementsAny == nil {
			t.elementsAny = f
		}
	case item.Rename != "":
		add(item.Rename)
	case item.Named():
		add(item.ElementName())
	default:
		add(Singularize(f.Key(t.renameAll)))
	}
	return nil
}

// lookup applies namespace priority: an exact namespace match, then an
// unconstrained entry.
func lookup(m map[string][]fieldInfo, name, ns string) (fieldInfo, bool) {
	entries := m[name]
	if ns != "" {
		for _, e := range entries {
			if e.ns == ns {
				return e, true
			}
		}
	}
	for _, e := range entries {
		if e.ns == "" {
			return e, true
		}
	}
	return fieldInfo{}, false
}

func (t *fieldTable) findAttr(name, ns string) (fieldInfo, bool) {
	return lookup(t.attrs, name, ns)
}

func (t *fieldTable) findFlatAttr(name, ns string) (fieldInfo, bool) {
	return lookup(t.flatAttrs, name, ns)
}

func (t *fieldTable) findElement(tag, ns string) (fieldInfo, bool) {
	return lookup(t.elems, tag, ns)
}

func (t *fieldTable) findFlatElement(tag, ns string) (fieldInfo, bool) {
	return lookup(t.flatElems, tag, ns)
}

func (t *fieldTable) findElements(tag, ns string) (fieldInfo, bool) {
	return lookup(t.elements, tag, ns)
}

// matchFlatEnum returns the variant of the flattened enum named by tag,
// falling back to its custom-element variant.
func (t *fieldTable) matchFlatEnum(tag string) (*Variant, bool) {
	if t.flatEnum == nil {
		return nil, false
	}
	if v, ok := t.flatEnum.enum.VariantByKey(tag); ok {
		return v, true
	}
	return t.flatEnum.enum.CustomVariant()
}
