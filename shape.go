package arbor

import (
	"context"
	"encoding"
	"reflect"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

func init() {
	sentinel.Tag("dom")
}

// Kind classifies a Shape.
type Kind uint8

const (
	KindScalar Kind = iota
	KindStruct
	KindEnum
	KindList
	KindArray
	KindSet
	KindMap
	KindOption
	KindPointer
	KindRaw
)

var kindNames = [...]string{
	KindScalar:  "scalar",
	KindStruct:  "struct",
	KindEnum:    "enum",
	KindList:    "list",
	KindArray:   "array",
	KindSet:     "set",
	KindMap:     "map",
	KindOption:  "option",
	KindPointer: "pointer",
	KindRaw:     "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// StructKind distinguishes named, positional and empty structs.
type StructKind uint8

const (
	StructNamed StructKind = iota
	StructTuple
	StructUnit
)

// Meta carries container options. Declare it as a blank field:
//
//	type Book struct {
//	    _     arbor.Meta `dom:"book,rename_all=kebab-case,ns_all=urn:books"`
//	    Title string
//	}
type Meta struct{}

// RawMarkup holds the verbatim markup of an element.
type RawMarkup string

var (
	metaType          = reflect.TypeFor[Meta]()
	rawMarkupType     = reflect.TypeFor[RawMarkup]()
	textUnmarshalType = reflect.TypeFor[encoding.TextUnmarshaler]()
	domUnmarshalType  = reflect.TypeFor[TextUnmarshaler]()
	bytesType         = reflect.TypeFor[[]byte]()
)

// Shape is the immutable structural description of a Go type.
type Shape struct {
	Type reflect.Type
	Kind Kind

	// Name is the Go type name, or the kind name for unnamed types.
	Name string

	// Container options from a Meta field or EnumOptions.
	Rename      string
	RenameAll   CaseStyle
	Namespace   string
	DenyUnknown bool
	Transparent bool
	Untagged    bool

	StructKind StructKind
	Fields     []*Field
	Variants   []*Variant

	// Elem is the item of a list, array or set, the value of a map, the
	// target of an option or pointer, and the inner field of a transparent struct.
	Elem *Shape
	Key  *Shape
	Len  int
}

// ElementName is the default wire name of the type.
func (s *Shape) ElementName() string {
	switch {
	case s.Rename != "":
		return s.Rename
	case s.RenameAll != "" && s.Kind == KindStruct:
		return ApplyCase(s.Name, s.RenameAll)
	default:
		return ToElementName(s.Name)
	}
}

// Named reports whether the type declares its own name.
func (s *Shape) Named() bool {
	return s.Type.Name() != ""
}

// IsSequence reports whether items of the shape are written as flat siblings.
func (s *Shape) IsSequence() bool {
	switch s.Kind {
	case KindList, KindArray, KindSet:
		return true
	case KindStruct:
		return s.StructKind == StructTuple
	}
	return false
}

// Unwrap strips options and smart pointers.
func (s *Shape) Unwrap() *Shape {
	for s.Kind == KindOption || s.Kind == KindPointer {
		s = s.Elem
	}
	return s
}

// HasTagField reports whether a struct captures its own tag name.
func (s *Shape) HasTagField() bool {
	for _, f := range s.Fields {
		if f.Role == RoleTag {
			return true
		}
	}
	return false
}

// Field describes one mapped struct field.
type Field struct {
	Index   int   // position among mapped fields
	GoIndex []int // reflect index path
	Name    string

	Rename    string
	Alias     string
	Namespace string
	Role      Role

	// Proxy names a registered proxy used for every format. FormatProxies
	// override it per format namespace.
	Proxy         string
	FormatProxies map[string]string

	Shape *Shape
}

// Key returns the wire name of the field under the given case style.
func (f *Field) Key(renameAll CaseStyle) string {
	return domKey(f.Name, f.Rename, renameAll)
}

// ProxyName returns the proxy that applies for format, if any.
func (f *Field) ProxyName(format string) string {
	if name, ok := f.FormatProxies[format]; ok && format != "" {
		return name
	}
	return f.Proxy
}

// VariantKind classifies the payload of an enum variant.
type VariantKind uint8

const (
	VariantUnit VariantKind = iota
	VariantNewtype
	VariantStruct
)

// Variant describes one registered case of an enum.
type Variant struct {
	Index  int
	Name   string // Go type name
	Rename string

	// Key is the effective wire name: Rename, the enum's case style, or
	// the default element name.
	Key string

	Text          bool
	CustomElement bool
	Kind          VariantKind

	// Type is the registered Go type. Pointer cases allocate through Elem.
	Type reflect.Type

	// Shape is the shape of the variant's value (the pointee for pointer cases).
	Shape *Shape

	// Payload is the newtype payload shape. Wrapped is set when the payload
	// is field 0 of a tuple struct rather than the value itself.
	Payload *Shape
	Wrapped bool
}

var (
	shapeCache sync.Map // reflect.Type -> *Shape
	shapeMu    sync.Mutex
)

// ShapeOf returns the cached shape of t, building it on first use.
func ShapeOf(t reflect.Type) (*Shape, error) {
	if s, ok := shapeCache.Load(t); ok {
		return s.(*Shape), nil
	}

	shapeMu.Lock()
	defer shapeMu.Unlock()

	if s, ok := shapeCache.Load(t); ok {
		return s.(*Shape), nil
	}

	b := &shapeBuilder{building: make(map[reflect.Type]*Shape)}
	s, err := b.build(t)
	if err != nil {
		return nil, err
	}
	for typ, built := range b.building {
		shapeCache.Store(typ, built)
		if built.Kind == KindStruct {
			emitShapeBuilt(context.Background(), typeName(typ), len(built.Fields))
		}
	}
	return s, nil
}

// ShapeFor returns the shape of T.
func ShapeFor[T any]() (*Shape, error) {
	return ShapeOf(reflect.TypeFor[T]())
}

// resetShapes clears the shape cache. Field tables keyed on dropped shapes
// are cleared with it.
func resetShapes() {
	shapeMu.Lock()
	defer shapeMu.Unlock()
	shapeCache.Range(func(k, _ any) bool {
		shapeCache.Delete(k)
		return true
	})
	tableCache.Range(func(k, _ any) bool {
		tableCache.Delete(k)
		return true
	})
}

type shapeBuilder struct {
	building map[reflect.Type]*Shape
}

func (b *shapeBuilder) build(t reflect.Type) (*Shape, error) {
	if s, ok := shapeCache.Load(t); ok {
		return s.(*Shape), nil
	}
	if s, ok := b.building[t]; ok {
		return s, nil
	}

	s := &Shape{Type: t, Name: typeName(t)}
	b.building[t] = s

	if err := b.fill(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *shapeBuilder) fill(s *Shape) error {
	t := s.Type

	if t == rawMarkupType {
		s.Kind = KindRaw
		return nil
	}
	if isTextual(t) {
		s.Kind = KindScalar
		return nil
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		s.Kind = KindScalar

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			s.Kind = KindScalar
			return nil
		}
		s.Kind = KindList
		elem, err := b.build(t.Elem())
		if err != nil {
			return err
		}
		s.Elem = elem

	case reflect.Array:
		s.Kind = KindArray
		s.Len = t.Len()
		elem, err := b.build(t.Elem())
		if err != nil {
			return err
		}
		s.Elem = elem

	case reflect.Map:
		if !isTextual(t.Key()) && !isScalarKind(t.Key().Kind()) {
			return newConfigError(ErrUnsupported, typeName(t), "", "map keys must be scalar")
		}
		key, err := b.build(t.Key())
		if err != nil {
			return err
		}
		s.Key = key
		if t.Elem().Kind() == reflect.Struct && t.Elem().Size() == 0 && t.Elem().NumField() == 0 {
			s.Kind = KindSet
			s.Elem = key
			return nil
		}
		s.Kind = KindMap
		elem, err := b.build(t.Elem())
		if err != nil {
			return err
		}
		s.Elem = elem

	case reflect.Pointer:
		switch t.Elem().Kind() {
		case reflect.Slice, reflect.Map:
			s.Kind = KindPointer
		default:
			s.Kind = KindOption
		}
		elem, err := b.build(t.Elem())
		if err != nil {
			return err
		}
		s.Elem = elem

	case reflect.Interface:
		def, ok := lookupEnum(t)
		if !ok {
			return newConfigError(ErrUnsupported, typeName(t), "", "interface type is not a registered enum")
		}
		return b.fillEnum(s, def)

	case reflect.Struct:
		s.Kind = KindStruct
		return b.fillStruct(s)

	default:
		return newConfigError(ErrUnsupported, typeName(t), "", "kind "+t.Kind().String()+" has no tree representation")
	}
	return nil
}

func (b *shapeBuilder) fillStruct(s *Shape) error {
	t := s.Type
	meta := structMetadata(t)

	// The Meta field is unexported, so it never appears in scanned metadata.
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type != metaType {
			continue
		}
		if err := applyContainerTag(s, sf.Tag.Get("dom")); err != nil {
			return err
		}
	}

	for _, fm := range meta.Fields {
		if fm.ReflectType == metaType {
			continue
		}
		tag, ok := fm.Tags["dom"]
		if !ok {
			tag = t.FieldByIndex(fm.Index).Tag.Get("dom")
		}
		if tag == "-" {
			continue
		}

		f := &Field{
			Index:   len(s.Fields),
			GoIndex: fm.Index,
			Name:    fm.Name,
		}
		if err := applyFieldTag(f, tag); err != nil {
			return withLocation(err, s.Name, fm.Name)
		}
		fs, err := b.build(fm.ReflectType)
		if err != nil {
			return err
		}
		f.Shape = fs
		if !roleAcceptsKind(f.Role, fs.Kind) {
			return newConfigError(ErrInvalidTag, s.Name, f.Name,
				"role "+f.Role.String()+" cannot hold a "+fs.Kind.String())
		}
		s.Fields = append(s.Fields, f)
	}

	if len(s.Fields) == 0 {
		s.StructKind = StructUnit
	}
	if s.Transparent {
		if len(s.Fields) != 1 {
			return newConfigError(ErrInvalidTag, s.Name, "", "transparent requires exactly one field")
		}
		s.Elem = s.Fields[0].Shape
	}
	return nil
}

// structMetadata returns sentinel metadata for t, scanning it directly when
// sentinel has not seen the type.
func structMetadata(t reflect.Type) sentinel.Metadata {
	if md, ok := sentinel.Lookup(t.String()); ok && len(md.Fields) > 0 {
		return md
	}

	md := sentinel.Metadata{
		TypeName:    t.Name(),
		PackageName: t.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        map[string]string{},
		}
		if v, ok := sf.Tag.Lookup("dom"); ok {
			fm.Tags["dom"] = v
		}

		md.Fields = append(md.Fields, fm)
	}

	return md
}

// applyFieldTag parses `dom:"name,opt,key=value"` onto f.
func applyFieldTag(f *Field, tag string) error {
	name, opts, _ := strings.Cut(tag, ",")
	f.Rename = name

	roleSet := false
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == "" {
			continue
		}

		if role, ok := roleOptions[opt]; ok {
			if roleSet {
				return newConfigError(ErrInvalidTag, "", "", "multiple roles")
			}
			f.Role = role
			roleSet = true
			continue
		}

		key, val, hasVal := strings.Cut(opt, "=")
		if !hasVal {
			return newConfigError(ErrInvalidTag, "", "", "unknown option "+opt)
		}
		switch {
		case key == "ns":
			f.Namespace = val
		case key == "alias":
			f.Alias = val
		case key == "proxy":
			f.Proxy = val
		case strings.HasPrefix(key, "proxy."):
			if f.FormatProxies == nil {
				f.FormatProxies = make(map[string]string)
			}
			f.FormatProxies[strings.TrimPrefix(key, "proxy.")] = val
		default:
			return newConfigError(ErrInvalidTag, "", "", "unknown option "+key)
		}
	}
	return nil
}

// applyContainerTag parses the tag of a Meta field onto s.
func applyContainerTag(s *Shape, tag string) error {
	name, opts, _ := strings.Cut(tag, ",")
	s.Rename = name

	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		switch opt {
		case "":
			continue
		case "deny_unknown":
			s.DenyUnknown = true
			continue
		case "tuple":
			s.StructKind = StructTuple
			continue
		case "transparent":
			s.Transparent = true
			continue
		}

		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "rename_all":
			if !IsValidCaseStyle(CaseStyle(val)) {
				return newConfigError(ErrInvalidTag, s.Name, "", "unknown case style "+val)
			}
			s.RenameAll = CaseStyle(val)
		case "ns_all":
			s.Namespace = val
		default:
			return newConfigError(ErrInvalidTag, s.Name, "", "unknown container option "+opt)
		}
	}
	return nil
}

// withLocation fills in the type and field of a ConfigError raised by tag parsing.
func withLocation(err error, typ, field string) error {
	if ce, ok := err.(*ConfigError); ok {
		ce.Type = typ
		ce.Field = field
	}
	return err
}

// isTextual reports whether t converts to and from text through an interface.
func isTextual(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(domUnmarshalType) || pt.Implements(textUnmarshalType)
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return typeName(t.Elem())
	case reflect.Slice, reflect.Array:
		return typeName(t.Elem())
	}
	return t.String()
}
