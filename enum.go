package arbor

import (
	"fmt"
	"reflect"
	"sync"
)

// EnumOptions are the container options of an enum.
type EnumOptions struct {
	// Rename is the enum's own element name.
	Rename string

	// RenameAll applies a case style to variant names and to the field
	// names of struct variants.
	RenameAll CaseStyle

	// Untagged enums carry no discriminant on the wire; the first variant
	// is always selected on decode.
	Untagged bool
}

// CaseOption configures one enum case.
type CaseOption func(*caseDef)

// Named overrides the wire name of a case.
func Named(rename string) CaseOption {
	return func(c *caseDef) { c.rename = rename }
}

// AsText marks the case that receives bare text content.
func AsText() CaseOption {
	return func(c *caseDef) { c.text = true }
}

// AsCustomElement marks the case that receives elements no other case names.
func AsCustomElement() CaseOption {
	return func(c *caseDef) { c.custom = true }
}

// EnumCase is one registered variant declaration. Build it with Case.
type EnumCase struct {
	def caseDef
}

type caseDef struct {
	typ    reflect.Type
	rename string
	text   bool
	custom bool
}

// Case declares V as a variant of an enum.
func Case[V any](opts ...CaseOption) EnumCase {
	c := caseDef{typ: reflect.TypeFor[V]()}
	for _, opt := range opts {
		opt(&c)
	}
	return EnumCase{def: c}
}

type enumDef struct {
	iface reflect.Type
	opts  EnumOptions
	cases []caseDef
}

var (
	enums   = make(map[reflect.Type]*enumDef)
	enumsMu sync.RWMutex
)

// RegisterEnum declares the interface type I as an enum whose variants are
// the given cases, in order. Every case type must implement I.
//
//	type Shape interface{ isShape() }
//
//	arbor.RegisterEnum[Shape](arbor.EnumOptions{},
//	    arbor.Case[Circle](),
//	    arbor.Case[Square](arbor.Named("box")),
//	    arbor.Case[Label](arbor.AsText()),
//	)
//
// RegisterEnum panics on invalid declarations, in the manner of
// registration functions called from init.
func RegisterEnum[I any](opts EnumOptions, cases ...EnumCase) {
	iface := reflect.TypeFor[I]()
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("arbor: RegisterEnum: %s is not an interface type", iface))
	}
	if opts.RenameAll != "" && !IsValidCaseStyle(opts.RenameAll) {
		panic(fmt.Sprintf("arbor: RegisterEnum: unknown case style %q", opts.RenameAll))
	}
	if len(cases) == 0 {
		panic(fmt.Sprintf("arbor: RegisterEnum: %s has no cases", iface))
	}

	def := &enumDef{iface: iface, opts: opts}
	texts := 0
	for _, c := range cases {
		if !c.def.typ.Implements(iface) {
			panic(fmt.Sprintf("arbor: RegisterEnum: %s does not implement %s", c.def.typ, iface))
		}
		if c.def.text {
			texts++
		}
		def.cases = append(def.cases, c.def)
	}
	if texts > 1 {
		panic(fmt.Sprintf("arbor: RegisterEnum: %s declares more than one text case", iface))
	}

	enumsMu.Lock()
	defer enumsMu.Unlock()
	enums[iface] = def
}

func lookupEnum(t reflect.Type) (*enumDef, bool) {
	enumsMu.RLock()
	defer enumsMu.RUnlock()
	def, ok := enums[t]
	return def, ok
}

func (b *shapeBuilder) fillEnum(s *Shape, def *enumDef) error {
	s.Kind = KindEnum
	s.Rename = def.opts.Rename
	s.RenameAll = def.opts.RenameAll
	s.Untagged = def.opts.Untagged

	for i, c := range def.cases {
		vt := c.typ
		target := vt
		if vt.Kind() == reflect.Pointer {
			target = vt.Elem()
		}
		vs, err := b.build(target)
		if err != nil {
			return err
		}

		v := &Variant{
			Index:         i,
			Name:          typeName(target),
			Rename:        c.rename,
			Text:          c.text,
			CustomElement: c.custom,
			Type:          vt,
			Shape:         vs,
		}
		v.Key = domKey(v.Name, v.Rename, s.RenameAll)

		switch {
		case vs.Kind != KindStruct:
			v.Kind = VariantNewtype
			v.Payload = vs
		case vs.StructKind == StructUnit:
			v.Kind = VariantUnit
		case vs.StructKind == StructTuple && len(vs.Fields) == 1:
			v.Kind = VariantNewtype
			v.Payload = vs.Fields[0].Shape
			v.Wrapped = true
		default:
			v.Kind = VariantStruct
		}
		s.Variants = append(s.Variants, v)
	}
	return nil
}

// VariantOf returns the variant describing the dynamic type of v.
func (s *Shape) VariantOf(v reflect.Value) (*Variant, bool) {
	if s.Kind != KindEnum || v.IsNil() {
		return nil, false
	}
	dyn := v.Elem().Type()
	for _, variant := range s.Variants {
		if variant.Type == dyn {
			return variant, true
		}
	}
	return nil, false
}

// VariantByKey returns the variant whose element name is key. Text variants
// have no element form.
func (s *Shape) VariantByKey(key string) (*Variant, bool) {
	for _, v := range s.Variants {
		if v.Key == key && !v.Text {
			return v, true
		}
	}
	return nil, false
}

// TextVariant returns the variant marked AsText.
func (s *Shape) TextVariant() (*Variant, bool) {
	for _, v := range s.Variants {
		if v.Text {
			return v, true
		}
	}
	return nil, false
}

// CustomVariant returns the variant marked AsCustomElement.
func (s *Shape) CustomVariant() (*Variant, bool) {
	for _, v := range s.Variants {
		if v.CustomElement {
			return v, true
		}
	}
	return nil, false
}
