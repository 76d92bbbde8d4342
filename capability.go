package arbor

// Role is the wire role of a struct field. Every mapped field has exactly
// one role; the role is independent of the field's Kind.
type Role uint8

const (
	// RoleElement maps the field to a child element (the default).
	RoleElement Role = iota

	// RoleAttribute maps the field to an attribute: `dom:"id,attr"`.
	RoleAttribute

	// RoleText maps the field to the element's text content: `dom:",text"`.
	RoleText

	// RoleTag captures the element's tag name: `dom:",tag"`.
	RoleTag

	// RoleDoctype captures a preceding doctype declaration: `dom:",doctype"`.
	RoleDoctype

	// RoleElements collects child elements matched by item identity rather
	// than by a field-derived name: `dom:",elements"`.
	RoleElements

	// RoleOther receives the whole element when the root tag does not match,
	// and otherwise behaves as a plain element: `dom:",other"`.
	RoleOther

	// RoleFlatten promotes the field's own fields (or map entries, or enum
	// variants) into the enclosing struct: `dom:",flatten"`.
	RoleFlatten
)

var roleNames = [...]string{
	RoleElement:   "element",
	RoleAttribute: "attribute",
	RoleText:      "text",
	RoleTag:       "tag",
	RoleDoctype:   "doctype",
	RoleElements:  "elements",
	RoleOther:     "other",
	RoleFlatten:   "flatten",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

// roleOptions maps tag options to roles. "attr" is shorthand for "attribute".
var roleOptions = map[string]Role{
	"attr":      RoleAttribute,
	"attribute": RoleAttribute,
	"text":      RoleText,
	"tag":       RoleTag,
	"doctype":   RoleDoctype,
	"elements":  RoleElements,
	"other":     RoleOther,
	"flatten":   RoleFlatten,
}

// validCaseStyles contains all case styles accepted by rename_all.
var validCaseStyles = map[CaseStyle]bool{
	CaseLower:          true,
	CaseUpper:          true,
	CasePascal:         true,
	CaseUpperCamel:     true,
	CaseCamel:          true,
	CaseLowerCamel:     true,
	CaseSnake:          true,
	CaseScreamingSnake: true,
	CaseUpperSnake:     true,
	CaseKebab:          true,
	CaseScreamingKebab: true,
	CaseUpperKebab:     true,
}

// IsValidCaseStyle returns true if style is a known rename_all style.
func IsValidCaseStyle(style CaseStyle) bool {
	return validCaseStyles[style]
}

// IsValidRole returns true if opt names a field role.
func IsValidRole(opt string) bool {
	_, ok := roleOptions[opt]
	return ok
}

// roleAcceptsKind reports whether a field of the given kind may carry role.
// Catch-all and capture roles need string-like or collection targets.
func roleAcceptsKind(role Role, k Kind) bool {
	switch role {
	case RoleTag, RoleDoctype:
		return k == KindScalar || k == KindOption
	case RoleElements:
		return k == KindList || k == KindPointer
	case RoleFlatten:
		return k == KindStruct || k == KindOption || k == KindEnum || k == KindMap || k == KindList
	default:
		return true
	}
}
