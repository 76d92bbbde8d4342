package arbor

import (
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// CaseStyle names a uniform renaming rule applied to every field or variant
// of a container. Use these constants in `rename_all=` tag options.
type CaseStyle string

const (
	CaseLower          CaseStyle = "lowercase"
	CaseUpper          CaseStyle = "UPPERCASE"
	CasePascal         CaseStyle = "PascalCase"
	CaseUpperCamel     CaseStyle = "UpperCamelCase"
	CaseCamel          CaseStyle = "camelCase"
	CaseLowerCamel     CaseStyle = "lowerCamelCase"
	CaseSnake          CaseStyle = "snake_case"
	CaseScreamingSnake CaseStyle = "SCREAMING_SNAKE_CASE"
	CaseUpperSnake     CaseStyle = "UPPER_SNAKE_CASE"
	CaseKebab          CaseStyle = "kebab-case"
	CaseScreamingKebab CaseStyle = "SCREAMING-KEBAB-CASE"
	CaseUpperKebab     CaseStyle = "UPPER-KEBAB-CASE"
)

// ToElementName converts a declared identifier to its default wire name.
// Wire names are lower camel case; identifiers starting with a digit get a
// leading underscore because element names cannot start with one.
func ToElementName(id string) string {
	if id == "" {
		return id
	}
	if id[0] >= '0' && id[0] <= '9' {
		return "_" + id
	}
	return strcase.ToLowerCamel(strcase.ToSnake(id))
}

// ApplyCase renames id according to style. Unknown styles return id unchanged.
// Camel styles split id into words first so acronyms keep their boundary:
// XMLParser becomes xmlParser, not xmlparser.
func ApplyCase(id string, style CaseStyle) string {
	switch style {
	case CaseLower:
		return strings.ToLower(id)
	case CaseUpper:
		return strings.ToUpper(id)
	case CasePascal, CaseUpperCamel:
		return strcase.ToCamel(strcase.ToSnake(id))
	case CaseCamel, CaseLowerCamel:
		return strcase.ToLowerCamel(strcase.ToSnake(id))
	case CaseSnake:
		return strcase.ToSnake(id)
	case CaseScreamingSnake, CaseUpperSnake:
		return strcase.ToScreamingSnake(id)
	case CaseKebab:
		return strcase.ToKebab(id)
	case CaseScreamingKebab, CaseUpperKebab:
		return strcase.ToScreamingKebab(id)
	default:
		return id
	}
}

// Singularize returns the singular form of a plural wire name ("tracks" -> "track").
func Singularize(name string) string {
	return inflection.Singular(name)
}

// Pluralize returns the plural form of a wire name.
func Pluralize(name string) string {
	return inflection.Plural(name)
}

// domKey computes a field's wire key: rename > rename_all > default casing.
func domKey(name, rename string, renameAll CaseStyle) string {
	if rename != "" {
		return rename
	}
	if renameAll != "" {
		return ApplyCase(name, renameAll)
	}
	return ToElementName(name)
}
