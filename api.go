// Package arbor maps Go values to and from tree-shaped markup.
//
// The engine sits between a format and a Go type. A format turns bytes into
// a stream of tree events (element start, attribute, text, element end) and
// the engine drives a builder from those events, guided by the type's shape.
// Serialization walks the value and emits the same events to a sink.
//
// Formats live in subpackages: xml and html read and write markup, tree
// holds an in-memory element tree, and json, yaml, msgpack and bson carry
// that tree in other encodings.
//
// # Tag Syntax
//
// Field roles are declared with the dom tag:
//
//	dom:"[name][,option...]"
//
// Roles:
//
//	attr       - an attribute of the element
//	text       - the element's text content
//	tag        - the element's own name
//	doctype    - the document type declaration
//	elements   - a collection of child elements, named by their items
//	other      - receives the element when its name does not match
//	flatten    - promotes the children of a struct, enum or map
//
// Fields without a role are child elements. Other options:
//
//	ns=URI          - the field's namespace
//	alias=NAME      - an additional accepted name
//	proxy=NAME      - convert through a registered proxy
//	proxy.xml=NAME  - a proxy used only by one format
//
// Container options sit on a field of type Meta:
//
//	type Feed struct {
//	    _       arbor.Meta `dom:"feed,rename_all=kebab-case,ns_all=http://www.w3.org/2005/Atom"`
//	    ID      string     `dom:"id,attr"`
//	    Title   string
//	    Entries []Entry    `dom:"entry"`
//	}
//
// # Enums
//
// Go has no sum types; an enum is an interface whose variants are
// registered once:
//
//	arbor.RegisterEnum[Figure](arbor.EnumOptions{RenameAll: arbor.CaseKebab},
//	    arbor.Case[Circle](),
//	    arbor.Case[Rect](arbor.Named("rectangle")),
//	    arbor.Case[Label](arbor.AsText()),
//	)
//
// A variant is selected by the element name. A text variant receives bare
// text and a custom-element variant receives any element that names no
// other variant.
//
// # Basic Usage
//
//	proc, _ := arbor.NewProcessor[Feed](xml.New())
//
//	feed, _ := proc.Decode(ctx, body)
//	data, _ := proc.Encode(ctx, feed)
//
// Lower level, Decode and Encode work directly on a Source and a Sink:
//
//	var feed Feed
//	err := arbor.Decode(ctx, xml.NewSource(r), &feed, arbor.WithDenyUnknown(true))
//
// # Unknown Content
//
// Unknown elements are skipped and unknown attributes dropped, each with a
// signal. With deny_unknown on the container, or WithDenyUnknown, they are
// errors instead.
//
// # Observability
//
// Operations emit capitan signals:
//
//	arbor.processor.created
//	arbor.shape.built
//	arbor.decode.start / arbor.decode.complete
//	arbor.encode.start / arbor.encode.complete
//	arbor.element.skipped
//	arbor.attribute.dropped
//	arbor.text.dropped
package arbor
