package arbor_test

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/tree"
	"github.com/zoobzio/arbor/xml"
)

func TestEncode_Library(t *testing.T) {
	lib := sampleLibrary()

	for _, v := range []any{lib, &lib} {
		data, err := xml.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if string(data) != sampleLibraryXML {
			t.Errorf("Marshal() =\n%s\nwant\n%s", data, sampleLibraryXML)
		}
	}
}

type HTTPConfig struct {
	XMLParser string
	URLPath   string
}

func TestEncode_Documents(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "flatten",
			value: Outer{Name: "n", Inner: Inner{Color: "red", Size: 3}, Extra: map[string]string{"z": "1", "w": "2"}},
			want:  `<outer color="red" w="2" z="1"><name>n</name><size>3</size></outer>`,
		},
		{
			name:  "sequences",
			value: Seq{X: []string{"1", "2", "3"}, Y: []string{"a", "b"}},
			want:  `<seq><x>1</x><x>2</x><x>3</x><y>a</y><y>b</y></seq>`,
		},
		{
			name:  "namespaces",
			value: NSDoc{A: "exact", Any: []string{"plain"}},
			want:  `<doc><ns0:item xmlns:ns0="urn:a">exact</ns0:item><item>plain</item></doc>`,
		},
		{
			name:  "unit variant",
			value: Holder{C: Foo{}},
			want:  `<holder><c>foo</c></holder>`,
		},
		{
			name:  "struct variant",
			value: Holder{C: Bar{N: 2}},
			want:  `<holder><c><bar n="2"/></c></holder>`,
		},
		{
			name:  "absent variant",
			value: Holder{},
			want:  `<holder/>`,
		},
		{
			name:  "acronym names",
			value: HTTPConfig{XMLParser: "strict", URLPath: "/v1"},
			want:  `<httpConfig><xmlParser>strict</xmlParser><urlPath>/v1</urlPath></httpConfig>`,
		},
		{
			name:  "flattened enum list",
			value: Doc{Nodes: []Node{Known{V: "1"}, Unknown{Tag: "mystery"}, Known{V: "2"}}},
			want:  `<doc><known v="1"/><mystery/><known v="2"/></doc>`,
		},
		{
			name: "elements",
			value: Container{ID: 7, Name: "widgets", Items: []tree.Element{
				tree.New("foo").WithAttr("a", "1"),
				tree.New("bar"),
			}},
			want: `<container id="7"><name>widgets</name><foo a="1"/><bar/></container>`,
		},
		{
			name:  "other and tag",
			value: Page{Doctype: "page", Tag: "article", Title: "T"},
			want:  `<!DOCTYPE page><article><title>T</title></article>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := xml.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

// roundTrip encodes v, decodes the result into a fresh value of the same
// type and returns it.
func roundTrip(t *testing.T, v any, opts ...arbor.Option) any {
	t.Helper()
	data, err := xml.Marshal(v, opts...)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := reflect.New(reflect.TypeOf(v))
	if err := xml.Unmarshal(data, out.Interface(), opts...); err != nil {
		t.Fatalf("Unmarshal(%s) error: %v", data, err)
	}
	return out.Elem().Interface()
}

func TestEncode_RoundTrip(t *testing.T) {
	values := []any{
		sampleLibrary(),
		Outer{Name: "n", Inner: Inner{Color: "red", Size: 3}, Extra: map[string]string{"z": "1", "w": "2"}},
		Seq{X: []string{"1", "2", "3"}, Y: []string{"a", "b"}},
		NSDoc{A: "exact", Any: []string{"plain", "other"}},
		Holder{C: Foo{}},
		Holder{C: Bar{N: 9}},
		Holder{C: Baz{}},
		Doc{Nodes: []Node{Known{V: "1"}, Unknown{Tag: "mystery"}}},
		Scalars{Flag: true, Count: 200, Ratio: 0.25, Data: []byte("hi"), Empty: ptr("")},
		Page{Doctype: "page", Tag: "article", Title: "T"},
		Aliased{Sub: "x"},
	}

	for _, v := range values {
		t.Run(reflect.TypeOf(v).Name(), func(t *testing.T) {
			got := roundTrip(t, v)
			if !reflect.DeepEqual(got, v) {
				t.Errorf("round trip:\n%s\nwant:\n%s", spew.Sdump(got), spew.Sdump(v))
			}
		})
	}
}

func TestEncode_RoundTripPretty(t *testing.T) {
	lib := sampleLibrary()
	got := roundTrip(t, lib, arbor.WithPretty(true))
	if !reflect.DeepEqual(got, lib) {
		t.Errorf("pretty round trip:\n%s", spew.Sdump(got))
	}
}

func TestEncode_ElementsStable(t *testing.T) {
	const data = `<container id="7"><name>widgets</name><foo a="1"><baz>text</baz></foo><bar/></container>`

	var c Container
	if err := xml.Unmarshal([]byte(data), &c); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	out, err := xml.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(out) != data {
		t.Errorf("Marshal() = %s, want %s", out, data)
	}
}

func TestEncode_Recorder(t *testing.T) {
	rec := arbor.NewRecorder("test")
	if err := arbor.Encode(context.Background(), rec, Note{Lang: "en", Body: "hi"}); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := []arbor.Event{
		{Kind: arbor.EventElementStart, Name: "note"},
		{Kind: arbor.EventAttribute, Name: "lang", Value: "en"},
		{Kind: arbor.EventChildrenStart},
		{Kind: arbor.EventText, Value: "hi"},
		{Kind: arbor.EventChildrenEnd},
		{Kind: arbor.EventElementEnd, Name: "note"},
	}
	if !reflect.DeepEqual(rec.Events, want) {
		t.Errorf("events = %v, want %v", rec.Events, want)
	}

	var back Note
	if err := arbor.Decode(context.Background(), rec.Source(), &back); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if back != (Note{Lang: "en", Body: "hi"}) {
		t.Errorf("replayed %+v", back)
	}
}

func TestEncode_RootEnum(t *testing.T) {
	var c Choice = Bar{N: 1}
	data, err := xml.Marshal(&c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `<bar n="1"/>` {
		t.Errorf("Marshal() = %s", data)
	}
}

type hookSink struct {
	*arbor.Recorder
	structs  []string
	fields   []string
	variants []string
}

func (h *hookSink) StructMetadata(s *arbor.Shape) error {
	h.structs = append(h.structs, s.Name)
	return nil
}

func (h *hookSink) FieldMetadata(f *arbor.Field) error {
	h.fields = append(h.fields, f.Name)
	return nil
}

func (h *hookSink) VariantMetadata(v *arbor.Variant) error {
	h.variants = append(h.variants, v.Name)
	return nil
}

func TestEncode_Hooks(t *testing.T) {
	sink := &hookSink{Recorder: arbor.NewRecorder("test")}
	if err := arbor.Encode(context.Background(), sink, Holder{C: Bar{N: 1}}); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if !reflect.DeepEqual(sink.structs, []string{"Holder", "Bar"}) {
		t.Errorf("structs = %v", sink.structs)
	}
	if !reflect.DeepEqual(sink.fields, []string{"C", "N"}) {
		t.Errorf("fields = %v", sink.fields)
	}
	if !reflect.DeepEqual(sink.variants, []string{"Bar"}) {
		t.Errorf("variants = %v", sink.variants)
	}
}

type fixedFloats struct {
	*arbor.Recorder
}

func (fixedFloats) FormatFloat(v float64, bits int) string {
	return strconv.FormatFloat(v, 'f', 2, bits)
}

func TestEncode_FloatFormatter(t *testing.T) {
	sink := fixedFloats{arbor.NewRecorder("test")}
	if err := arbor.Encode(context.Background(), sink, Book{ID: 1, Rating: ptr(4.5)}); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	found := false
	for _, ev := range sink.Events {
		if ev.Kind == arbor.EventText && ev.Value == "4.50" {
			found = true
		}
	}
	if !found {
		t.Errorf("rating not formatted by the sink: %v", sink.Events)
	}
}

type Qux struct{}

func (Qux) isChoice() {}

type failingSink struct {
	*arbor.Recorder
}

var errSinkClosed = errors.New("sink closed")

func (failingSink) ElementStart(string, string) error { return errSinkClosed }

func TestEncode_Errors(t *testing.T) {
	ctx := context.Background()
	rec := arbor.NewRecorder("test")

	var ee *arbor.EncodeError
	if err := arbor.Encode(ctx, rec, nil); !errors.As(err, &ee) {
		t.Errorf("Encode(nil) = %v, want EncodeError", err)
	}
	if err := arbor.Encode(ctx, rec, (*Library)(nil)); !errors.As(err, &ee) || ee.Type != "Library" {
		t.Errorf("Encode(nil pointer) = %v, want EncodeError for Library", err)
	}

	err := arbor.Encode(ctx, rec, Holder{C: Qux{}})
	if !errors.Is(err, arbor.ErrUnsupported) || !errors.As(err, &ee) {
		t.Errorf("unregistered variant = %v, want unsupported EncodeError", err)
	}

	err = arbor.Encode(ctx, failingSink{arbor.NewRecorder("test")}, Note{})
	if !errors.Is(err, arbor.ErrBackend) || !errors.Is(err, errSinkClosed) {
		t.Errorf("sink failure = %v, want backend error", err)
	}

	type unsupported struct{ C chan int }
	if err := arbor.Encode(ctx, rec, unsupported{}); !errors.Is(err, arbor.ErrUnsupported) {
		t.Errorf("chan field = %v, want ErrUnsupported", err)
	}
}
