package testing

import (
	"reflect"
	"testing"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/xml"
)

func TestSampleCatalog(t *testing.T) {
	c := SampleCatalog()
	if len(c.Products) != 2 || c.Products[0].Note == nil {
		t.Fatal("sample catalog should hold two products with a note on the first")
	}
}

func TestLoadCases(t *testing.T) {
	cases := LoadCases(t, "testdata/cases.yaml")
	if len(cases) == 0 {
		t.Fatal("LoadCases() returned no cases")
	}
	for _, c := range cases {
		if c.Name == "" || c.Input == "" {
			t.Errorf("case %+v is missing a name or input", c)
		}
		if c.Output == "" && c.Error == "" {
			t.Errorf("case %q expects neither output nor error", c.Name)
		}
	}
}

func TestCase_Options(t *testing.T) {
	c := Case{DenyUnknown: true, Lenient: true}
	cfg := arbor.NewConfig(c.Options()...)
	if !cfg.DenyUnknown || cfg.Lenient == nil || !*cfg.Lenient {
		t.Errorf("Options() produced %+v", cfg)
	}
	if len(Case{}.Options()) != 0 {
		t.Error("empty case should have no options")
	}
}

func TestRoundTrip(t *testing.T) {
	want := SampleCatalog()
	if got := RoundTrip(t, xml.New(), want); !reflect.DeepEqual(got, want) {
		t.Errorf("RoundTrip() = %+v", got)
	}
}

func TestEvents(t *testing.T) {
	events := Events(t, Image{Src: "a.png"})
	want := []arbor.Event{
		{Kind: arbor.EventElementStart, Name: "image"},
		{Kind: arbor.EventAttribute, Name: "src", Value: "a.png"},
		{Kind: arbor.EventChildrenStart},
		{Kind: arbor.EventChildrenEnd},
		{Kind: arbor.EventElementEnd, Name: "image"},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Events() = %v", events)
	}
}
