// Package testing provides fixtures and helpers for arbor tests.
package testing

import (
	"context"
	"os"
	"testing"

	"github.com/zoobzio/arbor"
	"gopkg.in/yaml.v3"
)

func init() {
	arbor.RegisterEnum[Media](arbor.EnumOptions{RenameAll: arbor.CaseKebab},
		arbor.Case[Image](),
		arbor.Case[Video](),
	)
}

// Catalog is a document exercising attributes, nested lists, maps, options
// and a flattened enum list.
type Catalog struct {
	_        arbor.Meta        `dom:"catalog,rename_all=kebab-case"`
	Version  string            `dom:"version,attr"`
	Title    string            `dom:"title"`
	Products []Product         `dom:"product"`
	Labels   map[string]string `dom:"labels"`
}

// Product is an entry of a Catalog.
type Product struct {
	SKU    string   `dom:"sku,attr"`
	OnSale bool     `dom:"sale,attr"`
	Name   string   `dom:"name"`
	Price  float64  `dom:"price"`
	Tags   []string `dom:"tag"`
	Note   *string  `dom:"note"`
	Media  []Media  `dom:",flatten"`
}

// Media is an enum of product attachments.
type Media interface{ isMedia() }

// Image is a Media variant.
type Image struct {
	Src string `dom:"src,attr"`
}

// Video is a Media variant.
type Video struct {
	URL    string `dom:"url,attr"`
	Length int    `dom:"length,attr"`
}

func (Image) isMedia() {}
func (Video) isMedia() {}

// SampleCatalog returns a populated catalog.
func SampleCatalog() Catalog {
	note := "limited"
	return Catalog{
		Version: "3",
		Title:   "Spring",
		Products: []Product{
			{
				SKU:    "a-1",
				OnSale: true,
				Name:   "Lamp",
				Price:  19.5,
				Tags:   []string{"home", "light"},
				Note:   &note,
				Media:  []Media{Image{Src: "lamp.png"}, Video{URL: "lamp.mp4", Length: 30}},
			},
			{SKU: "b-2", Name: "Chair", Price: 45, Tags: []string{"home"}, Media: []Media{}},
		},
		Labels: map[string]string{"season": "spring", "year": "2026"},
	}
}

// Case is a decode scenario loaded from a YAML fixture. Output is the
// expected re-encoding of the decoded value; Error names the expected
// failure (unknown_element, unknown_attribute, builder, type_mismatch).
type Case struct {
	Name        string `yaml:"name"`
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	DenyUnknown bool   `yaml:"deny_unknown"`
	Lenient     bool   `yaml:"lenient"`
	Error       string `yaml:"error"`
}

// Options returns the decode options the case asks for.
func (c Case) Options() []arbor.Option {
	var opts []arbor.Option
	if c.DenyUnknown {
		opts = append(opts, arbor.WithDenyUnknown(true))
	}
	if c.Lenient {
		opts = append(opts, arbor.WithLenient(true))
	}
	return opts
}

// LoadCases reads a YAML list of cases from path.
func LoadCases(tb testing.TB, path string) []Case {
	tb.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read %s: %v", path, err)
	}
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		tb.Fatalf("parse %s: %v", path, err)
	}
	return cases
}

// RoundTrip encodes v with c and decodes the result into a fresh T.
func RoundTrip[T any](tb testing.TB, c arbor.Codec, v T) T {
	tb.Helper()
	proc, err := arbor.NewProcessor[T](c)
	if err != nil {
		tb.Fatalf("NewProcessor error: %v", err)
	}
	data, err := proc.Encode(context.Background(), &v)
	if err != nil {
		tb.Fatalf("Encode error: %v", err)
	}
	out, err := proc.Decode(context.Background(), data)
	if err != nil {
		tb.Fatalf("Decode error: %v\n%s", err, data)
	}
	return *out
}

// Events records the events v encodes to.
func Events(tb testing.TB, v any) []arbor.Event {
	tb.Helper()
	rec := arbor.NewRecorder("test")
	if err := arbor.Encode(context.Background(), rec, v); err != nil {
		tb.Fatalf("Encode error: %v", err)
	}
	return rec.Events
}
