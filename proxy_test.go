package arbor_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/xml"
)

type Celsius float64

type Reading struct {
	Temp Celsius `dom:"temp,attr,proxy=celsius"`
	Max  Celsius `dom:"max"`
}

func celsiusProxy() arbor.Proxy {
	return arbor.NewProxy(
		func(s string) (Celsius, error) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, "C"), 64)
			return Celsius(v), err
		},
		func(c Celsius) (string, error) {
			return strconv.FormatFloat(float64(c), 'f', -1, 64) + "C", nil
		},
	)
}

func TestProxy_Field(t *testing.T) {
	t.Cleanup(arbor.Reset)
	arbor.RegisterProxy("celsius", celsiusProxy())

	var got Reading
	if err := xml.Unmarshal([]byte(`<reading temp="21.5C"><max>30</max></reading>`), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Temp != 21.5 || got.Max != 30 {
		t.Errorf("decoded %+v", got)
	}

	data, err := xml.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `<reading temp="21.5C"><max>30</max></reading>` {
		t.Errorf("Marshal() = %s", data)
	}

	var bad Reading
	err = xml.Unmarshal([]byte(`<reading temp="warm"/>`), &bad)
	if !errors.Is(err, arbor.ErrBuilder) {
		t.Errorf("bad proxy input = %v, want ErrBuilder", err)
	}
}

type Point struct {
	X int
	Y int
}

type Route struct {
	From Point `dom:"from,attr"`
	At   Point `dom:"at"`
}

func pointProxy(sep string) arbor.Proxy {
	return arbor.NewProxy(
		func(s string) (Point, error) {
			var p Point
			x, y, ok := strings.Cut(s, sep)
			if !ok {
				return p, fmt.Errorf("point %q: missing %q", s, sep)
			}
			var err error
			if p.X, err = strconv.Atoi(x); err != nil {
				return p, err
			}
			p.Y, err = strconv.Atoi(y)
			return p, err
		},
		func(p Point) (string, error) {
			return strconv.Itoa(p.X) + sep + strconv.Itoa(p.Y), nil
		},
	)
}

func TestProxy_Type(t *testing.T) {
	t.Cleanup(arbor.Reset)
	arbor.RegisterTypeProxy("", pointProxy(","))

	route := Route{From: Point{1, 2}, At: Point{3, 4}}
	data, err := xml.Marshal(route)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `<route from="1,2"><at>3,4</at></route>` {
		t.Errorf("Marshal() = %s", data)
	}

	var got Route
	if err := xml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got != route {
		t.Errorf("decoded %+v, want %+v", got, route)
	}
}

func TestProxy_FormatSpecific(t *testing.T) {
	t.Cleanup(arbor.Reset)
	arbor.RegisterTypeProxy("", pointProxy(","))
	arbor.RegisterTypeProxy(xml.FormatNamespace, pointProxy(";"))

	route := Route{From: Point{1, 2}, At: Point{3, 4}}
	data, err := xml.Marshal(route)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `<route from="1;2"><at>3;4</at></route>` {
		t.Errorf("xml Marshal() = %s", data)
	}

	rec := arbor.NewRecorder("test")
	if err := arbor.Encode(context.Background(), rec, route); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if rec.Events[1].Value != "1,2" {
		t.Errorf("generic proxy should serve other formats, got %v", rec.Events[1])
	}

	var got Route
	if err := arbor.Decode(context.Background(), rec.Source(), &got); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != route {
		t.Errorf("decoded %+v, want %+v", got, route)
	}
}

type Marker struct {
	Here  Point `dom:"here,proxy=slash"`
	There Point `dom:"there"`
}

func TestProxy_FieldBeatsType(t *testing.T) {
	t.Cleanup(arbor.Reset)
	arbor.RegisterTypeProxy("", pointProxy(","))
	arbor.RegisterProxy("slash", pointProxy("/"))

	m := Marker{Here: Point{1, 2}, There: Point{3, 4}}
	data, err := xml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `<marker><here>1/2</here><there>3,4</there></marker>` {
		t.Errorf("Marshal() = %s", data)
	}

	var got Marker
	if err := xml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got != m {
		t.Errorf("decoded %+v, want %+v", got, m)
	}
}

type Misconfigured struct {
	V int `dom:"v,proxy=missing"`
}

type Mismatched struct {
	V int `dom:"v,proxy=celsius"`
}

func TestProxy_Invalid(t *testing.T) {
	t.Cleanup(arbor.Reset)
	arbor.RegisterProxy("celsius", celsiusProxy())

	if _, err := xml.Marshal(Misconfigured{V: 1}); !errors.Is(err, arbor.ErrInvalidTag) {
		t.Errorf("unregistered proxy = %v, want ErrInvalidTag", err)
	}

	var m Mismatched
	err := xml.Unmarshal([]byte(`<mismatched><v>1</v></mismatched>`), &m)
	var ce *arbor.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, arbor.ErrInvalidTag) {
		t.Errorf("mismatched proxy = %v, want ConfigError", err)
	}
}
