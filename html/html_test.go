package html

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/arbor"
)

type image struct {
	Src string `dom:"src,attr"`
}

type document struct {
	_     arbor.Meta `dom:"div"`
	Title string     `dom:"h1"`
	Image *image     `dom:"img"`
	Items []string   `dom:"li"`
}

type article struct {
	_       arbor.Meta      `dom:"div"`
	Doctype string          `dom:",doctype"`
	Section arbor.RawMarkup `dom:"section"`
}

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	assert.Equal(t, "text/html", c.ContentType())
}

func TestIsVoid(t *testing.T) {
	assert.True(t, IsVoid("br"))
	assert.True(t, IsVoid("IMG"))
	assert.False(t, IsVoid("div"))
}

func TestUnmarshal_Tolerant(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"well formed", `<div><h1>Hi</h1><img src="a.png"/><li>one</li><li>two</li></div>`},
		{"void without slash", `<div><h1>Hi</h1><img src="a.png"><li>one</li><li>two</li></div>`},
		{"unclosed item", `<div><h1>Hi</h1><img src="a.png"><li>one</li><li>two</div>`},
		{"stray end tag", `<div><h1>Hi</h1></span><img src="a.png"><li>one</li><li>two</li></div>`},
		{"unclosed at end", `<div><h1>Hi</h1><img src="a.png"><li>one</li><li>two`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got document
			require.NoError(t, New().Unmarshal([]byte(tt.data), &got))
			assert.Equal(t, "Hi", got.Title)
			require.NotNil(t, got.Image)
			assert.Equal(t, "a.png", got.Image.Src)
			assert.Equal(t, []string{"one", "two"}, got.Items)
		})
	}
}

func TestMarshal(t *testing.T) {
	doc := document{Title: "Hi", Image: &image{Src: "a.png"}, Items: []string{"one"}}

	data, err := New().Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `<div><h1>Hi</h1><img src="a.png"><li>one</li></div>`, string(data))

	var back document
	require.NoError(t, New().Unmarshal(data, &back))
	assert.Equal(t, doc, back)

	data, err = New().Marshal(document{})
	require.NoError(t, err)
	assert.Equal(t, `<div><h1></h1></div>`, string(data))
}

func TestMarshal_Pretty(t *testing.T) {
	doc := document{Title: "Hi", Items: []string{"one", "two"}}

	data, err := New(arbor.WithPretty(true)).Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "<div>\n  <h1>Hi</h1>\n  <li>one</li>\n  <li>two</li>\n</div>", string(data))
}

func TestTokenizer_ClosesAtEOF(t *testing.T) {
	tok := NewTokenizer(strings.NewReader(`<p><b>x`), nil)

	var events []arbor.Event
	for {
		ev, err := tok.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}

	assert.Equal(t, []arbor.Event{
		{Kind: arbor.EventElementStart, Name: "p"},
		{Kind: arbor.EventChildrenStart},
		{Kind: arbor.EventElementStart, Name: "b"},
		{Kind: arbor.EventChildrenStart},
		{Kind: arbor.EventText, Value: "x"},
		{Kind: arbor.EventChildrenEnd},
		{Kind: arbor.EventElementEnd, Name: "b"},
		{Kind: arbor.EventChildrenEnd},
		{Kind: arbor.EventElementEnd, Name: "p"},
	}, events)
}

func TestRawAndDoctype(t *testing.T) {
	data := `<!DOCTYPE html><div><section><b>x</b><br>y</section></div>`

	var got article
	require.NoError(t, New().Unmarshal([]byte(data), &got))
	assert.Equal(t, "html", got.Doctype)
	assert.Equal(t, arbor.RawMarkup(`<section><b>x</b><br>y</section>`), got.Section)

	out, err := New().Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}

func TestNewSource_Lenient(t *testing.T) {
	assert.True(t, NewSource(strings.NewReader(`<p/>`)).Lenient())
	assert.False(t, NewSource(strings.NewReader(`<p/>`), arbor.WithLenient(false)).Lenient())
	assert.Equal(t, FormatNamespace, NewSource(strings.NewReader(`<p/>`)).FormatNamespace())
}

func TestWriter_Errors(t *testing.T) {
	w := NewWriter()
	assert.Error(t, w.ElementEnd("p"))

	require.NoError(t, w.ElementStart("p", ""))
	require.NoError(t, w.Text("x"))
	assert.Error(t, w.Attribute("late", "1", ""))
}
