package msgpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zoobzio/arbor/tree"
)

type note struct {
	Lang string `dom:"lang,attr"`
	Body string `dom:",text"`
}

type shelf struct {
	Label string `dom:"label,attr"`
	Notes []note `dom:"note"`
	Count *int   `dom:"count"`
}

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	assert.Equal(t, "application/msgpack", c.ContentType())
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()
	count := 2
	original := shelf{
		Label: "top",
		Notes: []note{{Lang: "en", Body: "hi"}, {Lang: "fr", Body: "salut"}},
		Count: &count,
	}

	data, err := c.Marshal(original)
	require.NoError(t, err)

	var decoded shelf
	require.NoError(t, c.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMarshal_Snapshot(t *testing.T) {
	data, err := New().Marshal(note{Lang: "en", Body: "hi"})
	require.NoError(t, err)

	var s tree.Snapshot
	require.NoError(t, msgpack.Unmarshal(data, &s))
	assert.Equal(t, tree.Snapshot{
		Tag:      "note",
		Attrs:    map[string]string{"lang": "en"},
		Children: []tree.Snapshot{{Text: "hi"}},
	}, s)
}

func TestUnmarshal_Errors(t *testing.T) {
	var n note
	assert.Error(t, New().Unmarshal([]byte{0xc1}, &n))

	data, err := msgpack.Marshal(tree.Snapshot{Text: "loose"})
	require.NoError(t, err)
	assert.ErrorIs(t, New().Unmarshal(data, &n), tree.ErrTextRoot)
}
