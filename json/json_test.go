package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/arbor"
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
	assert.Equal(t, "application/json", c.ContentType())
	assert.Implements(t, (*arbor.ContextCodec)(nil), c)
}

func TestMarshal_Snapshot(t *testing.T) {
	data, err := New().Marshal(note{Lang: "en", Body: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"note","attrs":{"lang":"en"},"children":[{"text":"hi"}]}`, string(data))
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

func TestUnmarshal_Errors(t *testing.T) {
	var n note
	assert.Error(t, New().Unmarshal([]byte(`{not json`), &n))
	assert.ErrorIs(t, New().Unmarshal([]byte(`{"text":"loose"}`), &n), tree.ErrTextRoot)

	err := New(arbor.WithDenyUnknown(true)).Unmarshal([]byte(`{"tag":"note","attrs":{"extra":"1"}}`), &n)
	assert.ErrorIs(t, err, arbor.ErrUnknownAttribute)
}
