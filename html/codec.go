package html

import (
	"bytes"
	"context"

	"github.com/zoobzio/arbor"
)

// Codec implements arbor.Codec for HTML.
type Codec struct {
	opts []arbor.Option
}

// New returns an HTML codec. opts apply to every call.
func New(opts ...arbor.Option) *Codec {
	return &Codec{opts: opts}
}

// ContentType returns the MIME type for HTML.
func (c *Codec) ContentType() string {
	return "text/html"
}

// Marshal encodes v as HTML.
func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.MarshalContext(context.Background(), v)
}

// Unmarshal decodes HTML data into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.UnmarshalContext(context.Background(), data, v)
}

// MarshalContext implements arbor.ContextCodec.
func (c *Codec) MarshalContext(ctx context.Context, v any) ([]byte, error) {
	w := NewWriter(c.opts...)
	if err := arbor.Encode(ctx, w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalContext implements arbor.ContextCodec.
func (c *Codec) UnmarshalContext(ctx context.Context, data []byte, v any) error {
	return arbor.Decode(ctx, NewSource(bytes.NewReader(data), c.opts...), v, c.opts...)
}
