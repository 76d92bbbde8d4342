// Package xml reads and writes XML for the arbor engine.
package xml

import (
	"context"

	"github.com/zoobzio/arbor"
)

// Codec implements arbor.Codec for XML.
type Codec struct {
	opts []arbor.Option
}

// New returns an XML codec. opts apply to every call.
func New(opts ...arbor.Option) *Codec {
	return &Codec{opts: opts}
}

// ContentType returns the MIME type for XML.
func (c *Codec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as XML.
func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.MarshalContext(context.Background(), v)
}

// Unmarshal decodes XML data into v.
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
	return arbor.Decode(ctx, NewSource(data, c.opts...), v, c.opts...)
}

// Marshal encodes v as XML.
func Marshal(v any, opts ...arbor.Option) ([]byte, error) {
	return New(opts...).Marshal(v)
}

// Unmarshal decodes XML data into v.
func Unmarshal(data []byte, v any, opts ...arbor.Option) error {
	return New(opts...).Unmarshal(data, v)
}
