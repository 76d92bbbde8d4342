package arbor

import "context"

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/xml").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// ContextCodec is a Codec that carries a context into the engine, so that
// decode and encode signals are emitted with the caller's context.
type ContextCodec interface {
	Codec
	MarshalContext(ctx context.Context, v any) ([]byte, error)
	UnmarshalContext(ctx context.Context, data []byte, v any) error
}
