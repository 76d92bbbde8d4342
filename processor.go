package arbor

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/zoobzio/sentinel"
)

// Processor binds a type to a codec.
//
// Processors are safe for concurrent use. The shape of T is derived when the
// processor is created, so tag errors surface from NewProcessor rather than
// the first decode.
type Processor[T any] struct {
	codec    Codec
	shape    *Shape
	typeName string
}

// NewProcessor creates a new Processor for type T.
func NewProcessor[T any](codec Codec) (*Processor[T], error) {
	typ := reflect.TypeFor[T]()
	typeName := typ.String()
	if typ.Kind() == reflect.Struct {
		typeName = sentinel.Scan[T]().TypeName
	}

	shape, err := ShapeOf(typ)
	if err != nil {
		return nil, err
	}

	p := &Processor[T]{
		codec:    codec,
		shape:    shape,
		typeName: typeName,
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), typeName)
	return p, nil
}

// Shape returns the shape of T.
func (p *Processor[T]) Shape() *Shape {
	return p.shape
}

// ContentType returns the content type of the underlying codec.
func (p *Processor[T]) ContentType() string {
	return p.codec.ContentType()
}

// Decode unmarshals data into a new T. Types implementing Defaulter start
// from their default.
func (p *Processor[T]) Decode(ctx context.Context, data []byte) (*T, error) {
	var obj T
	if d, ok := any(obj).(Defaulter[T]); ok {
		obj = d.Default()
	}

	var err error
	if cc, ok := p.codec.(ContextCodec); ok {
		err = cc.UnmarshalContext(ctx, data, &obj)
	} else {
		err = p.timed(ctx, func() error { return p.codec.Unmarshal(data, &obj) }, true)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &obj, nil
}

// Encode marshals obj.
func (p *Processor[T]) Encode(ctx context.Context, obj *T) ([]byte, error) {
	if obj == nil {
		return nil, &EncodeError{Err: fmt.Errorf("nil %s", p.typeName), Type: p.typeName}
	}

	var data []byte
	var err error
	if cc, ok := p.codec.(ContextCodec); ok {
		data, err = cc.MarshalContext(ctx, obj)
	} else {
		err = p.timed(ctx, func() error {
			var merr error
			data, merr = p.codec.Marshal(obj)
			return merr
		}, false)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return data, nil
}

// timed wraps a plain codec call in start/complete signals.
func (p *Processor[T]) timed(ctx context.Context, fn func() error, decode bool) (retErr error) {
	start := time.Now()
	ct := p.codec.ContentType()
	if decode {
		emitDecodeStart(ctx, ct, p.typeName)
		defer func() { emitDecodeComplete(ctx, ct, p.typeName, time.Since(start), retErr) }()
	} else {
		emitEncodeStart(ctx, ct, p.typeName)
		defer func() { emitEncodeComplete(ctx, ct, p.typeName, time.Since(start), retErr) }()
	}
	return fn()
}
