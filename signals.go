package arbor

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for engine events.
var (
	SignalProcessorCreated = capitan.NewSignal("arbor.processor.created", "Processor instantiated")
	SignalShapeBuilt       = capitan.NewSignal("arbor.shape.built", "Shape derived from a Go type")
	SignalDecodeStart      = capitan.NewSignal("arbor.decode.start", "Decode operation beginning")
	SignalDecodeComplete   = capitan.NewSignal("arbor.decode.complete", "Decode operation finished")
	SignalEncodeStart      = capitan.NewSignal("arbor.encode.start", "Encode operation beginning")
	SignalEncodeComplete   = capitan.NewSignal("arbor.encode.complete", "Encode operation finished")
	SignalElementSkipped   = capitan.NewSignal("arbor.element.skipped", "Unknown element skipped")
	SignalAttributeDropped = capitan.NewSignal("arbor.attribute.dropped", "Unknown attribute dropped")
	SignalTextDropped      = capitan.NewSignal("arbor.text.dropped", "Text without a receiver dropped")
)

// Keys for typed event data.
var (
	KeyContentType = capitan.NewStringKey("content_type")
	KeyFormat      = capitan.NewStringKey("format")
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyName        = capitan.NewStringKey("name")
	KeyFieldCount  = capitan.NewIntKey("field_count")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitShapeBuilt emits an event when a shape is derived for the first time.
func emitShapeBuilt(ctx context.Context, typeName string, fields int) {
	capitan.Emit(ctx, SignalShapeBuilt,
		KeyTypeName.Field(typeName),
		KeyFieldCount.Field(fields),
	)
}

// emitDecodeStart emits an event when decode begins.
func emitDecodeStart(ctx context.Context, format, typeName string) {
	capitan.Emit(ctx, SignalDecodeStart,
		KeyFormat.Field(format),
		KeyTypeName.Field(typeName),
	)
}

// emitDecodeComplete emits an event when decode finishes.
func emitDecodeComplete(ctx context.Context, format, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyFormat.Field(format),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}

// emitEncodeStart emits an event when encode begins.
func emitEncodeStart(ctx context.Context, format, typeName string) {
	capitan.Emit(ctx, SignalEncodeStart,
		KeyFormat.Field(format),
		KeyTypeName.Field(typeName),
	)
}

// emitEncodeComplete emits an event when encode finishes.
func emitEncodeComplete(ctx context.Context, format, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyFormat.Field(format),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitElementSkipped emits an event when an unknown element is skipped.
func emitElementSkipped(ctx context.Context, typeName, tag string) {
	capitan.Emit(ctx, SignalElementSkipped,
		KeyTypeName.Field(typeName),
		KeyName.Field(tag),
	)
}

// emitAttributeDropped emits an event when an unknown attribute is dropped.
func emitAttributeDropped(ctx context.Context, typeName, name string) {
	capitan.Emit(ctx, SignalAttributeDropped,
		KeyTypeName.Field(typeName),
		KeyName.Field(name),
	)
}

// emitTextDropped emits an event when text with no receiver is discarded.
func emitTextDropped(ctx context.Context, typeName string, size int) {
	capitan.Emit(ctx, SignalTextDropped,
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
	)
}
