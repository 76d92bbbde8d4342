package arbor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitProcessorCreated(_ *testing.T) {
	// Should not panic
	emitProcessorCreated(context.Background(), "application/xml", "TestType")
}

func TestEmitShapeBuilt(_ *testing.T) {
	emitShapeBuilt(context.Background(), "TestType", 4)
}

func TestEmitDecodeStart(_ *testing.T) {
	emitDecodeStart(context.Background(), "xml", "TestType")
}

func TestEmitDecodeComplete_Success(_ *testing.T) {
	emitDecodeComplete(context.Background(), "xml", "TestType", 100*time.Millisecond, nil)
}

func TestEmitDecodeComplete_Error(_ *testing.T) {
	emitDecodeComplete(context.Background(), "xml", "TestType", 100*time.Millisecond, errors.New("test error"))
}

func TestEmitEncodeStart(_ *testing.T) {
	emitEncodeStart(context.Background(), "html", "TestType")
}

func TestEmitEncodeComplete_Success(_ *testing.T) {
	emitEncodeComplete(context.Background(), "html", "TestType", 50*time.Millisecond, nil)
}

func TestEmitEncodeComplete_Error(_ *testing.T) {
	emitEncodeComplete(context.Background(), "html", "TestType", 50*time.Millisecond, errors.New("test error"))
}

func TestEmitElementSkipped(_ *testing.T) {
	emitElementSkipped(context.Background(), "TestType", "extra")
}

func TestEmitAttributeDropped(_ *testing.T) {
	emitAttributeDropped(context.Background(), "TestType", "lang")
}

func TestEmitTextDropped(_ *testing.T) {
	emitTextDropped(context.Background(), "TestType", 12)
}

func TestSignalTextDropped_Description(t *testing.T) {
	if got := SignalTextDropped.Description(); got != "Text without a receiver dropped" {
		t.Errorf("Description() = %q", got)
	}
}
