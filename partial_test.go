package arbor

import (
	"errors"
	"reflect"
	"testing"
)

type partialRecord struct {
	ID     int
	Tags   []string
	Counts map[string]int
	Note   *string
	Fig    testFigure
	Pair   [2]int
	Seen   map[string]struct{}
}

func mustStep(t *testing.T, steps ...func() error) {
	t.Helper()
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestPartial_Build(t *testing.T) {
	var r partialRecord
	p, err := NewPartial(&r)
	if err != nil {
		t.Fatalf("NewPartial() error: %v", err)
	}

	mustStep(t,
		func() error { return p.BeginField(0) },
		func() error { return p.SetText("7") },
		p.End,

		func() error { return p.BeginField(1) },
		p.InitList,
		p.BeginListItem,
		func() error { return p.SetText("a") },
		p.End,
		p.BeginListItem,
		func() error { return p.SetText("b") },
		p.End,
		p.End,

		func() error { return p.BeginField(2) },
		p.InitMap,
		p.BeginKey,
		func() error { return p.SetText("k") },
		p.End,
		p.BeginValue,
		func() error { return p.SetText("3") },
		p.End,
		p.End,

		func() error { return p.BeginField(3) },
		p.BeginSome,
		func() error { return p.SetText("note") },
		p.End,
		p.End,

		func() error { return p.BeginField(4) },
		func() error { return p.SelectVariant(1) },
		p.End,
		p.End,

		func() error { return p.BeginField(5) },
		func() error { return p.BeginNth(1) },
		func() error { return p.SetText("9") },
		p.End,
		p.End,

		func() error { return p.BeginField(6) },
		p.InitSet,
		p.BeginSetItem,
		func() error { return p.SetText("x") },
		p.End,
		p.End,
	)

	want := partialRecord{
		ID:     7,
		Tags:   []string{"a", "b"},
		Counts: map[string]int{"k": 3},
		Fig:    testDot{},
		Pair:   [2]int{0, 9},
		Seen:   map[string]struct{}{"x": {}},
	}
	if r.Note == nil || *r.Note != "note" {
		t.Errorf("Note = %v, want note", r.Note)
	}
	r.Note = nil
	if !reflect.DeepEqual(r, want) {
		t.Errorf("built %+v, want %+v", r, want)
	}
	if p.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", p.Depth())
	}
}

func TestPartial_Path(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t,
		func() error { return p.BeginField(1) },
		p.InitList,
		p.BeginListItem,
	)
	if got := p.Path(); got != "partialRecord.Tags[0]" {
		t.Errorf("Path() = %q, want partialRecord.Tags[0]", got)
	}
}

func TestPartial_Errors(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	if err := p.End(); !errors.Is(err, ErrBuilder) {
		t.Errorf("End() on root = %v, want ErrBuilder", err)
	}
	if err := p.BeginField(99); !errors.Is(err, ErrBuilder) {
		t.Errorf("BeginField(99) = %v, want ErrBuilder", err)
	}
	if err := p.InitList(); !errors.Is(err, ErrBuilder) {
		t.Errorf("InitList() on struct = %v, want ErrBuilder", err)
	}

	mustStep(t, func() error { return p.BeginField(2) }, p.InitMap)
	if err := p.BeginValue(); !errors.Is(err, ErrBuilder) {
		t.Errorf("BeginValue() without key = %v, want ErrBuilder", err)
	}

	mustStep(t, p.End, func() error { return p.BeginField(0) })
	var be *BuilderError
	if err := p.SetText("seven"); !errors.As(err, &be) || be.Op != "set_text" {
		t.Errorf("SetText(seven) = %v, want set_text BuilderError", err)
	}

	if _, err := NewPartial(r); !errors.Is(err, ErrBuilder) {
		t.Errorf("NewPartial(non-pointer) = %v, want ErrBuilder", err)
	}
}

func TestPartial_EnumText(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t,
		func() error { return p.BeginField(4) },
		func() error { return p.SetText("point") },
	)
	if _, ok := r.Fig.(testDot); !ok {
		t.Errorf("Fig = %#v, want testDot", r.Fig)
	}

	mustStep(t, func() error { return p.SetText("hello") })
	if got, ok := r.Fig.(testLabel); !ok || got != "hello" {
		t.Errorf("Fig = %#v, want testLabel(hello)", r.Fig)
	}
}

func TestPartial_PointerVariant(t *testing.T) {
	var f testFigure
	p, _ := NewPartial(&f)

	mustStep(t,
		func() error { return p.SelectVariant(2) },
		func() error { return p.BeginField(0) },
		func() error { return p.SetText("4") },
		p.End,
		p.End,
	)
	box, ok := f.(*testBox)
	if !ok || box.Width != 4 {
		t.Errorf("f = %#v, want *testBox{Width: 4}", f)
	}
}

func TestPartial_Deferred(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t,
		p.BeginDeferred,
		func() error { return p.BeginField(3) },
		p.BeginSome,
		func() error { return p.SetText("first") },
		p.End,
		p.End,
	)
	first := r.Note

	mustStep(t,
		func() error { return p.BeginField(3) },
		p.BeginSome,
		p.End,
		p.End,
		p.FinishDeferred,
	)
	if r.Note != first || *r.Note != "first" {
		t.Error("deferred BeginSome should re-enter the existing target")
	}

	mustStep(t, func() error { return p.BeginField(3) }, p.BeginSome, p.End, p.End)
	if r.Note == first {
		t.Error("BeginSome outside a deferred session should allocate")
	}
}

func TestPartial_DeferredOwner(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t, func() error { return p.BeginField(0) }, p.BeginDeferred)
	if err := p.End(); !errors.Is(err, ErrBuilder) {
		t.Errorf("End() on deferred owner = %v, want ErrBuilder", err)
	}
	mustStep(t, p.FinishDeferred, p.End)

	if err := p.FinishDeferred(); !errors.Is(err, ErrBuilder) {
		t.Errorf("FinishDeferred() without session = %v, want ErrBuilder", err)
	}
}

func TestPartial_Discard(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t,
		func() error { return p.BeginField(1) },
		p.InitList,
		p.BeginListItem,
		func() error { return p.SetText("dropped") },
		p.Discard,
		p.End,
	)
	if r.Tags == nil || len(r.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil", r.Tags)
	}
}

func TestPartial_SetConverts(t *testing.T) {
	var r partialRecord
	p, _ := NewPartial(&r)

	mustStep(t,
		func() error { return p.BeginField(0) },
		func() error { return p.Set(reflect.ValueOf(int32(5))) },
		p.End,
	)
	if r.ID != 5 {
		t.Errorf("ID = %d, want 5", r.ID)
	}

	mustStep(t, func() error { return p.BeginField(0) })
	if err := p.Set(reflect.ValueOf("five")); !errors.Is(err, ErrBuilder) {
		t.Errorf("Set(string) on int = %v, want ErrBuilder", err)
	}
}

func TestPartial_Transparent(t *testing.T) {
	var w shapeWrapper
	p, _ := NewPartial(&w)

	if err := p.SetText("4"); err != nil {
		t.Fatalf("SetText() error: %v", err)
	}
	if w.Value != 4 {
		t.Errorf("Value = %d, want 4", w.Value)
	}
}
