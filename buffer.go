package arbor

import "io"

// eventTokenizer replays a fixed event slice.
type eventTokenizer struct {
	events []Event
	pos    int
}

func (t *eventTokenizer) Next() (Event, error) {
	if t.pos >= len(t.events) {
		return Event{}, io.EOF
	}
	ev := t.events[t.pos]
	t.pos++
	return ev, nil
}

func (t *eventTokenizer) Span() Span {
	return Span{Offset: int64(t.pos)}
}

// NewEventSource returns a Source that replays events. Spans report the
// event index as the offset.
func NewEventSource(events []Event, format string, opts ...Option) *Cursor {
	cfg := NewConfig(opts...)
	lenient := cfg.Lenient != nil && *cfg.Lenient
	return NewCursor(&eventTokenizer{events: events}, format, lenient, cfg)
}

// Recorder is a Sink that records every event it receives.
type Recorder struct {
	Events []Event
	format string
}

// NewRecorder returns an empty recorder writing for the given format namespace.
func NewRecorder(format string) *Recorder {
	return &Recorder{format: format}
}

func (r *Recorder) push(ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) ElementStart(tag, namespace string) error {
	return r.push(Event{Kind: EventElementStart, Name: tag, Namespace: namespace})
}

func (r *Recorder) Attribute(name, value, namespace string) error {
	return r.push(Event{Kind: EventAttribute, Name: name, Value: value, Namespace: namespace})
}

func (r *Recorder) ChildrenStart() error {
	return r.push(Event{Kind: EventChildrenStart})
}

func (r *Recorder) ChildrenEnd() error {
	return r.push(Event{Kind: EventChildrenEnd})
}

func (r *Recorder) ElementEnd(tag string) error {
	return r.push(Event{Kind: EventElementEnd, Name: tag})
}

func (r *Recorder) Text(content string) error {
	return r.push(Event{Kind: EventText, Value: content})
}

func (r *Recorder) Comment(content string) error {
	return r.push(Event{Kind: EventComment, Value: content})
}

func (r *Recorder) Doctype(content string) error {
	return r.push(Event{Kind: EventDoctype, Value: content})
}

// FormatNamespace implements FormatNamespacer.
func (r *Recorder) FormatNamespace() string {
	return r.format
}

// Source replays the recorded events.
func (r *Recorder) Source(opts ...Option) *Cursor {
	return NewEventSource(r.Events, r.format, opts...)
}
