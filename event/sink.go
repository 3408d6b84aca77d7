package event

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink receives events. Implementations must be safe for concurrent use and
// should not block for long: producers call Emit from their hot loops.
type Sink interface {
	Emit(Event)
}

// Func adapts a function to a Sink.
type Func func(Event)

func (f Func) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = Func(func(Event) {})

// Multi fans an event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return Func(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// Chan is a Sink backed by a channel. Emit blocks while the buffer is full,
// so a reader must drain C until Close.
type Chan struct {
	C chan Event

	ctx    context.Context
	mu     sync.RWMutex
	closed bool
}

// NewChan returns a channel sink with the given buffer. Emit gives up once ctx is done.
func NewChan(ctx context.Context, buffer int) *Chan {
	return &Chan{C: make(chan Event, buffer), ctx: ctx}
}

func (c *Chan) Emit(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	select {
	case c.C <- e:
	case <-c.ctx.Done():
	}
}

// Close closes C. Later Emit calls are dropped.
func (c *Chan) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.C)
	}
}

// JSONLines writes each event as one envelope per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines returns a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(Wrap(e))
}

// Recorder keeps every event in memory. It is used by tests and by callers that
// want to inspect a finished run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Of returns the recorded events of a single kind.
func (r *Recorder) Of(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}
