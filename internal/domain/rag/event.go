package rag

import "sync"

// EventType tags a streaming event.
type EventType string

const (
	EventStatus EventType = "status"
	EventSource EventType = "source"
	EventAnswer EventType = "answer"
	EventError  EventType = "error"
	EventDone   EventType = "done"
)

// Event is one progress notification emitted while a query runs.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Title   string    `json:"title,omitempty"`
	URL     string    `json:"url,omitempty"`
	Answer  string    `json:"answer,omitempty"`
}

// Sink receives events. Send reports false once the consumer is gone;
// the emitter stops delivering after the first false.
type Sink interface {
	Send(Event) bool
}

// Emitter wraps an optional sink with best-effort delivery. All methods are
// safe on a nil sink. Done fires at most once no matter how often it is
// called, so terminal paths can defer it unconditionally.
type Emitter struct {
	sink   Sink
	mu     sync.Mutex
	closed bool
	done   bool
}

// NewEmitter builds an emitter for an optional sink.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

func (e *Emitter) send(ev Event) {
	if e == nil || e.sink == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.done {
		return
	}
	if !e.sink.Send(ev) {
		e.closed = true
	}
}

// Status emits a progress message.
func (e *Emitter) Status(message string) {
	e.send(Event{Type: EventStatus, Message: message})
}

// Source announces a citation source.
func (e *Emitter) Source(title, url string) {
	e.send(Event{Type: EventSource, Title: title, URL: url})
}

// Answer delivers the final answer text.
func (e *Emitter) Answer(answer string) {
	e.send(Event{Type: EventAnswer, Answer: answer})
}

// Error reports a terminal failure. Done must still follow.
func (e *Emitter) Error(message string) {
	e.send(Event{Type: EventError, Message: message})
}

// Done signals the end of the stream. Exactly one Done is delivered per
// emitter, and nothing is delivered after it.
func (e *Emitter) Done() {
	if e == nil || e.sink == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	if !e.closed {
		e.sink.Send(Event{Type: EventDone})
	}
}

// Closed reports whether the consumer went away. Callers use it to skip
// optional work; persistence still happens.
func (e *Emitter) Closed() bool {
	if e == nil || e.sink == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ChannelSink adapts a buffered channel into a Sink, dropping events when
// the buffer is full and reporting closure once Close is called.
type ChannelSink struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewChannelSink builds a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 100
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Send delivers an event without blocking. A full buffer drops the event but
// keeps the sink alive; only Close makes Send report false.
func (s *ChannelSink) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
	default:
	}
	return true
}

// Close marks the consumer gone and closes the event channel.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
