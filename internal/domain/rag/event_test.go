package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterNilSinkIsSafe(t *testing.T) {
	e := NewEmitter(nil)
	e.Status("working")
	e.Answer("done")
	e.Done()
	assert.False(t, e.Closed())
}

func TestEmitterDoneFiresOnce(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)
	e.Done()
	e.Done()
	e.Status("after done")

	require.Len(t, sink.events, 1)
	assert.Equal(t, EventDone, sink.events[0].Type)
}

func TestEmitterStopsAfterConsumerGone(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)
	e.Status("one")
	sink.closed = true
	e.Status("two")

	assert.True(t, e.Closed())
	e.Status("three")
	require.Len(t, sink.events, 1)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	assert.True(t, sink.Send(Event{Type: EventStatus, Message: "kept"}))
	assert.True(t, sink.Send(Event{Type: EventStatus, Message: "dropped"}))

	ev := <-sink.Events()
	assert.Equal(t, "kept", ev.Message)
	select {
	case <-sink.Events():
		t.Fatal("expected second event to be dropped")
	default:
	}
}

func TestChannelSinkSendAfterCloseReportsFalse(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Close()
	assert.False(t, sink.Send(Event{Type: EventStatus}))
}
