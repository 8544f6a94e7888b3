package goPerm

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// InvalidationScope names the cache namespace an event clears.
type InvalidationScope string

const (
	// ScopeChannel clears every (user, channel) entry for one channel.
	// Emitted on overwrite mutations.
	ScopeChannel InvalidationScope = "channel"
	// ScopeServer clears every entry under one server. Emitted on role
	// permission and position mutations.
	ScopeServer InvalidationScope = "server"
	// ScopeMember clears one user's entries under one server. Emitted on
	// member role assignment and removal.
	ScopeMember InvalidationScope = "member"
)

// InvalidationEvent describes one cache invalidation caused by a guarded
// mutation. The local cache is always invalidated synchronously before the
// event is published; the event exists so other instances can do the same.
// Delivery is at-least-once and duplicate invalidations are harmless no-ops.
type InvalidationEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Scope     InvalidationScope `json:"scope"`
	ServerID  string            `json:"server_id,omitempty"`
	ChannelID string            `json:"channel_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Mutation  string            `json:"mutation"`
}

// InvalidationSink receives invalidation events from the dispatcher. The
// fan-out transport behind it (pub/sub broadcast, message bus) is the
// caller's collaborator; goPerm only publishes into it.
type InvalidationSink interface {
	Emit(ctx context.Context, event InvalidationEvent)
}

// NoOpSink discards all events. The default for single-instance deployments.
type NoOpSink struct{}

// Emit implements [InvalidationSink].
func (NoOpSink) Emit(context.Context, InvalidationEvent) {}

// ChannelSink forwards events to a Go channel for in-process consumers.
type ChannelSink struct {
	events chan InvalidationEvent
}

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan InvalidationEvent, buffer),
	}
}

// Emit implements [InvalidationSink].
func (s *ChannelSink) Emit(ctx context.Context, event InvalidationEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan InvalidationEvent {
	return s.events
}

// JSONWriterSink writes one JSON event per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [InvalidationSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event InvalidationEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
