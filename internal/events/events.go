// Package events implements the bounded-channel execution event stream,
// generalized from the teacher's Redis pub/sub fanout
// (workflow_lifecycle.EventPublisher) down to a single in-process channel
// per execution with an SSE adapter at the HTTP boundary.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Type is one of the six event kinds an execution can emit.
type Type string

const (
	TypeNodeStart        Type = "node-start"
	TypeNodeComplete     Type = "node-complete"
	TypeNodeError        Type = "node-error"
	TypeNodeSkip         Type = "node-skip"
	TypeExecutionComplete Type = "execution-complete"
	TypeExecutionError   Type = "execution-error"
)

// Event is one emitted occurrence. Seq is monotonically increasing within
// an execution's stream and is never reused, so a consumer can detect gaps.
type Event struct {
	Seq         uint64          `json:"seq"`
	Type        Type            `json:"type"`
	ExecutionID string          `json:"executionId"`
	NodeID      string          `json:"nodeId,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	EmittedAt   time.Time       `json:"emittedAt"`
}

// Emitter is a bounded event stream for one execution, drained by a single
// consumer. Emit may be called from several goroutines: the sequence number
// is assigned and the event queued under one lock, so the channel delivers
// events in sequence order. Nothing admitted is dropped; once the buffer is
// full, Emit blocks until the consumer drains it, same as the teacher's
// bounded Redis pub/sub channel backpressure.
type Emitter struct {
	executionID string
	mu          sync.Mutex
	seq         uint64
	ch          chan Event
}

// NewEmitter creates an emitter with the given channel buffer size.
func NewEmitter(executionID string, buffer int) *Emitter {
	return &Emitter{
		executionID: executionID,
		ch:          make(chan Event, buffer),
	}
}

// Events returns the channel consumers read from. Closed by Close.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit publishes an event, stamping it with the next sequence number.
func (e *Emitter) Emit(typ Type, nodeID string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.ch <- Event{
		Seq:         e.seq,
		Type:        typ,
		ExecutionID: e.executionID,
		NodeID:      nodeID,
		Payload:     raw,
		EmittedAt:   time.Now(),
	}
	return nil
}

// Close signals that no more events will be emitted.
func (e *Emitter) Close() {
	close(e.ch)
}
