package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

// TypeItemProcessed is the event type for finished queue items.
// Execution events keep their pattern.EventType names.
const TypeItemProcessed = "item-processed"

// Event is the envelope written to every sink.
type Event struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Sink receives feed events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// NewEvent builds an envelope around data.
func NewEvent(typ string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:   uuid.New().String(),
		Type: typ,
		Time: time.Now().UTC(),
		Data: raw,
	}, nil
}

// FromCompletion wraps a queue completion.
func FromCompletion(c queue.Completion) (Event, error) {
	return NewEvent(TypeItemProcessed, c)
}

// FromExecution wraps an execution lifecycle event.
func FromExecution(ev pattern.Event) (Event, error) {
	return NewEvent(string(ev.Type), ev.Execution)
}
