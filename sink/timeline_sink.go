package sink

import (
	"context"
	"sync"

	"huddle/domain"
	"huddle/domain/event"
)

// Timeline holds a simple in-memory timeline of posted messages. Used by
// tests and local tooling to observe the event stream.
type Timeline struct {
	mu       sync.Mutex
	Messages []domain.Message
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		t.mu.Lock()
		t.Messages = append(t.Messages, fromEvent(evt))
		t.mu.Unlock()
	}
	return nil
}

// Snapshot returns a copy of the consumed timeline.
func (t *Timeline) Snapshot() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.Messages))
	copy(out, t.Messages)
	return out
}

func fromEvent(evt event.MessagePosted) domain.Message {
	return domain.Message{
		ID:        evt.ID,
		Sender:    evt.Sender,
		Body:      evt.Body,
		CreatedAt: evt.At,
	}
}
