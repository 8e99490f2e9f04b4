// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"sync"
	"time"
)

type Entry struct {
	Sequence uint64
	Kind     event.Kind
	Identity domain.Identity
	Text     string
	At       time.Time
}

// Timeline holds the last events observed by one connection.
// Replayed or duplicated sequences are ignored and skipped sequences are counted,
// which happens when the hub drops events for a slow reader.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	started  bool
	last     uint64
	missed   uint64
}

// NewTimeline keeps at most capacity entries, 0 keeps everything.
func NewTimeline(capacity int) *Timeline {
	return &Timeline{capacity: capacity}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := e.Sequence()
	if t.started && seq <= t.last {
		return nil
	}
	if t.started && seq > t.last+1 {
		t.missed += seq - t.last - 1
	}
	t.started, t.last = true, seq

	t.entries = append(t.entries, fromEvent(e))
	if t.capacity > 0 && len(t.entries) > t.capacity {
		t.entries = append(t.entries[:0:0], t.entries[len(t.entries)-t.capacity:]...)
	}
	return nil
}

func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Missed counts the sequences never observed between the first and the last one.
func (t *Timeline) Missed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.missed
}

func fromEvent(e event.Event) Entry {
	entry := Entry{
		Sequence: e.Sequence(),
		Kind:     e.Kind(),
		Identity: e.Identity(),
		At:       e.OccurredAt(),
	}
	if msg, ok := e.(event.ChatMessage); ok {
		entry.Text = msg.Text
	}
	return entry
}
