package runtime

import (
	"chat-hub/domain/event"
	"sort"
	"sync"
	"time"
)

// EventLog is the append-only, totally ordered record of everything the hub broadcast.
// Sequence numbers start at 0 and never have gaps. Only the most recent
// events are kept in memory for replay when retention is positive; the
// sequence counter is never affected by retention.
type EventLog struct {
	mu        sync.RWMutex
	next      uint64
	retention int
	events    []event.Event
	now       func() time.Time
}

// NewEventLog builds a log keeping the last retention events, or all of them when retention <= 0.
func NewEventLog(retention int) *EventLog {
	return &EventLog{
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Append stamps e with the next sequence number and records it. It always succeeds.
func (l *EventLog) Append(e event.Event) event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamped := event.Stamp(e, l.next, l.now())
	l.next++
	l.events = append(l.events, stamped)

	// Trim lazily so the backing array is only copied once per retention window.
	if l.retention > 0 && len(l.events) >= 2*l.retention {
		l.events = append([]event.Event(nil), l.events[len(l.events)-l.retention:]...)
	}
	return stamped
}

// Replay returns the retained events whose sequence is >= from, oldest first.
// A non-positive limit returns everything available.
func (l *EventLog) Replay(from uint64, limit int) []event.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	retained := l.retained()
	start := sort.Search(len(retained), func(i int) bool {
		return retained[i].Sequence() >= from
	})
	end := len(retained)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return append([]event.Event(nil), retained[start:end]...)
}

// Next returns the sequence number the next appended event will receive.
func (l *EventLog) Next() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next
}

// Len returns the number of events available for replay.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.retained())
}

func (l *EventLog) retained() []event.Event {
	if l.retention > 0 && len(l.events) > l.retention {
		return l.events[len(l.events)-l.retention:]
	}
	return l.events
}
