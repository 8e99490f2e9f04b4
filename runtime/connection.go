package runtime

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
	"sync"
	"time"
)

// OverflowPolicy decides what happens when a connection's queue is full.
type OverflowPolicy string

const (
	// DropOldest discards the oldest queued event to make room.
	DropOldest OverflowPolicy = "drop-oldest"
	// Disconnect detaches the slow consumer.
	Disconnect OverflowPolicy = "disconnect"
)

// Connection is one client session owned by the hub.
// The hub is the only producer of its queue; the transport writer is the only consumer.
type Connection struct {
	id domain.ConnectionID

	mu       sync.Mutex
	state    domain.ConnectionState
	identity domain.Identity
	lastSeen time.Time

	// ring buffer of pending events
	buf  []event.Event
	head int
	size int

	notify chan struct{}
	done   chan struct{}
}

func newConnection(id domain.ConnectionID, capacity int, now time.Time) *Connection {
	if capacity < 1 {
		capacity = 1
	}
	return &Connection{
		id:       id,
		state:    domain.Connecting,
		lastSeen: now,
		buf:      make([]event.Event, capacity),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (c *Connection) ID() domain.ConnectionID {
	return c.id
}

func (c *Connection) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the bound identity, if the connection has joined.
func (c *Connection) Identity() (domain.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity, c.identity != ""
}

// Pending returns the number of queued, undelivered events.
func (c *Connection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Done is closed when the connection enters the Closed state.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Next blocks until an event is available, the connection is closed or ctx is done.
// Events still queued when the connection closes are never returned.
func (c *Connection) Next(ctx context.Context) (event.Event, error) {
	for {
		c.mu.Lock()
		if c.state == domain.Closed {
			c.mu.Unlock()
			return nil, errors.ErrConnectionClosed
		}
		if c.size > 0 {
			e := c.pop()
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-c.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Events exposes the queue as a channel, closed when the connection closes or ctx is done.
func (c *Connection) Events(ctx context.Context) <-chan event.Event {
	out := make(chan event.Event)
	go func() {
		defer close(out)
		for {
			e, err := c.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- e:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// enqueue never blocks. accepted is false when the queue is full and the
// policy asks for the consumer to be disconnected; dropped reports that the
// oldest queued event was discarded to make room.
func (c *Connection) enqueue(e event.Event, policy OverflowPolicy) (accepted, dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.Closed {
		return true, false
	}
	if c.size == len(c.buf) {
		if policy == Disconnect {
			return false, false
		}
		c.pop()
		dropped = true
	}
	c.buf[(c.head+c.size)%len(c.buf)] = e
	c.size++

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true, dropped
}

// pop must be called with mu held and size > 0.
func (c *Connection) pop() event.Event {
	e := c.buf[c.head]
	c.buf[c.head] = nil
	c.head = (c.head + 1) % len(c.buf)
	c.size--
	return e
}

func (c *Connection) markJoined(identity domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.Joined
	c.identity = identity
}

func (c *Connection) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = now
}

// close discards pending events. It returns false if the connection was already closed.
func (c *Connection) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.Closed {
		return false
	}
	c.state = domain.Closed
	for i := range c.buf {
		c.buf[i] = nil
	}
	c.head, c.size = 0, 0
	close(c.done)
	return true
}
