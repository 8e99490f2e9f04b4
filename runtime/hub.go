package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"
)

type HubConfig struct {
	QueueCapacity  int
	OverflowPolicy OverflowPolicy
	// MaxTextLength bounds chat text in runes, 0 disables the check.
	MaxTextLength int
}

type HubStats struct {
	LiveConnections    int    `json:"live_connections"`
	JoinedConnections  int    `json:"joined_connections"`
	DistinctIdentities int    `json:"distinct_identities"`
	NextSequence       uint64 `json:"next_sequence"`
	RetainedEvents     int    `json:"retained_events"`
	// DroppedEvents counts the events discarded by drop-oldest across every connection.
	DroppedEvents uint64 `json:"dropped_events"`
}

// closedMemory is how many detached connection ids the hub remembers, so
// late commands on them are rejected by state rather than as unknown.
const closedMemory = 4096

// Hub serializes every state change (bind, unbind, append, fan-out) behind a
// single mutex, so the order of the event log is the order every connection observes.
// Fan-out never blocks: each connection has its own bounded queue.
type Hub struct {
	mu          sync.RWMutex
	log         *slog.Logger
	registry    contract.IRegistry
	eventLog    *EventLog
	connections map[domain.ConnectionID]*Connection
	closedIDs   map[domain.ConnectionID]struct{}
	closedRing  []domain.ConnectionID
	closedNext  int
	dropped     uint64
	sinkEvents  chan<- event.Event
	filter      contract.TextFilter
	config      HubConfig
	closed      bool
	now         func() time.Time
}

// NewHub wires the hub. sinkEvents and filter are optional.
func NewHub(log *slog.Logger, registry contract.IRegistry, eventLog *EventLog,
	sinkEvents chan<- event.Event, filter contract.TextFilter, config HubConfig) *Hub {
	if config.OverflowPolicy == "" {
		config.OverflowPolicy = DropOldest
	}
	return &Hub{
		log:         log,
		registry:    registry,
		eventLog:    eventLog,
		connections: make(map[domain.ConnectionID]*Connection),
		closedIDs:   make(map[domain.ConnectionID]struct{}),
		closedRing:  make([]domain.ConnectionID, closedMemory),
		sinkEvents:  sinkEvents,
		filter:      filter,
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Attach opens a new connection in the Connecting state. No event is emitted:
// the connection starts receiving every event appended from now on.
func (h *Hub) Attach() (*Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.ErrHubClosed
	}
	conn := newConnection(domain.NewConnectionID(), h.config.QueueCapacity, h.now())
	h.connections[conn.ID()] = conn
	h.log.Debug("Connection attached", "connection_id", conn.ID())
	return conn, nil
}

// Join binds a display name to a connection and announces it to everyone, the joiner included.
func (h *Hub) Join(connectionID domain.ConnectionID, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.connections[connectionID]
	if !ok {
		return h.missing(connectionID, errors.ErrNotConnecting)
	}
	if conn.State() != domain.Connecting {
		return errors.ErrNotConnecting
	}
	identity, err := domain.NewIdentity(name)
	if err != nil {
		return err
	}
	if err := h.registry.Bind(connectionID, identity); err != nil {
		return err
	}
	conn.markJoined(identity)
	h.log.Info("Participant joined", "connection_id", connectionID, "identity", identity)

	h.publish(event.Joined{Participant: identity})
	return nil
}

// Send broadcasts a chat message to everyone, the sender included.
// The sender renders its own message when it comes back through its queue.
func (h *Hub) Send(connectionID domain.ConnectionID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.connections[connectionID]
	if !ok {
		return h.missing(connectionID, errors.ErrNotJoined)
	}
	identity, joined := conn.Identity()
	if !joined || conn.State() != domain.Joined {
		return errors.ErrNotJoined
	}
	if text == "" {
		return errors.ErrEmptyText
	}
	if h.config.MaxTextLength > 0 && utf8.RuneCountInString(text) > h.config.MaxTextLength {
		return errors.ErrTextTooLong
	}
	if h.filter != nil {
		censored, words := h.filter.Censor(text)
		if len(words) > 0 {
			h.log.Debug("Chat message censored", "connection_id", connectionID, "words", len(words))
		}
		text = censored
	}

	h.publish(event.ChatMessage{Participant: identity, Text: text})
	return nil
}

// Detach closes a connection. If it had joined, its identity is released and
// a Left event reaches the remaining connections. Detaching twice is a no-op.
func (h *Hub) Detach(connectionID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(connectionID, "detach")
}

// Subscribe returns the connection whose queue the caller will drain.
func (h *Hub) Subscribe(connectionID domain.ConnectionID) (*Connection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.connections[connectionID]
	if !ok {
		return nil, errors.ErrUnknownConnection
	}
	return conn, nil
}

// CurrentParticipants is a snapshot of the distinct identities currently bound.
func (h *Hub) CurrentParticipants() []domain.Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry.DistinctIdentities()
}

// Replay returns retained events with sequence >= from.
func (h *Hub) Replay(from uint64, limit int) []event.Event {
	return h.eventLog.Replay(from, limit)
}

// Touch records client activity, used by the idle reaper.
func (h *Hub) Touch(connectionID domain.ConnectionID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if conn, ok := h.connections[connectionID]; ok {
		conn.touch(h.now())
	}
}

// IdleSince lists the live connections without activity since cutoff.
func (h *Hub) IdleSince(cutoff time.Time) []domain.ConnectionID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var idle []domain.ConnectionID
	for id, conn := range h.connections {
		if conn.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		LiveConnections:    len(h.connections),
		JoinedConnections:  h.registry.Len(),
		DistinctIdentities: len(h.registry.DistinctIdentities()),
		NextSequence:       h.eventLog.Next(),
		RetainedEvents:     h.eventLog.Len(),
		DroppedEvents:      h.dropped,
	}
}

// Close detaches every connection and refuses further attaches.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id := range h.connections {
		h.detachLocked(id, "shutdown")
	}
	h.log.Info("Hub closed")
}

// publish appends e and fans it out. Must be called with mu held.
func (h *Hub) publish(e event.Event) {
	stamped := h.eventLog.Append(e)

	var slow []domain.ConnectionID
	for id, conn := range h.connections {
		accepted, dropped := conn.enqueue(stamped, h.config.OverflowPolicy)
		if !accepted {
			slow = append(slow, id)
		}
		if dropped {
			h.dropped++
		}
	}
	h.handOff(stamped)

	for _, id := range slow {
		h.detachLocked(id, "slow consumer")
	}
}

// handOff offers the event to the sink fan-out without blocking the hub.
func (h *Hub) handOff(e event.Event) {
	if h.sinkEvents == nil {
		return
	}
	select {
	case h.sinkEvents <- e:
	default:
		h.log.Warn("Sink channel full, dropping event", "sequence", e.Sequence())
	}
}

func (h *Hub) detachLocked(connectionID domain.ConnectionID, reason string) {
	conn, ok := h.connections[connectionID]
	if !ok {
		return
	}
	delete(h.connections, connectionID)
	h.remember(connectionID)
	conn.close()
	h.log.Debug("Connection detached", "connection_id", connectionID, "reason", reason)

	if identity, ok := h.registry.Unbind(connectionID); ok {
		h.log.Info("Participant left", "connection_id", connectionID, "identity", identity, "reason", reason)
		h.publish(event.Left{Participant: identity})
	}
}

// missing picks the error for an id that is not live: a recently detached
// connection is Closed and fails by state, anything else is unknown.
func (h *Hub) missing(connectionID domain.ConnectionID, closedErr error) error {
	if _, ok := h.closedIDs[connectionID]; ok {
		return closedErr
	}
	return errors.ErrUnknownConnection
}

// remember records a detached id, evicting the oldest once the ring is full.
func (h *Hub) remember(connectionID domain.ConnectionID) {
	if evicted := h.closedRing[h.closedNext]; evicted != "" {
		delete(h.closedIDs, evicted)
	}
	h.closedRing[h.closedNext] = connectionID
	h.closedIDs[connectionID] = struct{}{}
	h.closedNext = (h.closedNext + 1) % len(h.closedRing)
}
