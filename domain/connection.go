package domain

import "github.com/google/uuid"

// ConnectionID identifies one client session. A client reconnecting under
// the same identity gets a new ConnectionID.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (c ConnectionID) String() string {
	return string(c)
}

// ConnectionState follows Connecting -> Joined -> Closed.
// Closed is terminal.
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Joined
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
