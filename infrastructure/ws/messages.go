package ws

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Inbound message types.
const (
	TypeJoin         = "join"
	TypeSend         = "send"
	TypePing         = "ping"
	TypeParticipants = "participants"
)

// Outbound message types. Events use their event.Kind as type.
const (
	TypePong  = "pong"
	TypeError = "error"
)

// Inbound is every client -> server envelope, tagged by Type.
type Inbound struct {
	Type string `json:"type" validate:"required,oneof=join send ping participants"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

type EventMessage struct {
	Type     string    `json:"type"`
	Sequence uint64    `json:"sequence"`
	Identity string    `json:"identity"`
	Text     string    `json:"text,omitempty"`
	At       time.Time `json:"at"`
}

type ParticipantsMessage struct {
	Type       string   `json:"type"`
	Identities []string `json:"identities"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongMessage struct {
	Type string `json:"type"`
}

// Outbound is the union of server -> client envelopes, used by readers that
// only know the type once decoded.
type Outbound struct {
	Type       string    `json:"type"`
	Sequence   uint64    `json:"sequence"`
	Identity   string    `json:"identity"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
	Identities []string  `json:"identities"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

func NewEventMessage(e event.Event) EventMessage {
	msg := EventMessage{
		Type:     string(e.Kind()),
		Sequence: e.Sequence(),
		Identity: e.Identity().String(),
		At:       e.OccurredAt(),
	}
	if chat, ok := e.(event.ChatMessage); ok {
		msg.Text = chat.Text
	}
	return msg
}

func NewParticipantsMessage(identities []domain.Identity) ParticipantsMessage {
	return ParticipantsMessage{
		Type:       TypeParticipants,
		Identities: lo.Map(identities, func(id domain.Identity, _ int) string { return id.String() }),
	}
}

func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

// NewCommandError maps a rejected command to its wire code.
func NewCommandError(err error) ErrorMessage {
	return NewErrorMessage(errors.Code(err), err.Error())
}

// IsEvent reports whether the envelope carries a hub event.
func (o Outbound) IsEvent() bool {
	switch event.Kind(o.Type) {
	case event.KindJoined, event.KindLeft, event.KindChatMessage:
		return true
	}
	return false
}

// Event rebuilds the hub event carried by an outbound envelope.
func (o Outbound) Event() (event.Event, error) {
	header := event.Header{Seq: o.Sequence, At: o.At}
	identity := domain.Identity(o.Identity)
	switch event.Kind(o.Type) {
	case event.KindJoined:
		return event.Joined{Header: header, Participant: identity}, nil
	case event.KindLeft:
		return event.Left{Header: header, Participant: identity}, nil
	case event.KindChatMessage:
		return event.ChatMessage{Header: header, Participant: identity, Text: o.Text}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownKind, o.Type)
	}
}
