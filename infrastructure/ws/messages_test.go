package ws

import (
	"chat-hub/domain/event"
	"chat-hub/errors"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutbound_Event_From_Wire(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	original := event.ChatMessage{Header: event.Header{Seq: 12, At: at}, Participant: "Ana", Text: "hi"}

	// Given an event sent on the wire
	payload, err := json.Marshal(NewEventMessage(original))
	req.NoError(err)
	req.JSONEq(`{"type":"chat_message","sequence":12,"identity":"Ana","text":"hi","at":"2026-05-01T09:30:00Z"}`, string(payload))

	// When a client decodes it
	var out Outbound
	req.NoError(json.Unmarshal(payload, &out))
	decoded, err := out.Event()

	// Then the same event is rebuilt
	req.NoError(err)
	req.True(out.IsEvent())
	req.Equal(original, decoded)
}

func TestOutbound_Event_Unknown_Type(t *testing.T) {
	req := require.New(t)

	out := Outbound{Type: TypePong}
	_, err := out.Event()

	req.False(out.IsEvent())
	req.ErrorIs(err, errors.ErrUnknownKind)
}

func TestNewCommandError(t *testing.T) {
	req := require.New(t)

	msg := NewCommandError(errors.ErrNotJoined)

	req.Equal(ErrorMessage{Type: TypeError, Code: errors.CodeNotJoined, Message: errors.ErrNotJoined.Error()}, msg)
}
