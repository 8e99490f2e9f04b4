// Package event defines the immutable facts broadcast by the hub.
// Every event carries a global sequence number assigned when it is appended
// to the event log; consumers match on the concrete type.
package event

import (
	"chat-hub/domain"
	"time"
)

type Kind string

const (
	KindJoined      Kind = "joined"
	KindLeft        Kind = "left"
	KindChatMessage Kind = "chat_message"
)

// Event is one of Joined, Left or ChatMessage.
type Event interface {
	Kind() Kind
	Sequence() uint64
	OccurredAt() time.Time
	Identity() domain.Identity
	isEvent()
}

// Header is stamped by the event log at append time.
type Header struct {
	Seq uint64
	At  time.Time
}

func (h Header) Sequence() uint64      { return h.Seq }
func (h Header) OccurredAt() time.Time { return h.At }

type Joined struct {
	Header
	Participant domain.Identity
}

func (Joined) Kind() Kind                  { return KindJoined }
func (e Joined) Identity() domain.Identity { return e.Participant }
func (Joined) isEvent()                    {}

type Left struct {
	Header
	Participant domain.Identity
}

func (Left) Kind() Kind                  { return KindLeft }
func (e Left) Identity() domain.Identity { return e.Participant }
func (Left) isEvent()                    {}

type ChatMessage struct {
	Header
	Participant domain.Identity
	Text        string
}

func (ChatMessage) Kind() Kind                  { return KindChatMessage }
func (e ChatMessage) Identity() domain.Identity { return e.Participant }
func (ChatMessage) isEvent()                    {}

// Stamp returns a copy of e carrying the given sequence and time.
func Stamp(e Event, seq uint64, at time.Time) Event {
	h := Header{Seq: seq, At: at}
	switch evt := e.(type) {
	case Joined:
		evt.Header = h
		return evt
	case Left:
		evt.Header = h
		return evt
	case ChatMessage:
		evt.Header = h
		return evt
	default:
		panic("event: unknown event type")
	}
}
