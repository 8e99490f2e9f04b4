package repositories

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Archived events are encoded in the protobuf wire format without generated code:
//
//	1: kind (varint)  2: sequence (varint)  3: at, unix nanos (varint)
//	4: identity (bytes)  5: text (bytes, chat messages only)
const (
	fieldKind     protowire.Number = 1
	fieldSequence protowire.Number = 2
	fieldAt       protowire.Number = 3
	fieldIdentity protowire.Number = 4
	fieldText     protowire.Number = 5
)

const (
	kindJoined uint64 = iota + 1
	kindLeft
	kindChatMessage
)

func EncodeEvent(e event.Event) ([]byte, error) {
	var kind uint64
	var text string
	switch evt := e.(type) {
	case event.Joined:
		kind = kindJoined
	case event.Left:
		kind = kindLeft
	case event.ChatMessage:
		kind = kindChatMessage
		text = evt.Text
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownKind, e)
	}

	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, kind)
	b = protowire.AppendTag(b, fieldSequence, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Sequence())
	b = protowire.AppendTag(b, fieldAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.OccurredAt().UnixNano()))
	b = protowire.AppendTag(b, fieldIdentity, protowire.BytesType)
	b = protowire.AppendString(b, e.Identity().String())
	if kind == kindChatMessage {
		b = protowire.AppendTag(b, fieldText, protowire.BytesType)
		b = protowire.AppendString(b, text)
	}
	return b, nil
}

func DecodeEvent(b []byte) (event.Event, error) {
	var kind, seq, at uint64
	var identity, text string

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			kind, n = protowire.ConsumeVarint(b)
		case num == fieldSequence && typ == protowire.VarintType:
			seq, n = protowire.ConsumeVarint(b)
		case num == fieldAt && typ == protowire.VarintType:
			at, n = protowire.ConsumeVarint(b)
		case num == fieldIdentity && typ == protowire.BytesType:
			identity, n = protowire.ConsumeString(b)
		case num == fieldText && typ == protowire.BytesType:
			text, n = protowire.ConsumeString(b)
		default:
			// unknown fields are skipped
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
	}

	header := event.Header{Seq: seq, At: time.Unix(0, int64(at)).UTC()}
	participant := domain.Identity(identity)
	switch kind {
	case kindJoined:
		return event.Joined{Header: header, Participant: participant}, nil
	case kindLeft:
		return event.Left{Header: header, Participant: participant}, nil
	case kindChatMessage:
		return event.ChatMessage{Header: header, Participant: participant, Text: text}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownKind, kind)
	}
}
