package projection

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func chat(seq uint64, who, text string) event.ChatMessage {
	return event.ChatMessage{
		Header:      event.Header{Seq: seq, At: time.Now().Add(time.Duration(seq) * time.Second)},
		Participant: domain.Identity(who),
		Text:        text,
	}
}

func TestTimeline_Consume_ChatMessage(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(0)
	ctx := context.Background()

	req.NoError(timeline.Consume(ctx, event.Joined{Header: event.Header{Seq: 0}, Participant: "Alice"}))
	req.NoError(timeline.Consume(ctx, chat(1, "Alice", "Hello Bob")))
	req.NoError(timeline.Consume(ctx, chat(2, "Clara", "Hi Bob")))

	entries := timeline.Entries()
	req.Len(entries, 3)
	req.Equal(event.KindJoined, entries[0].Kind)
	req.Equal("Hello Bob", entries[1].Text)
	req.Equal("Clara", entries[2].Identity.String())
}

func TestTimeline_Ignores_Duplicates(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(0)
	ctx := context.Background()

	// Given an event replayed twice
	req.NoError(timeline.Consume(ctx, chat(4, "Alice", "first")))
	req.NoError(timeline.Consume(ctx, chat(4, "Alice", "first")))
	req.NoError(timeline.Consume(ctx, chat(3, "Alice", "older")))

	// Then only one entry is kept
	req.Len(timeline.Entries(), 1)
	req.Zero(timeline.Missed())
}

func TestTimeline_Counts_Missed_Sequences(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(0)
	ctx := context.Background()

	req.NoError(timeline.Consume(ctx, chat(10, "Alice", "a")))
	req.NoError(timeline.Consume(ctx, chat(13, "Alice", "b")))
	req.NoError(timeline.Consume(ctx, chat(14, "Alice", "c")))

	req.Equal(uint64(2), timeline.Missed())
}

func TestTimeline_Capacity(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	ctx := context.Background()

	for seq := uint64(0); seq < 5; seq++ {
		req.NoError(timeline.Consume(ctx, chat(seq, "Alice", "msg")))
	}

	req.Equal([]uint64{3, 4}, lo.Map(timeline.Entries(), func(e Entry, _ int) uint64 { return e.Sequence }))
}
