package repositories

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T, limit int) *EventRepository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEventRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug), limit)
}

func header(seq uint64) event.Header {
	return event.Header{Seq: seq, At: at.Add(time.Duration(seq) * time.Second)}
}

func seed(t *testing.T, repo *EventRepository) []event.Event {
	t.Helper()
	events := []event.Event{
		event.Joined{Header: header(0), Participant: "Ana"},
		event.Joined{Header: header(1), Participant: "Bob"},
		event.ChatMessage{Header: header(2), Participant: "Ana", Text: "hi"},
		event.ChatMessage{Header: header(3), Participant: "Bob", Text: "hello Ana"},
		event.Left{Header: header(4), Participant: "Ana"},
	}
	for _, e := range events {
		require.NoError(t, repo.Store(e))
	}
	return events
}

func sequences(events []event.Event) []uint64 {
	return lo.Map(events, func(e event.Event, _ int) uint64 { return e.Sequence() })
}

func TestEventRepository_Range(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0)
	events := seed(t, repo)

	// When reading the whole archive
	all, err := repo.Range(0, 0)

	// Then events come back decoded, in sequence order
	req.NoError(err)
	req.Equal(events, all)

	// When reading from a sequence with a limit
	page, err := repo.Range(2, 2)
	req.NoError(err)
	req.Equal([]uint64{2, 3}, sequences(page))
}

func TestEventRepository_Events_Expire_After_TTL(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0).WithTTL(time.Second)
	seed(t, repo)

	// Given freshly archived events are readable
	all, err := repo.Range(0, 0)
	req.NoError(err)
	req.Len(all, 5)

	// Then both indexes forget them once the TTL elapses
	req.Eventually(func() bool {
		events, err := repo.Range(0, 0)
		history, historyErr := repo.History("Ana", 0)
		return err == nil && historyErr == nil && len(events) == 0 && len(history) == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestEventRepository_Range_Past_The_End(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0)
	seed(t, repo)

	events, err := repo.Range(42, 0)

	req.NoError(err)
	req.Empty(events)
}

func TestEventRepository_History(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0)
	seed(t, repo)

	// When reading Ana's history
	history, err := repo.History("Ana", 0)

	// Then only her events are returned, oldest first
	req.NoError(err)
	req.Equal([]uint64{0, 2, 4}, sequences(history))

	// When only the latest two are requested
	latest, err := repo.History("Ana", 2)
	req.NoError(err)
	req.Equal([]uint64{2, 4}, sequences(latest))
}

func TestEventRepository_History_Does_Not_Mix_Prefixes(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0)
	req.NoError(repo.Store(event.Joined{Header: header(0), Participant: "Ana"}))
	req.NoError(repo.Store(event.Joined{Header: header(1), Participant: "Anabel"}))

	history, err := repo.History("Ana", 0)

	req.NoError(err)
	req.Equal([]domain.Identity{"Ana"}, lo.Map(history, func(e event.Event, _ int) domain.Identity { return e.Identity() }))
}

func TestEventRepository_Limit_Caps_Reads(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 2)
	seed(t, repo)

	// Given a repository capped at 2 events
	all, err := repo.Range(0, 0)
	req.NoError(err)
	req.Len(all, 2)

	tooMany, err := repo.Range(0, 10)
	req.NoError(err)
	req.Len(tooMany, 2)
}

func TestEventRepository_Keys_Sort_By_Sequence(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 0)

	for _, seq := range []uint64{10, 9, 100, 2} {
		req.NoError(repo.Store(event.Joined{Header: header(seq), Participant: domain.Identity(fmt.Sprintf("user-%d", seq))}))
	}

	events, err := repo.Range(0, 0)
	req.NoError(err)
	req.Equal([]uint64{2, 9, 10, 100}, sequences(events))
}

func TestDecodeEvent_Rejects_Unknown_Kind(t *testing.T) {
	req := require.New(t)
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)

	_, err := DecodeEvent(b)

	req.ErrorIs(err, errors.ErrUnknownKind)
}

func TestDecodeEvent_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	b, err := EncodeEvent(event.ChatMessage{Header: header(7), Participant: "Ana", Text: "hi"})
	req.NoError(err)
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "from a newer writer")

	decoded, err := DecodeEvent(b)

	req.NoError(err)
	req.Equal(event.ChatMessage{Header: header(7), Participant: "Ana", Text: "hi"}, decoded)
}

func TestDecodeEvent_Truncated(t *testing.T) {
	req := require.New(t)
	b, err := EncodeEvent(event.Left{Header: header(1), Participant: "Ana"})
	req.NoError(err)

	_, err = DecodeEvent(b[:len(b)-2])

	req.Error(err)
}

func TestOpenInMemory(t *testing.T) {
	req := require.New(t)
	db, err := OpenInMemory()
	req.NoError(err)
	defer db.Close()

	req.True(db.Opts().InMemory)
	req.Empty(db.Opts().Dir)
}
