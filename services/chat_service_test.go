package services

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/mocks"
	"chat-hub/runtime"
	"errors"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newHub() *runtime.Hub {
	return newHubRetaining(0)
}

func newHubRetaining(retention int) *runtime.Hub {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return runtime.NewHub(log, runtime.NewRegistry(), runtime.NewEventLog(retention), nil, nil,
		runtime.HubConfig{QueueCapacity: 8})
}

// talk appends Joined{Ana} followed by messages chat messages.
func talk(t *testing.T, service *ChatService, messages int) {
	t.Helper()
	conn, err := service.Attach()
	require.NoError(t, err)
	require.NoError(t, service.Join(domain.JoinCommand{ConnectionID: conn.ID(), Name: "Ana"}))
	for i := 0; i < messages; i++ {
		require.NoError(t, service.Send(domain.SendCommand{ConnectionID: conn.ID(), Text: "hi"}))
	}
}

func archived(sequences ...uint64) []event.Event {
	return lo.Map(sequences, func(seq uint64, _ int) event.Event {
		return event.ChatMessage{Header: event.Header{Seq: seq}, Participant: "Ana", Text: "hi"}
	})
}

func sequences(events []event.Event) []uint64 {
	return lo.Map(events, func(e event.Event, _ int) uint64 { return e.Sequence() })
}

func TestChatService_Join_And_Send(t *testing.T) {
	req := require.New(t)
	service := NewChatService(newHub(), nil)

	conn, err := service.Attach()
	req.NoError(err)

	// When a participant joins and sends
	req.NoError(service.Join(domain.JoinCommand{ConnectionID: conn.ID(), Name: "Ana"}))
	req.NoError(service.Send(domain.SendCommand{ConnectionID: conn.ID(), Text: "hi"}))

	// Then the hub state reflects it
	req.Equal([]domain.Identity{"Ana"}, service.CurrentParticipants())
	replayed, err := service.Replay(0, 0)
	req.NoError(err)
	req.Len(replayed, 2)
	req.Equal(uint64(2), service.Stats().NextSequence)

	subscribed, err := service.Subscribe(conn.ID())
	req.NoError(err)
	req.Equal(2, subscribed.Pending())

	service.Detach(conn.ID())
	req.Empty(service.CurrentParticipants())
}

func TestChatService_History_Reads_Archive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHub(), archive)
	history := []event.Event{event.ChatMessage{Participant: "Ana", Text: "hi"}}

	archive.EXPECT().History(domain.Identity("Ana"), 10).Return(history, nil).Times(1)

	events, err := service.History("Ana", 10)

	req.NoError(err)
	req.Equal(history, events)
}

func TestChatService_History_Without_Archive(t *testing.T) {
	req := require.New(t)
	service := NewChatService(newHub(), nil)

	events, err := service.History("Ana", 10)

	req.NoError(err)
	req.Empty(events)
}

func TestChatService_Replay_Inside_Window_Skips_Archive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHubRetaining(2), archive)

	// Given sequences 0..3 were appended and the log retains 2..3
	talk(t, service, 3)

	// When replaying from inside the window
	events, err := service.Replay(2, 0)

	// Then the log answers alone
	req.NoError(err)
	req.Equal([]uint64{2, 3}, sequences(events))
}

func TestChatService_Replay_Before_Window_Reads_Archive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHubRetaining(2), archive)
	talk(t, service, 3)

	// Given the archive holds 0..2, overlapping the retained window
	archive.EXPECT().Range(uint64(0), 0).Return(archived(0, 1, 2), nil).Times(1)

	// When replaying from the beginning
	events, err := service.Replay(0, 0)

	// Then the archive head is completed by the log without duplicates
	req.NoError(err)
	req.Equal([]uint64{0, 1, 2, 3}, sequences(events))
}

func TestChatService_Replay_Archive_Page_Short_Of_Window(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHubRetaining(2), archive)

	// Given sequences 0..5 with 4..5 retained
	talk(t, service, 5)

	// And an archive page capped at two events
	archive.EXPECT().Range(uint64(0), 0).Return(archived(0, 1), nil).Times(1)

	events, err := service.Replay(0, 0)

	// Then only the archive page is returned, never a gap
	req.NoError(err)
	req.Equal([]uint64{0, 1}, sequences(events))
}

func TestChatService_Replay_Limit_Spans_Archive_And_Log(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHubRetaining(2), archive)
	talk(t, service, 3)

	archive.EXPECT().Range(uint64(1), 2).Return(archived(1), nil).Times(1)

	events, err := service.Replay(1, 2)

	req.NoError(err)
	req.Equal([]uint64{1, 2}, sequences(events))
}

func TestChatService_Replay_Archive_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockEventArchive(ctrl)
	service := NewChatService(newHubRetaining(1), archive)
	talk(t, service, 1)

	archive.EXPECT().Range(uint64(0), 0).Return(nil, errors.New("badger closed")).Times(1)

	_, err := service.Replay(0, 0)

	req.Error(err)
}
