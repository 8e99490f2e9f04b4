//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/servicemocks/mock_chat_service.go -package=servicemocks
package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/runtime"
)

type IChatService interface {
	Attach() (*runtime.Connection, error)
	Join(cmd domain.JoinCommand) error
	Send(cmd domain.SendCommand) error
	Detach(connectionID domain.ConnectionID)
	Subscribe(connectionID domain.ConnectionID) (*runtime.Connection, error)
	Touch(connectionID domain.ConnectionID)
	CurrentParticipants() []domain.Identity
	Replay(from uint64, limit int) ([]event.Event, error)
	History(identity domain.Identity, limit int) ([]event.Event, error)
	Stats() runtime.HubStats
}

type ChatService struct {
	hub     *runtime.Hub
	archive contract.EventArchive
}

// NewChatService exposes the hub to the transports. archive may be nil,
// History then reports no events.
func NewChatService(hub *runtime.Hub, archive contract.EventArchive) *ChatService {
	return &ChatService{hub: hub, archive: archive}
}

func (s *ChatService) Attach() (*runtime.Connection, error) {
	return s.hub.Attach()
}

func (s *ChatService) Join(cmd domain.JoinCommand) error {
	return s.hub.Join(cmd.ConnectionID, cmd.Name)
}

func (s *ChatService) Send(cmd domain.SendCommand) error {
	return s.hub.Send(cmd.ConnectionID, cmd.Text)
}

func (s *ChatService) Detach(connectionID domain.ConnectionID) {
	s.hub.Detach(connectionID)
}

func (s *ChatService) Subscribe(connectionID domain.ConnectionID) (*runtime.Connection, error) {
	return s.hub.Subscribe(connectionID)
}

func (s *ChatService) Touch(connectionID domain.ConnectionID) {
	s.hub.Touch(connectionID)
}

func (s *ChatService) CurrentParticipants() []domain.Identity {
	return s.hub.CurrentParticipants()
}

// Replay returns events with sequence >= from. The event log serves its
// retained window; older events are read from the archive first and the log
// completes the page once the archive reaches the window.
func (s *ChatService) Replay(from uint64, limit int) ([]event.Event, error) {
	oldest := s.hub.Replay(0, 1)
	if s.archive == nil || (len(oldest) > 0 && oldest[0].Sequence() <= from) {
		return s.hub.Replay(from, limit), nil
	}

	archived, err := s.archive.Range(from, limit)
	if err != nil {
		return nil, err
	}
	if len(archived) == 0 {
		return s.hub.Replay(from, limit), nil
	}
	next := archived[len(archived)-1].Sequence() + 1
	if limit > 0 && len(archived) >= limit {
		return archived, nil
	}
	// The archive page stops short of the window (read cap or a dropped sink
	// write): the caller pages on from the last sequence it received.
	if len(oldest) > 0 && next < oldest[0].Sequence() {
		return archived, nil
	}
	remaining := 0
	if limit > 0 {
		remaining = limit - len(archived)
	}
	return append(archived, s.hub.Replay(next, remaining)...), nil
}

func (s *ChatService) History(identity domain.Identity, limit int) ([]event.Event, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.History(identity, limit)
}

func (s *ChatService) Stats() runtime.HubStats {
	return s.hub.Stats()
}
