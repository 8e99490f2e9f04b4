package runtime_test

import (
	"chat-hub/domain/event"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) kinds() []event.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []event.Kind
	for _, e := range s.events {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

func TestOrchestrator_Dispatches_Events_To_Sinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 0), nil, runtime.OrchestratorConfig{
		Hub:            runtime.HubConfig{QueueCapacity: 8},
		SinkBufferSize: 8,
		SinkTimeout:    time.Second,
	})
	sink := &recordingSink{}
	orchestrator.Add(sink)

	done := make(chan error)
	go func() { done <- orchestrator.Start(context.Background()) }()

	// When a participant joins and talks
	hub := orchestrator.Hub()
	conn, err := hub.Attach()
	req.NoError(err)
	req.NoError(hub.Join(conn.ID(), "Ana"))
	req.NoError(hub.Send(conn.ID(), "hi"))

	// Then the permanent sink sees both events in order
	req.Eventually(func() bool { return len(sink.kinds()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal([]event.Kind{event.KindJoined, event.KindChatMessage}, sink.kinds())

	// When the orchestrator stops
	orchestrator.Stop()

	// Then Start returns and the hub refuses new connections
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Orchestrator did not stop in time")
	}
	_, err = hub.Attach()
	req.Error(err)
}
