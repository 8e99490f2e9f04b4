package client

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/infrastructure/ws"
	"chat-hub/runtime"
	"chat-hub/services"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu           sync.Mutex
	events       []event.Event
	participants [][]domain.Identity
	codes        []string
}

func (r *recorder) handler() Handler {
	return Handler{
		OnEvent: func(e event.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		},
		OnParticipants: func(ids []domain.Identity) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.participants = append(r.participants, ids)
		},
		OnError: func(code, _ string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.codes = append(r.codes, code)
		},
	}
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startHub(t *testing.T) (string, *runtime.Hub) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := runtime.NewHub(log, runtime.NewRegistry(), runtime.NewEventLog(0), nil, nil,
		runtime.HubConfig{QueueCapacity: 32})
	server := ws.NewServer(log, services.NewChatService(hub, nil), ws.Config{
		PongWait:          5 * time.Second,
		WriteWait:         time.Second,
		MaxIdentityLength: 16,
	})
	router := mux.NewRouter()
	server.RegisterRoutes(router)
	httpServer := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		httpServer.Close()
	})
	return "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/chat/ws", hub
}

func TestClient_Join_Send_And_Who(t *testing.T) {
	req := require.New(t)
	url, _ := startHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := Dial(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), url, 10)
	req.NoError(err)
	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, rec.handler()) }()

	// When the participant joins, talks and asks who is online
	req.NoError(c.Join("Ana"))
	req.NoError(c.Send("hi"))
	req.NoError(c.Send(""))
	req.NoError(c.RequestParticipants())
	req.NoError(c.Ping())

	// Then both events reach the timeline in order
	req.Eventually(func() bool { return rec.eventCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	entries := c.Timeline().Entries()
	req.Len(entries, 2)
	req.Equal(event.KindJoined, entries[0].Kind)
	req.Equal("hi", entries[1].Text)
	req.Eventually(func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.participants) == 1 && len(rec.codes) == 1
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal([]domain.Identity{"Ana"}, rec.participants[0])
	req.Equal("EMPTY_TEXT", rec.codes[0])

	// And cancelling stops the read loop cleanly
	cancel()
	req.NoError(<-done)
}

func TestClient_Run_Ends_When_Hub_Closes(t *testing.T) {
	req := require.New(t)
	url, hub := startHub(t)

	c, err := Dial(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), url, 0)
	req.NoError(err)
	defer c.Close()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), Handler{}) }()
	req.NoError(c.Join("Bob"))
	req.Eventually(func() bool { return len(hub.CurrentParticipants()) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("run did not return after the hub closed")
	}
}

func TestDial_Unreachable(t *testing.T) {
	req := require.New(t)

	_, err := Dial(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug), "ws://127.0.0.1:1/chat/ws", 0)

	req.ErrorContains(err, "could not connect")
}
