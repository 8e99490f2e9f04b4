// Package client is the WebSocket side of a chat participant.
// It sends join/send commands and feeds every received event into a local timeline.
package client

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/infrastructure/ws"
	"chat-hub/projection"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const writeWait = 10 * time.Second

// Handler receives what the server pushes. Nil callbacks are skipped.
type Handler struct {
	OnEvent        func(event.Event)
	OnParticipants func([]domain.Identity)
	OnError        func(code, message string)
}

type Client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	timeline *projection.Timeline
	writeMu  sync.Mutex
}

// Dial opens the socket. The timeline keeps at most timelineSize events, 0 keeps all.
func Dial(ctx context.Context, log *slog.Logger, url string, timelineSize int) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", url, err)
	}
	return &Client{
		log:      log,
		conn:     conn,
		timeline: projection.NewTimeline(timelineSize),
	}, nil
}

func (c *Client) Join(name string) error {
	return c.write(ws.Inbound{Type: ws.TypeJoin, Name: name})
}

func (c *Client) Send(text string) error {
	return c.write(ws.Inbound{Type: ws.TypeSend, Text: text})
}

func (c *Client) Ping() error {
	return c.write(ws.Inbound{Type: ws.TypePing})
}

func (c *Client) RequestParticipants() error {
	return c.write(ws.Inbound{Type: ws.TypeParticipants})
}

func (c *Client) Timeline() *projection.Timeline {
	return c.timeline
}

// Run reads until the server closes the socket or ctx is cancelled.
// A normal closure from either side returns nil.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		var msg ws.Outbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
		c.dispatch(ctx, msg, handler)
	}
}

func (c *Client) dispatch(ctx context.Context, msg ws.Outbound, handler Handler) {
	switch {
	case msg.IsEvent():
		e, err := msg.Event()
		if err != nil {
			c.log.Warn("Unreadable event", "type", msg.Type, "error", err)
			return
		}
		_ = c.timeline.Consume(ctx, e)
		if handler.OnEvent != nil {
			handler.OnEvent(e)
		}
	case msg.Type == ws.TypeParticipants:
		if handler.OnParticipants != nil {
			handler.OnParticipants(lo.Map(msg.Identities, func(id string, _ int) domain.Identity {
				return domain.Identity(id)
			}))
		}
	case msg.Type == ws.TypeError:
		if handler.OnError != nil {
			handler.OnError(msg.Code, msg.Message)
		}
	case msg.Type == ws.TypePong:
		c.log.Debug("Pong received")
	default:
		c.log.Debug("Unknown message type", "type", msg.Type)
	}
}

// Close sends a normal closure frame then drops the socket. Safe to call twice.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *Client) write(msg ws.Inbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}
