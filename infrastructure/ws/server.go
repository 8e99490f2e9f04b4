package ws

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/runtime"
	"chat-hub/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const repliesBufferSize = 16

const (
	defaultPongWait  = 60 * time.Second
	defaultWriteWait = 10 * time.Second
)

type Config struct {
	PingInterval      time.Duration
	PongWait          time.Duration
	WriteWait         time.Duration
	MaxMessageSize    int64
	MaxIdentityLength int
}

// Server upgrades HTTP requests to WebSocket sessions, one hub connection per session.
type Server struct {
	log      *slog.Logger
	service  services.IChatService
	config   Config
	upgrader websocket.Upgrader
	validate *validator.Validate
}

func NewServer(log *slog.Logger, service services.IChatService, config Config) *Server {
	if config.PongWait <= 0 {
		config.PongWait = defaultPongWait
	}
	if config.PingInterval <= 0 || config.PingInterval >= config.PongWait {
		config.PingInterval = config.PongWait * 9 / 10
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaultWriteWait
	}
	return &Server{
		log:     log,
		service: service,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chat/ws", s.HandleWebSocket).Methods(http.MethodGet)
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	conn, err := s.service.Attach()
	if err != nil {
		s.log.Warn("Connection refused", "error", err)
		_ = wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(s.config.WriteWait))
		_ = wsConn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &session{
		server:  s,
		ws:      wsConn,
		conn:    conn,
		replies: make(chan any, repliesBufferSize),
		cancel:  cancel,
	}
	go c.writePump(ctx)
	c.readPump()
}

// session owns one WebSocket. readPump is the only reader and writePump the only writer.
type session struct {
	server  *Server
	ws      *websocket.Conn
	conn    *runtime.Connection
	replies chan any
	cancel  context.CancelFunc
}

func (c *session) readPump() {
	log := c.server.log
	config := c.server.config
	defer func() {
		c.server.service.Detach(c.conn.ID())
		c.cancel()
		_ = c.ws.Close()
	}()

	if config.MaxMessageSize > 0 {
		c.ws.SetReadLimit(config.MaxMessageSize)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.server.service.Touch(c.conn.ID())
		return c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket closed unexpectedly", "connection_id", c.conn.ID(), "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
		c.server.service.Touch(c.conn.ID())
		c.handle(message)
	}
}

func (c *session) handle(message []byte) {
	var in Inbound
	if err := json.Unmarshal(message, &in); err != nil {
		c.reply(NewErrorMessage(errors.CodeBadRequest, "invalid message format"))
		return
	}
	if err := c.server.validate.Struct(in); err != nil {
		c.reply(NewErrorMessage(errors.CodeBadRequest, fmt.Sprintf("unknown message type %q", in.Type)))
		return
	}

	id := c.conn.ID()
	switch in.Type {
	case TypeJoin:
		if limit := c.server.config.MaxIdentityLength; limit > 0 {
			// Surrounding blanks are not part of the identity.
			if err := c.server.validate.Var(strings.TrimSpace(in.Name), fmt.Sprintf("max=%d", limit)); err != nil {
				c.reply(NewErrorMessage(errors.CodeBadRequest, fmt.Sprintf("name exceeds %d characters", limit)))
				return
			}
		}
		if err := c.server.service.Join(domain.JoinCommand{ConnectionID: id, Name: in.Name}); err != nil {
			c.rejected(err)
		}
	case TypeSend:
		if err := c.server.service.Send(domain.SendCommand{ConnectionID: id, Text: in.Text}); err != nil {
			c.rejected(err)
		}
	case TypePing:
		c.reply(PongMessage{Type: TypePong})
	case TypeParticipants:
		c.reply(NewParticipantsMessage(c.server.service.CurrentParticipants()))
	}
}

func (c *session) rejected(err error) {
	if !errors.IsRejection(err) {
		c.server.log.Error("Command failed", "connection_id", c.conn.ID(), "error", err)
	}
	c.reply(NewCommandError(err))
}

// reply never blocks the reader, a client flooding requests loses replies.
func (c *session) reply(msg any) {
	select {
	case c.replies <- msg:
	default:
		c.server.log.Warn("Reply buffer full, dropping reply", "connection_id", c.conn.ID())
	}
}

func (c *session) writePump(ctx context.Context) {
	config := c.server.config
	ticker := time.NewTicker(config.PingInterval)
	events := c.conn.Events(ctx)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				// Detached by the hub (shutdown, idle or slow consumer) or reader gone
				_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(NewEventMessage(e)); err != nil {
				return
			}
		case msg := <-c.replies:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *session) write(msg any) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		c.server.log.Debug("WebSocket write failed", "connection_id", c.conn.ID(), "error", err)
		return err
	}
	return nil
}
