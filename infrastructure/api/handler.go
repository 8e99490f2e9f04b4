package api

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/infrastructure/ws"
	"chat-hub/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

// Handler serves the read-only HTTP API over the chat service.
type Handler struct {
	log     *slog.Logger
	service services.IChatService
}

func NewHandler(log *slog.Logger, service services.IChatService) *Handler {
	return &Handler{log: log, service: service}
}

type ParticipantsResponse struct {
	Identities []string `json:"identities"`
	Total      int      `json:"total"`
}

type EventsResponse struct {
	Events []ws.EventMessage `json:"events"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/participants", h.GetParticipants).Methods(http.MethodGet)
	router.HandleFunc("/events", h.GetEvents).Methods(http.MethodGet)
	router.HandleFunc("/history/{identity}", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}

// GetParticipants handles GET /participants
func (h *Handler) GetParticipants(w http.ResponseWriter, _ *http.Request) {
	identities := h.service.CurrentParticipants()
	h.writeJSON(w, http.StatusOK, ParticipantsResponse{
		Identities: lo.Map(identities, func(id domain.Identity, _ int) string { return id.String() }),
		Total:      len(identities),
	})
}

// GetEvents handles GET /events?from=&limit=
// Events older than the event log's retained window come from the archive.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r, "from", 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "from must be a positive integer"})
		return
	}
	limit, err := queryUint(r, "limit", 31)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}
	events, err := h.service.Replay(from, int(limit))
	if err != nil {
		h.log.Error("Failed to replay events", "from", from, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to replay events"})
		return
	}
	h.writeJSON(w, http.StatusOK, toEventsResponse(events))
}

// GetHistory handles GET /history/{identity}?limit=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.NewIdentity(mux.Vars(r)["identity"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	limit, err := queryUint(r, "limit", 31)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}

	events, err := h.service.History(identity, int(limit))
	if err != nil {
		h.log.Error("Failed to read history", "identity", identity, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read history"})
		return
	}
	h.writeJSON(w, http.StatusOK, toEventsResponse(events))
}

// GetStats handles GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Stats())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Debug("Failed to write response", "error", err)
	}
}

func queryUint(r *http.Request, name string, bitSize int) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, bitSize)
}

func toEventsResponse(events []event.Event) EventsResponse {
	return EventsResponse{Events: lo.Map(events, func(e event.Event, _ int) ws.EventMessage {
		return ws.NewEventMessage(e)
	})}
}
