package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-gateway/internal/store"
	ws "github.com/Priya8975/webhook-gateway/internal/websocket"
)

// MirrorHealth is implemented by stores that copy entries to secondary sinks.
type MirrorHealth interface {
	SinkStates() []store.SinkHealth
}

type StatsHandler struct {
	reader LogReader
	hub    *ws.Hub
	logger *slog.Logger
}

func NewStatsHandler(reader LogReader, hub *ws.Hub, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{reader: reader, hub: hub, logger: logger}
}

// StatsResponse summarises the log store and its live consumers.
type StatsResponse struct {
	TotalLogs     int                `json:"total_logs"`
	StreamClients int                `json:"stream_clients"`
	Mirrors       []store.SinkHealth `json:"mirrors"`
}

// Stats returns the stored entry count, connected stream clients and the
// circuit state of every mirror sink.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, _, err := h.reader.Recent(r.Context(), 1)
	if err != nil && !errors.Is(err, store.ErrNoLogs) {
		h.logger.Error("failed to count logs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}

	resp := StatsResponse{
		TotalLogs: total,
		Mirrors:   []store.SinkHealth{},
	}
	if h.hub != nil {
		resp.StreamClients = h.hub.ClientCount()
	}
	if m, ok := h.reader.(MirrorHealth); ok {
		resp.Mirrors = m.SinkStates()
	}

	respondJSON(w, http.StatusOK, resp)
}
