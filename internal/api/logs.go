package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/Priya8975/webhook-gateway/internal/store"
)

// LogReader reads back the log store.
type LogReader interface {
	Recent(ctx context.Context, n int) (int, []domain.LogEntry, error)
}

type LogHandler struct {
	reader LogReader
	limit  int
	logger *slog.Logger
}

func NewLogHandler(reader LogReader, limit int, logger *slog.Logger) *LogHandler {
	return &LogHandler{reader: reader, limit: limit, logger: logger}
}

// List returns the total number of stored entries and the most recent ones.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	total, logs, err := h.reader.Recent(r.Context(), h.limit)
	if err != nil {
		if errors.Is(err, store.ErrNoLogs) {
			respondJSON(w, http.StatusOK, map[string]string{"message": "no logs found"})
			return
		}

		h.logger.Error("failed to read logs", "error", err)
		var lsErr *store.LogStoreError
		if errors.As(err, &lsErr) && lsErr.Op == "parse" {
			respondError(w, http.StatusInternalServerError, "failed to parse logs")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}

	respondJSON(w, http.StatusOK, domain.RecentLogs{Total: total, Logs: logs})
}
