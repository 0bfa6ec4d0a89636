package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/Priya8975/webhook-gateway/internal/worker"
)

// Submitter queues entries for appending. *worker.Pool implements it.
type Submitter interface {
	Submit(job worker.AppendJob)
}

// Recorder turns received notifications into log entries, hands them to the
// append pool and logs what the notification contains.
type Recorder struct {
	submitter Submitter
	inspector *Inspector
	logger    *slog.Logger
	now       func() time.Time
}

func NewRecorder(submitter Submitter, logger *slog.Logger) *Recorder {
	return &Recorder{
		submitter: submitter,
		inspector: NewInspector(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Record queues body for appending and inspects it. body must be valid
// JSON. The append happens asynchronously; Record never fails.
func (r *Recorder) Record(channel string, body json.RawMessage) domain.LogEntry {
	entry := domain.NewLogEntry(r.now(), body)

	r.submitter.Submit(worker.AppendJob{Channel: channel, Entry: entry})

	r.logger.Info("webhook received",
		"channel", channel,
		"timestamp", entry.Timestamp,
		"data", body,
	)

	statuses, messages := r.inspector.Inspect(channel, body)
	r.logger.Debug("notification inspected",
		"channel", channel,
		"statuses", statuses,
		"messages", messages,
	)

	return entry
}
