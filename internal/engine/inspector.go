package engine

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/Priya8975/webhook-gateway/internal/domain"
)

// Inspector logs the message statuses and inbound messages found in a
// notification. It only reads the payload and never fails: anything that
// does not have the expected shape is skipped.
type Inspector struct {
	logger *slog.Logger
}

func NewInspector(logger *slog.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect looks at entry[0].changes[0].value of body and reports how many
// statuses and messages it logged.
func (i *Inspector) Inspect(channel string, body []byte) (statuses, messages int) {
	value, ok := domain.FirstChangeValue(body)
	if !ok {
		i.logger.Debug("notification has no change value", "channel", channel)
		return 0, 0
	}

	for _, raw := range value.Statuses {
		if isNull(raw) {
			continue
		}
		var st domain.MessageStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			i.logger.Debug("skipping malformed status", "channel", channel, "error", err)
			continue
		}
		statuses++
		i.logStatus(channel, st)
	}

	for _, raw := range value.Messages {
		if isNull(raw) {
			continue
		}
		var msg domain.InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			i.logger.Debug("skipping malformed message", "channel", channel, "error", err)
			continue
		}
		messages++
		i.logger.Info("message received",
			"channel", channel,
			"from", msg.From,
			"type", msg.Type,
		)
	}

	return statuses, messages
}

func (i *Inspector) logStatus(channel string, st domain.MessageStatus) {
	i.logger.Info("message status",
		"channel", channel,
		"message_id", st.ID,
		"status", st.Status,
	)

	for _, raw := range st.Errors {
		if isNull(raw) {
			continue
		}
		var se domain.StatusError
		if err := json.Unmarshal(raw, &se); err != nil {
			i.logger.Debug("skipping malformed status error", "channel", channel, "error", err)
			continue
		}

		attrs := []any{
			"channel", channel,
			"message_id", st.ID,
			"code", se.Code.String(),
			"title", se.Title,
			"message", se.Message,
		}
		if kind := domain.ClassifyError(se.Code); kind != "" {
			attrs = append(attrs, "classification", kind)
		}
		i.logger.Warn("message status error", attrs...)
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
