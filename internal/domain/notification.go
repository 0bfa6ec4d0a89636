package domain

import "encoding/json"

// Media error codes reported by the messaging platform on failed statuses.
const (
	ErrorCodeUploadFailed      = "131026"
	ErrorCodeMediaTooLarge     = "131047"
	ErrorCodeUnsupportedFormat = "131051"
)

// Notification mirrors only the parts of the platform payload the gateway
// looks at. Each level stays raw so a malformed sibling cannot hide a
// well-formed one.
type Notification struct {
	Entry []json.RawMessage `json:"entry"`
}

type NotificationEntry struct {
	Changes []json.RawMessage `json:"changes"`
}

type NotificationChange struct {
	Value json.RawMessage `json:"value"`
}

type ChangeValue struct {
	Statuses []json.RawMessage `json:"statuses"`
	Messages []json.RawMessage `json:"messages"`
}

type MessageStatus struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Errors []json.RawMessage `json:"errors"`
}

type StatusError struct {
	Code    json.Number `json:"code"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

type InboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
}

// FirstChangeValue walks entry[0].changes[0].value. It reports false when
// any level is missing or has an unexpected shape.
func FirstChangeValue(body []byte) (ChangeValue, bool) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil || len(n.Entry) == 0 {
		return ChangeValue{}, false
	}

	var entry NotificationEntry
	if err := json.Unmarshal(n.Entry[0], &entry); err != nil || len(entry.Changes) == 0 {
		return ChangeValue{}, false
	}

	var change NotificationChange
	if err := json.Unmarshal(entry.Changes[0], &change); err != nil || len(change.Value) == 0 {
		return ChangeValue{}, false
	}

	var value ChangeValue
	if err := json.Unmarshal(change.Value, &value); err != nil {
		// statuses and messages are independent; retry each on its own.
		var loose map[string]json.RawMessage
		if err := json.Unmarshal(change.Value, &loose); err != nil {
			return ChangeValue{}, false
		}
		_ = json.Unmarshal(loose["statuses"], &value.Statuses)
		_ = json.Unmarshal(loose["messages"], &value.Messages)
	}
	return value, true
}

// ClassifyError returns a human readable label for known media error codes,
// or "" for anything else.
func ClassifyError(code json.Number) string {
	switch code.String() {
	case ErrorCodeUploadFailed:
		return "media upload failed"
	case ErrorCodeMediaTooLarge:
		return "media file too large"
	case ErrorCodeUnsupportedFormat:
		return "media format not supported"
	default:
		return ""
	}
}
