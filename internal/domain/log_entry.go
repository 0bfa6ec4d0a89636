package domain

import (
	"encoding/json"
	"time"
)

// TimestampLayout matches the ISO-8601 form webhook consumers expect:
// UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// LogEntry is a single captured webhook payload.
type LogEntry struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewLogEntry stamps data with the capture time.
func NewLogEntry(at time.Time, data json.RawMessage) LogEntry {
	return LogEntry{
		Timestamp: FormatTimestamp(at),
		Data:      data,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// RecentLogs is the read-back view of the log store.
type RecentLogs struct {
	Total int        `json:"total"`
	Logs  []LogEntry `json:"logs"`
}
