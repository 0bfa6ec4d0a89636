package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/webhook-gateway/internal/domain"
)

// ErrNoLogs is returned by Recent when the store holds no entries yet,
// including when its backing file or key does not exist.
var ErrNoLogs = errors.New("no logs found")

// Sink accepts log entries. Sinks are append-only.
type Sink interface {
	Append(ctx context.Context, entry domain.LogEntry) error
	Close() error
}

// LogStore is a Sink that can also read back its most recent entries.
type LogStore interface {
	Sink
	// Recent returns the total number of stored entries and the last n of
	// them, oldest first.
	Recent(ctx context.Context, n int) (int, []domain.LogEntry, error)
}

// LogStoreError reports a failure to read or reconstruct the log store.
type LogStoreError struct {
	Op  string
	Src string
	Err error
}

func (e *LogStoreError) Error() string {
	return fmt.Sprintf("log store %s %s: %v", e.Op, e.Src, e.Err)
}

func (e *LogStoreError) Unwrap() error {
	return e.Err
}

// tail returns the last n entries of all, sharing the backing array.
func tail(all []domain.LogEntry, n int) []domain.LogEntry {
	if n <= 0 || len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}
