package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/Priya8975/webhook-gateway/internal/domain"
)

// Format selects the on-disk record layout of a FileStore.
type Format string

const (
	// FormatNDJSON writes one compact JSON entry per line.
	FormatNDJSON Format = "ndjson"
	// FormatLegacy writes indented JSON entries each followed by ",\n".
	// The file only parses once the last separator is stripped and the
	// content is wrapped in brackets.
	FormatLegacy Format = "legacy"
)

var legacySeparator = []byte(",\n")

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatNDJSON, "":
		return FormatNDJSON, nil
	case FormatLegacy:
		return FormatLegacy, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

// FileStore appends entries to a single local file.
type FileStore struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	format Format
}

// NewFileStore opens (or creates) the log file at path for appending.
func NewFileStore(path string, format Format) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &FileStore{f: f, path: path, format: format}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Append encodes entry in the store's format and writes it with a single
// write call.
func (s *FileStore) Append(_ context.Context, entry domain.LogEntry) error {
	var (
		record []byte
		err    error
	)
	switch s.format {
	case FormatLegacy:
		record, err = encodeLegacy(entry)
	default:
		record, err = encodeNDJSON(entry)
	}
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(record); err != nil {
		return fmt.Errorf("appending to %s: %w", s.path, err)
	}
	return nil
}

// Recent reads the whole file and returns the entry count and the last n
// entries.
func (s *FileStore) Recent(_ context.Context, n int) (int, []domain.LogEntry, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil, ErrNoLogs
		}
		return 0, nil, &LogStoreError{Op: "read", Src: s.path, Err: err}
	}

	var entries []domain.LogEntry
	switch s.format {
	case FormatLegacy:
		entries, err = decodeLegacy(data)
	default:
		entries, err = decodeNDJSON(data)
	}
	if err != nil {
		if errors.Is(err, ErrNoLogs) {
			return 0, nil, err
		}
		return 0, nil, &LogStoreError{Op: "parse", Src: s.path, Err: err}
	}
	if len(entries) == 0 {
		return 0, nil, ErrNoLogs
	}
	return len(entries), tail(entries, n), nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

func encodeNDJSON(entry domain.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeCompact is encodeNDJSON without the trailing newline. Record
// backends (Redis, Kafka) store one entry per item.
func encodeCompact(entry domain.LogEntry) ([]byte, error) {
	record, err := encodeNDJSON(entry)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(record, []byte{'\n'}), nil
}

func decodeNDJSON(data []byte) ([]domain.LogEntry, error) {
	var entries []domain.LogEntry
	for i, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e domain.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func encodeLegacy(entry domain.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entry); err != nil {
		return nil, err
	}
	record := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return append(record, legacySeparator...), nil
}

func decodeLegacy(data []byte) ([]domain.LogEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoLogs
	}
	if !bytes.HasSuffix(data, legacySeparator) {
		return nil, errors.New("missing trailing record separator")
	}

	wrapped := make([]byte, 0, len(data))
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, data[:len(data)-len(legacySeparator)]...)
	wrapped = append(wrapped, ']')

	var entries []domain.LogEntry
	if err := json.Unmarshal(wrapped, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
