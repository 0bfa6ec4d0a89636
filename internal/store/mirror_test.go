package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/Priya8975/webhook-gateway/internal/domain"
)

type recordingSink struct {
	entries  []domain.LogEntry
	attempts int
	err      error
	closed   bool
}

func (r *recordingSink) Append(_ context.Context, e domain.LogEntry) error {
	r.attempts++
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMirror_CopiesToSinks(t *testing.T) {
	primary := newTestFileStore(t, FormatNDJSON)
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("broker down")}
	m := NewMirror(primary, testLogger(), bad, good)
	ctx := context.Background()

	if err := m.Append(ctx, testEntry(1)); err != nil {
		t.Fatalf("Append should ignore sink failures, got %v", err)
	}
	if len(good.entries) != 1 {
		t.Errorf("good sink: got %d entries, want 1", len(good.entries))
	}

	total, _, err := m.Recent(ctx, 10)
	if err != nil || total != 1 {
		t.Errorf("Recent via primary: total=%d err=%v", total, err)
	}
}

func TestMirror_PrimaryFailureSkipsSinks(t *testing.T) {
	primary := newTestFileStore(t, FormatNDJSON)
	primary.Close()
	sink := &recordingSink{}
	m := NewMirror(primary, testLogger(), sink)

	if err := m.Append(context.Background(), testEntry(1)); err == nil {
		t.Fatal("expected error from closed primary")
	}
	if len(sink.entries) != 0 {
		t.Errorf("sink should not receive entries the primary rejected")
	}
}

func TestMirror_CloseClosesSinks(t *testing.T) {
	primary := newTestFileStore(t, FormatNDJSON)
	sink := &recordingSink{}
	m := NewMirror(primary, testLogger(), sink)

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sink.closed {
		t.Error("sink was not closed")
	}
}

func TestNewKafkaSink_RequiresBrokersAndTopic(t *testing.T) {
	if _, err := NewKafkaSink(KafkaConfig{Topic: "logs"}, testLogger()); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}, testLogger()); err == nil {
		t.Error("expected error without topic")
	}

	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "logs"}, testLogger())
	if err != nil {
		t.Fatalf("NewKafkaSink: %v", err)
	}
	sink.Close()
}

func TestMirror_OpenCircuitSkipsSink(t *testing.T) {
	primary := newTestFileStore(t, FormatNDJSON)
	bad := &recordingSink{err: errors.New("broker down")}
	m := NewMirror(primary, testLogger(), bad)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m.Append(ctx, testEntry(i))
	}
	if got := bad.attempts; got != 5 {
		t.Fatalf("attempts before opening: got %d, want 5", got)
	}

	// Circuit is open: further appends must not reach the sink.
	for i := 5; i < 10; i++ {
		if err := m.Append(ctx, testEntry(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if bad.attempts != 5 {
		t.Errorf("open circuit should skip the sink, attempts = %d", bad.attempts)
	}

	states := m.SinkStates()
	if len(states) != 1 || states[0].Name != "sink-0" || states[0].Circuit.State != StateOpen {
		t.Errorf("unexpected sink states: %+v", states)
	}

	total, _, err := m.Recent(ctx, 10)
	if err != nil || total != 10 {
		t.Errorf("primary should hold every entry: total=%d err=%v", total, err)
	}
}

func TestMirror_KafkaSinkName(t *testing.T) {
	primary := newTestFileStore(t, FormatNDJSON)
	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "webhook-logs"}, testLogger())
	if err != nil {
		t.Fatalf("NewKafkaSink: %v", err)
	}
	m := NewMirror(primary, testLogger(), sink)
	defer m.Close()

	states := m.SinkStates()
	if len(states) != 1 || states[0].Name != "kafka:webhook-logs" {
		t.Errorf("unexpected sink states: %+v", states)
	}
	if states[0].Circuit.State != StateClosed {
		t.Errorf("new sink circuit: got %q, want closed", states[0].Circuit.State)
	}
}
