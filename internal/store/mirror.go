package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Priya8975/webhook-gateway/internal/domain"
)

// Mirror is a LogStore that also copies every appended entry to a set of
// secondary sinks. Reads are served by the primary only, and only a primary
// failure is returned from Append. Each sink sits behind a circuit breaker
// so an unreachable sink is skipped instead of stalling every append.
type Mirror struct {
	primary LogStore
	sinks   []namedSink
	breaker *Breaker
	logger  *slog.Logger
}

type namedSink struct {
	name string
	Sink
}

// SinkHealth reports the circuit state of one mirror sink.
type SinkHealth struct {
	Name    string       `json:"name"`
	Circuit BreakerState `json:"circuit_breaker"`
}

func NewMirror(primary LogStore, logger *slog.Logger, sinks ...Sink) *Mirror {
	named := make([]namedSink, len(sinks))
	for i, s := range sinks {
		named[i] = namedSink{name: sinkName(i, s), Sink: s}
	}
	return &Mirror{
		primary: primary,
		sinks:   named,
		breaker: NewBreaker(logger),
		logger:  logger,
	}
}

// sinkName uses the sink's own Name when it has one.
func sinkName(i int, s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("sink-%d", i)
}

func (m *Mirror) Append(ctx context.Context, entry domain.LogEntry) error {
	if err := m.primary.Append(ctx, entry); err != nil {
		return err
	}
	for _, s := range m.sinks {
		if state, ok := m.breaker.AllowRequest(s.name); !ok {
			m.logger.Debug("mirror append skipped", "sink", s.name, "circuit", state)
			continue
		}
		if err := s.Append(ctx, entry); err != nil {
			m.breaker.RecordFailure(s.name)
			m.logger.Warn("mirror append failed", "sink", s.name, "error", err)
			continue
		}
		m.breaker.RecordSuccess(s.name)
	}
	return nil
}

func (m *Mirror) Recent(ctx context.Context, n int) (int, []domain.LogEntry, error) {
	return m.primary.Recent(ctx, n)
}

// SinkStates returns the circuit state of every mirror sink.
func (m *Mirror) SinkStates() []SinkHealth {
	result := make([]SinkHealth, 0, len(m.sinks))
	for _, s := range m.sinks {
		result = append(result, SinkHealth{Name: s.name, Circuit: m.breaker.GetState(s.name)})
	}
	return result
}

// Close closes the sinks, then the primary, and joins their errors.
func (m *Mirror) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	errs = append(errs, m.primary.Close())
	return errors.Join(errs...)
}
