package store

import (
	"log/slog"
	"sync"
	"time"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Breaker keeps one in-memory circuit per mirror sink.
// State transitions: closed → open → half-open → closed
//
// - Closed: appends go through. Consecutive failures are counted.
// - Open: appends are skipped. Transitions to half-open after cooldown.
// - Half-Open: one trial append is let through. Success → closed, failure → open.
type Breaker struct {
	mu               sync.Mutex
	circuits         map[string]*circuit
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	now              func() time.Time
}

type circuit struct {
	state        string
	failures     int
	lastFailedAt time.Time
	trialPending bool
}

// BreakerState is a snapshot of one sink's circuit.
type BreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewBreaker(logger *slog.Logger) *Breaker {
	return &Breaker{
		circuits:         make(map[string]*circuit),
		logger:           logger,
		failureThreshold: 5,
		cooldownPeriod:   30 * time.Second,
		now:              time.Now,
	}
}

func (b *Breaker) circuit(name string) *circuit {
	c, ok := b.circuits[name]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[name] = c
	}
	return c
}

// AllowRequest reports whether an append to the named sink should proceed.
func (b *Breaker) AllowRequest(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuit(name)

	switch c.state {
	case StateOpen:
		if b.now().Sub(c.lastFailedAt) >= b.cooldownPeriod {
			c.state = StateHalfOpen
			c.trialPending = true
			b.logger.Info("circuit breaker half-open", "sink", name)
			return StateHalfOpen, true
		}
		return StateOpen, false

	case StateHalfOpen:
		// The trial append is still in flight.
		if c.trialPending {
			return StateHalfOpen, false
		}
		c.trialPending = true
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the circuit and resets its failure count.
func (b *Breaker) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuit(name)

	if c.state == StateHalfOpen {
		b.logger.Info("circuit breaker closed (recovered)", "sink", name)
	}
	c.state = StateClosed
	c.failures = 0
	c.trialPending = false
}

// RecordFailure counts a failed append and opens the circuit once the
// threshold is reached, or immediately when the half-open trial fails.
func (b *Breaker) RecordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuit(name)

	c.failures++
	c.lastFailedAt = b.now()
	c.trialPending = false

	switch {
	case c.state == StateHalfOpen:
		c.state = StateOpen
		b.logger.Warn("circuit breaker re-opened (half-open trial failed)", "sink", name)
	case c.state == StateClosed && c.failures >= b.failureThreshold:
		c.state = StateOpen
		b.logger.Warn("circuit breaker opened",
			"sink", name,
			"failures", c.failures,
			"threshold", b.failureThreshold,
		)
	}
}

// GetState returns the current circuit state for the named sink.
func (b *Breaker) GetState(name string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[name]
	if !ok {
		return BreakerState{State: StateClosed}
	}

	state := c.state
	if state == StateOpen && b.now().Sub(c.lastFailedAt) >= b.cooldownPeriod {
		state = StateHalfOpen
	}

	result := BreakerState{State: state, Failures: c.failures}
	if !c.lastFailedAt.IsZero() {
		result.LastFailedAt = c.lastFailedAt.UTC().Format(time.RFC3339)
	}
	return result
}
