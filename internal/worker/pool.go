package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/Priya8975/webhook-gateway/internal/store"
)

// AppendJob is a single entry waiting to be written to the log store.
type AppendJob struct {
	Channel string
	Entry   domain.LogEntry
}

// AppendFunc is called after a job has been written successfully.
type AppendFunc func(job AppendJob)

// Pool manages a fixed number of worker goroutines that append entries to
// the log store. Submitters never wait for the write.
type Pool struct {
	numWorkers   int
	jobs         chan AppendJob
	sink         store.Sink
	onAppend     AppendFunc
	logger       *slog.Logger
	writeTimeout time.Duration
	wg           sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a worker pool with the given number of workers.
// onAppend may be nil.
func NewPool(numWorkers int, sink store.Sink, onAppend AppendFunc, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers:   numWorkers,
		jobs:         make(chan AppendJob, numWorkers*64),
		sink:         sink,
		onAppend:     onAppend,
		logger:       logger,
		writeTimeout: 10 * time.Second,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed; queued jobs are always drained.
func (p *Pool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("append pool started", "num_workers", p.numWorkers)
}

// Submit queues a job. It blocks only while the queue is full. Jobs
// submitted after Stop are logged and dropped.
func (p *Pool) Submit(job AppendJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.logger.Warn("append pool stopped, dropping log entry",
			"channel", job.Channel,
			"timestamp", job.Entry.Timestamp,
		)
		return
	}
	p.jobs <- job
}

// Stop closes the jobs channel and waits for all queued jobs to be
// written. Calling Stop again is a no-op.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("append pool stopped")
}

// worker is a single goroutine that processes jobs from the channel.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.append(id, job)
	}
}

func (p *Pool) append(id int, job AppendJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.sink.Append(ctx, job.Entry); err != nil {
		p.logger.Error("failed to save log entry",
			"error", err,
			"worker", id,
			"channel", job.Channel,
			"timestamp", job.Entry.Timestamp,
		)
		return
	}

	p.logger.Debug("log entry saved",
		"worker", id,
		"channel", job.Channel,
		"timestamp", job.Entry.Timestamp,
	)

	if p.onAppend != nil {
		p.onAppend(job)
	}
}
