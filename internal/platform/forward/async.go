package forward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("forward: queue is full")
	ErrQueueClosed = errors.New("forward: queue is closed")
)

// AsyncConfig configures an Async publisher.
type AsyncConfig struct {
	// Name labels log lines and failure callbacks, e.g. "webhook".
	Name      string
	Workers   int
	QueueSize int
	// Timeout bounds one delivery including its retries.
	Timeout time.Duration
	// DrainTimeout bounds how long Close waits for queued events.
	DrainTimeout time.Duration
	// OnError is called from a worker for every event that could not be
	// delivered.
	OnError func(name string, e Event, err error)
}

func (c *AsyncConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "async"
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1000
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
}

// Async queues events for a slow publisher and delivers them from a fixed
// set of workers. Publish only enqueues, so a sink that retries for a long
// time does not hold back the acknowledgment.
type Async struct {
	cfg    AsyncConfig
	next   Publisher
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAsync starts the workers delivering to next.
func NewAsync(next Publisher, cfg AsyncConfig, logger zerolog.Logger) *Async {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		cfg:    cfg,
		next:   next,
		logger: logger.With().Str("component", "forward-async").Str("sink", cfg.Name).Logger(),
		queue:  make(chan Event, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

// Publish enqueues e. It fails with ErrQueueFull instead of blocking.
func (a *Async) Publish(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrQueueClosed
	}
	select {
	case a.queue <- e:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, a.cfg.Name)
	}
}

// Pending returns the number of queued events.
func (a *Async) Pending() int {
	return len(a.queue)
}

// Close stops accepting events and waits up to DrainTimeout for the queue
// to drain. Deliveries still running after that are cancelled. The wrapped
// publisher is closed last.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.cfg.DrainTimeout):
		a.logger.Warn().Int("pending", len(a.queue)).Msg("drain timed out, cancelling deliveries")
		a.cancel()
		<-done
	}
	a.cancel()
	return a.next.Close()
}

func (a *Async) worker() {
	defer a.wg.Done()
	for e := range a.queue {
		if a.ctx.Err() != nil {
			a.fail(e, a.ctx.Err())
			continue
		}
		ctx, cancel := context.WithTimeout(a.ctx, a.cfg.Timeout)
		err := a.next.Publish(ctx, e)
		cancel()
		if err != nil {
			a.fail(e, err)
		}
	}
}

func (a *Async) fail(e Event, err error) {
	a.logger.Error().Err(err).Str("control_id", e.ControlID).Str("event_id", e.ID).Msg("delivery failed")
	if a.cfg.OnError != nil {
		a.cfg.OnError(a.cfg.Name, e, err)
	}
}
