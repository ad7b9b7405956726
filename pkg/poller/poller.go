// Package poller fetches the controller state on a fixed interval.
//
// Every successful fetch becomes a reconcile.SnapshotReceived event and every
// failure a reconcile.PollFailed event; the poller never touches field values
// itself. There is no backoff: a failed poll is retried on the next tick.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
)

// DefaultInterval is the poll interval of the original dashboard.
const DefaultInterval = 2 * time.Second

// Poller errors.
var (
	ErrAlreadyRunning  = errors.New("poller already running")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)

// Config configures a Poller.
type Config struct {
	// Clock drives the ticker. Defaults to the real clock.
	Clock clock.Clock

	// Post delivers snapshot and failure events to the event loop.
	Post func(reconcile.Event)

	// Logger is the optional operational logger.
	Logger *slog.Logger
}

// Poller periodically fetches the full controller state.
type Poller struct {
	src    device.StateFetcher
	clock  clock.Clock
	post   func(reconcile.Event)
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	polls  uint64
	fails  uint64
}

// New creates a Poller reading from src.
func New(src device.StateFetcher, cfg Config) *Poller {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.Post == nil {
		cfg.Post = func(reconcile.Event) {}
	}
	return &Poller{
		src:    src,
		clock:  cfg.Clock,
		post:   cfg.Post,
		logger: cfg.Logger,
	}
}

// Start polls once immediately and then on every tick of interval until ctx
// is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.run(ctx, interval, done)
	return nil
}

// Stop stops polling and waits for an in-progress poll to finish.
// It is safe to call Stop on a stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats returns the number of polls and failed polls so far.
func (p *Poller) Stats() (polls, failures uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls, p.fails
}

// PollOnce fetches the state once and posts the resulting event.
func (p *Poller) PollOnce(ctx context.Context) error {
	values, err := p.src.FetchState(ctx)
	now := p.clock.Now()

	p.mu.Lock()
	p.polls++
	if err != nil {
		p.fails++
	}
	p.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; not a connectivity problem.
			return err
		}
		if p.logger != nil {
			p.logger.Debug("poll failed", "error", err)
		}
		p.post(reconcile.PollFailed{Err: err, At: now})
		return err
	}
	p.post(reconcile.SnapshotReceived{Values: values, At: now})
	return nil
}

func (p *Poller) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	_ = p.PollOnce(ctx)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			_ = p.PollOnce(ctx)
		}
	}
}
