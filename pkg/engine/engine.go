package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/poller"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// item is one entry of the event queue. A nil event with a done channel is
// a barrier used by Flush.
type item struct {
	ev   reconcile.Event
	done chan struct{}
}

// Engine is the optimistic-update reconciliation engine.
type Engine struct {
	mu    sync.Mutex
	state State

	config Config
	clock  clock.Clock
	logger *slog.Logger

	store  *state.Store
	rec    *reconcile.Reconciler
	disp   *dispatch.Dispatcher
	poller *poller.Poller

	queue   chan item
	stopped chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New creates an Engine for the given controller.
func New(dev device.Device, cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	e := &Engine{
		config:  cfg,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		queue:   make(chan item, cfg.QueueSize),
		stopped: make(chan struct{}),
	}

	store, w := state.New()
	e.store = store
	e.rec = reconcile.New(w, reconcile.Config{
		Clock:  cfg.Clock,
		Grace:  cfg.Grace,
		Post:   e.post,
		Logger: cfg.Logger,
		Trace:  cfg.Trace,
	})
	e.disp = dispatch.New(dev, dispatch.Config{
		Clock:   cfg.Clock,
		Timeout: cfg.CommandTimeout,
		Post:    e.post,
		Logger:  cfg.Logger,
	})
	e.poller = poller.New(dev, poller.Config{
		Clock:  cfg.Clock,
		Post:   e.post,
		Logger: cfg.Logger,
	})
	return e
}

// Start launches the event loop and, if configured, the poller.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.loop(ctx)

	if e.config.PollInterval > 0 {
		if err := e.poller.Start(ctx, e.config.PollInterval); err != nil {
			cancel()
			<-e.done
			return err
		}
	}

	e.state = StateRunning
	e.debugLog("engine started", "poll_interval", e.config.PollInterval)
	return nil
}

// Stop stops the poller and the event loop and cancels all grace timers.
// Events still queued are discarded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return ErrNotStarted
	}
	e.state = StateStopped
	e.mu.Unlock()

	e.poller.Stop()
	e.cancel()
	<-e.done
	e.rec.Close()

	e.debugLog("engine stopped")
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IngestSnapshot feeds one full state document into the reconciler.
func (e *Engine) IngestSnapshot(raw map[string]any, ts time.Time) {
	e.post(reconcile.SnapshotReceived{Values: raw, At: ts})
}

// IssueWrite drives a field to value through the dispatcher. The optimistic
// value is queued before the command is sent; the call returns once the
// controller answered, the command timed out or ctx was cancelled.
func (e *Engine) IssueWrite(ctx context.Context, id field.ID, value any) (dispatch.Outcome, error) {
	if e.State() != StateRunning {
		return dispatch.OutcomeInvalid, ErrNotStarted
	}
	return e.disp.Issue(ctx, id, value)
}

// Refresh polls the controller once outside the regular schedule.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.poller.PollOnce(ctx)
}

// Subscribe registers a listener for store notifications. Listeners run on
// the event-loop goroutine and must not block. They may read the store and
// call Pending.
func (e *Engine) Subscribe(l state.Listener) (cancel func()) {
	return e.store.Subscribe(l)
}

// Store returns the field state store for reading.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Connection returns the controller connection status.
func (e *Engine) Connection() state.Connection {
	return e.store.Connection()
}

// Pending returns the current pending write of a field.
func (e *Engine) Pending(id field.ID) (reconcile.PendingWrite, bool) {
	return e.rec.Pending(id)
}

// PollStats returns the number of polls and failed polls.
func (e *Engine) PollStats() (polls, failures uint64) {
	return e.poller.Stats()
}

// Flush waits until every event queued before the call has been processed.
func (e *Engine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case e.queue <- item{done: done}:
	case <-e.stopped:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post enqueues an event. Events posted after Stop are dropped.
func (e *Engine) post(ev reconcile.Event) {
	select {
	case e.queue <- item{ev: ev}:
	case <-e.stopped:
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)
	defer close(e.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case it := <-e.queue:
			if it.ev != nil {
				e.handle(it.ev)
			}
			if it.done != nil {
				close(it.done)
			}
		}
	}
}

func (e *Engine) handle(ev reconcile.Event) {
	err := e.rec.Handle(ev)
	switch {
	case err == nil:
	case errors.Is(err, reconcile.ErrWriteSuperseded):
		e.debugLog("ignoring outcome", "error", err)
	default:
		if e.logger != nil {
			e.logger.Warn("reconcile failed", "error", err)
		}
	}
}

func (e *Engine) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
