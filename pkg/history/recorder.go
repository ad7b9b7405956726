package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// recorderQueueSize bounds the samples waiting to be written.
const recorderQueueSize = 256

type sample struct {
	id    field.ID
	at    time.Time
	value any
}

// Recorder writes device-reported value changes to a Store. Listen is meant
// to be registered with state.Store.Subscribe; writes happen on the goroutine
// running Run so the event loop never waits for SQLite.
type Recorder struct {
	store     *Store
	logger    *slog.Logger
	retention time.Duration
	queue     chan sample
}

// NewRecorder creates a Recorder. A positive retention prunes older values
// once per hour while Run is active.
func NewRecorder(store *Store, retention time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		logger:    logger,
		retention: retention,
		queue:     make(chan sample, recorderQueueSize),
	}
}

// Listen queues values reported by the controller. That covers value
// changes and snapshots confirming an optimistic value, which only flip the
// source. Optimistic values are skipped; if the queue is full the sample is
// dropped.
func (r *Recorder) Listen(n state.Notification) {
	if n.Type != state.NotifyValue && n.Type != state.NotifyPending {
		return
	}
	if n.State.Source != state.SourceDevice {
		return
	}
	at := n.At
	if at.IsZero() {
		at = n.State.UpdatedAt
	}
	select {
	case r.queue <- sample{id: n.Field, at: at, value: n.State.Value}:
	default:
		if r.logger != nil {
			r.logger.Warn("history queue full, dropping sample", "field", n.Field)
		}
	}
}

// Run writes queued samples until ctx is cancelled, then drains the queue.
func (r *Recorder) Run(ctx context.Context) error {
	var prune <-chan time.Time
	if r.retention > 0 {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		prune = ticker.C
		r.prune()
	}

	for {
		select {
		case s := <-r.queue:
			r.write(s)
		case <-prune:
			r.prune()
		case <-ctx.Done():
			for {
				select {
				case s := <-r.queue:
					r.write(s)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(s sample) {
	if err := r.store.Record(s.id, s.at, s.value); err != nil && r.logger != nil {
		r.logger.Warn("failed to record value", "field", s.id, "error", err)
	}
}

func (r *Recorder) prune() {
	n, err := r.store.Prune(time.Now().Add(-r.retention))
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Warn("failed to prune history", "error", err)
		return
	}
	if n > 0 {
		r.logger.Debug("pruned history", "removed", n)
	}
}
