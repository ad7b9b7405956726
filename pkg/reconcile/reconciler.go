package reconcile

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// Config configures a Reconciler.
type Config struct {
	// Clock provides time for grace windows. Defaults to the real clock.
	Clock clock.Clock

	// Grace holds the grace window durations.
	Grace GraceConfig

	// Post delivers GraceExpired events back to the event loop. If nil,
	// no grace timers are started and expiry is only detected when the
	// next snapshot arrives.
	Post func(Event)

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// Trace receives one trace event per state transition.
	Trace log.Logger
}

// Reconciler merges snapshots and write outcomes into the field state store.
type Reconciler struct {
	mu sync.Mutex

	w      *state.Writer
	clock  clock.Clock
	grace  GraceConfig
	post   func(Event)
	logger *slog.Logger
	trace  log.Logger

	// snapshot holds the last value reported by the controller per field.
	snapshot map[field.ID]any
	seen     map[field.ID]bool

	// wmu guards writes against Pending. Handle mutates writes under both
	// locks and never holds wmu while notifying store listeners, so a
	// listener may call Pending.
	wmu    sync.RWMutex
	writes map[field.ID]*PendingWrite
	timers map[field.ID]*graceTimer
}

// New creates a Reconciler that owns the given store writer.
func New(w *state.Writer, cfg Config) *Reconciler {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.Trace == nil {
		cfg.Trace = log.NoopLogger{}
	}
	return &Reconciler{
		w:        w,
		clock:    cfg.Clock,
		grace:    cfg.Grace,
		post:     cfg.Post,
		logger:   cfg.Logger,
		trace:    cfg.Trace,
		snapshot: make(map[field.ID]any),
		seen:     make(map[field.ID]bool),
		writes:   make(map[field.ID]*PendingWrite),
		timers:   make(map[field.ID]*graceTimer),
	}
}

// Handle processes one event to completion. It returns ErrWriteSuperseded
// for outcomes that no longer apply; the store is unchanged in that case.
func (r *Reconciler) Handle(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case SnapshotReceived:
		r.handleSnapshot(e)
		return nil
	case PollFailed:
		r.handlePollFailed(e)
		return nil
	case WriteIssued:
		r.handleIssued(e)
		return nil
	case WriteAcknowledged:
		return r.handleAcknowledged(e)
	case WriteFailed:
		return r.handleFailed(e)
	case GraceExpired:
		return r.handleExpired(e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

// Pending returns a copy of the current pending write for a field. It is
// safe to call from a store listener.
func (r *Reconciler) Pending(id field.ID) (PendingWrite, bool) {
	r.wmu.RLock()
	defer r.wmu.RUnlock()
	pw, ok := r.writes[id]
	if !ok {
		return PendingWrite{}, false
	}
	return *pw, true
}

// Close cancels all running grace timers.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.cancel()
		delete(r.timers, id)
	}
}

func (r *Reconciler) handleSnapshot(e SnapshotReceived) {
	now := r.clock.Now()
	values := r.normalize(e.Values)

	r.w.SetConnected(e.At)

	ids := make([]field.ID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var held []string
	for _, id := range ids {
		v := values[id]
		r.snapshot[id] = v
		r.seen[id] = true

		pw, ok := r.writes[id]
		switch {
		case !ok:
			r.w.Set(id, v, state.SourceDevice, false, now)
		case !pw.Active(now):
			r.clear(id)
			r.w.Set(id, v, state.SourceDevice, false, now)
			r.traceWrite(pw, log.TransitionExpired, v, "")
			r.debugLog("grace window elapsed on snapshot", "field", id, "write_id", pw.ID)
		case field.Equal(id, v, pw.Target):
			r.clear(id)
			r.w.Set(id, v, state.SourceDevice, false, now)
			r.traceWrite(pw, log.TransitionEarlyConfirmed, v, "")
			r.debugLog("write early-confirmed", "field", id, "write_id", pw.ID)
		default:
			held = append(held, id.Key())
		}
	}

	snapshotValues := make(map[string]any, len(values))
	for id, v := range values {
		snapshotValues[id.Key()] = v
	}
	r.trace.Log(log.Event{
		Timestamp: now,
		Source:    log.SourcePoller,
		Category:  log.CategorySnapshot,
		Snapshot: &log.SnapshotEvent{
			TakenAt: e.At,
			Values:  snapshotValues,
			Held:    held,
		},
	})
}

// normalize maps device keys to fields. Unknown keys and malformed values
// are skipped; the field keeps its current value.
func (r *Reconciler) normalize(raw map[string]any) map[field.ID]any {
	out := make(map[field.ID]any, len(raw))
	for key, rv := range raw {
		id, err := field.Parse(key)
		if err != nil {
			r.debugLog("ignoring unknown snapshot key", "key", key)
			continue
		}
		v, err := field.Normalize(id, rv)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("ignoring malformed snapshot value", "field", id, "error", err)
			}
			continue
		}
		out[id] = v
	}
	return out
}

func (r *Reconciler) handlePollFailed(e PollFailed) {
	r.w.SetDisconnected(e.Err, e.At)

	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	r.trace.Log(log.Event{
		Timestamp:  r.clock.Now(),
		Source:     log.SourcePoller,
		Category:   log.CategoryConnection,
		Connection: &log.ConnectionEvent{Connected: false, Reason: reason},
	})
}

func (r *Reconciler) handleIssued(e WriteIssued) {
	now := r.clock.Now()

	if old, ok := r.writes[e.Field]; ok {
		r.clear(e.Field)
		r.traceWrite(old, log.TransitionSuperseded, e.Target, "")
		r.debugLog("write superseded", "field", e.Field, "write_id", old.ID, "by", e.WriteID)
	}

	pw := &PendingWrite{
		ID:       e.WriteID,
		Field:    e.Field,
		Target:   e.Target,
		Status:   StatusInFlight,
		IssuedAt: e.At,
	}
	r.update(func() { r.writes[e.Field] = pw })
	r.arm(pw, now)
	r.w.Set(e.Field, e.Target, state.SourceOptimistic, true, now)
	r.traceWrite(pw, log.TransitionIssued, e.Target, "")
}

func (r *Reconciler) handleAcknowledged(e WriteAcknowledged) error {
	pw, err := r.current(e.Field, e.WriteID)
	if err != nil {
		return err
	}

	r.update(func() { pw.Status = StatusConfirmed })
	d := r.arm(pw, r.clock.Now())

	r.traceWrite(pw, log.TransitionAcknowledged, pw.Target, "")
	r.debugLog("write acknowledged", "field", e.Field, "write_id", pw.ID, "grace", d)
	return nil
}

func (r *Reconciler) handleFailed(e WriteFailed) error {
	pw, err := r.current(e.Field, e.WriteID)
	if err != nil {
		return err
	}

	r.update(func() { pw.Status = StatusFailed })
	r.clear(e.Field)
	v := r.revert(e.Field)
	r.w.WriteError(e.Field, e.Err)

	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	r.traceWrite(pw, log.TransitionFailed, v, reason)
	if r.logger != nil {
		r.logger.Warn("write failed, reverted", "field", e.Field, "write_id", pw.ID, "error", e.Err)
	}
	return nil
}

func (r *Reconciler) handleExpired(e GraceExpired) error {
	pw, err := r.current(e.Field, e.WriteID)
	if err != nil {
		return err
	}
	now := r.clock.Now()
	if pw.Active(now) {
		// Window was restarted after this timer fired.
		return ErrWriteSuperseded
	}

	r.clear(e.Field)
	v := r.revert(e.Field)
	r.traceWrite(pw, log.TransitionExpired, v, "")
	r.debugLog("grace window elapsed", "field", e.Field, "write_id", pw.ID)
	return nil
}

// arm (re)starts the grace window of a write and returns its length.
func (r *Reconciler) arm(pw *PendingWrite, now time.Time) time.Duration {
	d := r.grace.For(pw.Field)
	r.update(func() { pw.ExpiresAt = now.Add(d) })

	if t, ok := r.timers[pw.Field]; ok {
		t.cancel()
		delete(r.timers, pw.Field)
	}
	if r.post != nil {
		r.timers[pw.Field] = startGraceTimer(r.clock, d,
			GraceExpired{WriteID: pw.ID, Field: pw.Field}, r.post)
	}
	return d
}

// current returns the pending write of a field if it has the given ID.
func (r *Reconciler) current(id field.ID, writeID string) (*PendingWrite, error) {
	pw, ok := r.writes[id]
	if !ok || pw.ID != writeID {
		r.trace.Log(log.Event{
			Timestamp: r.clock.Now(),
			Source:    log.SourceReconciler,
			Category:  log.CategoryWrite,
			Field:     id.Key(),
			WriteID:   writeID,
			Write:     &log.WriteEvent{Transition: log.TransitionStale},
		})
		return nil, fmt.Errorf("%w: %s write %s", ErrWriteSuperseded, id, writeID)
	}
	return pw, nil
}

// clear removes the pending write of a field and cancels its timer.
func (r *Reconciler) clear(id field.ID) {
	if t, ok := r.timers[id]; ok {
		t.cancel()
		delete(r.timers, id)
	}
	r.update(func() { delete(r.writes, id) })
}

// update applies a mutation of writes or of a PendingWrite under wmu.
func (r *Reconciler) update(fn func()) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	fn()
}

// revert sets a field back to its last snapshot value and returns it.
func (r *Reconciler) revert(id field.ID) any {
	v := r.snapshot[id]
	src := state.SourceNone
	if r.seen[id] {
		src = state.SourceDevice
	}
	r.w.Set(id, v, src, false, r.clock.Now())
	return v
}

func (r *Reconciler) traceWrite(pw *PendingWrite, tr log.Transition, canonical any, reason string) {
	src := log.SourceReconciler
	switch tr {
	case log.TransitionIssued, log.TransitionAcknowledged, log.TransitionFailed:
		src = log.SourceDispatcher
	case log.TransitionExpired:
		src = log.SourceTimer
	}

	we := &log.WriteEvent{
		Transition: tr,
		Target:     pw.Target,
		Canonical:  canonical,
		Reason:     reason,
	}
	if tr == log.TransitionIssued || tr == log.TransitionAcknowledged {
		expires := pw.ExpiresAt
		we.ExpiresAt = &expires
	}
	r.trace.Log(log.Event{
		Timestamp: r.clock.Now(),
		Source:    src,
		Category:  log.CategoryWrite,
		Field:     pw.Field.Key(),
		WriteID:   pw.ID,
		Write:     we,
	})
}

func (r *Reconciler) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
