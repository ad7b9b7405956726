// Package dispatch sends operator writes to the controller.
//
// Issue registers the write with the reconciler before the command goes out,
// so the optimistic value is visible immediately, and reports the outcome
// (acknowledged, rejected, timed out, failed) back as a reconciler event.
// Failed writes are never retried.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
)

// DefaultTimeout is the bounded wait for a single command.
const DefaultTimeout = device.DefaultTimeout

// Outcome is the result of one write.
type Outcome uint8

const (
	// OutcomeInvalid means the write was refused before anything was sent.
	OutcomeInvalid Outcome = iota
	// OutcomeAcknowledged means the controller accepted the command.
	OutcomeAcknowledged
	// OutcomeRejected means the controller answered with a failure.
	OutcomeRejected
	// OutcomeTimedOut means no answer arrived within the timeout.
	OutcomeTimedOut
	// OutcomeFailed means the controller could not be reached.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "INVALID"
	case OutcomeAcknowledged:
		return "ACKNOWLEDGED"
	case OutcomeRejected:
		return "REJECTED"
	case OutcomeTimedOut:
		return "TIMED_OUT"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomeInvalid; c <= OutcomeFailed; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Config configures a Dispatcher.
type Config struct {
	// Clock bounds the wait for a command. Defaults to the real clock.
	Clock clock.Clock

	// Timeout is the bounded wait per command. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Post delivers reconciler events, in order, to the event loop.
	Post func(reconcile.Event)

	// NewID generates write IDs. Defaults to random UUIDs.
	NewID func() string

	// Logger is the optional operational logger.
	Logger *slog.Logger
}

// Dispatcher sends commands and reports their outcome to the reconciler.
// It is safe for concurrent use.
type Dispatcher struct {
	dev     device.Commander
	clock   clock.Clock
	timeout time.Duration
	post    func(reconcile.Event)
	newID   func() string
	logger  *slog.Logger
}

// New creates a Dispatcher that sends commands through dev.
func New(dev device.Commander, cfg Config) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Post == nil {
		cfg.Post = func(reconcile.Event) {}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Dispatcher{
		dev:     dev,
		clock:   cfg.Clock,
		timeout: cfg.Timeout,
		post:    cfg.Post,
		newID:   cfg.NewID,
		logger:  cfg.Logger,
	}
}

// Timeout returns the bounded wait per command.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Issue drives a field to target. Invalid writes (unknown or read-only field,
// wrong type, out of range) return OutcomeInvalid and are never registered.
// Every other write is registered before sending and resolved exactly once.
func (d *Dispatcher) Issue(ctx context.Context, id field.ID, target any) (Outcome, error) {
	cmd, err := field.BuildCommand(id, target)
	if err != nil {
		return OutcomeInvalid, err
	}

	writeID := d.newID()
	d.post(reconcile.WriteIssued{
		WriteID: writeID,
		Field:   id,
		Target:  cmd.Target,
		At:      d.clock.Now(),
	})
	d.debugLog("sending command", "write_id", writeID, "command", cmd.String())

	err = d.send(ctx, cmd)
	if err == nil {
		d.post(reconcile.WriteAcknowledged{WriteID: writeID, Field: id, At: d.clock.Now()})
		return OutcomeAcknowledged, nil
	}

	d.post(reconcile.WriteFailed{WriteID: writeID, Field: id, Err: err, At: d.clock.Now()})
	outcome := classify(err)
	if d.logger != nil {
		d.logger.Warn("command failed", "write_id", writeID, "field", id, "outcome", outcome, "error", err)
	}
	return outcome, err
}

// send runs the command with a bounded wait measured on the dispatcher clock.
func (d *Dispatcher) send(ctx context.Context, cmd field.Command) error {
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.dev.Send(sendCtx, cmd)
	}()

	timer := d.clock.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C():
		return fmt.Errorf("%w: %s after %s", device.ErrCommandTimeout, cmd.Path, d.timeout)
	}
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, device.ErrCommandTimeout):
		return OutcomeTimedOut
	case errors.Is(err, device.ErrCommandRejected):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

func (d *Dispatcher) debugLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
