package reconcile

import (
	"errors"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// Reconciler errors.
var (
	// ErrWriteSuperseded is returned for outcomes of a write that is no
	// longer the current write of its field. It is internal and never shown
	// to the operator.
	ErrWriteSuperseded = errors.New("write superseded")

	// ErrUnknownEvent is returned by Handle for unsupported event types.
	ErrUnknownEvent = errors.New("unknown event")
)

// Status is the state of a pending write.
type Status uint8

const (
	// StatusInFlight means the command has been sent but not answered.
	StatusInFlight Status = iota
	// StatusConfirmed means the controller acknowledged the command and
	// the grace window was restarted.
	StatusConfirmed
	// StatusFailed means the command was rejected or timed out.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusInFlight:
		return "IN_FLIGHT"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// PendingWrite is an issued but not yet settled write for one field.
type PendingWrite struct {
	ID     string
	Field  field.ID
	Target any
	Status Status

	IssuedAt time.Time

	// ExpiresAt is the end of the grace window. It is set at issue and
	// moved forward on acknowledgment.
	ExpiresAt time.Time
}

// Active reports whether the write currently governs the canonical value.
func (w *PendingWrite) Active(now time.Time) bool {
	switch w.Status {
	case StatusInFlight, StatusConfirmed:
		return now.Before(w.ExpiresAt)
	default:
		return false
	}
}
