package log

import (
	"time"
)

// Event represents one trace event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event was processed (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one engine run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Source is the component that produced the event.
	Source Source `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Field is the field key for field-scoped events.
	Field string `cbor:"5,keyasint,omitempty"`

	// WriteID identifies the pending write for write events.
	WriteID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Snapshot   *SnapshotEvent   `cbor:"10,keyasint,omitempty"`
	Write      *WriteEvent      `cbor:"11,keyasint,omitempty"`
	Connection *ConnectionEvent `cbor:"12,keyasint,omitempty"`
	Error      *ErrorEventData  `cbor:"13,keyasint,omitempty"`
}

// Source indicates which component produced an event.
type Source uint8

const (
	// SourcePoller is the periodic state fetch.
	SourcePoller Source = 0
	// SourceDispatcher is the command dispatcher.
	SourceDispatcher Source = 1
	// SourceReconciler is the reconciliation step itself.
	SourceReconciler Source = 2
	// SourceTimer is a grace-window timer.
	SourceTimer Source = 3
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourcePoller:
		return "POLLER"
	case SourceDispatcher:
		return "DISPATCHER"
	case SourceReconciler:
		return "RECONCILER"
	case SourceTimer:
		return "TIMER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategorySnapshot indicates a processed poll result.
	CategorySnapshot Category = 0
	// CategoryWrite indicates a pending write transition.
	CategoryWrite Category = 1
	// CategoryConnection indicates a connection status change.
	CategoryConnection Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySnapshot:
		return "SNAPSHOT"
	case CategoryWrite:
		return "WRITE"
	case CategoryConnection:
		return "CONNECTION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SnapshotEvent captures one processed poll result.
type SnapshotEvent struct {
	// TakenAt is when the snapshot was fetched.
	TakenAt time.Time `cbor:"1,keyasint"`

	// Values are the normalized snapshot values keyed by field key.
	Values map[string]any `cbor:"2,keyasint,omitempty"`

	// Held lists fields whose snapshot value was ignored because an
	// unexpired optimistic write was pending.
	Held []string `cbor:"3,keyasint,omitempty"`
}

// WriteEvent captures a pending write transition.
type WriteEvent struct {
	// Transition is the state machine step that occurred.
	Transition Transition `cbor:"1,keyasint"`

	// Target is the optimistic target value.
	Target any `cbor:"2,keyasint,omitempty"`

	// Canonical is the canonical value after the step.
	Canonical any `cbor:"3,keyasint,omitempty"`

	// ExpiresAt is the grace-window expiry (Issued and Acknowledged only).
	ExpiresAt *time.Time `cbor:"4,keyasint,omitempty"`

	// Reason carries the failure cause (Failed only).
	Reason string `cbor:"5,keyasint,omitempty"`
}

// Transition is a pending write state machine step.
type Transition uint8

const (
	// TransitionIssued: None -> InFlight.
	TransitionIssued Transition = 0
	// TransitionAcknowledged: InFlight -> Confirmed (grace running).
	TransitionAcknowledged Transition = 1
	// TransitionFailed: InFlight/Confirmed -> Failed -> None, canonical reverted.
	TransitionFailed Transition = 2
	// TransitionEarlyConfirmed: a snapshot matched the target -> None.
	TransitionEarlyConfirmed Transition = 3
	// TransitionExpired: grace elapsed -> None, canonical reverted.
	TransitionExpired Transition = 4
	// TransitionSuperseded: a newer write replaced this one.
	TransitionSuperseded Transition = 5
	// TransitionStale: an outcome arrived for a write that is no longer current.
	TransitionStale Transition = 6
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case TransitionIssued:
		return "ISSUED"
	case TransitionAcknowledged:
		return "ACKNOWLEDGED"
	case TransitionFailed:
		return "FAILED"
	case TransitionEarlyConfirmed:
		return "EARLY_CONFIRMED"
	case TransitionExpired:
		return "EXPIRED"
	case TransitionSuperseded:
		return "SUPERSEDED"
	case TransitionStale:
		return "STALE"
	default:
		return "UNKNOWN"
	}
}

// ConnectionEvent captures a connection status change.
type ConnectionEvent struct {
	// Connected is the new status.
	Connected bool `cbor:"1,keyasint"`

	// Reason explains a disconnect.
	Reason string `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures errors from any component.
type ErrorEventData struct {
	// Source where the error occurred.
	Source Source `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
