package reconcile

import (
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// Event is one input to the reconciler.
type Event interface {
	event()
}

// SnapshotReceived carries one full poll result, keyed by device key.
type SnapshotReceived struct {
	Values map[string]any
	At     time.Time
}

// PollFailed reports that a poll could not fetch the controller state.
type PollFailed struct {
	Err error
	At  time.Time
}

// WriteIssued registers a new pending write before its command is sent.
type WriteIssued struct {
	WriteID string
	Field   field.ID
	Target  any
	At      time.Time
}

// WriteAcknowledged reports that the controller accepted a command.
type WriteAcknowledged struct {
	WriteID string
	Field   field.ID
	At      time.Time
}

// WriteFailed reports that a command was rejected or timed out.
type WriteFailed struct {
	WriteID string
	Field   field.ID
	Err     error
	At      time.Time
}

// GraceExpired is posted by a grace timer when a confirmed write's window
// elapses.
type GraceExpired struct {
	WriteID string
	Field   field.ID
}

func (SnapshotReceived) event()  {}
func (PollFailed) event()        {}
func (WriteIssued) event()       {}
func (WriteAcknowledged) event() {}
func (WriteFailed) event()       {}
func (GraceExpired) event()      {}
