package engine

import (
	"errors"
	"log/slog"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
	"github.com/siriussoftware2024/controlinvernadero/pkg/poller"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
)

// Engine errors.
var (
	ErrNotStarted     = errors.New("engine not started")
	ErrAlreadyStarted = errors.New("engine already started")
)

// DefaultQueueSize is the event queue capacity.
const DefaultQueueSize = 64

// State is the engine lifecycle state.
type State uint8

const (
	// StateIdle - engine created but not started.
	StateIdle State = iota

	// StateRunning - event loop and poller are running.
	StateRunning

	// StateStopped - engine has stopped.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures an Engine.
type Config struct {
	// Clock is shared by the poller, dispatcher and grace timers.
	Clock clock.Clock

	// PollInterval is the poll period. Zero disables the poller; snapshots
	// can then only be supplied through IngestSnapshot.
	PollInterval time.Duration

	// CommandTimeout bounds each command. Defaults to dispatch.DefaultTimeout.
	CommandTimeout time.Duration

	// Grace holds the grace window durations.
	Grace reconcile.GraceConfig

	// QueueSize is the event queue capacity. Defaults to DefaultQueueSize.
	QueueSize int

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// Trace receives reconciler trace events.
	Trace log.Logger
}

// DefaultConfig returns the configuration of the original dashboard:
// 2s polling, 10s command timeout and a 3s grace window.
func DefaultConfig() Config {
	return Config{
		PollInterval:   poller.DefaultInterval,
		CommandTimeout: dispatch.DefaultTimeout,
		Grace:          reconcile.DefaultGraceConfig(),
		QueueSize:      DefaultQueueSize,
	}
}
