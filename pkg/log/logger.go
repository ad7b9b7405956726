package log

// Logger is the interface applications implement to receive trace events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records a trace event. Implementations must be thread-safe.
	// The event should be processed quickly; the reconciler calls Log inline.
	Log(event Event)
}

// NoopLogger discards all events. Use when tracing is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// SessionLogger stamps every event with a session ID before forwarding it.
type SessionLogger struct {
	next      Logger
	sessionID string
}

// WithSession returns a Logger that sets SessionID on events that lack one.
func WithSession(next Logger, sessionID string) *SessionLogger {
	return &SessionLogger{next: next, sessionID: sessionID}
}

// Log forwards the event with the session ID set.
func (s *SessionLogger) Log(event Event) {
	if event.SessionID == "" {
		event.SessionID = s.sessionID
	}
	s.next.Log(event)
}

// Compile-time interface satisfaction check.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*SessionLogger)(nil)
)
