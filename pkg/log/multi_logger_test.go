package log

import (
	"sync"
	"testing"
	"time"
)

type mockLogger struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockLogger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a := &mockLogger{}
	b := &mockLogger{}
	multi := NewMultiLogger(a, nil, b)

	multi.Log(Event{Timestamp: time.Now(), Field: "x"})
	multi.Log(Event{Timestamp: time.Now(), Field: "y"})

	if a.count() != 2 {
		t.Errorf("logger a: got %d events, want 2", a.count())
	}
	if b.count() != 2 {
		t.Errorf("logger b: got %d events, want 2", b.count())
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	multi := NewMultiLogger()
	multi.Log(Event{Timestamp: time.Now()})
}

func TestSessionLoggerStampsEvents(t *testing.T) {
	inner := &mockLogger{}
	logger := WithSession(inner, "session-42")

	logger.Log(Event{Field: "a"})
	logger.Log(Event{Field: "b", SessionID: "explicit"})

	if inner.events[0].SessionID != "session-42" {
		t.Errorf("first: got %q, want session-42", inner.events[0].SessionID)
	}
	if inner.events[1].SessionID != "explicit" {
		t.Errorf("second: got %q, want explicit", inner.events[1].SessionID)
	}
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{})
}
