package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBufferedAdapter() (*SlogAdapter, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(h)), &buf
}

func TestSlogAdapterWriteEvent(t *testing.T) {
	adapter, buf := newBufferedAdapter()
	expires := time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC)

	adapter.Log(Event{
		Timestamp: time.Now(),
		Source:    SourceDispatcher,
		Category:  CategoryWrite,
		Field:     "bulbOn",
		WriteID:   "w-1",
		Write: &WriteEvent{
			Transition: TransitionAcknowledged,
			Target:     true,
			Canonical:  true,
			ExpiresAt:  &expires,
		},
	})

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG",
		"msg=trace",
		"source=DISPATCHER",
		"category=WRITE",
		"field=bulbOn",
		"write_id=w-1",
		"transition=ACKNOWLEDGED",
		"target=true",
		"expires_at=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterSnapshotEvent(t *testing.T) {
	adapter, buf := newBufferedAdapter()

	adapter.Log(Event{
		Source:   SourcePoller,
		Category: CategorySnapshot,
		Snapshot: &SnapshotEvent{
			Values: map[string]any{"temperature": 20.0, "bulbOn": false},
			Held:   []string{"bulbOn"},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "values=2") {
		t.Errorf("output missing values count: %s", out)
	}
	if !strings.Contains(out, "held=") {
		t.Errorf("output missing held list: %s", out)
	}
}

func TestSlogAdapterConnectionAndError(t *testing.T) {
	adapter, buf := newBufferedAdapter()

	adapter.Log(Event{
		Source:     SourcePoller,
		Category:   CategoryConnection,
		Connection: &ConnectionEvent{Connected: false, Reason: "timeout"},
	})
	adapter.Log(Event{
		Source:   SourceReconciler,
		Category: CategoryError,
		Error:    &ErrorEventData{Source: SourceReconciler, Message: "boom", Context: "snapshot"},
	})

	out := buf.String()
	for _, want := range []string{"connected=false", "reason=timeout", "error_msg=boom", "error_context=snapshot"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	if SourceTimer.String() != "TIMER" || Source(99).String() != "UNKNOWN" {
		t.Error("unexpected Source strings")
	}
	if CategoryConnection.String() != "CONNECTION" || Category(99).String() != "UNKNOWN" {
		t.Error("unexpected Category strings")
	}
	if TransitionEarlyConfirmed.String() != "EARLY_CONFIRMED" || Transition(99).String() != "UNKNOWN" {
		t.Error("unexpected Transition strings")
	}
}
