package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
)

func TestStats(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	events := []log.Event{
		{
			Timestamp: start,
			SessionID: "session-a",
			Source:    log.SourcePoller,
			Category:  log.CategorySnapshot,
			Snapshot: &log.SnapshotEvent{
				TakenAt: start,
				Values:  map[string]any{"temperature": 21.0},
			},
		},
	}
	events = append(events, writeLifecycle(start.Add(time.Second), "session-a", "setpointTemp", "w-1", 25.5)...)
	events = append(events, writeLifecycle(start.Add(time.Minute), "session-a", "setpointTemp", "w-2", 26.0)...)
	events = append(events,
		log.Event{
			Timestamp: start.Add(2 * time.Minute),
			SessionID: "session-b",
			Source:    log.SourcePoller,
			Category:  log.CategorySnapshot,
			Snapshot: &log.SnapshotEvent{
				TakenAt: start.Add(2 * time.Minute),
				Values:  map[string]any{"bulbOn": false},
				Held:    []string{"bulbOn"},
			},
		},
		log.Event{
			Timestamp: start.Add(3 * time.Minute),
			SessionID: "session-b",
			Source:    log.SourceDispatcher,
			Category:  log.CategoryWrite,
			Field:     "bulbOn",
			WriteID:   "w-3",
			Write:     &log.WriteEvent{Transition: log.TransitionFailed, Target: true, Canonical: false, Reason: "TIMED_OUT"},
		},
		log.Event{
			Timestamp:  start.Add(4 * time.Minute),
			SessionID:  "session-b",
			Source:     log.SourcePoller,
			Category:   log.CategoryConnection,
			Connection: &log.ConnectionEvent{Connected: false, Reason: "timeout"},
		},
		log.Event{
			Timestamp: start.Add(5 * time.Minute),
			SessionID: "session-b",
			Source:    log.SourcePoller,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Source: log.SourcePoller, Message: "bad value"},
		},
	)

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"=== Greenhouse Trace Statistics ===",
		"Total Events: 11",
		"Sessions:     2",
		"Snapshots:    2",
		"DISPATCHER:",
		"RECONCILER:",
		"ISSUED:",
		"EARLY_CONFIRMED:",
		"FAILED:",
		"setpointTemp   issued 2, early-confirmed 2, failed 0, held 0, mean settle 2.000s",
		"bulbOn         issued 0, early-confirmed 0, failed 1, held 1",
		"Disconnects: 1",
		"Errors: 1",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q:\n%s", s, output)
		}
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Total Events: 0") {
		t.Errorf("expected zero events:\n%s", output)
	}
	if strings.Contains(output, "Time Range") {
		t.Errorf("empty file should not print a time range:\n%s", output)
	}
}

func TestFieldStatsMeanSettle(t *testing.T) {
	var fs FieldStats
	if fs.MeanSettle() != 0 {
		t.Errorf("MeanSettle() = %v, want 0", fs.MeanSettle())
	}

	fs.settle = 3 * time.Second
	fs.settled = 2
	if got := fs.MeanSettle(); got != 1500*time.Millisecond {
		t.Errorf("MeanSettle() = %v, want 1.5s", got)
	}
}
