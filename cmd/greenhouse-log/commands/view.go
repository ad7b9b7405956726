// Package commands implements the greenhouse-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Source   *log.Source
	Category *log.Category
	Field    string
	WriteID  string
}

// toFilter converts the view criteria into a reader filter.
func (f ViewFilter) toFilter() log.Filter {
	return log.Filter{
		Source:   f.Source,
		Category: f.Category,
		Field:    f.Field,
		WriteID:  f.WriteID,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] SOURCE CATEGORY label
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
	session := shortenID(event.SessionID)

	label := eventLabel(event)
	if event.Field != "" {
		label += " " + event.Field
	}
	fmt.Fprintf(w, "%s [%s] %-10s %-10s %s\n", ts, session, event.Source, event.Category, label)

	switch {
	case event.Snapshot != nil:
		formatSnapshotDetails(w, event.Snapshot)
	case event.Write != nil:
		formatWriteDetails(w, event.WriteID, event.Write)
	case event.Connection != nil:
		formatConnectionDetails(w, event.Connection)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventLabel names the event for headers and exports.
func eventLabel(event log.Event) string {
	switch {
	case event.Snapshot != nil:
		return "Snapshot"
	case event.Write != nil:
		return event.Write.Transition.String()
	case event.Connection != nil:
		if event.Connection.Connected {
			return "Connected"
		}
		return "Disconnected"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of an ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatSnapshotDetails(w io.Writer, snap *log.SnapshotEvent) {
	if !snap.TakenAt.IsZero() {
		fmt.Fprintf(w, "  TakenAt: %s\n", snap.TakenAt.UTC().Format("15:04:05.000"))
	}
	keys := make([]string, 0, len(snap.Values))
	for k := range snap.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %s\n", k, field.Format(snap.Values[k]))
	}
	if len(snap.Held) > 0 {
		fmt.Fprintf(w, "  Held: %s\n", strings.Join(snap.Held, ", "))
	}
}

func formatWriteDetails(w io.Writer, writeID string, we *log.WriteEvent) {
	if writeID != "" {
		fmt.Fprintf(w, "  WriteID: %s\n", writeID)
	}
	if we.Target != nil {
		fmt.Fprintf(w, "  Target: %s\n", field.Format(we.Target))
	}
	fmt.Fprintf(w, "  Canonical: %s\n", field.Format(we.Canonical))
	if we.ExpiresAt != nil {
		fmt.Fprintf(w, "  ExpiresAt: %s\n", we.ExpiresAt.UTC().Format("15:04:05.000"))
	}
	if we.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", we.Reason)
	}
}

func formatConnectionDetails(w io.Writer, ce *log.ConnectionEvent) {
	if ce.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", ce.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Source: %s\n", err.Source)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseSourceFlag parses a source string from command-line flag (case-insensitive).
func ParseSourceFlag(s string) (log.Source, error) {
	for _, src := range []log.Source{log.SourcePoller, log.SourceDispatcher, log.SourceReconciler, log.SourceTimer} {
		if strings.EqualFold(s, src.String()) {
			return src, nil
		}
	}
	return 0, fmt.Errorf("invalid source: %s (must be poller, dispatcher, reconciler, or timer)", s)
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	for _, c := range []log.Category{log.CategorySnapshot, log.CategoryWrite, log.CategoryConnection, log.CategoryError} {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid category: %s (must be snapshot, write, connection, or error)", s)
}

// ParseFieldFlag validates a field key and returns its canonical spelling.
func ParseFieldFlag(s string) (string, error) {
	id, err := field.Parse(s)
	if err != nil {
		return "", err
	}
	return id.Key(), nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
