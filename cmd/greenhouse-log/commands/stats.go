package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsBySource   map[log.Source]int
	EventsByCategory map[log.Category]int
	Transitions      map[log.Transition]int
	Fields           map[string]*FieldStats
	Sessions         map[string]int
	Snapshots        int
	Disconnects      int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// FieldStats holds write statistics for one field.
type FieldStats struct {
	Issued    int
	Confirmed int
	Failed    int
	Held      int

	// settle is the total time from issue to early confirmation.
	settle   time.Duration
	issuedAt map[string]time.Time
	settled  int
}

// MeanSettle returns the mean time from issue to early confirmation.
func (f *FieldStats) MeanSettle() time.Duration {
	if f.settled == 0 {
		return 0
	}
	return f.settle / time.Duration(f.settled)
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsBySource:   make(map[log.Source]int),
		EventsByCategory: make(map[log.Category]int),
		Transitions:      make(map[log.Transition]int),
		Fields:           make(map[string]*FieldStats),
		Sessions:         make(map[string]int),
	}
}

func (s *Stats) field(key string) *FieldStats {
	fs, ok := s.Fields[key]
	if !ok {
		fs = &FieldStats{issuedAt: make(map[string]time.Time)}
		s.Fields[key] = fs
	}
	return fs
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsBySource[event.Source]++
	s.EventsByCategory[event.Category]++
	s.Sessions[event.SessionID]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	switch {
	case event.Snapshot != nil:
		s.Snapshots++
		for _, key := range event.Snapshot.Held {
			s.field(key).Held++
		}

	case event.Write != nil:
		s.Transitions[event.Write.Transition]++
		if event.Field == "" {
			return
		}
		fs := s.field(event.Field)
		switch event.Write.Transition {
		case log.TransitionIssued:
			fs.Issued++
			fs.issuedAt[event.WriteID] = event.Timestamp
		case log.TransitionEarlyConfirmed:
			fs.Confirmed++
			if at, ok := fs.issuedAt[event.WriteID]; ok {
				fs.settle += event.Timestamp.Sub(at)
				fs.settled++
				delete(fs.issuedAt, event.WriteID)
			}
		case log.TransitionFailed:
			fs.Failed++
			delete(fs.issuedAt, event.WriteID)
		case log.TransitionExpired, log.TransitionSuperseded:
			delete(fs.issuedAt, event.WriteID)
		}

	case event.Connection != nil:
		if !event.Connection.Connected {
			s.Disconnects++
		}

	case event.Error != nil:
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Greenhouse Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Sessions:     %d\n", len(stats.Sessions))
	fmt.Fprintf(w, "Snapshots:    %d\n", stats.Snapshots)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Source:")
	for _, src := range []log.Source{log.SourcePoller, log.SourceDispatcher, log.SourceReconciler, log.SourceTimer} {
		if count := stats.EventsBySource[src]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", src.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategorySnapshot, log.CategoryWrite, log.CategoryConnection, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Transitions) > 0 {
		fmt.Fprintln(w, "Write Transitions:")
		for t := log.TransitionIssued; t <= log.TransitionStale; t++ {
			if count := stats.Transitions[t]; count > 0 {
				fmt.Fprintf(w, "  %-17s %d\n", t.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	if len(stats.Fields) > 0 {
		keys := make([]string, 0, len(stats.Fields))
		for k := range stats.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w, "Fields:")
		for _, k := range keys {
			fs := stats.Fields[k]
			fmt.Fprintf(w, "  %-14s issued %d, early-confirmed %d, failed %d, held %d",
				k, fs.Issued, fs.Confirmed, fs.Failed, fs.Held)
			if d := fs.MeanSettle(); d > 0 {
				fmt.Fprintf(w, ", mean settle %s", formatDuration(d))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if stats.Disconnects > 0 {
		fmt.Fprintf(w, "Disconnects: %d\n", stats.Disconnects)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
