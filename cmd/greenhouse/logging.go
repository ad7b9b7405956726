package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Journal modes accepted by -log-journal and log.journal.
const (
	journalAuto = "auto"
	journalOn   = "on"
	journalOff  = "off"
)

// newLogger builds the operational logger. Under systemd the terminal
// handler is skipped and records go to the journal only.
func newLogger(w io.Writer, level *slog.LevelVar, journal string) *slog.Logger {
	var handlers []slog.Handler

	mode := strings.ToLower(journal)
	if mode == "" {
		mode = journalAuto
	}
	underSystemd := runningAsService()

	var terminal slog.Handler
	if !(underSystemd && mode != journalOff) {
		terminal = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, terminal)
	}

	if mode == journalOn || (mode == journalAuto && underSystemd) {
		jh, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal == nil {
				terminal = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
				handlers = append(handlers, terminal)
			}
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err)
			_ = terminal.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, jh)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// toJournalKey maps an attribute key to a valid journal field name.
func toJournalKey(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
}

func runningAsService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}

// switchWriter lets the log destination move to the console once it exists.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
