package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("source", event.Source.String()),
		slog.String("category", event.Category.String()),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.Field != "" {
		attrs = append(attrs, slog.String("field", event.Field))
	}
	if event.WriteID != "" {
		attrs = append(attrs, slog.String("write_id", event.WriteID))
	}

	switch {
	case event.Snapshot != nil:
		attrs = append(attrs, slog.Int("values", len(event.Snapshot.Values)))
		if len(event.Snapshot.Held) > 0 {
			attrs = append(attrs, slog.Any("held", event.Snapshot.Held))
		}
	case event.Write != nil:
		attrs = append(attrs, slog.String("transition", event.Write.Transition.String()))
		if event.Write.Target != nil {
			attrs = append(attrs, slog.String("target", fmt.Sprint(event.Write.Target)))
		}
		if event.Write.Canonical != nil {
			attrs = append(attrs, slog.String("canonical", fmt.Sprint(event.Write.Canonical)))
		}
		if event.Write.ExpiresAt != nil {
			attrs = append(attrs, slog.Time("expires_at", *event.Write.ExpiresAt))
		}
		if event.Write.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Write.Reason))
		}
	case event.Connection != nil:
		attrs = append(attrs, slog.Bool("connected", event.Connection.Connected))
		if event.Connection.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Connection.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_source", event.Error.Source.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
