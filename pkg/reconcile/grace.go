package reconcile

import (
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// DefaultGrace is the grace window used when nothing else is configured.
const DefaultGrace = 3 * time.Second

// GraceConfig holds the grace window durations. A duration is resolved per
// field first, then per kind, then Default.
type GraceConfig struct {
	Default  time.Duration
	PerKind  map[field.Kind]time.Duration
	PerField map[field.ID]time.Duration
}

// DefaultGraceConfig returns a config with DefaultGrace for every field.
func DefaultGraceConfig() GraceConfig {
	return GraceConfig{Default: DefaultGrace}
}

// For returns the grace window for a field. Non-positive entries are skipped.
func (g GraceConfig) For(id field.ID) time.Duration {
	if d, ok := g.PerField[id]; ok && d > 0 {
		return d
	}
	if d, ok := g.PerKind[id.Kind()]; ok && d > 0 {
		return d
	}
	if g.Default > 0 {
		return g.Default
	}
	return DefaultGrace
}

// graceTimer posts GraceExpired for one write when its window elapses.
type graceTimer struct {
	writeID string
	timer   clock.Timer
	stop    chan struct{}
}

func startGraceTimer(clk clock.Clock, d time.Duration, ev GraceExpired, post func(Event)) *graceTimer {
	t := &graceTimer{
		writeID: ev.WriteID,
		timer:   clk.NewTimer(d),
		stop:    make(chan struct{}),
	}
	go func() {
		select {
		case <-t.timer.C():
			post(ev)
		case <-t.stop:
		}
	}()
	return t
}

// cancel stops the timer. A GraceExpired that raced past cancel is ignored
// by the reconciler because the write ID no longer matches.
func (t *graceTimer) cancel() {
	t.timer.Stop()
	close(t.stop)
}
