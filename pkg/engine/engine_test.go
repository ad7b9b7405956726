package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/device/mocks"
	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type valueLog struct {
	mu     sync.Mutex
	values map[field.ID][]any
}

func (v *valueLog) listen(n state.Notification) {
	if n.Type != state.NotifyValue {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[n.Field] = append(v.values[n.Field], n.State.Value)
}

func (v *valueLog) get(id field.ID) []any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]any(nil), v.values[id]...)
}

func startEngine(t *testing.T, dev device.Device, cfg Config) (*Engine, *fakeclock.FakeClock, *valueLog) {
	t.Helper()
	fc := fakeclock.NewFakeClock(t0)
	cfg.Clock = fc
	e := New(dev, cfg)
	vl := &valueLog{values: make(map[field.ID][]any)}
	e.Subscribe(vl.listen)

	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })
	return e, fc, vl
}

func ingest(t *testing.T, e *Engine, fc *fakeclock.FakeClock, raw map[string]any) {
	t.Helper()
	e.IngestSnapshot(raw, fc.Now())
	require.NoError(t, e.Flush(context.Background()))
}

func TestEngineLifecycle(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	e := New(dev, Config{Clock: fakeclock.NewFakeClock(t0)})

	assert.Equal(t, StateIdle, e.State())
	assert.ErrorIs(t, e.Stop(), ErrNotStarted)
	_, err := e.IssueWrite(context.Background(), field.BulbOn, true)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, StateRunning, e.State())
	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, e.Stop())
	assert.Equal(t, StateStopped, e.State())
	assert.ErrorIs(t, e.Flush(context.Background()), ErrNotStarted)

	// Posting after stop must not block.
	e.IngestSnapshot(map[string]any{"temperature": 1.0}, t0)
}

func TestEngineScenarioGraceExpiry(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Once()

	e, fc, vl := startEngine(t, dev, Config{Grace: reconcile.GraceConfig{Default: 3000 * time.Millisecond}})
	ingest(t, e, fc, map[string]any{"remote1On": false})

	outcome, err := e.IssueWrite(context.Background(), field.Remote1On, true)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeAcknowledged, outcome)
	require.NoError(t, e.Flush(context.Background()))
	assert.Equal(t, true, e.Store().Value(field.Remote1On))

	fc.Increment(500 * time.Millisecond)
	ingest(t, e, fc, map[string]any{"remote1On": false})
	assert.Equal(t, true, e.Store().Value(field.Remote1On))

	fc.Increment(2700 * time.Millisecond)
	ingest(t, e, fc, map[string]any{"remote1On": false})
	assert.Equal(t, false, e.Store().Value(field.Remote1On))

	_, pending := e.Pending(field.Remote1On)
	assert.False(t, pending)
	assert.Equal(t, []any{false, true, false}, vl.get(field.Remote1On))
}

func TestEngineScenarioEarlyConfirm(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Once()

	e, fc, vl := startEngine(t, dev, Config{Grace: reconcile.GraceConfig{Default: 3000 * time.Millisecond}})
	ingest(t, e, fc, map[string]any{"remote1On": false})

	_, err := e.IssueWrite(context.Background(), field.Remote1On, true)
	require.NoError(t, err)

	fc.Increment(1000 * time.Millisecond)
	ingest(t, e, fc, map[string]any{"remote1On": true})
	_, pending := e.Pending(field.Remote1On)
	assert.False(t, pending)

	for i := 0; i < 3; i++ {
		fc.Increment(2 * time.Second)
		ingest(t, e, fc, map[string]any{"remote1On": true})
	}
	assert.Equal(t, []any{false, true}, vl.get(field.Remote1On))
}

func TestEngineScenarioSynchronousDispatchFailure(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	refused := &device.ConnectivityError{Op: "send", Reason: device.ReasonNetwork, Err: errors.New("connection refused")}
	dev.EXPECT().Send(mock.Anything, mock.Anything).Return(refused).Once()

	e, fc, vl := startEngine(t, dev, Config{Grace: reconcile.GraceConfig{Default: 3000 * time.Millisecond}})
	ingest(t, e, fc, map[string]any{"remote1On": false})

	var writeErrs []error
	e.Subscribe(func(n state.Notification) {
		if n.Type == state.NotifyWriteError {
			writeErrs = append(writeErrs, n.Err)
		}
	})

	outcome, err := e.IssueWrite(context.Background(), field.Remote1On, true)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, dispatch.OutcomeFailed, outcome)
	require.NoError(t, e.Flush(context.Background()))

	assert.Equal(t, false, e.Store().Value(field.Remote1On))
	assert.Equal(t, []any{false, true, false}, vl.get(field.Remote1On))
	assert.Equal(t, 0, fc.WatcherCount(), "no grace window is left running")
	require.Len(t, writeErrs, 1)
	assert.ErrorIs(t, writeErrs[0], refused)
}

func TestEngineRejectedWriteReverts(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().Send(mock.Anything, mock.Anything).Return(device.ErrCommandRejected).Once()

	e, fc, _ := startEngine(t, dev, Config{})
	ingest(t, e, fc, map[string]any{"setpointTemp": 24.0})

	outcome, err := e.IssueWrite(context.Background(), field.SetpointTemp, 30.0)
	assert.ErrorIs(t, err, device.ErrCommandRejected)
	assert.Equal(t, dispatch.OutcomeRejected, outcome)
	require.NoError(t, e.Flush(context.Background()))

	assert.Equal(t, 24.0, e.Store().Value(field.SetpointTemp))
}

func TestEngineSupersedingWrites(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Times(2)

	e, fc, _ := startEngine(t, dev, Config{Grace: reconcile.GraceConfig{Default: 3 * time.Second}})
	ingest(t, e, fc, map[string]any{"bulbOn": false})

	_, err := e.IssueWrite(context.Background(), field.BulbOn, true)
	require.NoError(t, err)
	fc.Increment(2 * time.Second)
	_, err = e.IssueWrite(context.Background(), field.BulbOn, false)
	require.NoError(t, err)
	require.NoError(t, e.Flush(context.Background()))

	// The first write's window would have ended here.
	fc.Increment(1500 * time.Millisecond)
	ingest(t, e, fc, map[string]any{"bulbOn": true})
	assert.Equal(t, false, e.Store().Value(field.BulbOn), "second write still governs")

	pw, ok := e.Pending(field.BulbOn)
	require.True(t, ok)
	assert.Equal(t, false, pw.Target)
}

func TestEngineReadOnlyWrite(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	e, _, _ := startEngine(t, dev, Config{})

	outcome, err := e.IssueWrite(context.Background(), field.Temperature, 20.0)
	assert.ErrorIs(t, err, field.ErrNotWritable)
	assert.Equal(t, dispatch.OutcomeInvalid, outcome)
}

func TestEnginePollerFeedsStore(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().FetchState(mock.Anything).Return(map[string]any{"temperature": 22.5, "pumpOn": true}, nil).Once()
	dev.EXPECT().FetchState(mock.Anything).Return(nil, &device.ConnectivityError{Op: "fetch", Reason: device.ReasonTimeout}).Maybe()

	e, fc, _ := startEngine(t, dev, Config{PollInterval: 2 * time.Second})

	assert.Eventually(t, func() bool {
		return e.Store().Value(field.Temperature) == 22.5
	}, time.Second, 5*time.Millisecond)
	assert.True(t, e.Connection().Connected)

	fc.WaitForWatcherAndIncrement(2 * time.Second)
	assert.Eventually(t, func() bool {
		return !e.Connection().Connected
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 22.5, e.Store().Value(field.Temperature), "values survive a failed poll")
	assert.Equal(t, true, e.Store().Value(field.PumpOn))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout)
	assert.Equal(t, reconcile.DefaultGrace, cfg.Grace.For(field.BulbOn))
	assert.Equal(t, "RUNNING", StateRunning.String())
}
