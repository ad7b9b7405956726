package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/device/mocks"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func next(t *testing.T, ch <-chan reconcile.Event) reconcile.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event posted")
		return nil
	}
}

func TestPollerPollsImmediatelyAndOnTicks(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	fc := fakeclock.NewFakeClock(t0)
	events := make(chan reconcile.Event, 8)

	refused := &device.ConnectivityError{Op: "fetch", Reason: device.ReasonNetwork, Err: errors.New("connection refused")}
	dev.EXPECT().FetchState(mock.Anything).Return(map[string]any{"temperature": 20.0}, nil).Once()
	dev.EXPECT().FetchState(mock.Anything).Return(nil, refused).Once()
	dev.EXPECT().FetchState(mock.Anything).Return(map[string]any{"temperature": 21.0}, nil)

	p := New(dev, Config{Clock: fc, Post: func(ev reconcile.Event) { events <- ev }})
	require.NoError(t, p.Start(context.Background(), 2*time.Second))
	defer p.Stop()

	ev := next(t, events)
	assert.Equal(t, reconcile.SnapshotReceived{Values: map[string]any{"temperature": 20.0}, At: t0}, ev)

	fc.WaitForWatcherAndIncrement(2 * time.Second)
	ev = next(t, events)
	failed, ok := ev.(reconcile.PollFailed)
	require.True(t, ok, "got %#v", ev)
	assert.ErrorIs(t, failed.Err, refused)

	fc.WaitForWatcherAndIncrement(2 * time.Second)
	ev = next(t, events)
	snap, ok := ev.(reconcile.SnapshotReceived)
	require.True(t, ok, "got %#v", ev)
	assert.Equal(t, 21.0, snap.Values["temperature"])

	polls, fails := p.Stats()
	assert.Equal(t, uint64(3), polls)
	assert.Equal(t, uint64(1), fails)
}

func TestPollerStartErrors(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().FetchState(mock.Anything).Return(map[string]any{}, nil).Maybe()

	p := New(dev, Config{Clock: fakeclock.NewFakeClock(t0)})
	assert.ErrorIs(t, p.Start(context.Background(), 0), ErrInvalidInterval)

	require.NoError(t, p.Start(context.Background(), time.Second))
	assert.ErrorIs(t, p.Start(context.Background(), time.Second), ErrAlreadyRunning)
	assert.True(t, p.Running())

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	require.NoError(t, p.Start(context.Background(), time.Second), "restart after stop")
	p.Stop()
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().FetchState(mock.Anything).Return(map[string]any{}, nil).Maybe()

	p := New(dev, Config{Clock: fakeclock.NewFakeClock(t0)})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx, time.Second))

	cancel()
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not exit")
	}
	p.Stop()
}

func TestPollOnceDuringShutdownPostsNothing(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev.EXPECT().FetchState(mock.Anything).Return(nil, context.Canceled)

	posted := 0
	p := New(dev, Config{Clock: fakeclock.NewFakeClock(t0), Post: func(reconcile.Event) { posted++ }})

	assert.ErrorIs(t, p.PollOnce(ctx), context.Canceled)
	assert.Equal(t, 0, posted)
}
