package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) listen(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) ofType(t NotificationType) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestNewStoreHasAllFields(t *testing.T) {
	s, _ := New()

	all := s.All()
	require.Len(t, all, len(field.All()))
	for i, fs := range all {
		assert.Nil(t, fs.Value)
		assert.Equal(t, SourceNone, fs.Source)
		if i > 0 {
			assert.Less(t, all[i-1].Field, fs.Field)
		}
	}
}

func TestSetNotifiesOnlyOnChange(t *testing.T) {
	s, w := New()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	assert.True(t, w.Set(field.Temperature, 21.5, SourceDevice, false, t0))
	assert.False(t, w.Set(field.Temperature, 21.5, SourceDevice, false, t0.Add(time.Second)))
	assert.False(t, w.Set(field.Temperature, 21.5004, SourceDevice, false, t0.Add(2*time.Second)))
	assert.True(t, w.Set(field.Temperature, 22.0, SourceDevice, false, t0.Add(3*time.Second)))

	values := rec.ofType(NotifyValue)
	require.Len(t, values, 2)
	assert.Nil(t, values[0].Previous)
	assert.Equal(t, 21.5, values[0].State.Value)
	assert.Equal(t, 21.5, values[1].Previous)
	assert.Equal(t, 22.0, values[1].State.Value)

	fs, ok := s.Get(field.Temperature)
	require.True(t, ok)
	assert.Equal(t, t0.Add(3*time.Second), fs.UpdatedAt)
}

func TestSetPendingOnlyChange(t *testing.T) {
	s, w := New()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	w.Set(field.BulbOn, true, SourceDevice, false, t0)
	changed := w.Set(field.BulbOn, true, SourceOptimistic, true, t0.Add(time.Second))

	assert.False(t, changed)
	assert.Len(t, rec.ofType(NotifyValue), 1)
	pending := rec.ofType(NotifyPending)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].State.Pending)
	assert.Equal(t, SourceOptimistic, pending[0].State.Source)

	fs, _ := s.Get(field.BulbOn)
	assert.Equal(t, t0, fs.UpdatedAt, "UpdatedAt only moves on value change")
}

func TestSetUnknownField(t *testing.T) {
	_, w := New()
	assert.False(t, w.Set(field.ID(200), 1.0, SourceDevice, false, t0))
}

func TestConnectionNotifications(t *testing.T) {
	s, w := New()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	w.SetConnected(t0)
	w.SetConnected(t0.Add(2 * time.Second))
	w.SetDisconnected(errors.New("timeout"), t0.Add(4*time.Second))
	w.SetDisconnected(errors.New("timeout"), t0.Add(6*time.Second))
	w.SetDisconnected(errors.New("refused"), t0.Add(8*time.Second))

	conns := rec.ofType(NotifyConnection)
	require.Len(t, conns, 3)
	assert.True(t, conns[0].Connection.Connected)
	assert.False(t, conns[1].Connection.Connected)
	assert.Equal(t, "refused", conns[2].Connection.LastError)

	c := s.Connection()
	assert.False(t, c.Connected)
	assert.Equal(t, t0.Add(2*time.Second), c.LastUpdate)
	assert.Equal(t, t0.Add(8*time.Second), c.LastErrorAt)
}

func TestDisconnectKeepsValues(t *testing.T) {
	s, w := New()
	w.Set(field.Humidity, 55.0, SourceDevice, false, t0)
	w.SetDisconnected(errors.New("down"), t0.Add(time.Second))

	assert.Equal(t, 55.0, s.Value(field.Humidity))
}

func TestWriteErrorNotification(t *testing.T) {
	s, w := New()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	boom := errors.New("rejected")
	w.WriteError(field.PumpOn, boom)

	errs := rec.ofType(NotifyWriteError)
	require.Len(t, errs, 1)
	assert.Equal(t, field.PumpOn, errs[0].Field)
	assert.ErrorIs(t, errs[0].Err, boom)
}

func TestSubscribeCancel(t *testing.T) {
	s, w := New()
	rec := &recorder{}
	cancel := s.Subscribe(rec.listen)

	w.Set(field.Temperature, 1.0, SourceDevice, false, t0)
	cancel()
	cancel()
	w.Set(field.Temperature, 2.0, SourceDevice, false, t0)

	assert.Len(t, rec.ofType(NotifyValue), 1)
}

func TestListenerMayReadStore(t *testing.T) {
	s, w := New()
	var seen any
	s.Subscribe(func(n Notification) {
		seen = s.Value(n.Field)
	})

	w.Set(field.SetpointTemp, 25.5, SourceOptimistic, true, t0)
	assert.Equal(t, 25.5, seen)
}

func TestValuesCopy(t *testing.T) {
	s, w := New()
	w.Set(field.Remote1On, true, SourceDevice, false, t0)

	v := s.Values()
	v[field.Remote1On] = false
	assert.Equal(t, true, s.Value(field.Remote1On))
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "device", SourceDevice.String())
	assert.Equal(t, "optimistic", SourceOptimistic.String())
	assert.Equal(t, "unknown", Source(9).String())
	assert.Equal(t, "write-error", NotifyWriteError.String())
}
