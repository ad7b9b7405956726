package state

import (
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// Writer mutates a Store. There is exactly one Writer per Store and it must
// only be used from a single goroutine.
type Writer struct {
	store *Store
}

// Store returns the store this writer mutates.
func (w *Writer) Store() *Store {
	return w.store
}

// Set updates the canonical state of a field. It reports whether the
// canonical value changed. A NotifyValue is emitted only on a value change;
// a change of only source or pending flag emits NotifyPending.
func (w *Writer) Set(id field.ID, value any, source Source, pending bool, at time.Time) bool {
	s := w.store

	s.mu.Lock()
	prev, ok := s.fields[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	valueChanged := !field.Equal(id, prev.Value, value)
	metaChanged := prev.Source != source || prev.Pending != pending
	if !valueChanged && !metaChanged {
		s.mu.Unlock()
		return false
	}

	next := FieldState{
		Field:     id,
		Value:     value,
		Source:    source,
		Pending:   pending,
		UpdatedAt: prev.UpdatedAt,
	}
	if valueChanged {
		next.UpdatedAt = at
	} else {
		// Keep the stored representation so tolerance-equal floats don't drift.
		next.Value = prev.Value
	}
	s.fields[id] = next
	s.mu.Unlock()

	if valueChanged {
		s.notify(Notification{Type: NotifyValue, Field: id, State: next, Previous: prev.Value, At: at})
	} else {
		s.notify(Notification{Type: NotifyPending, Field: id, State: next, At: at})
	}
	return valueChanged
}

// SetConnected records a successful poll at time at.
func (w *Writer) SetConnected(at time.Time) {
	s := w.store

	s.mu.Lock()
	was := s.conn.Connected
	s.conn.Connected = true
	s.conn.LastUpdate = at
	conn := s.conn
	s.mu.Unlock()

	if !was {
		s.notify(Notification{Type: NotifyConnection, Connection: conn})
	}
}

// SetDisconnected records a failed poll. Field values are left untouched.
func (w *Writer) SetDisconnected(err error, at time.Time) {
	s := w.store

	msg := ""
	if err != nil {
		msg = err.Error()
	}

	s.mu.Lock()
	changed := s.conn.Connected || s.conn.LastError != msg
	s.conn.Connected = false
	s.conn.LastError = msg
	s.conn.LastErrorAt = at
	conn := s.conn
	s.mu.Unlock()

	if changed {
		s.notify(Notification{Type: NotifyConnection, Connection: conn})
	}
}

// WriteError emits a field-scoped write error notification.
func (w *Writer) WriteError(id field.ID, err error) {
	fs, _ := w.store.Get(id)
	w.store.notify(Notification{Type: NotifyWriteError, Field: id, State: fs, Err: err})
}
