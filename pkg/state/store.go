package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// Source identifies what produced a canonical value.
type Source uint8

const (
	// SourceNone means no value is known yet.
	SourceNone Source = iota
	// SourceDevice means the value came from a device snapshot.
	SourceDevice
	// SourceOptimistic means the value is the target of a pending write.
	SourceOptimistic
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceDevice:
		return "device"
	case SourceOptimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	for _, c := range []Source{SourceNone, SourceDevice, SourceOptimistic} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown source %q", text)
}

// FieldState is the canonical state of one field.
type FieldState struct {
	Field     field.ID  `json:"field"`
	Value     any       `json:"value"`
	Source    Source    `json:"source"`
	Pending   bool      `json:"pending"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Connection is the controller connection status.
type Connection struct {
	Connected   bool      `json:"connected"`
	LastUpdate  time.Time `json:"lastUpdate"`
	LastError   string    `json:"lastError,omitempty"`
	LastErrorAt time.Time `json:"lastErrorAt"`
}

// NotificationType distinguishes store notifications.
type NotificationType uint8

const (
	// NotifyValue reports a changed canonical value.
	NotifyValue NotificationType = iota
	// NotifyPending reports that a field's pending flag or source changed
	// while its value stayed the same.
	NotifyPending
	// NotifyConnection reports a connection status change.
	NotifyConnection
	// NotifyWriteError reports a failed write for a field.
	NotifyWriteError
)

// String returns the notification type name.
func (t NotificationType) String() string {
	switch t {
	case NotifyValue:
		return "value"
	case NotifyPending:
		return "pending"
	case NotifyConnection:
		return "connection"
	case NotifyWriteError:
		return "write-error"
	default:
		return "unknown"
	}
}

// Notification describes one store change.
type Notification struct {
	Type NotificationType

	// Field and State are set for field-scoped notifications.
	Field field.ID
	State FieldState

	// Previous is the canonical value before a NotifyValue change.
	Previous any

	// At is when a NotifyValue or NotifyPending change was applied.
	At time.Time

	// Connection is set for NotifyConnection.
	Connection Connection

	// Err is set for NotifyWriteError.
	Err error
}

// Listener receives store notifications. Listeners run on the writer's
// goroutine and must not block.
type Listener func(Notification)

// Store is the field state mapping. Reads are safe from any goroutine.
type Store struct {
	mu     sync.RWMutex
	fields map[field.ID]FieldState
	conn   Connection

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// New creates an empty store with every known field present and unset,
// together with the only Writer for it.
func New() (*Store, *Writer) {
	s := &Store{
		fields:    make(map[field.ID]FieldState),
		listeners: make(map[uint64]Listener),
	}
	for _, id := range field.All() {
		s.fields[id] = FieldState{Field: id}
	}
	return s, &Writer{store: s}
}

// Get returns the state of one field.
func (s *Store) Get(id field.ID) (FieldState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.fields[id]
	return fs, ok
}

// Value returns the canonical value of one field, nil if unknown.
func (s *Store) Value(id field.ID) any {
	fs, _ := s.Get(id)
	return fs.Value
}

// All returns the state of every field ordered by field ID.
func (s *Store) All() []FieldState {
	s.mu.RLock()
	out := make([]FieldState, 0, len(s.fields))
	for _, fs := range s.fields {
		out = append(out, fs)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Values returns a copy of all canonical values.
func (s *Store) Values() map[field.ID]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[field.ID]any, len(s.fields))
	for id, fs := range s.fields {
		out[id] = fs.Value
	}
	return out
}

// Connection returns the connection status.
func (s *Store) Connection() Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Subscribe registers a listener and returns a function that removes it.
// The cancel function is safe to call more than once.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// notify delivers n to all listeners. Must be called without s.mu held.
func (s *Store) notify(n Notification) {
	s.listenersMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(n)
	}
}
