package persistence

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ConnectionKey is the key of the connection settings document.
const ConnectionKey = "greenhouse_connection_config"

// SettingsVersion is the current version of the connection settings format.
const SettingsVersion = 1

// Connection settings defaults and bounds.
const (
	DefaultHost      = "192.168.2.14"
	DefaultPort      = 80
	DefaultTimeoutMs = 10000
	MinTimeoutMs     = 1000
	MaxTimeoutMs     = 60000
)

// ErrInvalidSettings is returned for settings that fail validation.
var ErrInvalidSettings = errors.New("invalid connection settings")

// ConnectionSettings are the operator-edited controller connection
// parameters.
type ConnectionSettings struct {
	// Version is the settings format version.
	Version int `json:"version"`

	// SavedAt is when the settings were last saved.
	SavedAt time.Time `json:"saved_at"`

	// Host is the controller IP address or hostname.
	Host string `json:"host"`

	// Port is the controller HTTP port.
	Port int `json:"port"`

	// TimeoutMs bounds each request, in milliseconds.
	TimeoutMs int `json:"timeout_ms"`
}

// DefaultConnection returns the factory connection settings.
func DefaultConnection() ConnectionSettings {
	return ConnectionSettings{
		Version:   SettingsVersion,
		Host:      DefaultHost,
		Port:      DefaultPort,
		TimeoutMs: DefaultTimeoutMs,
	}
}

// Validate checks the settings.
func (c ConnectionSettings) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidSettings)
	}
	if strings.ContainsAny(c.Host, "/ ") {
		return fmt.Errorf("%w: host %q must be a bare address", ErrInvalidSettings, c.Host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1..65535, got %d", ErrInvalidSettings, c.Port)
	}
	if c.TimeoutMs < MinTimeoutMs || c.TimeoutMs > MaxTimeoutMs {
		return fmt.Errorf("%w: timeout must be within %d..%d ms, got %d",
			ErrInvalidSettings, MinTimeoutMs, MaxTimeoutMs, c.TimeoutMs)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c ConnectionSettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Address returns host:port.
func (c ConnectionSettings) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConnectionStore persists ConnectionSettings under ConnectionKey.
type ConnectionStore struct {
	kv *KVStore
}

// NewConnectionStore creates a connection store on top of kv.
func NewConnectionStore(kv *KVStore) *ConnectionStore {
	return &ConnectionStore{kv: kv}
}

// Save validates and persists the settings.
func (s *ConnectionStore) Save(settings *ConnectionSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.Version = SettingsVersion
	if settings.SavedAt.IsZero() {
		settings.SavedAt = time.Now()
	}
	return s.kv.Set(ConnectionKey, settings)
}

// Load reads the saved settings.
// Returns nil, nil if no settings were saved.
func (s *ConnectionStore) Load() (*ConnectionSettings, error) {
	settings := &ConnectionSettings{}
	err := s.kv.Get(ConnectionKey, settings)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadOrDefault returns the saved settings, or the defaults if none were
// saved. Missing or out-of-range fields of a saved document fall back to
// their defaults.
func (s *ConnectionStore) LoadOrDefault() (ConnectionSettings, error) {
	saved, err := s.Load()
	if err != nil {
		return DefaultConnection(), err
	}
	if saved == nil {
		return DefaultConnection(), nil
	}

	out := *saved
	def := DefaultConnection()
	if strings.TrimSpace(out.Host) == "" {
		out.Host = def.Host
	}
	if out.Port < 1 || out.Port > 65535 {
		out.Port = def.Port
	}
	if out.TimeoutMs < MinTimeoutMs || out.TimeoutMs > MaxTimeoutMs {
		out.TimeoutMs = def.TimeoutMs
	}
	return out, nil
}

// Clear removes the saved settings.
func (s *ConnectionStore) Clear() error {
	return s.kv.Delete(ConnectionKey)
}
