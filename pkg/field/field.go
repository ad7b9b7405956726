//go:generate go run ../../cmd/greenhouse-fieldgen -input fields.yaml -output registry_gen.go

package field

import (
	"errors"
	"fmt"
	"strings"
)

// Field errors.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotWritable  = errors.New("field is not writable")
	ErrValueType    = errors.New("invalid value type for field")
	ErrOutOfRange   = errors.New("value out of range")
)

// ID identifies a controller field. The field constants are generated
// from fields.yaml.
type ID uint8

// Kind classifies a field.
type Kind uint8

const (
	// KindMeasurement is a continuous read-only sensor reading.
	KindMeasurement Kind = iota + 1

	// KindIndicator is a discrete read-only state.
	KindIndicator

	// KindActuator is a discrete writable output.
	KindActuator

	// KindSetpoint is a numeric writable target.
	KindSetpoint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMeasurement:
		return "measurement"
	case KindIndicator:
		return "indicator"
	case KindActuator:
		return "actuator"
	case KindSetpoint:
		return "setpoint"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindMeasurement, KindIndicator, KindActuator, KindSetpoint} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Writable returns true if fields of this kind accept writes.
func (k Kind) Writable() bool {
	return k == KindActuator || k == KindSetpoint
}

// Discrete returns true if values of this kind are booleans.
func (k Kind) Discrete() bool {
	return k == KindIndicator || k == KindActuator
}

// Metadata describes a field.
type Metadata struct {
	ID   ID
	Kind Kind

	// Key is the JSON key in the device state document.
	Key string

	// Name is the human-readable name.
	Name string

	// Unit of measurement, empty for unitless values.
	Unit string

	// Min, Max and Step bound setpoint values.
	Min  float64
	Max  float64
	Step float64

	// ActuatorID is the output number used in /cmd/ON<id> and /cmd/OFF<id>.
	ActuatorID int

	// SetpointPath is the path segment used in /setpoint/<path>/<value>.
	SetpointPath string
}

// byKey indexes the registry by device key.
var byKey = func() map[string]ID {
	m := make(map[string]ID, len(registry))
	for id, meta := range registry {
		m[meta.Key] = id
	}
	return m
}()

// All returns every field ID in declaration order.
func All() []ID {
	ids := make([]ID, len(order))
	copy(ids, order)
	return ids
}

// Writable returns the writable field IDs in declaration order.
func Writable() []ID {
	var ids []ID
	for _, id := range All() {
		if id.Kind().Writable() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Lookup returns the metadata for a field.
func Lookup(id ID) (*Metadata, error) {
	meta, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, id)
	}
	return meta, nil
}

// Parse resolves a field by its device key (e.g. "bulbOn").
// Matching is case-insensitive.
func Parse(key string) (ID, error) {
	if id, ok := byKey[key]; ok {
		return id, nil
	}
	for k, id := range byKey {
		if strings.EqualFold(k, key) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, key)
}

// Valid returns true if the ID is part of the field set.
func (id ID) Valid() bool {
	_, ok := registry[id]
	return ok
}

// Key returns the device key, or "unknown" for invalid IDs.
func (id ID) Key() string {
	if meta, ok := registry[id]; ok {
		return meta.Key
	}
	return "unknown"
}

// String returns the device key.
func (id ID) String() string {
	return id.Key()
}

// Kind returns the field kind, or zero for invalid IDs.
func (id ID) Kind() Kind {
	if meta, ok := registry[id]; ok {
		return meta.Kind
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler so IDs key JSON objects by name.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, id)
	}
	return []byte(id.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
