package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// equalTolerance is the largest difference at which two numeric values of a
// field are considered equal. Controllers report floats that went through
// a float32 on the device side.
const equalTolerance = 1e-3

// Normalize converts a raw device or operator value into the canonical Go
// representation for the field: bool for discrete kinds, float64 for numeric
// kinds. A nil raw value stays nil (no reading available).
func Normalize(id ID, raw any) (any, error) {
	meta, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	if meta.Kind.Discrete() {
		b, ok := toBool(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a boolean, got %T", ErrValueType, id, raw)
		}
		return b, nil
	}
	f, ok := toFloat64(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a number, got %T", ErrValueType, id, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s is not finite", ErrValueType, id)
	}
	return f, nil
}

// Equal reports whether two normalized values of a field are the same.
func Equal(id ID, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if id.Kind().Discrete() {
		ab, aok := a.(bool)
		bb, bok := b.(bool)
		return aok && bok && ab == bb
	}
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	return aok && bok && math.Abs(af-bf) < equalTolerance
}

// Format renders a normalized value for display and for device paths.
func Format(v any) string {
	switch n := v.(type) {
	case nil:
		return "-"
	case bool:
		if n {
			return "ON"
		}
		return "OFF"
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Snap clamps a setpoint value into [Min, Max] and rounds it to the nearest
// Step. Values of other kinds are returned unchanged.
func Snap(id ID, v float64) float64 {
	meta, ok := registry[id]
	if !ok || meta.Kind != KindSetpoint {
		return v
	}
	if meta.Step > 0 {
		v = math.Round(v/meta.Step) * meta.Step
	}
	return math.Max(meta.Min, math.Min(meta.Max, v))
}

// ValidateWrite normalizes an operator-supplied target for a writable field.
// Setpoints must lie within their bounds and are snapped to their step.
func ValidateWrite(id ID, raw any) (any, error) {
	meta, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	if !meta.Kind.Writable() {
		return nil, fmt.Errorf("%w: %s", ErrNotWritable, id)
	}
	v, err := Normalize(id, raw)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s requires a value", ErrValueType, id)
	}
	if meta.Kind == KindSetpoint {
		f := v.(float64)
		if f < meta.Min || f > meta.Max {
			return nil, fmt.Errorf("%w: %s must be within %v..%v, got %v", ErrOutOfRange, id, meta.Min, meta.Max, f)
		}
		return Snap(id, f), nil
	}
	return v, nil
}

// ParseValue parses a textual operator value ("on", "off", "25.5").
func ParseValue(id ID, s string) (any, error) {
	if id.Kind().Discrete() {
		return Normalize(id, s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrValueType, s)
	}
	return f, nil
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "on", "1":
			return true, true
		case "false", "off", "0":
			return false, true
		}
		return false, false
	default:
		if f, ok := toFloat64(v); ok {
			return f != 0, true
		}
		return false, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
