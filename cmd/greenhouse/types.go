package main

import (
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/dispatch"
	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/persistence"
	"github.com/siriussoftware2024/controlinvernadero/pkg/state"
)

// stateView is the full dashboard state.
type stateView struct {
	Fields     []fieldView      `json:"fields"`
	Connection state.Connection `json:"connection"`
}

// fieldView is one field as shown on the dashboard.
type fieldView struct {
	Field     field.ID     `json:"field"`
	Kind      string       `json:"kind"`
	Value     any          `json:"value"`
	Display   string       `json:"display"`
	Source    state.Source `json:"source"`
	Pending   bool         `json:"pending"`
	Status    string       `json:"status,omitempty"`
	UpdatedAt *time.Time   `json:"updatedAt,omitempty"`
}

func newFieldView(fs state.FieldState, values map[field.ID]any) fieldView {
	v := fieldView{
		Field:   fs.Field,
		Kind:    fs.Field.Kind().String(),
		Value:   fs.Value,
		Display: field.Format(fs.Value),
		Source:  fs.Source,
		Pending: fs.Pending,
	}
	if fs.Field.Kind() == field.KindMeasurement {
		v.Status = field.Classify(fs.Field, values).String()
	}
	if !fs.UpdatedAt.IsZero() {
		at := fs.UpdatedAt
		v.UpdatedAt = &at
	}
	return v
}

// fieldInfo describes a field of the catalogue.
type fieldInfo struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Unit     string  `json:"unit,omitempty"`
	Writable bool    `json:"writable"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Step     float64 `json:"step,omitempty"`
}

// writeRequest is the body of POST /api/v1/fields/{key}.
type writeRequest struct {
	Value any `json:"value"`
}

// writeResponse reports the outcome of a write and the reconciled field.
type writeResponse struct {
	Outcome dispatch.Outcome `json:"outcome"`
	Error   string           `json:"error,omitempty"`
	Field   fieldView        `json:"field"`
}

// connectionResponse is returned by the connection settings endpoints.
type connectionResponse struct {
	Saved           persistence.ConnectionSettings `json:"saved"`
	Active          persistence.ConnectionSettings `json:"active"`
	Status          state.Connection               `json:"status"`
	RestartRequired bool                           `json:"restartRequired,omitempty"`
}

// testResponse is the result of a connection test.
type testResponse struct {
	OK        bool   `json:"ok"`
	Address   string `json:"address"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// wsMessage is one websocket push message. Type is "state" for the initial
// message and the notification type otherwise.
type wsMessage struct {
	Type       string            `json:"type"`
	State      *stateView        `json:"state,omitempty"`
	Field      *fieldView        `json:"field,omitempty"`
	Previous   any               `json:"previous,omitempty"`
	Connection *state.Connection `json:"connection,omitempty"`
	Error      string            `json:"error,omitempty"`
}
