package field

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFieldSetIsClosed(t *testing.T) {
	all := All()
	if len(all) != 11 {
		t.Fatalf("len(All()) = %d, want 11", len(all))
	}
	seen := make(map[string]bool)
	for _, id := range all {
		if !id.Valid() {
			t.Errorf("%d is not valid", id)
		}
		if seen[id.Key()] {
			t.Errorf("duplicate key %q", id.Key())
		}
		seen[id.Key()] = true

		parsed, err := Parse(id.Key())
		if err != nil || parsed != id {
			t.Errorf("Parse(%q) = %v, %v; want %v", id.Key(), parsed, err, id)
		}
	}

	if ID(0).Valid() || ID(200).Valid() {
		t.Error("out-of-set IDs must be invalid")
	}
}

func TestWritableFields(t *testing.T) {
	want := []ID{BulbOn, VentTempOn, Remote1On, Remote2On, SetpointTemp, SetpointHum}
	got := Writable()
	if len(got) != len(want) {
		t.Fatalf("Writable() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Writable()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	id, err := Parse("REMOTE1ON")
	if err != nil || id != Remote1On {
		t.Errorf("Parse(REMOTE1ON) = %v, %v", id, err)
	}
	if _, err := Parse("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Parse(nope) error = %v, want ErrUnknownField", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		id      ID
		raw     any
		want    any
		wantErr bool
	}{
		{"BoolTrue", BulbOn, true, true, false},
		{"NumberAsBool", PumpOn, float64(1), true, false},
		{"ZeroAsBool", PumpOn, 0, false, false},
		{"StringOn", Remote1On, "on", true, false},
		{"BadBool", Remote1On, "maybe", nil, true},
		{"Float", Temperature, 24.5, 24.5, false},
		{"Int", SoilHumidity, 412, float64(412), false},
		{"JSONNumber", Humidity, json.Number("61.2"), 61.2, false},
		{"NilReading", Temperature, nil, nil, false},
		{"BadNumber", Temperature, "warm", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.id, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal(SetpointTemp, 25.5, 25.5000001) {
		t.Error("float32 round trip should compare equal")
	}
	if Equal(SetpointTemp, 25.5, 26.0) {
		t.Error("different setpoints compared equal")
	}
	if !Equal(BulbOn, true, true) || Equal(BulbOn, true, false) {
		t.Error("bool comparison broken")
	}
	if Equal(Temperature, nil, 0.0) || !Equal(Temperature, nil, nil) {
		t.Error("nil comparison broken")
	}
}

func TestValidateWrite(t *testing.T) {
	if _, err := ValidateWrite(Temperature, 20.0); !errors.Is(err, ErrNotWritable) {
		t.Errorf("measurement write error = %v, want ErrNotWritable", err)
	}
	if _, err := ValidateWrite(PumpOn, true); !errors.Is(err, ErrNotWritable) {
		t.Errorf("indicator write error = %v, want ErrNotWritable", err)
	}
	if _, err := ValidateWrite(SetpointHum, 120.0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("out of range error = %v, want ErrOutOfRange", err)
	}
	if _, err := ValidateWrite(BulbOn, nil); !errors.Is(err, ErrValueType) {
		t.Errorf("nil target error = %v, want ErrValueType", err)
	}

	v, err := ValidateWrite(SetpointTemp, 25.3)
	if err != nil {
		t.Fatalf("ValidateWrite() error = %v", err)
	}
	if v != 25.5 {
		t.Errorf("snapped setpoint = %v, want 25.5", v)
	}
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		id     ID
		target any
		path   string
	}{
		{BulbOn, true, "/cmd/ON47"},
		{BulbOn, false, "/cmd/OFF47"},
		{VentTempOn, true, "/cmd/ON49"},
		{Remote1On, true, "/cmd/ON51"},
		{Remote2On, "off", "/cmd/OFF53"},
		{SetpointTemp, 25.5, "/setpoint/temp/25.5"},
		{SetpointHum, 70, "/setpoint/hum/70"},
	}

	for _, tt := range tests {
		cmd, err := BuildCommand(tt.id, tt.target)
		if err != nil {
			t.Errorf("BuildCommand(%s, %v) error = %v", tt.id, tt.target, err)
			continue
		}
		if cmd.Path != tt.path {
			t.Errorf("BuildCommand(%s, %v).Path = %q, want %q", tt.id, tt.target, cmd.Path, tt.path)
		}
	}
}

func TestClassify(t *testing.T) {
	values := map[ID]any{
		SetpointTemp: 25.0,
		SetpointHum:  70.0,
	}

	tests := []struct {
		name  string
		id    ID
		value any
		want  Status
	}{
		{"TempOK", Temperature, 24.0, StatusSuccess},
		{"TempWarn", Temperature, 27.0, StatusWarning},
		{"TempDanger", Temperature, 30.5, StatusDanger},
		{"HumOK", Humidity, 75.0, StatusSuccess},
		{"HumWarn", Humidity, 65.0, StatusWarning},
		{"HumDanger", Humidity, 55.0, StatusDanger},
		{"SoilOK", SoilHumidity, 450.0, StatusSuccess},
		{"SoilWarn", SoilHumidity, 350.0, StatusWarning},
		{"SoilDanger", SoilHumidity, 250.0, StatusDanger},
		{"Unknown", Temperature, nil, StatusNormal},
		{"NoRule", BulbOn, true, StatusNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values[tt.id] = tt.value
			if got := Classify(tt.id, values); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIDJSONKeys(t *testing.T) {
	data, err := json.Marshal(map[ID]bool{BulbOn: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"bulbOn":true}` {
		t.Errorf("json = %s", data)
	}

	var back map[ID]bool
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back[BulbOn] {
		t.Errorf("round trip = %v", back)
	}
}
