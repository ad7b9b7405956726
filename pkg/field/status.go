package field

// Status is the health classification of a measurement.
type Status uint8

const (
	// StatusNormal means no classification applies (unknown value or no rule).
	StatusNormal Status = iota

	// StatusSuccess means the reading is within its target.
	StatusSuccess

	// StatusWarning means the reading is past its target.
	StatusWarning

	// StatusDanger means the reading is far past its target.
	StatusDanger
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusDanger:
		return "danger"
	default:
		return "unknown"
	}
}

// Soil humidity thresholds in raw sensor units.
const (
	SoilDangerBelow  = 300
	SoilWarningBelow = 400
)

// Classify rates a measurement against the current setpoints in values.
// Temperature is rated against SetpointTemp (warning above, danger above +5),
// humidity against SetpointHum (warning below, danger below -10) and soil
// humidity against fixed thresholds.
func Classify(id ID, values map[ID]any) Status {
	v, ok := toFloat64(values[id])
	if !ok {
		return StatusNormal
	}

	switch id {
	case Temperature:
		sp, ok := toFloat64(values[SetpointTemp])
		if !ok {
			return StatusNormal
		}
		switch {
		case v > sp+5:
			return StatusDanger
		case v > sp:
			return StatusWarning
		}
		return StatusSuccess

	case Humidity:
		sp, ok := toFloat64(values[SetpointHum])
		if !ok {
			return StatusNormal
		}
		switch {
		case v < sp-10:
			return StatusDanger
		case v < sp:
			return StatusWarning
		}
		return StatusSuccess

	case SoilHumidity:
		switch {
		case v < SoilDangerBelow:
			return StatusDanger
		case v < SoilWarningBelow:
			return StatusWarning
		}
		return StatusSuccess
	}
	return StatusNormal
}
