package field

import (
	"fmt"
)

// Command is a single imperative request to the controller.
type Command struct {
	Field  ID
	Target any

	// Path is the request path on the controller, e.g. "/cmd/ON47".
	Path string
}

// String returns a short description of the command.
func (c Command) String() string {
	return fmt.Sprintf("%s=%s (%s)", c.Field, Format(c.Target), c.Path)
}

// BuildCommand builds the device command that drives field id to target.
// The target is validated with ValidateWrite first.
func BuildCommand(id ID, target any) (Command, error) {
	v, err := ValidateWrite(id, target)
	if err != nil {
		return Command{}, err
	}
	meta := registry[id]

	cmd := Command{Field: id, Target: v}
	switch meta.Kind {
	case KindActuator:
		op := "OFF"
		if v.(bool) {
			op = "ON"
		}
		cmd.Path = fmt.Sprintf("/cmd/%s%d", op, meta.ActuatorID)
	case KindSetpoint:
		cmd.Path = fmt.Sprintf("/setpoint/%s/%s", meta.SetpointPath, Format(v))
	}
	return cmd, nil
}
