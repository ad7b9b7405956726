package main

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RawFieldSet is the top level of fields.yaml.
type RawFieldSet struct {
	Groups []RawGroup `yaml:"groups"`
}

// RawGroup is a run of fields sharing a kind.
type RawGroup struct {
	Comment string     `yaml:"comment"`
	Kind    string     `yaml:"kind"` // "measurement", "indicator", "actuator", "setpoint"
	Fields  []RawField `yaml:"fields"`
}

// RawField is one field definition.
type RawField struct {
	Name     string   `yaml:"name"`  // Go constant name
	Key      string   `yaml:"key"`   // device JSON key
	Label    string   `yaml:"label"` // human-readable name
	Unit     string   `yaml:"unit"`
	Actuator int      `yaml:"actuator"` // output number, actuators only
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Step     *float64 `yaml:"step"`
	Path     string   `yaml:"path"` // setpoint path segment
}

var (
	goIdent = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	jsonKey = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)
)

var kindConsts = map[string]string{
	"measurement": "KindMeasurement",
	"indicator":   "KindIndicator",
	"actuator":    "KindActuator",
	"setpoint":    "KindSetpoint",
}

// LoadFieldSet reads and validates a field set file.
func LoadFieldSet(path string) (*RawFieldSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFieldSet(data)
}

// ParseFieldSet parses and validates field set YAML.
func ParseFieldSet(data []byte) (*RawFieldSet, error) {
	var fs RawFieldSet
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parsing field set: %w", err)
	}
	if err := fs.validate(); err != nil {
		return nil, err
	}
	return &fs, nil
}

func (fs *RawFieldSet) validate() error {
	names := make(map[string]bool)
	keys := make(map[string]bool)
	actuators := make(map[int]bool)
	total := 0

	for _, g := range fs.Groups {
		if _, ok := kindConsts[g.Kind]; !ok {
			return fmt.Errorf("group %q: unknown kind %q", g.Comment, g.Kind)
		}
		for _, f := range g.Fields {
			total++
			if !goIdent.MatchString(f.Name) {
				return fmt.Errorf("field %q: name must be an exported Go identifier", f.Name)
			}
			if !jsonKey.MatchString(f.Key) {
				return fmt.Errorf("field %s: invalid key %q", f.Name, f.Key)
			}
			if names[f.Name] {
				return fmt.Errorf("field %s: duplicate name", f.Name)
			}
			if keys[f.Key] {
				return fmt.Errorf("field %s: duplicate key %q", f.Name, f.Key)
			}
			names[f.Name] = true
			keys[f.Key] = true

			switch g.Kind {
			case "actuator":
				if f.Actuator <= 0 {
					return fmt.Errorf("field %s: actuator number required", f.Name)
				}
				if actuators[f.Actuator] {
					return fmt.Errorf("field %s: duplicate actuator number %d", f.Name, f.Actuator)
				}
				actuators[f.Actuator] = true
			case "setpoint":
				if f.Min == nil || f.Max == nil || f.Step == nil {
					return fmt.Errorf("field %s: setpoints need min, max and step", f.Name)
				}
				if *f.Min >= *f.Max {
					return fmt.Errorf("field %s: min %v must be below max %v", f.Name, *f.Min, *f.Max)
				}
				if *f.Step <= 0 {
					return fmt.Errorf("field %s: step must be positive", f.Name)
				}
				if f.Path == "" {
					return fmt.Errorf("field %s: setpoint path required", f.Name)
				}
			default:
				if f.Actuator != 0 || f.Path != "" || f.Min != nil || f.Max != nil || f.Step != nil {
					return fmt.Errorf("field %s: %s fields take no write parameters", f.Name, g.Kind)
				}
			}
		}
	}

	if total == 0 {
		return fmt.Errorf("field set is empty")
	}
	if total > 255 {
		return fmt.Errorf("field set has %d fields, at most 255 fit the ID type", total)
	}
	return nil
}
