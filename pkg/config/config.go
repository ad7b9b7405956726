// Package config loads the greenhouse daemon configuration from YAML.
//
// Every setting has a default, so an empty or missing file yields a working
// configuration:
//
//	controller:
//	  host: ""            # empty: use saved connection settings; "auto": mDNS
//	poll_interval: 2s
//	command_timeout: 10s
//	grace:
//	  default: 3s
//	  per_kind:
//	    setpoint: 1s
//	  per_field:
//	    remote1On: 500ms
//	server:
//	  listen: ":8080"
//	log:
//	  level: info
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/reconcile"
)

// Command timeout bounds, matching the connection settings dialog of the
// original dashboard.
const (
	MinCommandTimeout = 1 * time.Second
	MaxCommandTimeout = 60 * time.Second
)

// HostAuto makes the daemon look up the controller via mDNS.
const HostAuto = "auto"

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the daemon configuration.
type Config struct {
	Controller     Controller    `yaml:"controller"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	Grace          Grace         `yaml:"grace"`
	Server         Server        `yaml:"server"`
	Log            Log           `yaml:"log"`
	Trace          Trace         `yaml:"trace"`
	History        History       `yaml:"history"`
	Discovery      Discovery     `yaml:"discovery"`

	// ConnectionFile stores the operator-edited connection settings.
	ConnectionFile string `yaml:"connection_file"`
}

// Controller overrides the persisted connection settings when Host is set.
type Controller struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Grace configures the optimistic grace windows. Keys of PerKind are kind
// names (actuator, setpoint); keys of PerField are device keys (bulbOn).
type Grace struct {
	Default  time.Duration            `yaml:"default"`
	PerKind  map[string]time.Duration `yaml:"per_kind"`
	PerField map[string]time.Duration `yaml:"per_field"`
}

// Server configures the HTTP API.
type Server struct {
	Listen string `yaml:"listen"`

	// Proxy enables the CORS forwarding proxy under /device/.
	Proxy bool `yaml:"proxy"`
}

// Log configures operational logging.
type Log struct {
	Level string `yaml:"level"`

	// Journal selects the systemd journal handler: "auto", "on" or "off".
	Journal string `yaml:"journal"`
}

// Trace configures the reconciler trace file. Empty Path disables it.
type Trace struct {
	Path string `yaml:"path"`
}

// History configures the measurement history database. Empty Path disables it.
type History struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// Discovery configures the mDNS controller lookup.
type Discovery struct {
	Service string        `yaml:"service"`
	Domain  string        `yaml:"domain"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		PollInterval:   2 * time.Second,
		CommandTimeout: 10 * time.Second,
		Grace:          Grace{Default: reconcile.DefaultGrace},
		Server:         Server{Listen: ":8080", Proxy: true},
		Log:            Log{Level: "info", Journal: "auto"},
		History:        History{Retention: 30 * 24 * time.Hour},
		Discovery: Discovery{
			Service: "_invernadero._tcp",
			Domain:  "local.",
			Timeout: 5 * time.Second,
		},
		ConnectionFile: "connection.json",
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a configuration file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	if c.CommandTimeout < MinCommandTimeout || c.CommandTimeout > MaxCommandTimeout {
		return fmt.Errorf("%w: command_timeout must be within %s..%s, got %s",
			ErrInvalidConfig, MinCommandTimeout, MaxCommandTimeout, c.CommandTimeout)
	}
	if c.Controller.Port < 0 || c.Controller.Port > 65535 {
		return fmt.Errorf("%w: controller.port out of range", ErrInvalidConfig)
	}
	if _, err := c.Grace.Resolve(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Journal) {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("%w: log.journal must be auto, on or off", ErrInvalidConfig)
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("%w: history.retention must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Resolve converts the YAML grace settings into a reconcile.GraceConfig.
func (g Grace) Resolve() (reconcile.GraceConfig, error) {
	if g.Default < 0 {
		return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.default must not be negative", ErrInvalidConfig)
	}
	out := reconcile.GraceConfig{Default: g.Default}

	if len(g.PerKind) > 0 {
		out.PerKind = make(map[field.Kind]time.Duration, len(g.PerKind))
		for name, d := range g.PerKind {
			k, err := field.ParseKind(name)
			if err != nil {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_kind: %v", ErrInvalidConfig, err)
			}
			if !k.Writable() {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_kind: %s is not writable", ErrInvalidConfig, k)
			}
			if d <= 0 {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_kind.%s must be positive", ErrInvalidConfig, name)
			}
			out.PerKind[k] = d
		}
	}

	if len(g.PerField) > 0 {
		out.PerField = make(map[field.ID]time.Duration, len(g.PerField))
		for key, d := range g.PerField {
			id, err := field.Parse(key)
			if err != nil {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_field: %v", ErrInvalidConfig, err)
			}
			if !id.Kind().Writable() {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_field: %s is not writable", ErrInvalidConfig, id)
			}
			if d <= 0 {
				return reconcile.GraceConfig{}, fmt.Errorf("%w: grace.per_field.%s must be positive", ErrInvalidConfig, key)
			}
			out.PerField[id] = d
		}
	}
	return out, nil
}

// SlogLevel parses the configured log level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}
