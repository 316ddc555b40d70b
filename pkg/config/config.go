package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Seann-Moser/motorhal/pkg/pca9685"
	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

type Config struct {
	Backends   []BackendConfig  `yaml:"backends"`
	Actuators  []ActuatorConfig `yaml:"actuators"`
	StopButton *ButtonConfig    `yaml:"stop_button"`
	Server     ServerConfig     `yaml:"server"`
}

type BackendConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// chip
	Transport string `yaml:"transport"`
	Bus       string `yaml:"bus"`
	Address   uint16 `yaml:"address"`

	// local
	Chip string `yaml:"chip"`

	// local, onboard
	Resolution int `yaml:"resolution"`
}

type ActuatorConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Backend string `yaml:"backend"`
	Line    int    `yaml:"line"`

	FrequencyHz float64 `yaml:"frequency_hz"`

	// dc; an omitted min_duty defaults to 20, an explicit 0 disables the deadzone
	MinDuty *float64 `yaml:"min_duty"`
	MaxDuty float64  `yaml:"max_duty"`
	Invert  bool     `yaml:"invert"`

	// servo
	MinAngle float64       `yaml:"min_angle"`
	MaxAngle float64       `yaml:"max_angle"`
	MinPulse time.Duration `yaml:"min_pulse"`
	MaxPulse time.Duration `yaml:"max_pulse"`

	// Initial is a speed for dc motors and an angle for servos.
	Initial *float64 `yaml:"initial"`
}

type ButtonConfig struct {
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

const (
	ActuatorDC    = "dc"
	ActuatorServo = "servo"

	TransportPeriph       = "periph"
	TransportGobot        = "gobot"
	TransportPeriphDriver = "periph-driver"
)

const defaultMinDuty = 20.0

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	for i := range cfg.Backends {
		b := &cfg.Backends[i]
		kind, err := pwm.ParseKind(b.Kind)
		if err != nil {
			return fmt.Errorf("backends[%d]: %w", i, err)
		}
		b.Kind = kind.String()
		switch kind {
		case pwm.KindChip:
			if b.Transport == "" {
				b.Transport = TransportPeriph
			}
			if b.Address == 0 {
				b.Address = pca9685.DefaultAddress
			}
		case pwm.KindLocal:
			if b.Chip == "" {
				b.Chip = "gpiochip0"
			}
		}
	}
	for i := range cfg.Actuators {
		a := &cfg.Actuators[i]
		a.Kind = strings.ToLower(a.Kind)
		switch a.Kind {
		case ActuatorDC:
			if a.MinDuty == nil {
				v := defaultMinDuty
				a.MinDuty = &v
			}
			if a.MaxDuty == 0 {
				a.MaxDuty = 100
			}
			if a.FrequencyHz == 0 {
				a.FrequencyHz = 1000
			}
		case ActuatorServo:
			if a.MinAngle == 0 && a.MaxAngle == 0 {
				a.MaxAngle = 180
			}
			if a.MinPulse == 0 {
				a.MinPulse = 544 * time.Microsecond
			}
			if a.MaxPulse == 0 {
				a.MaxPulse = 2400 * time.Microsecond
			}
			if a.FrequencyHz == 0 {
				a.FrequencyHz = 50
			}
		}
	}
	if cfg.StopButton != nil && cfg.StopButton.Chip == "" {
		cfg.StopButton.Chip = "gpiochip0"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "0.0.0.0:8080"
	}
	return nil
}

func (cfg *Config) validate() error {
	backends := make(map[string]BackendConfig, len(cfg.Backends))
	for i, b := range cfg.Backends {
		if b.Name == "" {
			return fmt.Errorf("backends[%d].name is required", i)
		}
		if _, dup := backends[b.Name]; dup {
			return fmt.Errorf("backend %q defined twice", b.Name)
		}
		if b.Kind == pwm.KindChip.String() {
			switch b.Transport {
			case TransportPeriph, TransportGobot, TransportPeriphDriver:
			default:
				return fmt.Errorf("backend %q: unknown transport %q", b.Name, b.Transport)
			}
			if b.Address > 0x7F {
				return fmt.Errorf("backend %q: address 0x%x is not a 7-bit address", b.Name, b.Address)
			}
		}
		if b.Resolution < 0 {
			return fmt.Errorf("backend %q: resolution must be > 0", b.Name)
		}
		backends[b.Name] = b
	}

	names := make(map[string]bool, len(cfg.Actuators))
	// A chip has one prescaler, so every actuator on it must agree.
	chipFreq := make(map[string]float64)
	for i, a := range cfg.Actuators {
		if a.Name == "" {
			return fmt.Errorf("actuators[%d].name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("actuator %q defined twice", a.Name)
		}
		names[a.Name] = true

		b, ok := backends[a.Backend]
		if !ok {
			return fmt.Errorf("actuator %q: unknown backend %q", a.Name, a.Backend)
		}
		if a.Line < 0 {
			return fmt.Errorf("actuator %q: line must be >= 0", a.Name)
		}
		if a.Kind != ActuatorDC && a.Kind != ActuatorServo {
			return fmt.Errorf("actuator %q: unknown kind %q", a.Name, a.Kind)
		}
		if a.FrequencyHz <= 0 {
			return fmt.Errorf("actuator %q: frequency_hz must be > 0", a.Name)
		}
		switch a.Kind {
		case ActuatorDC:
			if *a.MinDuty < 0 || a.MaxDuty > 100 || *a.MinDuty >= a.MaxDuty {
				return fmt.Errorf("actuator %q: need 0 <= min_duty < max_duty <= 100", a.Name)
			}
		case ActuatorServo:
			if a.MinAngle >= a.MaxAngle {
				return fmt.Errorf("actuator %q: min_angle must be < max_angle", a.Name)
			}
			if a.MinPulse >= a.MaxPulse {
				return fmt.Errorf("actuator %q: min_pulse must be < max_pulse", a.Name)
			}
			period := time.Duration(float64(time.Second) / a.FrequencyHz)
			if a.MaxPulse > period {
				return fmt.Errorf("actuator %q: max_pulse %v exceeds the %v period", a.Name, a.MaxPulse, period)
			}
		}
		if b.Kind == pwm.KindChip.String() {
			if f, seen := chipFreq[b.Name]; seen && f != a.FrequencyHz {
				return fmt.Errorf("actuator %q: backend %q already runs at %v Hz, not %v Hz", a.Name, b.Name, f, a.FrequencyHz)
			}
			chipFreq[b.Name] = a.FrequencyHz
		}
	}
	return nil
}
