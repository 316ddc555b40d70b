package motor

import "github.com/Seann-Moser/motorhal/pkg/pwm"

type DCConfig struct {
	// MinDuty is the duty percentage below which the motor stalls.
	MinDuty float64
	MaxDuty float64
	Invert  bool
	// FrequencyHz is programmed on the backend at construction. On a shared
	// chip it applies to every channel.
	FrequencyHz float64
}

func DefaultDCConfig() DCConfig {
	return DCConfig{
		MinDuty:     20,
		MaxDuty:     100,
		FrequencyHz: 1000,
	}
}

// DCMotor is a continuous-drive actuator with a deadzone and optional
// inverted sense.
type DCMotor struct {
	base
	minDuty   float64
	maxDuty   float64
	invert    bool
	frequency float64
}

// NewDCMotor binds a DC motor to line on an initialized backend, programs
// the backend frequency and stops the line. A zero MaxDuty or FrequencyHz
// takes the DefaultDCConfig value; with MaxDuty unset a zero MinDuty does
// too, so DCConfig{} is the default motor. Set MaxDuty to use a MinDuty of 0.
func NewDCMotor(backend pwm.Backend, line int, cfg DCConfig) *DCMotor {
	def := DefaultDCConfig()
	if cfg.MaxDuty <= 0 {
		cfg.MaxDuty = def.MaxDuty
		if cfg.MinDuty == 0 {
			cfg.MinDuty = def.MinDuty
		}
	}
	if cfg.FrequencyHz <= 0 {
		cfg.FrequencyHz = def.FrequencyHz
	}
	m := &DCMotor{
		base:      base{backend: backend, line: line},
		minDuty:   clampf(cfg.MinDuty, 0, 100),
		maxDuty:   clampf(cfg.MaxDuty, 0, 100),
		invert:    cfg.Invert,
		frequency: cfg.FrequencyHz,
	}
	backend.SetFrequency(m.frequency)
	m.Stop()
	return m
}

func (m *DCMotor) SetSpeed(percentage float64) {
	m.speed = clampf(percentage, 0, 100)
	m.backend.SetDuty(m.line, m.Duty())
}

// Duty returns the backend-native duty value for the current speed and
// direction.
func (m *DCMotor) Duty() int {
	adjusted := m.speed
	if m.invert {
		adjusted = 100 - m.speed
	}
	duty := mapSpeedToDuty(adjusted, m.minDuty, m.maxDuty)
	return int(duty / 100 * float64(m.backend.MaxDuty()))
}

// SetDirection changes the sense and re-applies the current speed.
func (m *DCMotor) SetDirection(invert bool) {
	m.invert = invert
	m.SetSpeed(m.speed)
}

func (m *DCMotor) Inverted() bool { return m.invert }

func (m *DCMotor) Frequency() float64 { return m.frequency }

// DutyRange returns the calibrated deadzone and ceiling, in percent.
func (m *DCMotor) DutyRange() (lo, hi float64) {
	return m.minDuty, m.maxDuty
}
