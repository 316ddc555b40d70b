package motor

import (
	"math"
	"time"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

type ServoConfig struct {
	FrequencyHz float64
	MinAngle    float64
	MaxAngle    float64
	MinPulse    time.Duration
	MaxPulse    time.Duration
}

func DefaultServoConfig() ServoConfig {
	return ServoConfig{
		FrequencyHz: 50,
		MinAngle:    0,
		MaxAngle:    180,
		MinPulse:    544 * time.Microsecond,
		MaxPulse:    2400 * time.Microsecond,
	}
}

// Servo is a position actuator. Speed is the 0-100 position within the
// angle range; it maps linearly onto the pulse width range.
type Servo struct {
	base
	frequency float64
	period    time.Duration
	minAngle  float64
	maxAngle  float64
	minPulse  time.Duration
	maxPulse  time.Duration
	pulse     time.Duration
}

// NewServo binds a servo to line on an initialized backend, programs the
// backend frequency and stops the line. Zero frequency or pulse fields, and
// an empty angle range, take the DefaultServoConfig values.
func NewServo(backend pwm.Backend, line int, cfg ServoConfig) *Servo {
	def := DefaultServoConfig()
	if cfg.FrequencyHz <= 0 {
		cfg.FrequencyHz = def.FrequencyHz
	}
	if cfg.MaxAngle <= cfg.MinAngle {
		cfg.MinAngle, cfg.MaxAngle = def.MinAngle, def.MaxAngle
	}
	if cfg.MinPulse <= 0 {
		cfg.MinPulse = def.MinPulse
	}
	if cfg.MaxPulse <= 0 {
		cfg.MaxPulse = def.MaxPulse
	}
	s := &Servo{
		base:      base{backend: backend, line: line},
		frequency: cfg.FrequencyHz,
		period:    time.Duration(float64(time.Second) / cfg.FrequencyHz),
		minAngle:  cfg.MinAngle,
		maxAngle:  cfg.MaxAngle,
		minPulse:  cfg.MinPulse,
		maxPulse:  cfg.MaxPulse,
	}
	backend.SetFrequency(s.frequency)
	s.Stop()
	return s
}

// SetAngle moves to angle, clamped to the configured range.
func (s *Servo) SetAngle(angle float64) {
	angle = clampf(angle, s.minAngle, s.maxAngle)
	s.SetSpeed((angle - s.minAngle) / (s.maxAngle - s.minAngle) * 100)
}

func (s *Servo) SetSpeed(percentage float64) {
	s.speed = clampf(percentage, 0, 100)
	s.pulse = s.minPulse + time.Duration(float64(s.maxPulse-s.minPulse)*s.speed/100)
	s.backend.SetDuty(s.line, s.Duty())
}

// Duty converts the current pulse width into backend-native units.
func (s *Servo) Duty() int {
	ratio := float64(s.pulse) / float64(s.period)
	return int(math.Round(ratio * float64(s.backend.MaxDuty())))
}

func (s *Servo) Stop() {
	s.base.Stop()
	s.pulse = 0
}

// Angle returns the last commanded angle.
func (s *Servo) Angle() float64 {
	return s.minAngle + s.speed/100*(s.maxAngle-s.minAngle)
}

// PulseWidth returns the last commanded pulse width, zero when stopped.
func (s *Servo) PulseWidth() time.Duration { return s.pulse }

func (s *Servo) Frequency() float64 { return s.frequency }

func (s *Servo) AngleRange() (lo, hi float64) { return s.minAngle, s.maxAngle }

func (s *Servo) PulseRange() (lo, hi time.Duration) { return s.minPulse, s.maxPulse }
