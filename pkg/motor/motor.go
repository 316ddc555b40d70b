package motor

import (
	"math"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

// Actuator is a motor bound to one line of a pwm.Backend. Commands outside
// the physical range are clamped, never rejected.
type Actuator interface {
	SetSpeed(percentage float64)
	Speed() float64
	Stop()
	Line() int
	Backend() pwm.Backend
}

// base holds what every actuator shares. The backend is not owned: it must
// outlive the actuator and is never closed by it.
type base struct {
	backend pwm.Backend
	line    int
	speed   float64
}

func (b *base) Speed() float64       { return b.speed }
func (b *base) Line() int            { return b.line }
func (b *base) Backend() pwm.Backend { return b.backend }

func (b *base) Stop() {
	b.speed = 0
	b.backend.Stop(b.line)
}

// mapSpeedToDuty maps a 0-100 speed onto [minDuty, maxDuty] with a deadzone:
// zero stays zero, anything above it starts at minDuty.
func mapSpeedToDuty(percentage, minDuty, maxDuty float64) float64 {
	if percentage <= 0 {
		return 0
	}
	if percentage >= 100 {
		return maxDuty
	}
	return minDuty + (maxDuty-minDuty)*(percentage/100)
}

// clampf bounds v to [lo, hi]. NaN maps to lo.
func clampf(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
