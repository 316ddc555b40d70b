package pwm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHardwareUnavailable is returned by Initialize when the bus or controller
// behind a backend cannot be acquired. It is fatal to the backend instance.
var ErrHardwareUnavailable = errors.New("pwm: hardware unavailable")

type Kind int

const (
	KindOnboard Kind = iota
	KindChip
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindOnboard:
		return "onboard"
	case KindChip:
		return "chip"
	case KindLocal:
		return "local"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onboard":
		return KindOnboard, nil
	case "chip", "pca9685":
		return KindChip, nil
	case "local", "gpio":
		return KindLocal, nil
	}
	return 0, fmt.Errorf("unknown backend kind: %q", s)
}

// Backend is a PWM signal source.
//
// Initialize must be called exactly once before any other method. SetDuty and
// Stop silently ignore lines the backend does not manage, and values are
// clamped to [0, MaxDuty()]. Steady-state writes never report failure; a
// dropped write is corrected by the next command.
//
// Implementations are not safe for concurrent use. When several actuators
// share one backend (the common case for a 16-channel chip), the caller must
// serialize every call into it: a frequency change is a read-modify-write
// sequence on the hardware.
type Backend interface {
	Initialize() error
	SetFrequency(hz float64)
	SetDuty(line, value int)
	Stop(line int)
	Resolution() int
	MaxDuty() int
	Kind() Kind
	Close() error
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
