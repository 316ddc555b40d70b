// Package hwpwm drives the board's built-in PWM peripheral through
// go-rpio's memory-mapped registers.
package hwpwm

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

const (
	DefaultFrequency  = 490.0
	DefaultResolution = 255
)

// Pins is the set of BCM pins routed to a hardware PWM channel.
var Pins = map[int]bool{12: true, 13: true, 18: true, 19: true}

type pin interface {
	Mode(mode rpio.Mode)
	Freq(freq int)
	DutyCycle(dutyLen, cycleLen uint32)
}

var (
	rpioOpen  = rpio.Open
	rpioClose = rpio.Close
	pinFor    = func(n int) pin { return rpio.Pin(n) }
)

type Driver struct {
	frequency  float64
	resolution int
	open       bool
	active     map[int]bool
}

func New(resolution int) *Driver {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Driver{
		frequency:  DefaultFrequency,
		resolution: resolution,
		active:     make(map[int]bool),
	}
}

func (d *Driver) Initialize() error {
	if err := rpioOpen(); err != nil {
		return fmt.Errorf("rpio: %w: %v", pwm.ErrHardwareUnavailable, err)
	}
	d.open = true
	return nil
}

// SetFrequency reprograms every pin already driven. The PWM clock runs at
// hz*resolution so that one period spans the full duty range.
func (d *Driver) SetFrequency(hz float64) {
	d.frequency = hz
	for n := range d.active {
		pinFor(n).Freq(d.clock())
	}
}

func (d *Driver) clock() int {
	return int(d.frequency * float64(d.resolution))
}

func (d *Driver) Frequency() float64 {
	return d.frequency
}

func (d *Driver) SetDuty(n, value int) {
	if !d.open || !Pins[n] {
		return
	}
	value = pwm.Clamp(value, 0, d.resolution)
	p := pinFor(n)
	p.Mode(rpio.Pwm)
	if !d.active[n] {
		p.Freq(d.clock())
		d.active[n] = true
	}
	p.DutyCycle(uint32(value), uint32(d.resolution))
}

func (d *Driver) Stop(n int) {
	if !d.open || !Pins[n] {
		return
	}
	pinFor(n).DutyCycle(0, uint32(d.resolution))
}

func (d *Driver) Resolution() int { return d.resolution }
func (d *Driver) MaxDuty() int    { return d.resolution }
func (d *Driver) Kind() pwm.Kind  { return pwm.KindOnboard }

func (d *Driver) Close() error {
	if !d.open {
		return nil
	}
	for n := range d.active {
		p := pinFor(n)
		p.DutyCycle(0, uint32(d.resolution))
		p.Mode(rpio.Input)
		delete(d.active, n)
	}
	d.open = false
	return rpioClose()
}
