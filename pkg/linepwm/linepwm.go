package linepwm

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

// ControllerRange is the fixed duty range accepted by Controller.Write.
const ControllerRange = 255

const (
	DefaultResolution = 255
	DefaultFrequency  = 50.0
)

// Controller is the platform side of the local driver: individually
// addressable lines that can be switched between input and output and
// driven with a PWM signal.
type Controller interface {
	Lines() int
	Output(line int) error
	Input(line int) error
	SetFrequency(line int, hz float64) error
	Write(line, duty int) error
	Close() error
}

// Driver is a pwm.Backend over local PWM-capable lines. Lines are put into
// output mode the first time they are driven and back into input mode when
// stopped.
type Driver struct {
	open       func() (Controller, error)
	ctrl       Controller
	resolution int
	frequency  float64
	active     map[int]bool
}

func New(open func() (Controller, error), resolution int) *Driver {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Driver{
		open:       open,
		resolution: resolution,
		frequency:  DefaultFrequency,
		active:     make(map[int]bool),
	}
}

func (d *Driver) Initialize() error {
	c, err := d.open()
	if err != nil {
		return fmt.Errorf("line controller: %w: %v", pwm.ErrHardwareUnavailable, err)
	}
	d.ctrl = c
	d.SetFrequency(d.frequency)
	return nil
}

func (d *Driver) SetFrequency(hz float64) {
	d.frequency = hz
	for line, on := range d.active {
		if on {
			_ = d.ctrl.SetFrequency(line, hz)
		}
	}
}

func (d *Driver) Frequency() float64 {
	return d.frequency
}

func (d *Driver) valid(line int) bool {
	return d.ctrl != nil && line >= 0 && line < d.ctrl.Lines()
}

func (d *Driver) SetDuty(line, value int) {
	if !d.valid(line) {
		return
	}
	value = pwm.Clamp(value, 0, d.resolution)
	if !d.active[line] {
		if err := d.ctrl.Output(line); err != nil {
			return
		}
		_ = d.ctrl.SetFrequency(line, d.frequency)
		d.active[line] = true
	}
	_ = d.ctrl.Write(line, value*ControllerRange/d.resolution)
}

func (d *Driver) Stop(line int) {
	if !d.active[line] {
		return
	}
	_ = d.ctrl.Write(line, 0)
	_ = d.ctrl.Input(line)
	d.active[line] = false
}

func (d *Driver) Active(line int) bool {
	return d.active[line]
}

func (d *Driver) Resolution() int { return d.resolution }
func (d *Driver) MaxDuty() int    { return d.resolution }
func (d *Driver) Kind() pwm.Kind  { return pwm.KindLocal }

// Close returns every line still driving to input mode, then releases the
// controller.
func (d *Driver) Close() error {
	if d.ctrl == nil {
		return nil
	}
	var result *multierror.Error
	for line, on := range d.active {
		if !on {
			continue
		}
		if err := d.ctrl.Write(line, 0); err != nil {
			result = multierror.Append(result, fmt.Errorf("line %d: %w", line, err))
		}
		if err := d.ctrl.Input(line); err != nil {
			result = multierror.Append(result, fmt.Errorf("line %d: %w", line, err))
		}
		d.active[line] = false
	}
	if err := d.ctrl.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	d.ctrl = nil
	return result.ErrorOrNil()
}
