package pca9685

import (
	"fmt"
	"math"
	"time"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

// Driver is a pwm.Backend for a PCA9685 16-channel PWM chip.
type Driver struct {
	address    uint16
	oscillator float64
	frequency  float64
	mode1      byte

	open  Opener
	bus   Bus
	sleep func(time.Duration)
}

type Option func(*Driver)

func WithAddress(addr uint16) Option {
	return func(d *Driver) { d.address = addr }
}

// WithOscillator overrides the oscillator frequency used for prescaler math,
// for boards with a trimmed or external clock.
func WithOscillator(hz float64) Option {
	return func(d *Driver) { d.oscillator = hz }
}

// WithSleep replaces time.Sleep for the hardware settling delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = sleep }
}

// New creates a driver. It does not touch the bus until Initialize.
func New(open Opener, opts ...Option) *Driver {
	d := &Driver{
		address:    DefaultAddress,
		oscillator: OscillatorHz,
		frequency:  DefaultFrequency,
		mode1:      mode1AI | mode1AllCall,
		open:       open,
		sleep:      time.Sleep,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Driver) Initialize() error {
	bus, err := d.open(d.address)
	if err != nil {
		return fmt.Errorf("pca9685 0x%02x: %w: %v", d.address, pwm.ErrHardwareUnavailable, err)
	}
	d.bus = bus

	if err := d.reset(); err != nil {
		return fmt.Errorf("pca9685 reset: %w", err)
	}
	if err := d.configure(); err != nil {
		return fmt.Errorf("pca9685 configure: %w", err)
	}
	return nil
}

func (d *Driver) reset() error {
	if err := d.bus.WriteReg(regMode1, mode1Restart); err != nil {
		return err
	}
	d.sleep(ResetSettle)
	return nil
}

func (d *Driver) configure() error {
	if err := d.bus.WriteReg(regMode1, mode1AI|mode1AllCall); err != nil {
		return err
	}
	d.mode1 = mode1AI | mode1AllCall
	if err := d.bus.WriteReg(regMode2, mode2OutDrv); err != nil {
		return err
	}
	d.sleep(ModeSettle)

	if err := d.setFrequency(DefaultFrequency); err != nil {
		return err
	}
	return d.setAll(0)
}

// Prescale returns the prescaler value programmed for hz.
func (d *Driver) Prescale(hz float64) byte {
	return prescale(d.oscillator, hz)
}

func prescale(oscillator, hz float64) byte {
	if hz <= 0 {
		return prescaleMax
	}
	p := math.Round(oscillator/(4096*hz)) - 1
	if p < prescaleMin {
		p = prescaleMin
	}
	if p > prescaleMax {
		p = prescaleMax
	}
	return byte(p)
}

// SetFrequency reprograms the shared prescaler, which changes the output
// frequency of all 16 channels at once.
func (d *Driver) SetFrequency(hz float64) {
	_ = d.setFrequency(hz)
}

func (d *Driver) setFrequency(hz float64) error {
	d.frequency = hz
	if d.bus == nil {
		return nil
	}
	p := d.Prescale(hz)

	old, err := d.bus.ReadReg(regMode1)
	if err != nil {
		old = d.mode1
	}
	// The prescaler only latches while the oscillator is asleep.
	if err := d.bus.WriteReg(regMode1, (old&^mode1Restart)|mode1Sleep); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regPrescale, p); err != nil {
		return err
	}
	if err := d.bus.WriteReg(regMode1, old); err != nil {
		return err
	}
	d.sleep(OscillatorStabilize)
	return d.bus.WriteReg(regMode1, old|mode1Restart)
}

func (d *Driver) Frequency() float64 {
	return d.frequency
}

func (d *Driver) SetDuty(channel, value int) {
	if channel < 0 || channel >= Channels || d.bus == nil {
		return
	}
	on, off := encode(value)
	_ = d.writeOnOff(channelReg(channel), on, off)
}

func (d *Driver) Stop(channel int) {
	if channel < 0 || channel >= Channels || d.bus == nil {
		return
	}
	_ = d.writeOnOff(channelReg(channel), 0, fullBit)
}

// SetAll drives every channel to value through the ALL_LED registers.
func (d *Driver) SetAll(value int) {
	if d.bus == nil {
		return
	}
	_ = d.setAll(value)
}

func (d *Driver) setAll(value int) error {
	on, off := encode(value)
	return d.writeOnOff(regAllLEDOnL, on, off)
}

// encode returns the on/off counter values for a duty value. The extremes
// use the full-on/full-off bits rather than a 0 or 4095 compare.
func encode(value int) (on, off uint16) {
	value = pwm.Clamp(value, 0, MaxDuty)
	switch value {
	case 0:
		return 0, fullBit
	case MaxDuty:
		return fullBit, 0
	}
	return 0, uint16(value)
}

func (d *Driver) writeOnOff(base byte, on, off uint16) error {
	regs := [4]byte{byte(on), byte(on >> 8), byte(off), byte(off >> 8)}
	for i, v := range regs {
		if err := d.bus.WriteReg(base+byte(i), v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Resolution() int { return ResolutionBits }
func (d *Driver) MaxDuty() int    { return MaxDuty }
func (d *Driver) Kind() pwm.Kind  { return pwm.KindChip }

func (d *Driver) Close() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	return err
}
