package pca9685

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	periphpca "periph.io/x/devices/v3/pca9685"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

// Device is the part of periph's pca9685.Dev that DevDriver uses. On and off
// are raw 13-bit counter values including the full-on/full-off bit.
type Device interface {
	SetPwmFreq(freq physic.Frequency) error
	SetPwm(channel int, on, off gpio.Duty) error
	SetAllPwm(on, off gpio.Duty) error
}

// DevOpener opens a ready Device at addr, along with the bus handle to
// release on Close.
type DevOpener func(addr uint16) (Device, io.Closer, error)

// PeriphDevOpener opens the chip through periph.io's own pca9685 driver.
// NewI2C resets and configures the chip itself.
func PeriphDevOpener(busName string) DevOpener {
	return func(addr uint16) (Device, io.Closer, error) {
		if err := hostInit(); err != nil {
			return nil, nil, fmt.Errorf("periph host init: %w", err)
		}
		b, err := i2creg.Open(busName)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
		}
		dev, err := periphpca.NewI2C(b, addr)
		if err != nil {
			_ = b.Close()
			return nil, nil, err
		}
		return dev, b, nil
	}
}

// DevDriver is a pwm.Backend that delegates register access to a Device
// instead of writing the register sequences itself.
type DevDriver struct {
	address   uint16
	frequency float64
	open      DevOpener
	dev       Device
	closer    io.Closer
}

func NewDev(open DevOpener, addr uint16) *DevDriver {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &DevDriver{
		address:   addr,
		frequency: DefaultFrequency,
		open:      open,
	}
}

func hertz(hz float64) physic.Frequency {
	return physic.Frequency(hz * float64(physic.Hertz))
}

func (d *DevDriver) Initialize() error {
	dev, closer, err := d.open(d.address)
	if err != nil {
		return fmt.Errorf("pca9685 0x%02x: %w: %v", d.address, pwm.ErrHardwareUnavailable, err)
	}
	d.dev, d.closer = dev, closer

	if err := d.dev.SetPwmFreq(hertz(DefaultFrequency)); err != nil {
		return fmt.Errorf("pca9685 frequency: %w", err)
	}
	d.frequency = DefaultFrequency
	on, off := encode(0)
	if err := d.dev.SetAllPwm(gpio.Duty(on), gpio.Duty(off)); err != nil {
		return fmt.Errorf("pca9685 all off: %w", err)
	}
	return nil
}

func (d *DevDriver) SetFrequency(hz float64) {
	d.frequency = hz
	if d.dev == nil || hz <= 0 {
		return
	}
	_ = d.dev.SetPwmFreq(hertz(hz))
}

func (d *DevDriver) Frequency() float64 {
	return d.frequency
}

func (d *DevDriver) SetDuty(channel, value int) {
	if channel < 0 || channel >= Channels || d.dev == nil {
		return
	}
	on, off := encode(value)
	_ = d.dev.SetPwm(channel, gpio.Duty(on), gpio.Duty(off))
}

func (d *DevDriver) Stop(channel int) {
	if channel < 0 || channel >= Channels || d.dev == nil {
		return
	}
	_ = d.dev.SetPwm(channel, 0, gpio.Duty(fullBit))
}

func (d *DevDriver) Resolution() int { return ResolutionBits }
func (d *DevDriver) MaxDuty() int    { return MaxDuty }
func (d *DevDriver) Kind() pwm.Kind  { return pwm.KindChip }
func (d *DevDriver) Address() uint16 { return d.address }

func (d *DevDriver) Close() error {
	d.dev = nil
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}
