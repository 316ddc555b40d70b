package pca9685

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	periphpca "periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// DefaultAddress is the chip's power-on I²C address.
const DefaultAddress = periphpca.I2CAddr

var hostInit = func() error {
	_, err := host.Init()
	return err
}

// PeriphOpener opens the named I²C bus through periph.io. An empty name
// selects the first bus registered on the host, "1" or "I2C1" pick a
// specific one.
func PeriphOpener(busName string) Opener {
	return func(addr uint16) (Bus, error) {
		if err := hostInit(); err != nil {
			return nil, fmt.Errorf("periph host init: %w", err)
		}
		b, err := i2creg.Open(busName)
		if err != nil {
			return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
		}
		return &periphBus{closer: b, dev: &i2c.Dev{Bus: b, Addr: addr}}, nil
	}
}

type periphBus struct {
	closer interface{ Close() error }
	dev    *i2c.Dev
}

func (p *periphBus) ReadReg(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := p.dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (p *periphBus) WriteReg(reg, value byte) error {
	return p.dev.Tx([]byte{reg, value}, nil)
}

func (p *periphBus) Close() error {
	return p.closer.Close()
}
