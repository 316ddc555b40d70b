package pca9685

import (
	"fmt"

	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
)

// GobotOpener opens the device through a gobot I²C connector. A nil
// connector uses the Raspberry Pi adaptor and a negative bus selects the
// connector's default bus.
func GobotOpener(conn i2c.Connector, bus int) Opener {
	if conn == nil {
		conn = raspi.NewAdaptor()
	}
	return func(addr uint16) (Bus, error) {
		b := bus
		if b < 0 {
			b = conn.GetDefaultBus()
		}
		c, err := conn.GetConnection(int(addr), b)
		if err != nil {
			return nil, fmt.Errorf("gobot i2c connection bus %d: %w", b, err)
		}
		return gobotBus{conn: c}, nil
	}
}

type gobotBus struct {
	conn i2c.Connection
}

func (g gobotBus) ReadReg(reg byte) (byte, error) {
	return g.conn.ReadByteData(reg)
}

func (g gobotBus) WriteReg(reg, value byte) error {
	return g.conn.WriteByteData(reg, value)
}

func (g gobotBus) Close() error {
	return g.conn.Close()
}
