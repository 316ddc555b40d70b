package pca9685

// Bus is a byte-level register connection to one device on a two-wire bus.
type Bus interface {
	ReadReg(reg byte) (byte, error)
	WriteReg(reg, value byte) error
	Close() error
}

// Opener opens an exclusive Bus connection to the device at addr.
type Opener func(addr uint16) (Bus, error)
