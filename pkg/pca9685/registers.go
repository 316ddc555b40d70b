package pca9685

import "time"

// Register map.
const (
	regMode1     byte = 0x00
	regMode2     byte = 0x01
	regLED0OnL   byte = 0x06
	regAllLEDOnL byte = 0xFA
	regPrescale  byte = 0xFE
)

// MODE1 bits.
const (
	mode1Restart byte = 0x80
	mode1ExtClk  byte = 0x40
	mode1AI      byte = 0x20
	mode1Sleep   byte = 0x10
	mode1AllCall byte = 0x01
)

// MODE2 bits.
const (
	mode2OutDrv byte = 0x04
)

const (
	Channels = 16
	// MaxDuty is the full-scale 12-bit on/off counter value.
	MaxDuty = 4095
	// ResolutionBits is the width of the on/off counters.
	ResolutionBits = 12

	// fullBit is bit 4 of the ON_H/OFF_H register, i.e. 4096 in the 13-bit
	// on/off value. It forces the output fully on or fully off.
	fullBit uint16 = 0x1000

	// OscillatorHz is the internal oscillator frequency.
	OscillatorHz = 25_000_000.0

	prescaleMin = 3
	prescaleMax = 255

	DefaultFrequency = 50.0
)

// Hardware settling delays.
const (
	ResetSettle         = 10 * time.Millisecond
	ModeSettle          = 5 * time.Millisecond
	OscillatorStabilize = 5 * time.Millisecond
)

func channelReg(channel int) byte {
	return regLED0OnL + byte(4*channel)
}
