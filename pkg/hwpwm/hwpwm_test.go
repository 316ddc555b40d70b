package hwpwm

import (
	"errors"
	"testing"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

type fakePin struct {
	mode  rpio.Mode
	freq  int
	duty  uint32
	cycle uint32
}

func (p *fakePin) Mode(mode rpio.Mode)                { p.mode = mode }
func (p *fakePin) Freq(freq int)                      { p.freq = freq }
func (p *fakePin) DutyCycle(dutyLen, cycleLen uint32) { p.duty, p.cycle = dutyLen, cycleLen }

func withFakeRPIO(t *testing.T, openErr error) map[int]*fakePin {
	t.Helper()
	pins := map[int]*fakePin{}
	oldOpen, oldClose, oldPin := rpioOpen, rpioClose, pinFor
	rpioOpen = func() error { return openErr }
	rpioClose = func() error { return nil }
	pinFor = func(n int) pin {
		if pins[n] == nil {
			pins[n] = &fakePin{}
		}
		return pins[n]
	}
	t.Cleanup(func() {
		rpioOpen, rpioClose, pinFor = oldOpen, oldClose, oldPin
	})
	return pins
}

func TestInitializeFailure(t *testing.T) {
	withFakeRPIO(t, errors.New("/dev/gpiomem: permission denied"))
	d := New(0)
	if err := d.Initialize(); !errors.Is(err, pwm.ErrHardwareUnavailable) {
		t.Fatalf("err=%v want ErrHardwareUnavailable", err)
	}
}

func TestSetDutyProgramsPin(t *testing.T) {
	pins := withFakeRPIO(t, nil)
	d := New(0)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	d.SetFrequency(50)
	d.SetDuty(18, 300)

	p := pins[18]
	if p == nil {
		t.Fatalf("pin 18 not touched")
	}
	if p.mode != rpio.Pwm {
		t.Fatalf("mode=%v want Pwm", p.mode)
	}
	if p.freq != 50*255 {
		t.Fatalf("freq=%d want %d", p.freq, 50*255)
	}
	if p.duty != 255 || p.cycle != 255 {
		t.Fatalf("duty=%d/%d want 255/255", p.duty, p.cycle)
	}

	d.SetFrequency(100)
	if p.freq != 100*255 {
		t.Fatalf("freq after change=%d", p.freq)
	}

	d.Stop(18)
	if p.duty != 0 {
		t.Fatalf("duty after Stop=%d", p.duty)
	}
}

func TestNonPWMPinIsNoop(t *testing.T) {
	pins := withFakeRPIO(t, nil)
	d := New(0)
	_ = d.Initialize()
	d.SetDuty(4, 100)
	d.Stop(4)
	if len(pins) != 0 {
		t.Fatalf("expected no pin access, got %v", pins)
	}
}

func TestCloseReturnsPinsToInput(t *testing.T) {
	pins := withFakeRPIO(t, nil)
	d := New(0)
	_ = d.Initialize()
	d.SetDuty(12, 100)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if pins[12].mode != rpio.Input || pins[12].duty != 0 {
		t.Fatalf("pin 12 mode=%v duty=%d", pins[12].mode, pins[12].duty)
	}
	if d.Kind() != pwm.KindOnboard {
		t.Fatalf("kind=%v", d.Kind())
	}
}
