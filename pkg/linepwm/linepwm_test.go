package linepwm

import (
	"errors"
	"testing"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

type fakeController struct {
	lines   int
	output  map[int]bool
	freq    map[int]float64
	duty    map[int]int
	calls   []string
	closed  bool
	failOut bool
}

func newFakeController() *fakeController {
	return &fakeController{
		lines:  32,
		output: map[int]bool{},
		freq:   map[int]float64{},
		duty:   map[int]int{},
	}
}

func (c *fakeController) Lines() int { return c.lines }

func (c *fakeController) Output(line int) error {
	if c.failOut {
		return errors.New("busy")
	}
	c.calls = append(c.calls, "output")
	c.output[line] = true
	return nil
}

func (c *fakeController) Input(line int) error {
	c.calls = append(c.calls, "input")
	c.output[line] = false
	return nil
}

func (c *fakeController) SetFrequency(line int, hz float64) error {
	c.calls = append(c.calls, "freq")
	c.freq[line] = hz
	return nil
}

func (c *fakeController) Write(line, duty int) error {
	c.calls = append(c.calls, "write")
	c.duty[line] = duty
	return nil
}

func (c *fakeController) Close() error {
	c.closed = true
	return nil
}

func newTestDriver(t *testing.T, resolution int) (*Driver, *fakeController) {
	t.Helper()
	c := newFakeController()
	d := New(func() (Controller, error) { return c, nil }, resolution)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return d, c
}

func TestInitializeFailure(t *testing.T) {
	d := New(func() (Controller, error) { return nil, errors.New("permission denied") }, 0)
	if err := d.Initialize(); !errors.Is(err, pwm.ErrHardwareUnavailable) {
		t.Fatalf("err=%v want ErrHardwareUnavailable", err)
	}
}

func TestDefaults(t *testing.T) {
	d := New(nil, 0)
	if d.Resolution() != 255 || d.MaxDuty() != 255 || d.Kind() != pwm.KindLocal {
		t.Fatalf("res=%d max=%d kind=%v", d.Resolution(), d.MaxDuty(), d.Kind())
	}
	if d.Frequency() != 50 {
		t.Fatalf("Frequency=%v want 50", d.Frequency())
	}
	var _ pwm.Backend = d
}

func TestStopNeverActivatedIsNoop(t *testing.T) {
	d, c := newTestDriver(t, 0)
	d.Stop(5)
	if len(c.calls) != 0 {
		t.Fatalf("expected no controller calls, got %v", c.calls)
	}
	if d.Active(5) {
		t.Fatalf("line 5 should not be active")
	}
}

func TestLazyActivation(t *testing.T) {
	d, c := newTestDriver(t, 0)
	d.SetFrequency(200)
	d.SetDuty(17, 128)

	if !d.Active(17) || !c.output[17] {
		t.Fatalf("line 17 not activated")
	}
	if c.freq[17] != 200 {
		t.Fatalf("freq=%v want 200", c.freq[17])
	}
	if c.duty[17] != 128 {
		t.Fatalf("duty=%d want 128", c.duty[17])
	}

	c.calls = nil
	d.SetDuty(17, 64)
	if len(c.calls) != 1 || c.calls[0] != "write" {
		t.Fatalf("second SetDuty calls=%v want [write]", c.calls)
	}

	d.Stop(17)
	if d.Active(17) || c.output[17] {
		t.Fatalf("line 17 still active after Stop")
	}
	if c.duty[17] != 0 {
		t.Fatalf("duty after Stop=%d want 0", c.duty[17])
	}
}

func TestSetFrequencyReprogramsActiveLines(t *testing.T) {
	d, c := newTestDriver(t, 0)
	d.SetDuty(2, 10)
	d.SetDuty(3, 10)
	d.Stop(3)

	d.SetFrequency(400)
	if c.freq[2] != 400 {
		t.Fatalf("active line freq=%v want 400", c.freq[2])
	}
	if c.freq[3] == 400 {
		t.Fatalf("stopped line should not be reprogrammed")
	}
}

func TestDutyRescaledAndClamped(t *testing.T) {
	d, c := newTestDriver(t, 1000)
	d.SetDuty(4, 500)
	if c.duty[4] != 127 {
		t.Fatalf("duty=%d want 127", c.duty[4])
	}
	d.SetDuty(4, 5000)
	if c.duty[4] != 255 {
		t.Fatalf("clamped duty=%d want 255", c.duty[4])
	}
	d.SetDuty(4, -1)
	if c.duty[4] != 0 {
		t.Fatalf("clamped duty=%d want 0", c.duty[4])
	}
}

func TestOutOfRangeLineIsNoop(t *testing.T) {
	d, c := newTestDriver(t, 0)
	d.SetDuty(-1, 100)
	d.SetDuty(32, 100)
	if len(c.calls) != 0 {
		t.Fatalf("expected no controller calls, got %v", c.calls)
	}
}

func TestOutputFailureLeavesLineInactive(t *testing.T) {
	d, c := newTestDriver(t, 0)
	c.failOut = true
	d.SetDuty(1, 100)
	if d.Active(1) {
		t.Fatalf("line 1 should not be active")
	}
}

func TestCloseReleasesActiveLines(t *testing.T) {
	d, c := newTestDriver(t, 0)
	d.SetDuty(6, 200)
	d.SetDuty(7, 200)

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.output[6] || c.output[7] {
		t.Fatalf("lines still in output mode: %v", c.output)
	}
	if c.duty[6] != 0 || c.duty[7] != 0 {
		t.Fatalf("lines still driving: %v", c.duty)
	}
	if !c.closed {
		t.Fatalf("controller not closed")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
