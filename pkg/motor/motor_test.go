package motor

import (
	"math"
	"testing"
	"time"

	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

type fakeBackend struct {
	max       int
	frequency float64
	duty      map[int]int
	stopped   map[int]int
}

func newFakeBackend(max int) *fakeBackend {
	return &fakeBackend{max: max, duty: map[int]int{}, stopped: map[int]int{}}
}

func (f *fakeBackend) Initialize() error       { return nil }
func (f *fakeBackend) SetFrequency(hz float64) { f.frequency = hz }
func (f *fakeBackend) SetDuty(line, value int) { f.duty[line] = value }
func (f *fakeBackend) Resolution() int         { return f.max }
func (f *fakeBackend) MaxDuty() int            { return f.max }
func (f *fakeBackend) Kind() pwm.Kind          { return pwm.KindChip }
func (f *fakeBackend) Close() error            { return nil }

func (f *fakeBackend) Stop(line int) {
	f.duty[line] = 0
	f.stopped[line]++
}

func TestNewDCMotorConfiguresBackend(t *testing.T) {
	b := newFakeBackend(4095)
	m := NewDCMotor(b, 2, DCConfig{})
	if b.frequency != 1000 {
		t.Fatalf("frequency=%v want 1000", b.frequency)
	}
	if b.stopped[2] != 1 {
		t.Fatalf("line 2 not stopped at construction")
	}
	if lo, hi := m.DutyRange(); lo != 20 || hi != 100 {
		t.Fatalf("DutyRange=%v,%v want 20,100", lo, hi)
	}
	var _ Actuator = m

	// An explicit range keeps a zero deadzone.
	m = NewDCMotor(b, 2, DCConfig{MaxDuty: 100})
	if lo, hi := m.DutyRange(); lo != 0 || hi != 100 {
		t.Fatalf("DutyRange=%v,%v want 0,100", lo, hi)
	}
}

func TestNaNCommandsStayInRange(t *testing.T) {
	b := newFakeBackend(4095)
	m := NewDCMotor(b, 0, DefaultDCConfig())
	m.SetSpeed(60)
	m.SetSpeed(math.NaN())
	if m.Speed() != 0 || b.duty[0] != 0 {
		t.Fatalf("dc speed=%v duty=%d after NaN", m.Speed(), b.duty[0])
	}

	s := NewServo(b, 1, ServoConfig{MinAngle: 30, MaxAngle: 150})
	s.SetAngle(math.NaN())
	if s.Angle() != 30 || s.Speed() != 0 || b.duty[1] != 111 {
		t.Fatalf("servo angle=%v speed=%v duty=%d after NaN", s.Angle(), s.Speed(), b.duty[1])
	}
	s.SetSpeed(math.NaN())
	if s.Speed() != 0 {
		t.Fatalf("servo speed=%v after NaN", s.Speed())
	}
}

func TestDCSpeedRoundTripAndClamp(t *testing.T) {
	m := NewDCMotor(newFakeBackend(4095), 0, DefaultDCConfig())
	for _, p := range []float64{0, 0.5, 20, 50, 99.9, 100} {
		m.SetSpeed(p)
		if m.Speed() != p {
			t.Fatalf("Speed()=%v want %v", m.Speed(), p)
		}
	}
	m.SetSpeed(140)
	if m.Speed() != 100 {
		t.Fatalf("Speed()=%v want 100", m.Speed())
	}
	m.SetSpeed(-3)
	if m.Speed() != 0 {
		t.Fatalf("Speed()=%v want 0", m.Speed())
	}
}

func TestDCDutyMonotonic(t *testing.T) {
	b := newFakeBackend(4095)
	m := NewDCMotor(b, 1, DefaultDCConfig())
	prev := -1
	for p := 0.0; p <= 100; p += 0.5 {
		m.SetSpeed(p)
		if b.duty[1] < prev {
			t.Fatalf("duty decreased at p=%v: %d < %d", p, b.duty[1], prev)
		}
		prev = b.duty[1]
	}
	if prev != 4095 {
		t.Fatalf("duty at 100%%=%d want 4095", prev)
	}
}

func TestDCDeadzone(t *testing.T) {
	b := newFakeBackend(4095)
	m := NewDCMotor(b, 0, DCConfig{MinDuty: 20, MaxDuty: 100})

	m.SetSpeed(0)
	if b.duty[0] != 0 {
		t.Fatalf("duty at 0%%=%d want 0", b.duty[0])
	}
	floor := int(0.20 * 4095)
	for _, p := range []float64{0.01, 1, 5, 19} {
		m.SetSpeed(p)
		if b.duty[0] < floor {
			t.Fatalf("duty at %v%%=%d below deadzone %d", p, b.duty[0], floor)
		}
	}
	m.SetSpeed(50)
	if b.duty[0] != int(0.60*4095) {
		t.Fatalf("duty at 50%%=%d want %d", b.duty[0], int(0.60*4095))
	}
}

func TestDCInversionLaw(t *testing.T) {
	for _, p := range []float64{0, 10, 33.3, 50, 80, 100} {
		inv := newFakeBackend(255)
		a := NewDCMotor(inv, 0, DefaultDCConfig())
		a.SetDirection(true)
		a.SetSpeed(p)

		plain := newFakeBackend(255)
		b := NewDCMotor(plain, 0, DefaultDCConfig())
		b.SetDirection(false)
		b.SetSpeed(100 - p)

		if inv.duty[0] != plain.duty[0] {
			t.Fatalf("p=%v inverted duty=%d plain duty=%d", p, inv.duty[0], plain.duty[0])
		}
	}
}

func TestDCSetDirectionReappliesSpeed(t *testing.T) {
	b := newFakeBackend(255)
	m := NewDCMotor(b, 3, DefaultDCConfig())
	m.SetSpeed(100)
	if b.duty[3] != 255 {
		t.Fatalf("duty=%d want 255", b.duty[3])
	}
	m.SetDirection(true)
	if !m.Inverted() {
		t.Fatalf("Inverted()=false")
	}
	if b.duty[3] != 0 {
		t.Fatalf("duty after invert=%d want 0", b.duty[3])
	}
	if m.Speed() != 100 {
		t.Fatalf("Speed()=%v want 100", m.Speed())
	}
}

func TestDCStop(t *testing.T) {
	b := newFakeBackend(255)
	m := NewDCMotor(b, 4, DefaultDCConfig())
	m.SetSpeed(70)
	m.Stop()
	if m.Speed() != 0 || b.duty[4] != 0 || b.stopped[4] != 2 {
		t.Fatalf("speed=%v duty=%d stops=%d", m.Speed(), b.duty[4], b.stopped[4])
	}
}

func TestServoAngleEndpoints(t *testing.T) {
	b := newFakeBackend(4095)
	s := NewServo(b, 5, DefaultServoConfig())
	if b.frequency != 50 {
		t.Fatalf("frequency=%v want 50", b.frequency)
	}

	s.SetAngle(0)
	if s.PulseWidth() != 544*time.Microsecond {
		t.Fatalf("pulse at min=%v", s.PulseWidth())
	}
	if b.duty[5] != 111 {
		t.Fatalf("duty at min=%d want 111", b.duty[5])
	}

	s.SetAngle(180)
	if s.PulseWidth() != 2400*time.Microsecond {
		t.Fatalf("pulse at max=%v", s.PulseWidth())
	}
	if b.duty[5] != 491 {
		t.Fatalf("duty at max=%d want 491", b.duty[5])
	}

	s.SetAngle(90)
	if s.PulseWidth() != 1472*time.Microsecond {
		t.Fatalf("pulse at 90=%v", s.PulseWidth())
	}
	if s.Angle() != 90 {
		t.Fatalf("Angle()=%v want 90", s.Angle())
	}
}

func TestServoLinearAndClamped(t *testing.T) {
	cfg := ServoConfig{
		FrequencyHz: 50,
		MinAngle:    -90,
		MaxAngle:    90,
		MinPulse:    1000 * time.Microsecond,
		MaxPulse:    2000 * time.Microsecond,
	}
	s := NewServo(newFakeBackend(4095), 0, cfg)
	for _, a := range []float64{-90, -45, 0, 45, 90} {
		s.SetAngle(a)
		want := 1000*time.Microsecond + time.Duration((a+90)/180*float64(1000*time.Microsecond))
		if d := s.PulseWidth() - want; d > time.Nanosecond || d < -time.Nanosecond {
			t.Fatalf("angle %v pulse=%v want %v", a, s.PulseWidth(), want)
		}
	}
	s.SetAngle(400)
	if s.Angle() != 90 || s.PulseWidth() != 2000*time.Microsecond {
		t.Fatalf("clamp high angle=%v pulse=%v", s.Angle(), s.PulseWidth())
	}
	s.SetAngle(-400)
	if s.Angle() != -90 || s.PulseWidth() != 1000*time.Microsecond {
		t.Fatalf("clamp low angle=%v pulse=%v", s.Angle(), s.PulseWidth())
	}
}

func TestServoStop(t *testing.T) {
	b := newFakeBackend(255)
	s := NewServo(b, 7, ServoConfig{})
	s.SetAngle(120)
	s.Stop()
	if s.Speed() != 0 || s.PulseWidth() != 0 || b.stopped[7] != 2 {
		t.Fatalf("speed=%v pulse=%v stops=%d", s.Speed(), s.PulseWidth(), b.stopped[7])
	}
	var _ Actuator = s
}
