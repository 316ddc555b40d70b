package rig

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/Seann-Moser/motorhal/pkg/config"
	"github.com/Seann-Moser/motorhal/pkg/gpiochip"
	"github.com/Seann-Moser/motorhal/pkg/motor"
	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

var (
	ErrUnknownActuator = errors.New("unknown actuator")
	ErrUnsupported     = errors.New("operation not supported by actuator")
)

// backend serializes every call into one pwm.Backend. Actuators sharing a
// chip share this lock.
type backend struct {
	name string
	mu   sync.Mutex
	pwm  pwm.Backend
}

type actuator struct {
	name    string
	kind    string
	initial *float64
	backend *backend
	motor   motor.Actuator
}

// Rig owns the backends and the actuators bound to them.
type Rig struct {
	backends  []*backend
	actuators map[string]*actuator
	names     []string

	stopChip   *gpiochip.Chip
	stopButton *gpiochip.Button
}

type Option func(*options)

type options struct {
	factory    BackendFactory
	stopButton bool
}

func WithBackendFactory(f BackendFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithoutStopButton ignores the configured stop button.
func WithoutStopButton() Option {
	return func(o *options) { o.stopButton = false }
}

// New initializes every configured backend once, then binds the actuators.
// A backend that fails to initialize is fatal: everything opened so far is
// closed and the error returned.
func New(cfg config.Config, opts ...Option) (*Rig, error) {
	o := options{factory: NewBackend, stopButton: true}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Rig{actuators: make(map[string]*actuator)}
	byName := make(map[string]*backend, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		b, err := o.factory(bc)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		if err := b.Initialize(); err != nil {
			_ = b.Close()
			_ = r.Close()
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}
		log.Printf("backend %s (%v) initialized", bc.Name, b.Kind())
		be := &backend{name: bc.Name, pwm: b}
		r.backends = append(r.backends, be)
		byName[bc.Name] = be
	}

	for _, ac := range cfg.Actuators {
		be, ok := byName[ac.Backend]
		if !ok {
			_ = r.Close()
			return nil, fmt.Errorf("actuator %q: unknown backend %q", ac.Name, ac.Backend)
		}
		a := &actuator{name: ac.Name, kind: ac.Kind, initial: ac.Initial, backend: be}
		be.mu.Lock()
		switch ac.Kind {
		case config.ActuatorServo:
			a.motor = motor.NewServo(be.pwm, ac.Line, motor.ServoConfig{
				FrequencyHz: ac.FrequencyHz,
				MinAngle:    ac.MinAngle,
				MaxAngle:    ac.MaxAngle,
				MinPulse:    ac.MinPulse,
				MaxPulse:    ac.MaxPulse,
			})
		default:
			dc := motor.DCConfig{
				MaxDuty:     ac.MaxDuty,
				Invert:      ac.Invert,
				FrequencyHz: ac.FrequencyHz,
			}
			if ac.MinDuty != nil {
				dc.MinDuty = *ac.MinDuty
			}
			a.motor = motor.NewDCMotor(be.pwm, ac.Line, dc)
		}
		be.mu.Unlock()
		r.actuators[ac.Name] = a
		r.names = append(r.names, ac.Name)
	}
	sort.Strings(r.names)

	if o.stopButton && cfg.StopButton != nil {
		chip, err := gpiochip.Open(cfg.StopButton.Chip)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("stop button: %w", err)
		}
		r.stopChip = chip
		b, err := chip.WatchButton(cfg.StopButton.Line)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("stop button: %w", err)
		}
		r.stopButton = b
	}
	return r, nil
}

func (r *Rig) get(name string) (*actuator, error) {
	a, ok := r.actuators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActuator, name)
	}
	return a, nil
}

func (r *Rig) with(name string, fn func(a *actuator) error) error {
	a, err := r.get(name)
	if err != nil {
		return err
	}
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	return fn(a)
}

// ApplyInitial sends each actuator's configured initial command.
func (r *Rig) ApplyInitial() {
	for _, name := range r.names {
		a := r.actuators[name]
		if a.initial == nil {
			continue
		}
		v := *a.initial
		_ = r.with(name, func(a *actuator) error {
			if s, ok := a.motor.(*motor.Servo); ok {
				s.SetAngle(v)
			} else {
				a.motor.SetSpeed(v)
			}
			return nil
		})
		log.Printf("%s: initial command %v", name, v)
	}
}

func (r *Rig) SetSpeed(name string, percentage float64) error {
	return r.with(name, func(a *actuator) error {
		a.motor.SetSpeed(percentage)
		return nil
	})
}

func (r *Rig) SetAngle(name string, angle float64) error {
	return r.with(name, func(a *actuator) error {
		s, ok := a.motor.(*motor.Servo)
		if !ok {
			return fmt.Errorf("%w: %q is not a servo", ErrUnsupported, name)
		}
		s.SetAngle(angle)
		return nil
	})
}

func (r *Rig) SetDirection(name string, invert bool) error {
	return r.with(name, func(a *actuator) error {
		m, ok := a.motor.(*motor.DCMotor)
		if !ok {
			return fmt.Errorf("%w: %q is not a dc motor", ErrUnsupported, name)
		}
		m.SetDirection(invert)
		return nil
	})
}

func (r *Rig) Stop(name string) error {
	return r.with(name, func(a *actuator) error {
		a.motor.Stop()
		return nil
	})
}

func (r *Rig) StopAll() {
	for _, name := range r.names {
		_ = r.Stop(name)
	}
}

type Status struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Backend     string   `json:"backend"`
	BackendKind string   `json:"backendKind"`
	Line        int      `json:"line"`
	Speed       float64  `json:"speed"`
	Angle       *float64 `json:"angle,omitempty"`
	Inverted    *bool    `json:"inverted,omitempty"`
}

func (r *Rig) Status() []Status {
	out := make([]Status, 0, len(r.names))
	for _, name := range r.names {
		s, _ := r.status(name)
		out = append(out, s)
	}
	return out
}

func (r *Rig) status(name string) (Status, error) {
	var s Status
	err := r.with(name, func(a *actuator) error {
		s = Status{
			Name:        a.name,
			Kind:        a.kind,
			Backend:     a.backend.name,
			BackendKind: a.motor.Backend().Kind().String(),
			Line:        a.motor.Line(),
			Speed:       a.motor.Speed(),
		}
		switch m := a.motor.(type) {
		case *motor.Servo:
			angle := m.Angle()
			s.Angle = &angle
		case *motor.DCMotor:
			inv := m.Inverted()
			s.Inverted = &inv
		}
		return nil
	})
	return s, err
}

// Run blocks until ctx is done, stopping every actuator on each press of
// the stop button.
func (r *Rig) Run(ctx context.Context) {
	var events chan gpiochip.ButtonEvent
	if r.stopButton != nil {
		events = r.stopButton.Events
	}
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			log.Printf("stop button pressed for %v, stopping all actuators", evt.Duration)
			r.StopAll()
		}
	}
}

// Close stops every actuator, then releases the backends.
func (r *Rig) Close() error {
	r.StopAll()
	var result *multierror.Error
	if r.stopChip != nil {
		if err := r.stopChip.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop button: %w", err))
		}
		r.stopChip = nil
		r.stopButton = nil
	}
	for _, b := range r.backends {
		b.mu.Lock()
		if err := b.pwm.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("backend %q: %w", b.name, err))
		}
		b.mu.Unlock()
	}
	r.backends = nil
	return result.ErrorOrNil()
}
