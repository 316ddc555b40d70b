package gpiochip

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/warthog618/go-gpiocdev"

	"github.com/Seann-Moser/motorhal/pkg/linepwm"
)

const consumer = "motorhal"

// line is the part of a requested gpiocdev.Line an output drives.
type line interface {
	setter
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

type outputLine struct {
	line line
	pwm  *softPWM
	wave waveform
}

// Chip is a linepwm.Controller backed by a GPIO character device. Each line
// in output mode is driven by a software PWM goroutine.
type Chip struct {
	chip    *gpiocdev.Chip
	mu      sync.Mutex
	lines   map[int]*outputLine
	buttons map[int]*gpiocdev.Line
}

// Open opens the named chip, e.g. "gpiochip0".
func Open(name string) (*Chip, error) {
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Chip{
		chip:    c,
		lines:   make(map[int]*outputLine),
		buttons: make(map[int]*gpiocdev.Line),
	}, nil
}

// Opener adapts Open for linepwm.New.
func Opener(name string) func() (linepwm.Controller, error) {
	return func() (linepwm.Controller, error) {
		c, err := Open(name)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (c *Chip) Lines() int {
	return c.chip.Lines()
}

func (c *Chip) Output(offset int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[offset]; ok {
		return nil
	}
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("request line %d: %w", offset, err)
	}
	c.lines[offset] = &outputLine{line: l, pwm: newSoftPWM(l)}
	return nil
}

func (c *Chip) Input(offset int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release(offset)
}

func (c *Chip) release(offset int) error {
	o, ok := c.lines[offset]
	if !ok {
		return nil
	}
	delete(c.lines, offset)
	o.pwm.close()
	_ = o.line.SetValue(0)
	if err := o.line.Reconfigure(gpiocdev.AsInput); err != nil {
		_ = o.line.Close()
		return fmt.Errorf("line %d as input: %w", offset, err)
	}
	return o.line.Close()
}

func (c *Chip) SetFrequency(offset int, hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("invalid frequency %v", hz)
	}
	return c.update(offset, func(w *waveform) {
		w.period = time.Duration(float64(time.Second) / hz)
	})
}

func (c *Chip) Write(offset, duty int) error {
	return c.update(offset, func(w *waveform) {
		w.duty = duty
	})
}

func (c *Chip) update(offset int, fn func(*waveform)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.lines[offset]
	if !ok {
		return fmt.Errorf("line %d is not an output", offset)
	}
	fn(&o.wave)
	o.pwm.update(o.wave)
	return nil
}

func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result *multierror.Error
	for offset := range c.lines {
		if err := c.release(offset); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for offset, l := range c.buttons {
		if err := l.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("button %d: %w", offset, err))
		}
		delete(c.buttons, offset)
	}
	if err := c.chip.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
