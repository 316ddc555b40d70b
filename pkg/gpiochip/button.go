package gpiochip

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Debounce is the shortest press reported by a Button.
var Debounce = 20 * time.Millisecond

type ButtonEvent struct {
	Duration time.Duration
}

// Button reports presses of a pulled-up, active-low push button.
type Button struct {
	Events  chan ButtonEvent
	pressed bool
	start   time.Time
	now     func() time.Time
}

func newButton() *Button {
	return &Button{
		Events: make(chan ButtonEvent, 4),
		now:    time.Now,
	}
}

// eventHandler runs on the gpiocdev watcher goroutine. A press is reported
// on release; presses shorter than Debounce are dropped, and events are
// dropped when nobody is reading.
func (b *Button) eventHandler(evt gpiocdev.LineEvent) {
	down := evt.Type == gpiocdev.LineEventFallingEdge
	if down == b.pressed {
		return
	}
	b.pressed = down
	if down {
		b.start = b.now()
		return
	}
	d := b.now().Sub(b.start)
	if d < Debounce {
		return
	}
	select {
	case b.Events <- ButtonEvent{Duration: d}:
	default:
	}
}

// WatchButton requests offset as an input with pull-up and both-edge events.
func (c *Chip) WatchButton(offset int) (*Button, error) {
	b := newButton()
	l, err := c.chip.RequestLine(offset,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(b.eventHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line: %w", err)
	}
	c.mu.Lock()
	c.buttons[offset] = l
	c.mu.Unlock()
	return b, nil
}
