package gpiochip

import (
	"time"

	"github.com/Seann-Moser/motorhal/pkg/linepwm"
)

type setter interface {
	SetValue(value int) error
}

type waveform struct {
	period time.Duration
	duty   int
}

// softPWM toggles a line from its own goroutine. New waveforms are picked up
// at the end of the current period; a duty of 0 or full scale holds the
// level without toggling.
type softPWM struct {
	out    setter
	set    chan waveform
	done   chan struct{}
	exited chan struct{}
	level  int
}

func newSoftPWM(out setter) *softPWM {
	p := &softPWM{
		out:    out,
		set:    make(chan waveform, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		level:  -1,
	}
	go p.run()
	return p
}

// update must not be called concurrently with itself.
func (p *softPWM) update(w waveform) {
	select {
	case <-p.set:
	default:
	}
	p.set <- w
}

func (p *softPWM) close() {
	close(p.done)
	<-p.exited
}

func (p *softPWM) drive(v int) {
	if p.level != v {
		_ = p.out.SetValue(v)
		p.level = v
	}
}

func (p *softPWM) run() {
	defer close(p.exited)
	var w waveform
	p.drive(0)
	for {
		if w.duty <= 0 || w.duty >= linepwm.ControllerRange || w.period <= 0 {
			if w.duty >= linepwm.ControllerRange {
				p.drive(1)
			} else {
				p.drive(0)
			}
			select {
			case w = <-p.set:
			case <-p.done:
				return
			}
			continue
		}

		on := w.period * time.Duration(w.duty) / linepwm.ControllerRange
		p.drive(1)
		if !p.wait(on) {
			return
		}
		p.drive(0)
		if !p.wait(w.period - on) {
			return
		}
		select {
		case w = <-p.set:
		default:
		}
	}
}

func (p *softPWM) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return true
	case <-p.done:
		t.Stop()
		return false
	}
}
