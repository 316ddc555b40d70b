package rig

import (
	"fmt"
	"strconv"

	"github.com/Seann-Moser/motorhal/pkg/config"
	"github.com/Seann-Moser/motorhal/pkg/gpiochip"
	"github.com/Seann-Moser/motorhal/pkg/hwpwm"
	"github.com/Seann-Moser/motorhal/pkg/linepwm"
	"github.com/Seann-Moser/motorhal/pkg/pca9685"
	"github.com/Seann-Moser/motorhal/pkg/pwm"
)

// BackendFactory builds an uninitialized backend from its config.
type BackendFactory func(cfg config.BackendConfig) (pwm.Backend, error)

// NewBackend is the default BackendFactory.
func NewBackend(cfg config.BackendConfig) (pwm.Backend, error) {
	kind, err := pwm.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case pwm.KindChip:
		if cfg.Transport == config.TransportPeriphDriver {
			return pca9685.NewDev(pca9685.PeriphDevOpener(cfg.Bus), cfg.Address), nil
		}
		open, err := chipOpener(cfg)
		if err != nil {
			return nil, err
		}
		return pca9685.New(open, pca9685.WithAddress(cfg.Address)), nil
	case pwm.KindLocal:
		return linepwm.New(gpiochip.Opener(cfg.Chip), cfg.Resolution), nil
	case pwm.KindOnboard:
		return hwpwm.New(cfg.Resolution), nil
	}
	return nil, fmt.Errorf("backend %q: unsupported kind %v", cfg.Name, kind)
}

func chipOpener(cfg config.BackendConfig) (pca9685.Opener, error) {
	switch cfg.Transport {
	case config.TransportGobot:
		bus := -1
		if cfg.Bus != "" {
			n, err := strconv.Atoi(cfg.Bus)
			if err != nil {
				return nil, fmt.Errorf("backend %q: gobot bus must be a number: %w", cfg.Name, err)
			}
			bus = n
		}
		return pca9685.GobotOpener(nil, bus), nil
	case config.TransportPeriph, "":
		return pca9685.PeriphOpener(cfg.Bus), nil
	}
	return nil, fmt.Errorf("backend %q: unknown transport %q", cfg.Name, cfg.Transport)
}
