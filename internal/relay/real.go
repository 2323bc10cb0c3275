//go:build linux

package relay

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOSwitch drives a relay from a GPIO output line.
type GPIOSwitch struct {
	line      *gpiocdev.Line
	activeLow bool
}

// NewGPIOSwitch requests offset on chip as an output, initially off.
// With activeLow the line is driven low to energize the relay, as most
// opto-isolated relay boards expect.
func NewGPIOSwitch(chip string, offset int, activeLow bool) (*GPIOSwitch, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("central-heating")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request relay pin %d on %s: %w", offset, chip, err)
	}
	return &GPIOSwitch{line: line, activeLow: activeLow}, nil
}

// Set drives the relay line.
func (s *GPIOSwitch) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := s.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// Close switches the relay off and leaves the line as an input biased
// towards the inactive level before releasing it.
func (s *GPIOSwitch) Close() error {
	var errs []error

	if err := s.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("release relay: %w", err))
	}
	if err := s.line.Reconfigure(gpiocdev.AsInput, releaseBias(s.activeLow)); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
	}
	if err := s.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay pin: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// releaseBias returns the pull that holds an idle line at the relay's off
// level. An active-low board energizes when its input is pulled low.
func releaseBias(activeLow bool) gpiocdev.LineConfigOption {
	if activeLow {
		return gpiocdev.WithPullUp
	}
	return gpiocdev.WithPullDown
}
