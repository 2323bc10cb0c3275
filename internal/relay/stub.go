//go:build !linux

package relay

import "errors"

// GPIOSwitch is not available on non-Linux platforms.
type GPIOSwitch struct{}

// NewGPIOSwitch returns an error on non-Linux platforms.
func NewGPIOSwitch(chip string, offset int, activeLow bool) (*GPIOSwitch, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (s *GPIOSwitch) Set(on bool) error {
	return errors.New("relay: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *GPIOSwitch) Close() error {
	return nil
}
