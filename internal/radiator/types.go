// Package radiator turns smart radiator valve telemetry into validated
// readings and keeps the latest reading per device.
// This package has NO transport dependencies. Time is injectable.
package radiator

import (
	"errors"
	"fmt"
	"time"
)

// Physical plausibility window for a valve's local temperature sensor.
const (
	MinTemperature = 5.0
	MaxTemperature = 35.0
)

// DefaultTemperatureConstant is the setpoint error (°C) at which a valve is
// assumed to be fully open.
const DefaultTemperatureConstant = 4.0

// DefaultStaleThreshold is how long a reading stays valid without an update.
const DefaultStaleThreshold = 6 * time.Hour

var (
	// ErrMalformedPayload is returned when the payload is not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidField is returned when a field is present but unusable.
	ErrInvalidField = errors.New("invalid field")
)

// ParseError reports which field of a device payload was rejected.
type ParseError struct {
	Device string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("parse %s: %v: %s", e.Device, e.Err, e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reading is the latest accepted state of a single radiator valve.
type Reading struct {
	Name        string
	Temperature float64 // °C
	Setpoint    float64 // °C
	Position    int     // valve opening, percent 0-100
	LastUpdated time.Time
}

// String renders the reading as one aligned status line.
func (r Reading) String() string {
	name := r.Name
	if rs := []rune(name); len(rs) > 25 {
		name = string(rs[:25])
	}
	return fmt.Sprintf("Name: %-25s, Temperature: %.1f°C, Setpoint: %.1f°C, Position: %3d%% at %s",
		name, r.Temperature, r.Setpoint, r.Position, r.LastUpdated.Format("2006-01-02 15:04:05"))
}
