package radiator

import (
	"encoding/json"
	"math"
	"time"
)

// payload mirrors the subset of a valve's state message we care about.
// Pointer fields distinguish "absent" from zero.
type payload struct {
	LocalTemperature       *float64 `json:"local_temperature"`
	CurrentHeatingSetpoint *float64 `json:"current_heating_setpoint"`
	Position               *float64 `json:"position"`
}

// Parse decodes a raw device payload into a Reading stamped with now.
//
// local_temperature and current_heating_setpoint are required. An explicit
// position (integer 0-100) wins; otherwise the position is estimated as
// 100 * (setpoint - temperature) / k, clamped to [0, 100]. A non-positive k
// falls back to DefaultTemperatureConstant.
func Parse(name string, raw []byte, k float64, now time.Time) (Reading, error) {
	if name == "" {
		return Reading{}, &ParseError{Field: "name", Err: ErrInvalidField}
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Reading{}, &ParseError{Device: name, Err: ErrMalformedPayload}
	}

	if p.LocalTemperature == nil {
		return Reading{}, &ParseError{Device: name, Field: "local_temperature", Err: ErrMissingField}
	}
	if p.CurrentHeatingSetpoint == nil {
		return Reading{}, &ParseError{Device: name, Field: "current_heating_setpoint", Err: ErrMissingField}
	}

	r := Reading{
		Name:        name,
		Temperature: *p.LocalTemperature,
		Setpoint:    *p.CurrentHeatingSetpoint,
		LastUpdated: now,
	}

	if p.Position != nil {
		pos := *p.Position
		if pos != math.Trunc(pos) || pos < 0 || pos > 100 {
			return Reading{}, &ParseError{Device: name, Field: "position", Err: ErrInvalidField}
		}
		r.Position = int(pos)
		return r, nil
	}

	r.Position = EstimatePosition(r.Temperature, r.Setpoint, k)
	return r, nil
}

// EstimatePosition derives a valve opening from how far the room is below
// its setpoint.
func EstimatePosition(temperature, setpoint, k float64) int {
	if k <= 0 {
		k = DefaultTemperatureConstant
	}
	pos := 100 * (setpoint - temperature) / k
	switch {
	case pos < 0:
		return 0
	case pos > 100:
		return 100
	}
	return int(math.Round(pos))
}
