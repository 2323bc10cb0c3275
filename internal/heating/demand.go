// Package heating decides whether the boiler should run.
// It is pure: no locks, no clocks, no I/O.
package heating

import (
	"github.com/Xevi8X/central-heating-controller/internal/config"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
)

// Demand is the outcome of one heat demand computation.
type Demand struct {
	// TotalPower is the summed power in watts of included radiators,
	// each weighted by its valve opening.
	TotalPower float64

	// PowerRequired is the threshold the total was compared against.
	PowerRequired float64

	// On is true when TotalPower exceeds PowerRequired.
	On bool
}

// State returns "ON" or "OFF".
func (d Demand) State() string {
	if d.On {
		return "ON"
	}
	return "OFF"
}

// Compute aggregates the readings against cfg. Only radiators that are both
// present in readings and configured as included contribute.
func Compute(readings []radiator.Reading, cfg config.Config) Demand {
	d := Demand{PowerRequired: cfg.PowerRequired}
	if len(cfg.Radiators) == 0 {
		return d
	}

	for _, r := range readings {
		rc, ok := cfg.Radiators[r.Name]
		if !ok || !rc.Included {
			continue
		}
		d.TotalPower += rc.Power * float64(r.Position) / 100
	}
	d.On = d.TotalPower > cfg.PowerRequired
	return d
}
