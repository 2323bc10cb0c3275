package radiator

// DefaultSafeSetpoint is pushed back to a valve that reports an implausible
// temperature.
const DefaultSafeSetpoint = 20.0

// Validate reports whether a reading may enter the registry.
// Readings outside [MinTemperature, MaxTemperature] point at a broken or
// misplaced sensor and must not influence heat demand.
func Validate(r Reading) bool {
	return r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature
}
