package control

import "gps-autopilot/internal/geo"

// maxMotorCmd is the hard ceiling of the motor command.
const maxMotorCmd = 0.9

// MotorLaw maps the current range and orbit radius to a motor command. The
// result is saturated to [0, maxMotorCmd] by the caller, so a custom law only
// has to pick a power level.
type MotorLaw func(rangeM, orbitRadiusM float64) float64

// ThreeZoneMotorLaw is the stock schedule: reduce power inside half the orbit
// radius to avoid tightening the turn, raise it beyond one and a half radii to
// get back out to the circle.
func ThreeZoneMotorLaw(rangeM, orbitRadiusM float64) float64 {
	switch {
	case rangeM < 0.5*orbitRadiusM:
		return 0.40
	case rangeM > 1.5*orbitRadiusM:
		return 0.80
	default:
		return 0.60
	}
}

func saturateMotor(m float64) float64 {
	return geo.Saturate(m, 0, maxMotorCmd)
}
