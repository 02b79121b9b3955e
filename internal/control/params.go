package control

import (
	"errors"
	"fmt"
)

// ErrBadParam reports a rejected parameter block. A setter that returns it
// leaves the live configuration untouched.
var ErrBadParam = errors.New("bad parameter")

// safetyRadiusFactor is the cross-field invariant: the safety radius must be
// at least this multiple of the orbit radius.
const safetyRadiusFactor = 1.5

// Params are the guidance and control gains plus the orbit geometry. They are
// validated as a block on every set.
type Params struct {
	// KpOrbit is the orbit proportional gain in rad/m.
	KpOrbit float64
	// KpTrack and KiTrack are the track-following PI gains.
	KpTrack float64
	KiTrack float64
	// KpRoll and KiRoll are the roll-loop PI gains.
	KpRoll float64
	KiRoll float64
	// OrbitRadiusM is the target distance from the datum.
	OrbitRadiusM float64
	// SafetyRadiusM is the hard outer limit; breach cuts the motor.
	SafetyRadiusM float64
	// LaunchDelayS is the IDLE hold time from power-on.
	LaunchDelayS float64
}

// DefaultParams are conservative mid-range gains for a 100 m orbit.
func DefaultParams() Params {
	return Params{
		KpOrbit:       0.02,
		KpTrack:       1.0,
		KiTrack:       0.2,
		KpRoll:        1.0,
		KiRoll:        0.2,
		OrbitRadiusM:  100,
		SafetyRadiusM: 200,
		LaunchDelayS:  10,
	}
}

// Validate checks every field against its allowed range and the cross-field
// safety-radius invariant.
func (p Params) Validate() error {
	if p.KpOrbit < 0.01 || p.KpOrbit > 0.1 {
		return fmt.Errorf("%w: kp_orbit %g outside [0.01, 0.1]", ErrBadParam, p.KpOrbit)
	}
	if p.KpTrack < 0.5 || p.KpTrack > 2.0 {
		return fmt.Errorf("%w: kp_track %g outside [0.5, 2.0]", ErrBadParam, p.KpTrack)
	}
	if p.KiTrack < 0.1 || p.KiTrack > 0.5 {
		return fmt.Errorf("%w: ki_track %g outside [0.1, 0.5]", ErrBadParam, p.KiTrack)
	}
	if p.KpRoll < 0.5 || p.KpRoll > 2.0 {
		return fmt.Errorf("%w: kp_roll %g outside [0.5, 2.0]", ErrBadParam, p.KpRoll)
	}
	if p.KiRoll < 0.1 || p.KiRoll > 0.5 {
		return fmt.Errorf("%w: ki_roll %g outside [0.1, 0.5]", ErrBadParam, p.KiRoll)
	}
	if p.OrbitRadiusM < 50 || p.OrbitRadiusM > 200 {
		return fmt.Errorf("%w: orbit_radius_m %g outside [50, 200]", ErrBadParam, p.OrbitRadiusM)
	}
	if p.LaunchDelayS < 0 || p.LaunchDelayS > 30 {
		return fmt.Errorf("%w: launch_delay_s %g outside [0, 30]", ErrBadParam, p.LaunchDelayS)
	}
	if min := safetyRadiusFactor * p.OrbitRadiusM; p.SafetyRadiusM < min {
		return fmt.Errorf("%w: safety_radius_m %g below %.0f (1.5x orbit radius)", ErrBadParam, p.SafetyRadiusM, min)
	}
	return nil
}

// FailsafeParams configure the behavior on sustained GPS loss.
type FailsafeParams struct {
	// RollCmd is the roll magnitude held while circling on GPS loss; the sign
	// applied at run time comes from CircleLeft.
	RollCmd float64
	// MotorCmd is the motor command held on GPS loss.
	MotorCmd float64
	// GPSTimeoutMS is how long without an accepted sentence before the fix is
	// declared stale.
	GPSTimeoutMS int64
	// CircleLeft selects the failsafe circle direction.
	CircleLeft bool
}

// DefaultFailsafeParams hold a gentle circle at half power with a 5 s timeout.
func DefaultFailsafeParams() FailsafeParams {
	return FailsafeParams{
		RollCmd:      0.3,
		MotorCmd:     0.5,
		GPSTimeoutMS: 5000,
		CircleLeft:   true,
	}
}

// Validate checks every field against its allowed range.
func (p FailsafeParams) Validate() error {
	if p.RollCmd < -1 || p.RollCmd > 1 {
		return fmt.Errorf("%w: failsafe roll %g outside [-1, 1]", ErrBadParam, p.RollCmd)
	}
	if p.MotorCmd < 0 || p.MotorCmd > 1 {
		return fmt.Errorf("%w: failsafe motor %g outside [0, 1]", ErrBadParam, p.MotorCmd)
	}
	if p.GPSTimeoutMS < 5000 || p.GPSTimeoutMS > 30000 {
		return fmt.Errorf("%w: gps_timeout_ms %d outside [5000, 30000]", ErrBadParam, p.GPSTimeoutMS)
	}
	return nil
}
