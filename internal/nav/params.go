package nav

import (
	"errors"
	"fmt"
)

// Navigation error kinds. All of them are recovered locally by the caller;
// nothing in the core aborts the tick pipeline.
var (
	// ErrBadParam reports an out-of-range parameter. The live configuration
	// is left untouched when a setter returns it.
	ErrBadParam = errors.New("bad parameter")

	// ErrNotReady reports an operation invoked before its preconditions hold
	// (datum capture without a valid fix).
	ErrNotReady = errors.New("not ready")

	// ErrStale reports that no accepted sentence has arrived within the GPS
	// timeout.
	ErrStale = errors.New("gps stale")

	// ErrOutOfBounds reports a projected range beyond the 10 km sanity bound.
	ErrOutOfBounds = errors.New("out of bounds")
)

// Params are the navigation tuning parameters. They are validated as a block:
// a rejected block leaves the live values untouched.
type Params struct {
	// TrackGain is the track update gain from GPS.
	TrackGain float64
	// AirspeedMS is the nominal airspeed in m/s.
	AirspeedMS float64
	// GPSFilterTauS is the ground-speed filter time constant in seconds.
	GPSFilterTauS float64
	// GPSUpdateHz is the expected GPS update rate.
	GPSUpdateHz int
}

// DefaultParams are mid-range values suitable for a small powered free-flight
// model.
func DefaultParams() Params {
	return Params{
		TrackGain:     1.0,
		AirspeedMS:    12.0,
		GPSFilterTauS: 2.0,
		GPSUpdateHz:   5,
	}
}

// Validate checks every field against its allowed range.
func (p Params) Validate() error {
	if p.TrackGain < 0.5 || p.TrackGain > 2.0 {
		return fmt.Errorf("%w: track_gain %g outside [0.5, 2.0]", ErrBadParam, p.TrackGain)
	}
	if p.AirspeedMS < 5.0 || p.AirspeedMS > 20.0 {
		return fmt.Errorf("%w: airspeed_ms %g outside [5, 20]", ErrBadParam, p.AirspeedMS)
	}
	if p.GPSFilterTauS < 1.0 || p.GPSFilterTauS > 5.0 {
		return fmt.Errorf("%w: gps_filter_tau_s %g outside [1, 5]", ErrBadParam, p.GPSFilterTauS)
	}
	if p.GPSUpdateHz < 1 || p.GPSUpdateHz > 10 {
		return fmt.Errorf("%w: gps_update_hz %d outside [1, 10]", ErrBadParam, p.GPSUpdateHz)
	}
	return nil
}
