// Package geo holds the angle, saturation and flat-earth geodesy math used by
// the navigation and control cores.
//
// Every function that produces an angle returns it already wrapped to (-pi, pi];
// callers are expected to keep that discipline when combining angles.
package geo

import "math"

const (
	// EarthRadiusM is the mean Earth radius used for great-circle math.
	EarthRadiusM = 6371000.0

	// MetersPerDegLat is the flat-earth scale for the local tangent plane.
	MetersPerDegLat = 111320.0

	// GravityMPS2 is standard gravity.
	GravityMPS2 = 9.81

	DegToRad = math.Pi / 180.0
	RadToDeg = 180.0 / math.Pi
)

// WrapToPi returns the representative of a in (-pi, pi].
func WrapToPi(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// WrapTo2Pi returns the representative of a in [0, 2*pi).
func WrapTo2Pi(a float64) float64 {
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	for a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// AngleDiff returns the smallest signed difference b-a, wrapped to (-pi, pi].
func AngleDiff(a, b float64) float64 {
	return WrapToPi(b - a)
}

// Saturate clamps v to [lo, hi].
func Saturate(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Deadband returns 0 for |v| < d, otherwise v shifted toward zero by d.
func Deadband(v, d float64) float64 {
	if math.Abs(v) < d {
		return 0
	}
	if v > 0 {
		return v - d
	}
	return v + d
}

// RateLimit moves current toward desired by at most maxRate*dt.
//
// A non-positive maxRate or dt disables limiting.
func RateLimit(desired, current, maxRate, dt float64) float64 {
	if maxRate <= 0 || dt <= 0 {
		return desired
	}
	step := maxRate * dt
	if desired > current+step {
		return current + step
	}
	if desired < current-step {
		return current - step
	}
	return desired
}

// ENUFromLLA projects a WGS84 position onto the local tangent plane anchored
// at (refLatDeg, refLonDeg) using the flat-earth approximation. Valid for the
// few-kilometer ranges an orbit flight ever sees.
func ENUFromLLA(latDeg, lonDeg, refLatDeg, refLonDeg float64) (northM, eastM float64) {
	northM = (latDeg - refLatDeg) * MetersPerDegLat
	eastM = (lonDeg - refLonDeg) * MetersPerDegLat * math.Cos(refLatDeg*DegToRad)
	return northM, eastM
}

// LLAFromENU is the inverse of ENUFromLLA on the same tangent plane.
func LLAFromENU(northM, eastM, refLatDeg, refLonDeg float64) (latDeg, lonDeg float64) {
	latDeg = refLatDeg + northM/MetersPerDegLat
	lonDeg = refLonDeg + eastM/(MetersPerDegLat*math.Cos(refLatDeg*DegToRad))
	return latDeg, lonDeg
}

// HaversineM returns the great-circle distance in meters between two WGS84
// positions.
func HaversineM(lat1Deg, lon1Deg, lat2Deg, lon2Deg float64) float64 {
	dLat := (lat2Deg - lat1Deg) * DegToRad
	dLon := (lon2Deg - lon1Deg) * DegToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Deg*DegToRad)*math.Cos(lat2Deg*DegToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// BearingRad returns the initial great-circle bearing from point 1 to point 2,
// wrapped to (-pi, pi].
func BearingRad(lat1Deg, lon1Deg, lat2Deg, lon2Deg float64) float64 {
	dLon := (lon2Deg - lon1Deg) * DegToRad
	lat1 := lat1Deg * DegToRad
	lat2 := lat2Deg * DegToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return WrapToPi(math.Atan2(y, x))
}

// CoordTurnBank returns the bank angle for a coordinated turn at the given
// turn rate and speed, limited to +/-60 degrees.
func CoordTurnBank(turnRateRadS, speedMS float64) float64 {
	if speedMS <= 0 {
		return 0
	}
	bank := math.Atan((speedMS * turnRateRadS) / GravityMPS2)
	return Saturate(bank, -math.Pi/3, math.Pi/3)
}

// TurnRadiusM returns the coordinated-turn radius for the given speed and bank
// angle. Near-level bank returns a very large radius rather than dividing by
// zero.
func TurnRadiusM(speedMS, bankRad float64) float64 {
	if math.Abs(bankRad) < 0.01 {
		return 999999.0
	}
	return (speedMS * speedMS) / (GravityMPS2 * math.Tan(math.Abs(bankRad)))
}

// LowPass is a first-order low-pass filter with time constant Tau seconds.
//
// The zero value passes the first sample through unfiltered.
type LowPass struct {
	Tau float64

	state  float64
	primed bool
}

// Update advances the filter by dt seconds and returns the filtered value.
func (f *LowPass) Update(input, dt float64) float64 {
	if f.Tau <= 0 || dt <= 0 {
		f.state = input
		f.primed = true
		return input
	}
	if !f.primed {
		f.state = input
		f.primed = true
		return input
	}
	alpha := dt / (f.Tau + dt)
	f.state += alpha * (input - f.state)
	return f.state
}

// Value returns the current filter state without advancing it.
func (f *LowPass) Value() float64 { return f.state }

// Reset clears the filter so the next sample passes through unfiltered.
func (f *LowPass) Reset() {
	f.state = 0
	f.primed = false
}
