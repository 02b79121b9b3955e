// Package nav owns the navigation state of the autopilot: it ingests raw GPS
// bytes, decodes GGA/RMC sentences, captures the datum, and projects the
// current fix into range and bearing from the datum at the control tick rate.
package nav

import (
	"fmt"
	"log"

	"gps-autopilot/internal/geo"
	"gps-autopilot/internal/nmea"
)

// maxRangeM is the position sanity bound: a projected range beyond this marks
// the fix invalid for the tick (guards against junk fixes).
const maxRangeM = 10000.0

// State is the read-only navigation snapshot consumed by the control core.
type State struct {
	// Current fix.
	LatDeg        float64
	LonDeg        float64
	AltM          float64
	GroundSpeedMS float64
	// GroundTrackRad and HeadingRad are in (-pi, pi]. With no IMU and wind
	// ignored, heading is taken equal to ground track.
	GroundTrackRad float64
	HeadingRad     float64

	// Local tangent-plane values relative to the datum.
	NorthM         float64
	EastM          float64
	RangeFromDatum float64
	// BearingToDatum is the bearing from the aircraft to the datum, (-pi, pi].
	BearingToDatum float64

	// AltAboveDatumM is advisory only; GPS altitude is too noisy to gate on.
	AltAboveDatumM float64

	FixValid  bool
	DatumSet  bool
	LastFixMS int64
}

// Core is the navigation state manager. It owns its NMEA assembler and fix
// state; only the navigation core mutates them. Not safe for concurrent use:
// the tick loop is single-threaded by construction.
type Core struct {
	params       Params
	gpsTimeoutMS int64

	asm         nmea.Assembler
	speedFilter geo.LowPass

	// Current fix, distinct from the datum slot so SetDatum can copy it.
	latDeg, lonDeg, altM float64
	haveFix              bool
	lastFixMS            int64

	groundSpeedMS  float64
	groundTrackRad float64
	headingRad     float64

	datumLat, datumLon, datumAlt float64
	datumSet                     bool

	state State
}

// New builds a navigation core. gpsTimeoutMS is the failsafe GPS timeout in
// milliseconds; its range is validated by the failsafe parameter block.
func New(params Params, gpsTimeoutMS int64) (*Core, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if gpsTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: gps timeout %dms", ErrBadParam, gpsTimeoutMS)
	}
	return &Core{
		params:       params,
		gpsTimeoutMS: gpsTimeoutMS,
		speedFilter:  geo.LowPass{Tau: params.GPSFilterTauS},
	}, nil
}

// Params returns the live parameter block.
func (c *Core) Params() Params { return c.params }

// SetParams replaces the parameter block. On validation failure the live
// values are untouched.
func (c *Core) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params = p
	c.speedFilter.Tau = p.GPSFilterTauS
	return nil
}

// Ingest drains a burst of UART bytes through the reassembler and decoder.
// Accepted GGA sentences publish position and refresh the fix clock; accepted
// RMC sentences publish ground speed and track. Malformed or rejected
// sentences are dropped silently.
func (c *Core) Ingest(p []byte, nowMS int64) {
	c.asm.Feed(p, func(line []byte) {
		sent, err := nmea.ParseSentence(string(line))
		if err != nil {
			return
		}
		switch sent.Type {
		case "GGA":
			g, ok := nmea.DecodeGGA(sent)
			if !ok {
				return
			}
			c.latDeg = g.LatDeg
			c.lonDeg = g.LonDeg
			c.altM = g.AltM
			c.haveFix = true
			c.lastFixMS = nowMS
		case "RMC":
			r, ok := nmea.DecodeRMC(sent)
			if !ok {
				return
			}
			dt := 1.0 / float64(c.params.GPSUpdateHz)
			c.groundSpeedMS = c.speedFilter.Update(r.GroundSpeedMS, dt)
			c.groundTrackRad = r.GroundTrackRad
			c.headingRad = r.GroundTrackRad
		}
	})
}

// Step recomputes the derived tangent-plane values and the fix validity for
// this tick. It returns ErrStale when the fix has timed out and
// ErrOutOfBounds when the projected range fails the sanity bound; both are
// advisory, the snapshot always reflects the outcome.
func (c *Core) Step(nowMS int64) error {
	fixValid := c.haveFix && nowMS-c.lastFixMS <= c.gpsTimeoutMS

	var north, east, rng, brg float64
	if c.datumSet {
		north, east = geo.ENUFromLLA(c.latDeg, c.lonDeg, c.datumLat, c.datumLon)
		rng = geo.HaversineM(c.datumLat, c.datumLon, c.latDeg, c.lonDeg)
		brg = geo.BearingRad(c.latDeg, c.lonDeg, c.datumLat, c.datumLon)
	}

	outOfBounds := c.datumSet && rng > maxRangeM
	if outOfBounds {
		fixValid = false
	}

	c.state = State{
		LatDeg:         c.latDeg,
		LonDeg:         c.lonDeg,
		AltM:           c.altM,
		GroundSpeedMS:  c.groundSpeedMS,
		GroundTrackRad: c.groundTrackRad,
		HeadingRad:     c.headingRad,
		NorthM:         north,
		EastM:          east,
		RangeFromDatum: rng,
		BearingToDatum: brg,
		AltAboveDatumM: c.altM - c.datumAlt,
		FixValid:       fixValid,
		DatumSet:       c.datumSet,
		LastFixMS:      c.lastFixMS,
	}

	if outOfBounds {
		return fmt.Errorf("%w: range %.0fm from datum", ErrOutOfBounds, rng)
	}
	if !fixValid {
		return ErrStale
	}
	return nil
}

// SetDatum captures the current fix as the orbit datum. It fails with
// ErrNotReady unless the most recent Step left the fix valid. Once set, the
// datum is immutable for the remainder of the flight.
func (c *Core) SetDatum() error {
	if !c.state.FixValid {
		return fmt.Errorf("%w: no valid fix for datum capture", ErrNotReady)
	}
	if c.datumSet {
		// datumSet is monotonic within a power cycle.
		return nil
	}
	c.datumLat = c.latDeg
	c.datumLon = c.lonDeg
	c.datumAlt = c.altM
	c.datumSet = true

	// The snapshot reflects the capture immediately; the next Step recomputes
	// it from live data.
	c.state.DatumSet = true
	c.state.NorthM, c.state.EastM = 0, 0
	c.state.RangeFromDatum = 0
	c.state.BearingToDatum = 0
	c.state.AltAboveDatumM = 0

	log.Printf("nav datum captured lat=%.6f lon=%.6f alt=%.1f", c.datumLat, c.datumLon, c.datumAlt)
	return nil
}

// State returns the snapshot produced by the most recent Step.
func (c *Core) State() State { return c.state }
