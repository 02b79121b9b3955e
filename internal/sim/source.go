// Package sim synthesizes an NMEA byte stream from a keyframe-free kinematic
// script: a point mass flying at constant ground speed with an optional
// constant turn rate. It stands in for the GPS receiver on the bench and in
// end-to-end tests.
package sim

import (
	"fmt"
	"math"

	"gps-autopilot/internal/geo"
	"gps-autopilot/internal/nmea"
)

// Source produces GGA/RMC sentence pairs at the script's update rate. It
// implements the same non-blocking byte-source contract as the serial port:
// ReadAvailable returns whatever sentences have come due since the last call.
//
// Time comes from the injected millisecond clock, so tests can drive the
// source deterministically.
type Source struct {
	script Script
	nowMS  func() int64

	startMS   int64
	nextDueMS int64

	latDeg   float64
	lonDeg   float64
	trackRad float64

	pending []byte
}

// New builds a source positioned at the script start. The first sentences are
// due immediately.
func New(script Script, nowMS func() int64) (*Source, error) {
	if err := DefaultAndValidate(&script); err != nil {
		return nil, err
	}
	if nowMS == nil {
		return nil, fmt.Errorf("sim: nil clock")
	}
	now := nowMS()
	return &Source{
		script:    script,
		nowMS:     nowMS,
		startMS:   now,
		nextDueMS: now,
		latDeg:    script.StartLatDeg,
		lonDeg:    script.StartLonDeg,
		trackRad:  geo.WrapToPi(script.TrackDeg * geo.DegToRad),
	}, nil
}

// ReadAvailable fills p with any sentences that have come due.
func (s *Source) ReadAvailable(p []byte) (int, error) {
	now := s.nowMS()
	periodMS := int64(1000 / s.script.UpdateHz)

	for now >= s.nextDueMS {
		dueMS := s.nextDueMS
		s.nextDueMS += periodMS
		s.advance(float64(periodMS) / 1000.0)
		if s.inDropout(dueMS) {
			continue
		}
		s.pending = append(s.pending, s.sentences()...)
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return n, nil
}

// Close implements the byte-source contract; the simulator holds nothing.
func (s *Source) Close() error { return nil }

func (s *Source) inDropout(atMS int64) bool {
	elapsed := atMS - s.startMS
	for _, d := range s.script.Dropouts {
		start := d.Start.Milliseconds()
		if elapsed >= start && elapsed < start+d.Duration.Milliseconds() {
			return true
		}
	}
	return false
}

// advance integrates the point mass over dt seconds.
func (s *Source) advance(dt float64) {
	s.trackRad = geo.WrapToPi(s.trackRad + s.script.TurnRateDegS*geo.DegToRad*dt)
	speedMS := s.script.GroundKt * nmea.KnotsToMS
	north := speedMS * dt * math.Cos(s.trackRad)
	east := speedMS * dt * math.Sin(s.trackRad)
	s.latDeg, s.lonDeg = geo.LLAFromENU(north, east, s.latDeg, s.lonDeg)
}

func (s *Source) sentences() []byte {
	lat, latHemi := dm(s.latDeg, "N", "S", 2)
	lon, lonHemi := dm(s.lonDeg, "E", "W", 3)
	trackDeg := geo.WrapTo2Pi(s.trackRad) * geo.RadToDeg

	gga := fmt.Sprintf("GPGGA,000000.00,%s,%s,%s,%s,1,%02d,%.1f,%.1f,M,0.0,M,,",
		lat, latHemi, lon, lonHemi, s.script.Satellites, s.script.HDOP, s.script.AltM)
	rmc := fmt.Sprintf("GPRMC,000000.00,A,%s,%s,%s,%s,%05.1f,%05.1f,010120,,",
		lat, latHemi, lon, lonHemi, s.script.GroundKt, trackDeg)

	out := make([]byte, 0, 2*nmeaLineLen)
	out = appendSentence(out, gga)
	out = appendSentence(out, rmc)
	return out
}

const nmeaLineLen = 96

func appendSentence(dst []byte, payload string) []byte {
	return append(dst, fmt.Sprintf("$%s*%02X\r\n", payload, nmea.Checksum(payload))...)
}

// dm formats decimal degrees as NMEA ddmm.mmmm (degWidth 2) or dddmm.mmmm
// (degWidth 3) with the hemisphere letter.
func dm(deg float64, pos, neg string, degWidth int) (string, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	d := math.Floor(deg)
	mins := (deg - d) * 60
	return fmt.Sprintf("%0*.0f%07.4f", degWidth, d, mins), hemi
}
