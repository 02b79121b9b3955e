package nmea

import (
	"math"

	"gps-autopilot/internal/geo"
)

// Fix-quality acceptance gates for GGA sentences.
const (
	MinSatellites = 4
	MaxHDOP       = 3.0
)

// KnotsToMS converts NMEA ground speed (knots) to m/s.
const KnotsToMS = 0.514444

// GGA carries the position fields of an accepted GGA sentence.
type GGA struct {
	LatDeg     float64
	LonDeg     float64
	AltM       float64
	Quality    int
	Satellites int
	HDOP       float64
}

// RMC carries the motion fields of an accepted RMC sentence.
type RMC struct {
	GroundSpeedMS float64
	// GroundTrackRad is the track made good, wrapped to (-pi, pi].
	GroundTrackRad float64
}

// DecodeGGA extracts position and fix quality from a GGA sentence.
//
// ok is false when the sentence is malformed or fails the acceptance
// predicate: quality > 0, satellites >= MinSatellites, hdop < MaxHDOP.
// Rejected sentences must not refresh navigation state.
func DecodeGGA(s Sentence) (g GGA, ok bool) {
	// $xxGGA,time,lat,N/S,lon,E/W,quality,sats,hdop,alt,M,geoid,M,age,station
	if s.Type != "GGA" || len(s.Fields) < 10 {
		return GGA{}, false
	}

	lat, latOK := parseLatLon(s.Fields[2], s.Fields[3])
	lon, lonOK := parseLatLon(s.Fields[4], s.Fields[5])
	quality, qOK := parseInt(s.Fields[6])
	sats, satsOK := parseInt(s.Fields[7])
	hdop, hdopOK := parseFloat(s.Fields[8])
	alt, altOK := parseFloat(s.Fields[9])
	if !latOK || !lonOK || !qOK || !satsOK || !hdopOK || !altOK {
		return GGA{}, false
	}

	if quality <= 0 || sats < MinSatellites || hdop >= MaxHDOP {
		return GGA{}, false
	}
	return GGA{
		LatDeg:     lat,
		LonDeg:     lon,
		AltM:       alt,
		Quality:    quality,
		Satellites: sats,
		HDOP:       hdop,
	}, true
}

// DecodeRMC extracts ground speed and track from an RMC sentence.
//
// ok is false for malformed sentences and for void (status V) fixes.
func DecodeRMC(s Sentence) (r RMC, ok bool) {
	// $xxRMC,time,status,lat,N/S,lon,E/W,speed,track,date,...
	if s.Type != "RMC" || len(s.Fields) < 9 {
		return RMC{}, false
	}
	if st := s.Fields[2]; st != "A" {
		return RMC{}, false
	}

	kt, ktOK := parseFloat(s.Fields[7])
	trkDeg, trkOK := parseFloat(s.Fields[8])
	if !ktOK || !trkOK {
		return RMC{}, false
	}
	return RMC{
		GroundSpeedMS:  kt * KnotsToMS,
		GroundTrackRad: geo.WrapToPi(trkDeg * math.Pi / 180.0),
	}, true
}
