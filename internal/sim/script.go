package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a deterministic, file-driven description of a synthetic GPS
// flight used for bench runs and end-to-end tests.
//
// YAML schema (v1):
//
//	version: 1
//	start_lat_deg: 48.1173
//	start_lon_deg: 11.5167
//	alt_m: 545.4
//	ground_kt: 25
//	track_deg: 90
//	turn_rate_deg_s: 3
//	update_hz: 5
//	satellites: 8
//	hdop: 0.9
//	dropouts:
//	  - start: 30s
//	    duration: 8s
//
// Dropout windows suppress all output, which is how GPS loss is exercised.
type Script struct {
	Version      int     `yaml:"version"`
	StartLatDeg  float64 `yaml:"start_lat_deg"`
	StartLonDeg  float64 `yaml:"start_lon_deg"`
	AltM         float64 `yaml:"alt_m"`
	GroundKt     float64 `yaml:"ground_kt"`
	TrackDeg     float64 `yaml:"track_deg"`
	TurnRateDegS float64 `yaml:"turn_rate_deg_s"`
	UpdateHz     int     `yaml:"update_hz"`
	Satellites   int     `yaml:"satellites"`
	HDOP         float64 `yaml:"hdop"`

	Dropouts []Dropout `yaml:"dropouts"`
}

// Dropout is a window of GPS silence relative to script start.
type Dropout struct {
	Start    time.Duration `yaml:"start"`
	Duration time.Duration `yaml:"duration"`
}

// LoadScript reads and validates a script file, applying defaults.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, err
	}
	if err := DefaultAndValidate(&s); err != nil {
		return Script{}, err
	}
	return s, nil
}

// DefaultAndValidate fills defaults in place and rejects nonsense values.
func DefaultAndValidate(s *Script) error {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version != 1 {
		return fmt.Errorf("sim: unsupported script version %d", s.Version)
	}
	if s.UpdateHz <= 0 {
		s.UpdateHz = 5
	}
	if s.UpdateHz > 10 {
		return fmt.Errorf("sim: update_hz %d above 10", s.UpdateHz)
	}
	if s.GroundKt < 0 {
		return fmt.Errorf("sim: ground_kt must be >= 0")
	}
	if s.GroundKt == 0 {
		s.GroundKt = 25
	}
	if s.Satellites == 0 {
		s.Satellites = 8
	}
	if s.HDOP == 0 {
		s.HDOP = 0.9
	}
	for i, d := range s.Dropouts {
		if d.Start < 0 || d.Duration <= 0 {
			return fmt.Errorf("sim: dropout %d has invalid window", i)
		}
	}
	return nil
}
