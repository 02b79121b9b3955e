// Package control turns the navigation state into normalized roll and motor
// commands at the 50 Hz tick rate. It owns the orbit guidance law, the
// track-following PI loop, the roll slew limiter, and the safety mode machine.
package control

import (
	"log"
	"math"

	"gps-autopilot/internal/geo"
	"gps-autopilot/internal/nav"
)

// Mode is the state of the safety/failsafe machine.
type Mode int

const (
	ModeBoot Mode = iota
	ModeIdle
	ModeEngaged
	ModeFailsafe
	ModeSafeStop
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeBoot:
		return "BOOT"
	case ModeIdle:
		return "IDLE"
	case ModeEngaged:
		return "ENGAGED"
	case ModeFailsafe:
		return "FAILSAFE"
	case ModeSafeStop:
		return "SAFE_STOP"
	case ModeManual:
		return "MANUAL"
	default:
		return "UNKNOWN"
	}
}

// Design constants of the command shaping.
const (
	// rollSlewPerS bounds the roll command rate of change.
	rollSlewPerS = 0.5

	// idleMotorCmd is the hold-for-launch baseline.
	idleMotorCmd = 0.5
)

// Advisory altitude bounds in meters above the datum. GPS altitude is too
// noisy to gate mode transitions on, so these only flag the snapshot.
const (
	minAltAGLM = 10.0
	maxAltAGLM = 200.0
)

// Snapshot is the control state visible to the runtime, the status line and
// the flight log.
type Snapshot struct {
	Mode Mode

	RollCmd  float64
	MotorCmd float64

	RangeErrorM     float64
	TrackErrorRad   float64
	DesiredTrackRad float64
	DesiredRangeM   float64

	// AltAdvisory is set while the advisory altitude bounds are violated.
	AltAdvisory bool

	LastUpdateMS int64
}

// Core is the control core. Not safe for concurrent use; the tick loop is
// single-threaded by construction.
type Core struct {
	params   Params
	failsafe FailsafeParams
	motorLaw MotorLaw

	mode Mode

	trackIntegral float64
	prevRoll      float64

	manualRoll  float64
	manualMotor float64

	// idleSinceMS anchors the launch delay at the transition into IDLE.
	idleSinceMS int64

	snap Snapshot
}

// New builds a control core in BOOT. The first Step moves it to IDLE.
func New(params Params, failsafe FailsafeParams) (*Core, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := failsafe.Validate(); err != nil {
		return nil, err
	}
	return &Core{
		params:   params,
		failsafe: failsafe,
		motorLaw: ThreeZoneMotorLaw,
		mode:     ModeBoot,
	}, nil
}

// SetMotorLaw swaps the motor schedule. A nil law restores the stock
// three-zone schedule.
func (c *Core) SetMotorLaw(law MotorLaw) {
	if law == nil {
		law = ThreeZoneMotorLaw
	}
	c.motorLaw = law
}

// Params returns the live control parameter block.
func (c *Core) Params() Params { return c.params }

// SetParams replaces the control parameters. On validation failure the live
// values are untouched.
func (c *Core) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.params = p
	return nil
}

// Failsafe returns the live failsafe parameter block.
func (c *Core) Failsafe() FailsafeParams { return c.failsafe }

// SetFailsafe replaces the failsafe parameters. On validation failure the
// live values are untouched.
func (c *Core) SetFailsafe(p FailsafeParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.failsafe = p
	return nil
}

// Mode returns the current machine state.
func (c *Core) Mode() Mode { return c.mode }

// Snapshot returns the state produced by the most recent Step.
func (c *Core) Snapshot() Snapshot { return c.snap }

// ManualOverride forces MANUAL from any state, holding the given commands
// (saturated) until ClearOverride.
func (c *Core) ManualOverride(roll, motor float64) {
	if c.mode != ModeManual {
		log.Printf("control mode=%s -> MANUAL", c.mode)
	}
	c.manualRoll = geo.Saturate(roll, -1, 1)
	c.manualMotor = saturateMotor(motor)
	c.enter(ModeManual)
}

// ClearOverride leaves MANUAL for IDLE. It is a no-op in any other state.
func (c *Core) ClearOverride(nowMS int64) {
	if c.mode != ModeManual {
		return
	}
	log.Printf("control mode=MANUAL -> IDLE")
	c.enter(ModeIdle)
	c.idleSinceMS = nowMS
}

// enter performs the common reset on entering any non-ENGAGED state: the
// track integrator and the roll shaper lose their history.
func (c *Core) enter(m Mode) {
	c.mode = m
	if m != ModeEngaged {
		c.trackIntegral = 0
		c.prevRoll = 0
	}
}

func (c *Core) transition(to Mode, reason string) {
	log.Printf("control mode=%s -> %s %s", c.mode, to, reason)
	c.enter(to)
}

// Step runs one pass of the mode machine and guidance laws. dt is the
// measured tick interval in seconds. Every call produces commands; leaving
// ENGAGED never re-enters it within the same tick.
func (c *Core) Step(st nav.State, nowMS int64, dt float64) Snapshot {
	switch c.mode {
	case ModeBoot:
		c.enter(ModeIdle)
		c.idleSinceMS = nowMS
		c.emitIdle(st, nowMS)

	case ModeIdle:
		if c.canEngage(st, nowMS) {
			c.transition(ModeEngaged, "reason=armed")
			c.engage(st, nowMS, dt)
			break
		}
		c.emitIdle(st, nowMS)

	case ModeEngaged:
		// An invalid fix carries an unusable range, so it must be checked
		// before the safety radius; SAFE_STOP latches only on a trusted fix.
		if !st.FixValid {
			c.transition(ModeFailsafe, "reason=gps_lost")
			c.emitFailsafe(st, nowMS)
			break
		}
		if st.RangeFromDatum > c.params.SafetyRadiusM {
			c.transition(ModeSafeStop, "reason=safety_radius")
			c.emit(0, 0, st, nowMS)
			break
		}
		c.engage(st, nowMS, dt)

	case ModeFailsafe:
		if st.FixValid && st.DatumSet && st.RangeFromDatum <= c.params.SafetyRadiusM {
			c.transition(ModeEngaged, "reason=gps_recovered")
			c.engage(st, nowMS, dt)
			break
		}
		c.emitFailsafe(st, nowMS)

	case ModeSafeStop:
		// Latched: only a manual override (then clear) leaves SAFE_STOP.
		c.emit(0, 0, st, nowMS)

	case ModeManual:
		c.emit(c.manualRoll, c.manualMotor, st, nowMS)
	}

	return c.snap
}

// canEngage is the IDLE->ENGAGED guard: valid fix, datum captured, inside the
// safety radius, and the launch delay elapsed.
func (c *Core) canEngage(st nav.State, nowMS int64) bool {
	if !st.FixValid || !st.DatumSet {
		return false
	}
	if st.RangeFromDatum > c.params.SafetyRadiusM {
		return false
	}
	holdMS := int64(c.params.LaunchDelayS * 1000)
	return nowMS-c.idleSinceMS >= holdMS
}

// engage runs the orbit and track loops and the roll shaper.
func (c *Core) engage(st nav.State, nowMS int64, dt float64) {
	// Orbit law: desired track is the circle tangent plus a radial
	// correction pulling toward the orbit radius.
	rangeErr := st.RangeFromDatum - c.params.OrbitRadiusM
	desiredTrack := geo.WrapToPi(st.BearingToDatum + math.Pi/2 - c.params.KpOrbit*rangeErr)

	// Track PI with anti-windup: the I contribution never exceeds unity.
	trackErr := geo.WrapToPi(desiredTrack - st.GroundTrackRad)
	c.trackIntegral += trackErr * dt
	maxIntegral := 1.0 / c.params.KiTrack
	c.trackIntegral = geo.Saturate(c.trackIntegral, -maxIntegral, maxIntegral)

	roll := c.params.KpTrack*trackErr + c.params.KiTrack*c.trackIntegral
	roll = geo.Saturate(roll, -1, 1)

	// Roll shaper: slew-limit against the previous tick, then saturate.
	roll = geo.RateLimit(roll, c.prevRoll, rollSlewPerS, dt)
	roll = geo.Saturate(roll, -1, 1)
	c.prevRoll = roll

	motor := saturateMotor(c.motorLaw(st.RangeFromDatum, c.params.OrbitRadiusM))

	c.emit(roll, motor, st, nowMS)
	c.snap.RangeErrorM = rangeErr
	c.snap.TrackErrorRad = trackErr
	c.snap.DesiredTrackRad = desiredTrack
	c.snap.DesiredRangeM = c.params.OrbitRadiusM
}

func (c *Core) emitIdle(st nav.State, nowMS int64) {
	c.emit(0, idleMotorCmd, st, nowMS)
}

func (c *Core) emitFailsafe(st nav.State, nowMS int64) {
	roll := math.Abs(c.failsafe.RollCmd)
	if c.failsafe.CircleLeft {
		roll = -roll
	}
	c.emit(roll, c.failsafe.MotorCmd, st, nowMS)
}

func (c *Core) emit(roll, motor float64, st nav.State, nowMS int64) {
	c.snap = Snapshot{
		Mode:         c.mode,
		RollCmd:      geo.Saturate(roll, -1, 1),
		MotorCmd:     saturateMotor(motor),
		AltAdvisory:  st.DatumSet && (st.AltAboveDatumM < minAltAGLM || st.AltAboveDatumM > maxAltAGLM),
		LastUpdateMS: nowMS,
	}
}
