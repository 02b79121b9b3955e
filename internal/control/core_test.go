package control

import (
	"errors"
	"math"
	"testing"

	"gps-autopilot/internal/nav"
)

const tickS = 0.02

func newCore(t *testing.T, mutate ...func(*Params, *FailsafeParams)) *Core {
	t.Helper()
	p := DefaultParams()
	p.LaunchDelayS = 0
	fs := DefaultFailsafeParams()
	for _, m := range mutate {
		m(&p, &fs)
	}
	c, err := New(p, fs)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func validState(rangeM, bearingRad, trackRad float64) nav.State {
	return nav.State{
		FixValid:       true,
		DatumSet:       true,
		RangeFromDatum: rangeM,
		BearingToDatum: bearingRad,
		GroundTrackRad: trackRad,
		AltAboveDatumM: 50,
	}
}

// engageAt drives the core out of BOOT/IDLE into ENGAGED at t=0.
func engageAt(t *testing.T, c *Core, st nav.State) {
	t.Helper()
	c.Step(st, 0, tickS) // BOOT -> IDLE
	c.Step(st, 20, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED", c.Mode())
	}
}

func TestParamsValidate_CrossField(t *testing.T) {
	// S6: orbit 150 with safety 200 violates the 1.5x invariant.
	p := DefaultParams()
	p.OrbitRadiusM = 150
	p.SafetyRadiusM = 200
	err := p.Validate()
	if !errors.Is(err, ErrBadParam) {
		t.Fatalf("expected ErrBadParam, got %v", err)
	}
}

func TestSetParams_RejectedLeavesLiveValues(t *testing.T) {
	c := newCore(t)
	bad := c.Params()
	bad.OrbitRadiusM = 150 // safety stays 200: cross-field violation
	if err := c.SetParams(bad); err == nil {
		t.Fatalf("expected error")
	}
	if c.Params().OrbitRadiusM != 100 {
		t.Fatalf("live params mutated on failed set")
	}
}

func TestFailsafeParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*FailsafeParams)
		ok     bool
	}{
		{"Defaults", func(p *FailsafeParams) {}, true},
		{"RollHigh", func(p *FailsafeParams) { p.RollCmd = 1.5 }, false},
		{"MotorNegative", func(p *FailsafeParams) { p.MotorCmd = -0.1 }, false},
		{"TimeoutShort", func(p *FailsafeParams) { p.GPSTimeoutMS = 1000 }, false},
		{"TimeoutLong", func(p *FailsafeParams) { p.GPSTimeoutMS = 60000 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultFailsafeParams()
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok != (err == nil) {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestBootToIdle(t *testing.T) {
	c := newCore(t)
	snap := c.Step(nav.State{}, 0, tickS)
	if c.Mode() != ModeIdle {
		t.Fatalf("mode=%s want IDLE", c.Mode())
	}
	if snap.RollCmd != 0 || snap.MotorCmd != idleMotorCmd {
		t.Fatalf("idle commands roll=%v motor=%v", snap.RollCmd, snap.MotorCmd)
	}
}

func TestLaunchDelayHoldsIdle(t *testing.T) {
	c := newCore(t, func(p *Params, _ *FailsafeParams) { p.LaunchDelayS = 5 })
	st := validState(100, 0, 0)
	c.Step(st, 0, tickS) // BOOT -> IDLE
	c.Step(st, 4999, tickS)
	if c.Mode() != ModeIdle {
		t.Fatalf("mode=%s want IDLE during launch delay", c.Mode())
	}
	c.Step(st, 5000, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED after launch delay", c.Mode())
	}
}

func TestIdleRequiresDatumAndFix(t *testing.T) {
	c := newCore(t)
	c.Step(nav.State{FixValid: true}, 0, tickS)
	c.Step(nav.State{FixValid: true}, 20, tickS)
	if c.Mode() != ModeIdle {
		t.Fatalf("engaged without datum")
	}
	c.Step(nav.State{DatumSet: true}, 40, tickS)
	if c.Mode() != ModeIdle {
		t.Fatalf("engaged without fix")
	}
}

func TestOrbitPullIn(t *testing.T) {
	// S3: range 130, orbit 100, Kp_orbit 0.02, bearing 0.
	c := newCore(t)
	st := validState(130, 0, 0)
	engageAt(t, c, st)
	snap := c.Snapshot()
	want := math.Pi/2 - 0.6
	if math.Abs(snap.DesiredTrackRad-want) > 1e-9 {
		t.Errorf("desired track=%v want %v", snap.DesiredTrackRad, want)
	}
	if snap.RangeErrorM != 30 {
		t.Errorf("range error=%v want 30", snap.RangeErrorM)
	}
}

func TestTrackPIAntiWindup(t *testing.T) {
	// S4: constant 1 rad error with Kp=1.0, Ki=0.2. The integral clamps at
	// 1/Ki=5 so the I contribution never exceeds unity, and the roll command
	// saturates at 1 while ramping at the slew limit.
	c := newCore(t)
	// Track error is held at ~1 rad by keeping ground track 1 rad below the
	// desired track for a 100m-range orbit.
	st := validState(100, 0, math.Pi/2-1)
	engageAt(t, c, st)

	var snap Snapshot
	for i := int64(2); i < 252; i++ {
		snap = c.Step(st, i*20, tickS)
		if snap.MotorCmd < 0 || snap.MotorCmd > 0.9 {
			t.Fatalf("motor out of range: %v", snap.MotorCmd)
		}
		if snap.RollCmd < -1 || snap.RollCmd > 1 {
			t.Fatalf("roll out of range: %v", snap.RollCmd)
		}
	}
	if math.Abs(c.trackIntegral) > 1.0/c.params.KiTrack+1e-9 {
		t.Errorf("integral %v exceeds clamp", c.trackIntegral)
	}
	// After 5 seconds of saturation the command sits at +1.
	if snap.RollCmd != 1 {
		t.Errorf("roll=%v want saturated 1", snap.RollCmd)
	}
}

func TestRollSlewLimit(t *testing.T) {
	c := newCore(t)
	st := validState(100, 0, math.Pi/2-1) // large initial track error
	engageAt(t, c, st)

	prev := c.Snapshot().RollCmd
	for i := int64(2); i < 200; i++ {
		snap := c.Step(st, i*20, tickS)
		if d := math.Abs(snap.RollCmd - prev); d > rollSlewPerS*tickS+1e-6 {
			t.Fatalf("slew %v exceeds bound at tick %d", d, i)
		}
		prev = snap.RollCmd
	}
}

func TestMotorThreeZones(t *testing.T) {
	cases := []struct {
		rangeM float64
		want   float64
	}{
		{40, 0.40},  // inside half radius
		{100, 0.60}, // on the circle
		{160, 0.80}, // beyond 1.5x
	}
	for _, tc := range cases {
		c := newCore(t)
		st := validState(tc.rangeM, 0, 0)
		engageAt(t, c, st)
		if got := c.Snapshot().MotorCmd; got != tc.want {
			t.Errorf("range=%v motor=%v want %v", tc.rangeM, got, tc.want)
		}
	}
}

func TestCustomMotorLaw(t *testing.T) {
	c := newCore(t)
	c.SetMotorLaw(func(rangeM, orbitRadiusM float64) float64 { return 2.0 })
	st := validState(100, 0, 0)
	engageAt(t, c, st)
	if got := c.Snapshot().MotorCmd; got != 0.9 {
		t.Errorf("custom law should still saturate to 0.9, got %v", got)
	}
}

func TestGPSLossEntersFailsafe(t *testing.T) {
	// S2: GPS loss flips ENGAGED into FAILSAFE with the configured commands
	// and a reset integrator.
	c := newCore(t)
	st := validState(100, 0, 1) // nonzero track error to charge the integrator
	engageAt(t, c, st)
	c.Step(st, 40, tickS)
	if c.trackIntegral == 0 {
		t.Fatalf("test setup: integrator should be charged")
	}

	stale := st
	stale.FixValid = false
	snap := c.Step(stale, 60, tickS)
	if c.Mode() != ModeFailsafe {
		t.Fatalf("mode=%s want FAILSAFE", c.Mode())
	}
	if snap.RollCmd != -0.3 { // circle left: negative roll
		t.Errorf("failsafe roll=%v want -0.3", snap.RollCmd)
	}
	if snap.MotorCmd != 0.5 {
		t.Errorf("failsafe motor=%v want 0.5", snap.MotorCmd)
	}
	if c.trackIntegral != 0 {
		t.Errorf("integrator not reset on leaving ENGAGED")
	}
}

func TestFailsafeCircleDirection(t *testing.T) {
	c := newCore(t, func(_ *Params, fs *FailsafeParams) { fs.CircleLeft = false })
	st := validState(100, 0, 0)
	engageAt(t, c, st)
	stale := st
	stale.FixValid = false
	snap := c.Step(stale, 40, tickS)
	if snap.RollCmd != 0.3 {
		t.Errorf("right circle roll=%v want +0.3", snap.RollCmd)
	}
}

func TestJunkFixDoesNotLatchSafeStop(t *testing.T) {
	// A garbage fix beyond the range sanity bound arrives with
	// FixValid=false and an unusable range. That is a GPS problem, not a
	// geofence breach: the tick must go FAILSAFE, never SAFE_STOP.
	c := newCore(t)
	st := validState(100, 0, 0)
	engageAt(t, c, st)

	junk := st
	junk.FixValid = false
	junk.RangeFromDatum = 20000
	snap := c.Step(junk, 40, tickS)
	if c.Mode() != ModeFailsafe {
		t.Fatalf("mode=%s want FAILSAFE on an invalid fix", c.Mode())
	}
	if snap.RollCmd != -0.3 || snap.MotorCmd != 0.5 {
		t.Errorf("commands=%v/%v want failsafe -0.3/0.5", snap.RollCmd, snap.MotorCmd)
	}

	// The next trusted fix inside the safety radius re-engages.
	c.Step(st, 60, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED after the junk fix passes", c.Mode())
	}
}

func TestFailsafeRecovers(t *testing.T) {
	c := newCore(t)
	st := validState(100, 0, 0)
	engageAt(t, c, st)
	stale := st
	stale.FixValid = false
	c.Step(stale, 40, tickS)
	if c.Mode() != ModeFailsafe {
		t.Fatalf("mode=%s want FAILSAFE", c.Mode())
	}
	c.Step(st, 60, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED after recovery", c.Mode())
	}
}

func TestSafetyRadiusBoundary(t *testing.T) {
	// S5: exactly on the safety radius stays ENGAGED; strictly beyond latches
	// SAFE_STOP, and returning inside does not re-engage.
	c := newCore(t)
	engageAt(t, c, validState(100, 0, 0))

	c.Step(validState(200, 0, 0), 40, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED at the boundary", c.Mode())
	}

	snap := c.Step(validState(201, 0, 0), 60, tickS)
	if c.Mode() != ModeSafeStop {
		t.Fatalf("mode=%s want SAFE_STOP", c.Mode())
	}
	if snap.RollCmd != 0 || snap.MotorCmd != 0 {
		t.Errorf("safe stop commands roll=%v motor=%v", snap.RollCmd, snap.MotorCmd)
	}

	snap = c.Step(validState(180, 0, 0), 80, tickS)
	if c.Mode() != ModeSafeStop {
		t.Fatalf("SAFE_STOP must latch, mode=%s", c.Mode())
	}
	if snap.RollCmd != 0 || snap.MotorCmd != 0 {
		t.Errorf("latched safe stop commands roll=%v motor=%v", snap.RollCmd, snap.MotorCmd)
	}
}

func TestManualOverrideAndClear(t *testing.T) {
	c := newCore(t)
	engageAt(t, c, validState(100, 0, 0))

	c.ManualOverride(-2.0, 1.5) // out-of-range commands are saturated
	snap := c.Step(validState(100, 0, 0), 40, tickS)
	if c.Mode() != ModeManual {
		t.Fatalf("mode=%s want MANUAL", c.Mode())
	}
	if snap.RollCmd != -1 || snap.MotorCmd != 0.9 {
		t.Errorf("manual commands roll=%v motor=%v", snap.RollCmd, snap.MotorCmd)
	}

	c.ClearOverride(60)
	if c.Mode() != ModeIdle {
		t.Fatalf("mode=%s want IDLE after clear", c.Mode())
	}
	snap = c.Step(nav.State{}, 80, tickS)
	if snap.RollCmd != 0 || snap.MotorCmd != idleMotorCmd {
		t.Errorf("idle commands roll=%v motor=%v", snap.RollCmd, snap.MotorCmd)
	}
}

func TestManualOverrideFromSafeStop(t *testing.T) {
	c := newCore(t)
	engageAt(t, c, validState(100, 0, 0))
	c.Step(validState(300, 0, 0), 40, tickS)
	if c.Mode() != ModeSafeStop {
		t.Fatalf("mode=%s want SAFE_STOP", c.Mode())
	}
	c.ManualOverride(0, 0)
	c.ClearOverride(60)
	c.Step(validState(100, 0, 0), 80, tickS)
	if c.Mode() != ModeEngaged {
		t.Fatalf("mode=%s want ENGAGED after manual clear cycle", c.Mode())
	}
}

func TestShaperResetOnLeavingEngaged(t *testing.T) {
	c := newCore(t)
	st := validState(100, 0, 1)
	engageAt(t, c, st)
	for i := int64(2); i < 20; i++ {
		c.Step(st, i*20, tickS)
	}
	if c.prevRoll == 0 {
		t.Fatalf("test setup: shaper should hold a nonzero command")
	}
	stale := st
	stale.FixValid = false
	c.Step(stale, 400, tickS)
	if c.prevRoll != 0 {
		t.Errorf("shaper state not reset on leaving ENGAGED")
	}
}

func TestAltitudeAdvisoryOnly(t *testing.T) {
	c := newCore(t)
	st := validState(100, 0, 0)
	st.AltAboveDatumM = 500 // way above the advisory ceiling
	engageAt(t, c, st)
	if c.Mode() != ModeEngaged {
		t.Fatalf("altitude must never gate engagement, mode=%s", c.Mode())
	}
	if !c.Snapshot().AltAdvisory {
		t.Errorf("expected altitude advisory flag")
	}
}

func TestAngleOutputsWrapped(t *testing.T) {
	for _, bearing := range []float64{-3, -1, 0, 1, 3} {
		for _, track := range []float64{-3, 0, 3} {
			c := newCore(t)
			st := validState(190, bearing, track)
			engageAt(t, c, st)
			snap := c.Snapshot()
			if snap.DesiredTrackRad <= -math.Pi || snap.DesiredTrackRad > math.Pi {
				t.Errorf("desired track %v unwrapped", snap.DesiredTrackRad)
			}
			if snap.TrackErrorRad <= -math.Pi || snap.TrackErrorRad > math.Pi {
				t.Errorf("track error %v unwrapped", snap.TrackErrorRad)
			}
		}
	}
}
