package main

import (
	"context"
	"log"
	"time"

	"gps-autopilot/internal/config"
	"gps-autopilot/internal/control"
	"gps-autopilot/internal/flightlog"
	"gps-autopilot/internal/geo"
	"gps-autopilot/internal/hal"
	"gps-autopilot/internal/nav"
	"gps-autopilot/internal/serial"
)

const (
	// tickMS is the control loop period: 50 Hz.
	tickMS = 20
	// statusTicks paces the 1 Hz status line.
	statusTicks = 50
)

// runtime is the 50 Hz control loop: drain GPS bytes, step navigation, step
// control, write actuators. Single-threaded by construction; everything runs
// on the tick.
type runtime struct {
	src   serial.Source
	navc  *nav.Core
	ctl   *control.Core
	out   hal.Output
	board *hal.Board
	flog  *flightlog.Writer
	nowMS func() int64

	readBuf     [512]byte
	lastTickMS  int64
	tickCount   int64
	buttonDown  bool
	lastStepErr string
}

func newRuntime(cfg config.Config, src serial.Source, out hal.Output, board *hal.Board, flog *flightlog.Writer, nowMS func() int64) (*runtime, error) {
	fs := cfg.FailsafeParams()
	navc, err := nav.New(cfg.NavParams(), fs.GPSTimeoutMS)
	if err != nil {
		return nil, err
	}
	ctl, err := control.New(cfg.ControlParams(), fs)
	if err != nil {
		return nil, err
	}
	return &runtime{
		src:   src,
		navc:  navc,
		ctl:   ctl,
		out:   out,
		board: board,
		flog:  flog,
		nowMS: nowMS,
	}, nil
}

// Run drives the loop until the context is cancelled. On exit the actuators
// get one final neutral command so the motor never stays hot.
func (r *runtime) Run(ctx context.Context) {
	ticker := time.NewTicker(tickMS * time.Millisecond)
	defer ticker.Stop()

	r.lastTickMS = r.nowMS()
	for {
		select {
		case <-ctx.Done():
			if err := r.out.Apply(0, 0); err != nil {
				log.Printf("actuator neutral failed err=%v", err)
			}
			return
		case <-ticker.C:
			r.tick(r.nowMS())
		}
	}
}

// tick runs one control iteration at the given monotonic time.
func (r *runtime) tick(nowMS int64) {
	dt := float64(nowMS-r.lastTickMS) / 1000
	r.lastTickMS = nowMS
	// A stall (scheduling hiccup, log flush) must not slam the integrator
	// or the roll shaper with a giant dt.
	dt = geo.Saturate(dt, 0.001, 0.1)
	r.tickCount++

	n, err := r.src.ReadAvailable(r.readBuf[:])
	if err != nil {
		log.Printf("gps read failed err=%v", err)
	} else if n > 0 {
		r.navc.Ingest(r.readBuf[:n], nowMS)
	}

	if err := r.navc.Step(nowMS); err != nil {
		// Log transitions only; these repeat every tick while the
		// condition holds.
		if err.Error() != r.lastStepErr {
			log.Printf("nav step err=%v", err)
			r.lastStepErr = err.Error()
		}
	} else {
		r.lastStepErr = ""
	}
	st := r.navc.State()

	r.pollButton()

	snap := r.ctl.Step(st, nowMS, dt)
	if err := r.out.Apply(snap.RollCmd, snap.MotorCmd); err != nil {
		log.Printf("actuator write failed err=%v", err)
	}

	r.driveLED(st, snap)

	if r.flog != nil {
		if err := r.flog.Log(nowMS, st, snap); err != nil {
			log.Printf("flight log write failed err=%v", err)
		}
	}

	if r.tickCount%statusTicks == 0 {
		log.Printf("status mode=%s fix=%t datum=%t range=%.0fm bearing=%.0fdeg alt=%.0fm speed=%.1fms roll=%.2f motor=%.2f",
			snap.Mode, st.FixValid, st.DatumSet,
			st.RangeFromDatum, st.BearingToDatum*geo.RadToDeg, st.AltAboveDatumM,
			st.GroundSpeedMS, snap.RollCmd, snap.MotorCmd)
	}
}

// pollButton edge-detects the datum button. A press captures the datum; once
// the datum is set, a press while latched in SAFE_STOP re-arms through IDLE.
func (r *runtime) pollButton() {
	pressed, err := r.board.ButtonPressed()
	if err != nil {
		log.Printf("button read failed err=%v", err)
		return
	}
	edge := pressed && !r.buttonDown
	r.buttonDown = pressed
	if !edge {
		return
	}

	if !r.navc.State().DatumSet {
		if err := r.navc.SetDatum(); err != nil {
			log.Printf("datum capture refused err=%v", err)
		}
		return
	}
	if r.ctl.Mode() == control.ModeSafeStop {
		r.ctl.ManualOverride(0, 0)
		r.ctl.ClearOverride(r.nowMS())
		log.Printf("safe stop cleared by button")
	}
}

// ledState: off without a fix, 1 Hz blink with a fix but no datum, solid
// once the datum is set. FAILSAFE and SAFE_STOP flash fast so a fault is
// visible from the ground.
func (r *runtime) ledState(st nav.State, snap control.Snapshot) bool {
	switch {
	case snap.Mode == control.ModeFailsafe || snap.Mode == control.ModeSafeStop:
		return (r.tickCount/(statusTicks/10))%2 == 0
	case !st.FixValid:
		return false
	case !st.DatumSet:
		return (r.tickCount/(statusTicks/2))%2 == 0
	default:
		return true
	}
}

func (r *runtime) driveLED(st nav.State, snap control.Snapshot) {
	if err := r.board.SetLED(r.ledState(st, snap)); err != nil {
		log.Printf("led write failed err=%v", err)
	}
}
