// Package hal maps normalized control commands onto the aircraft's
// actuators and board I/O: the aileron servo and motor ESC via hardware
// PWM, and the datum button and status LED via the GPIO character device.
package hal

import "gps-autopilot/internal/geo"

// ServoMap converts a normalized roll command in [-1, 1] to a servo pulse
// width in microseconds.
type ServoMap struct {
	CenterUS   float64
	RangeUS    float64
	Reversed   bool
	MinUS      float64
	MaxUS      float64
	DeadbandUS float64
}

// PulseUS returns the pulse width for cmd. The command is saturated to
// [-1, 1] first; the result is clamped to [MinUS, MaxUS] and pulses within
// DeadbandUS of center snap to center so a twitching ESC or servo does not
// chatter around neutral.
func (m ServoMap) PulseUS(cmd float64) float64 {
	cmd = geo.Saturate(cmd, -1, 1)
	if m.Reversed {
		cmd = -cmd
	}
	pulse := m.CenterUS + cmd*m.RangeUS/2
	pulse = geo.Saturate(pulse, m.MinUS, m.MaxUS)
	if pulse > m.CenterUS-m.DeadbandUS && pulse < m.CenterUS+m.DeadbandUS {
		pulse = m.CenterUS
	}
	return pulse
}

// MotorMap converts a normalized motor command in [0, 1] to an ESC pulse
// width in microseconds.
type MotorMap struct {
	MinUS float64
	MaxUS float64
}

// PulseUS returns the pulse width for cmd, saturated to [0, 1]. A zero
// command maps to MinUS, which ESCs treat as motor off.
func (m MotorMap) PulseUS(cmd float64) float64 {
	cmd = geo.Saturate(cmd, 0, 1)
	return m.MinUS + cmd*(m.MaxUS-m.MinUS)
}

// Output receives the per-tick normalized commands from the control loop.
type Output interface {
	Apply(rollCmd, motorCmd float64) error
	Close() error
}

// NopOutput discards commands. Used when the actuator section is disabled,
// e.g. bench runs against the simulator.
type NopOutput struct{}

func (NopOutput) Apply(rollCmd, motorCmd float64) error { return nil }
func (NopOutput) Close() error                          { return nil }
