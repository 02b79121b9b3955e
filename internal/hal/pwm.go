package hal

import (
	"fmt"
	"log"

	"gps-autopilot/internal/config"
)

// servoPeriodNS is the standard 50 Hz RC servo frame.
const servoPeriodNS = 20_000_000

// pulseDriver is the minimal interface the actuator output needs from a
// PWM backend. Pulse width is expressed in microseconds within a 50 Hz
// frame. Close should be best-effort and leave the channel disabled.
type pulseDriver interface {
	SetPulseUS(us float64) error
	Close() error
}

// PWMOutput drives the aileron servo and motor ESC through two hardware
// PWM channels.
type PWMOutput struct {
	servo ServoMap
	motor MotorMap

	servoDrv pulseDriver
	motorDrv pulseDriver
}

// OpenPWMOutput opens both PWM channels and centers the servo with the
// motor off, so a restart mid-flight never leaves the throttle hot.
func OpenPWMOutput(cfg config.ActuatorConfig) (*PWMOutput, error) {
	servoDrv, err := openPWM(cfg.ServoPWMChip, cfg.ServoPWMChannel)
	if err != nil {
		return nil, fmt.Errorf("hal: open servo pwm: %w", err)
	}
	motorDrv, err := openPWM(cfg.MotorPWMChip, cfg.MotorPWMChannel)
	if err != nil {
		_ = servoDrv.Close()
		return nil, fmt.Errorf("hal: open motor pwm: %w", err)
	}

	o := &PWMOutput{
		servo: ServoMap{
			CenterUS:   cfg.ServoCenterUS,
			RangeUS:    cfg.ServoRangeUS,
			Reversed:   cfg.ServoReversed,
			MinUS:      cfg.ServoMinUS,
			MaxUS:      cfg.ServoMaxUS,
			DeadbandUS: cfg.ServoDeadbandUS,
		},
		motor: MotorMap{
			MinUS: cfg.MotorMinUS,
			MaxUS: cfg.MotorMaxUS,
		},
		servoDrv: servoDrv,
		motorDrv: motorDrv,
	}
	if err := o.Apply(0, 0); err != nil {
		_ = o.Close()
		return nil, err
	}
	log.Printf("hal actuators ready servo=pwm%d:%d motor=pwm%d:%d",
		cfg.ServoPWMChip, cfg.ServoPWMChannel, cfg.MotorPWMChip, cfg.MotorPWMChannel)
	return o, nil
}

func (o *PWMOutput) Apply(rollCmd, motorCmd float64) error {
	if err := o.servoDrv.SetPulseUS(o.servo.PulseUS(rollCmd)); err != nil {
		return fmt.Errorf("hal: servo: %w", err)
	}
	if err := o.motorDrv.SetPulseUS(o.motor.PulseUS(motorCmd)); err != nil {
		return fmt.Errorf("hal: motor: %w", err)
	}
	return nil
}

// Close centers the servo, cuts the motor and disables both channels.
func (o *PWMOutput) Close() error {
	_ = o.servoDrv.SetPulseUS(o.servo.CenterUS)
	_ = o.motorDrv.SetPulseUS(o.motor.MinUS)
	err1 := o.servoDrv.Close()
	err2 := o.motorDrv.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
