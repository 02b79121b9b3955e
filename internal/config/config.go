// Package config loads the autopilot configuration file. It owns the file
// schema and defaulting; range checks on the parameter groups are delegated
// to the nav and control validators so each invariant has a single home.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gps-autopilot/internal/control"
	"gps-autopilot/internal/nav"
)

type Config struct {
	Navigation NavigationConfig `yaml:"navigation"`
	Control    ControlConfig    `yaml:"control"`
	Failsafe   FailsafeConfig   `yaml:"failsafe"`
	GPS        GPSConfig        `yaml:"gps"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Board      BoardConfig      `yaml:"board"`
	FlightLog  FlightLogConfig  `yaml:"flight_log"`
	Sim        SimConfig        `yaml:"sim"`
}

type NavigationConfig struct {
	TrackGain     float64 `yaml:"track_gain"`
	AirspeedMS    float64 `yaml:"airspeed_ms"`
	GPSFilterTauS float64 `yaml:"gps_filter_tau_s"`
	GPSUpdateHz   int     `yaml:"gps_update_hz"`
}

type ControlConfig struct {
	KpOrbit       float64 `yaml:"kp_orbit"`
	KpTrack       float64 `yaml:"kp_track"`
	KiTrack       float64 `yaml:"ki_track"`
	KpRoll        float64 `yaml:"kp_roll"`
	KiRoll        float64 `yaml:"ki_roll"`
	OrbitRadiusM  float64 `yaml:"orbit_radius_m"`
	SafetyRadiusM float64 `yaml:"safety_radius_m"`
	LaunchDelayS  float64 `yaml:"launch_delay_s"`
}

type FailsafeConfig struct {
	RollCmd      float64 `yaml:"roll_command"`
	MotorCmd     float64 `yaml:"motor_command"`
	GPSTimeoutMS int64   `yaml:"gps_timeout_ms"`
	CircleLeft   *bool   `yaml:"circle_left"`
}

type GPSConfig struct {
	// Device may be empty to auto-detect /dev/ttyACM* and /dev/ttyUSB*.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type ActuatorConfig struct {
	Enable bool `yaml:"enable"`

	ServoCenterUS   float64 `yaml:"servo_center_us"`
	ServoRangeUS    float64 `yaml:"servo_range_us"`
	ServoReversed   bool    `yaml:"servo_reversed"`
	ServoMinUS      float64 `yaml:"servo_min_us"`
	ServoMaxUS      float64 `yaml:"servo_max_us"`
	ServoDeadbandUS float64 `yaml:"servo_deadband_us"`

	MotorMinUS float64 `yaml:"motor_min_us"`
	MotorMaxUS float64 `yaml:"motor_max_us"`

	// PWM chip/channel numbers under /sys/class/pwm.
	ServoPWMChip    int `yaml:"servo_pwm_chip"`
	ServoPWMChannel int `yaml:"servo_pwm_channel"`
	MotorPWMChip    int `yaml:"motor_pwm_chip"`
	MotorPWMChannel int `yaml:"motor_pwm_channel"`
}

type BoardConfig struct {
	// GPIO character device, e.g. "gpiochip0". Empty disables the board I/O.
	GPIOChip string `yaml:"gpio_chip"`
	// ButtonPin is the BCM GPIO of the datum-capture button.
	ButtonPin int `yaml:"button_pin"`
	// LEDPin is the BCM GPIO of the status LED.
	LEDPin int `yaml:"led_pin"`
}

type FlightLogConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
	// EveryNTicks decimates the 50 Hz loop; the default logs every 10th tick.
	EveryNTicks int `yaml:"every_n_ticks"`
}

type SimConfig struct {
	Enable bool   `yaml:"enable"`
	Script string `yaml:"script"`
}

// Load reads, defaults and validates the configuration file. A bad file
// fails here rather than at arming time.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	defNav := nav.DefaultParams()
	if cfg.Navigation.TrackGain == 0 {
		cfg.Navigation.TrackGain = defNav.TrackGain
	}
	if cfg.Navigation.AirspeedMS == 0 {
		cfg.Navigation.AirspeedMS = defNav.AirspeedMS
	}
	if cfg.Navigation.GPSFilterTauS == 0 {
		cfg.Navigation.GPSFilterTauS = defNav.GPSFilterTauS
	}
	if cfg.Navigation.GPSUpdateHz == 0 {
		cfg.Navigation.GPSUpdateHz = defNav.GPSUpdateHz
	}

	defCtl := control.DefaultParams()
	if cfg.Control.KpOrbit == 0 {
		cfg.Control.KpOrbit = defCtl.KpOrbit
	}
	if cfg.Control.KpTrack == 0 {
		cfg.Control.KpTrack = defCtl.KpTrack
	}
	if cfg.Control.KiTrack == 0 {
		cfg.Control.KiTrack = defCtl.KiTrack
	}
	if cfg.Control.KpRoll == 0 {
		cfg.Control.KpRoll = defCtl.KpRoll
	}
	if cfg.Control.KiRoll == 0 {
		cfg.Control.KiRoll = defCtl.KiRoll
	}
	if cfg.Control.OrbitRadiusM == 0 {
		cfg.Control.OrbitRadiusM = defCtl.OrbitRadiusM
	}
	if cfg.Control.SafetyRadiusM == 0 {
		cfg.Control.SafetyRadiusM = defCtl.SafetyRadiusM
	}
	if cfg.Control.LaunchDelayS == 0 {
		cfg.Control.LaunchDelayS = defCtl.LaunchDelayS
	}

	defFS := control.DefaultFailsafeParams()
	if cfg.Failsafe.RollCmd == 0 {
		cfg.Failsafe.RollCmd = defFS.RollCmd
	}
	if cfg.Failsafe.MotorCmd == 0 {
		cfg.Failsafe.MotorCmd = defFS.MotorCmd
	}
	if cfg.Failsafe.GPSTimeoutMS == 0 {
		cfg.Failsafe.GPSTimeoutMS = defFS.GPSTimeoutMS
	}
	if cfg.Failsafe.CircleLeft == nil {
		v := defFS.CircleLeft
		cfg.Failsafe.CircleLeft = &v
	}

	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 9600
	}

	if cfg.Actuator.ServoCenterUS == 0 {
		cfg.Actuator.ServoCenterUS = 1500
	}
	if cfg.Actuator.ServoRangeUS == 0 {
		cfg.Actuator.ServoRangeUS = 500
	}
	if cfg.Actuator.ServoMinUS == 0 {
		cfg.Actuator.ServoMinUS = 1000
	}
	if cfg.Actuator.ServoMaxUS == 0 {
		cfg.Actuator.ServoMaxUS = 2000
	}
	if cfg.Actuator.ServoDeadbandUS == 0 {
		cfg.Actuator.ServoDeadbandUS = 10
	}
	if cfg.Actuator.MotorMinUS == 0 {
		cfg.Actuator.MotorMinUS = 1000
	}
	if cfg.Actuator.MotorMaxUS == 0 {
		cfg.Actuator.MotorMaxUS = 2000
	}
	if cfg.Actuator.MotorPWMChannel == 0 && cfg.Actuator.ServoPWMChannel == 0 {
		cfg.Actuator.MotorPWMChannel = 1
	}

	if cfg.Board.GPIOChip == "" && (cfg.Board.ButtonPin != 0 || cfg.Board.LEDPin != 0) {
		cfg.Board.GPIOChip = "gpiochip0"
	}

	if cfg.FlightLog.EveryNTicks == 0 {
		cfg.FlightLog.EveryNTicks = 10
	}

	if err := cfg.NavParams().Validate(); err != nil {
		return Config{}, fmt.Errorf("navigation: %w", err)
	}
	if err := cfg.ControlParams().Validate(); err != nil {
		return Config{}, fmt.Errorf("control: %w", err)
	}
	if err := cfg.FailsafeParams().Validate(); err != nil {
		return Config{}, fmt.Errorf("failsafe: %w", err)
	}

	if cfg.Actuator.ServoMinUS >= cfg.Actuator.ServoMaxUS {
		return Config{}, fmt.Errorf("actuator.servo_min_us must be below actuator.servo_max_us")
	}
	if cfg.Actuator.MotorMinUS >= cfg.Actuator.MotorMaxUS {
		return Config{}, fmt.Errorf("actuator.motor_min_us must be below actuator.motor_max_us")
	}
	if cfg.Sim.Enable && cfg.Sim.Script == "" {
		return Config{}, fmt.Errorf("sim.script is required when sim.enable is true")
	}
	if cfg.FlightLog.Enable && cfg.FlightLog.Path == "" {
		return Config{}, fmt.Errorf("flight_log.path is required when flight_log.enable is true")
	}

	return cfg, nil
}

// NavParams converts the file schema to the navigation parameter block.
func (c Config) NavParams() nav.Params {
	return nav.Params{
		TrackGain:     c.Navigation.TrackGain,
		AirspeedMS:    c.Navigation.AirspeedMS,
		GPSFilterTauS: c.Navigation.GPSFilterTauS,
		GPSUpdateHz:   c.Navigation.GPSUpdateHz,
	}
}

// ControlParams converts the file schema to the control parameter block.
func (c Config) ControlParams() control.Params {
	return control.Params{
		KpOrbit:       c.Control.KpOrbit,
		KpTrack:       c.Control.KpTrack,
		KiTrack:       c.Control.KiTrack,
		KpRoll:        c.Control.KpRoll,
		KiRoll:        c.Control.KiRoll,
		OrbitRadiusM:  c.Control.OrbitRadiusM,
		SafetyRadiusM: c.Control.SafetyRadiusM,
		LaunchDelayS:  c.Control.LaunchDelayS,
	}
}

// FailsafeParams converts the file schema to the failsafe parameter block.
func (c Config) FailsafeParams() control.FailsafeParams {
	circleLeft := true
	if c.Failsafe.CircleLeft != nil {
		circleLeft = *c.Failsafe.CircleLeft
	}
	return control.FailsafeParams{
		RollCmd:      c.Failsafe.RollCmd,
		MotorCmd:     c.Failsafe.MotorCmd,
		GPSTimeoutMS: c.Failsafe.GPSTimeoutMS,
		CircleLeft:   circleLeft,
	}
}
