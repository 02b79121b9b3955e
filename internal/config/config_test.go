package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	np := cfg.NavParams()
	if np.TrackGain != 1.0 || np.AirspeedMS != 12.0 || np.GPSFilterTauS != 2.0 || np.GPSUpdateHz != 5 {
		t.Fatalf("nav params=%+v want defaults", np)
	}
	cp := cfg.ControlParams()
	if cp.OrbitRadiusM != 100 || cp.SafetyRadiusM != 200 || cp.LaunchDelayS != 10 {
		t.Fatalf("control params=%+v want defaults", cp)
	}
	fp := cfg.FailsafeParams()
	if fp.RollCmd != 0.3 || fp.MotorCmd != 0.5 || fp.GPSTimeoutMS != 5000 || !fp.CircleLeft {
		t.Fatalf("failsafe params=%+v want defaults", fp)
	}
	if cfg.GPS.Baud != 9600 {
		t.Fatalf("baud=%d want 9600", cfg.GPS.Baud)
	}
	if cfg.Actuator.ServoCenterUS != 1500 || cfg.Actuator.MotorMaxUS != 2000 {
		t.Fatalf("actuator=%+v want pulse defaults", cfg.Actuator)
	}
	if cfg.FlightLog.EveryNTicks != 10 {
		t.Fatalf("every_n_ticks=%d want 10", cfg.FlightLog.EveryNTicks)
	}
}

func TestLoad_OverridesKept(t *testing.T) {
	body := "navigation:\n  track_gain: 1.5\n" +
		"control:\n  orbit_radius_m: 80\n  safety_radius_m: 150\n" +
		"failsafe:\n  circle_left: false\n" +
		"gps:\n  device: /dev/ttyUSB3\n  baud: 38400\n"
	path := writeTempConfig(t, body)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Navigation.TrackGain != 1.5 {
		t.Fatalf("track_gain=%v want 1.5", cfg.Navigation.TrackGain)
	}
	if cfg.Control.OrbitRadiusM != 80 || cfg.Control.SafetyRadiusM != 150 {
		t.Fatalf("radii=%v/%v want 80/150", cfg.Control.OrbitRadiusM, cfg.Control.SafetyRadiusM)
	}
	if cfg.FailsafeParams().CircleLeft {
		t.Fatalf("circle_left should be false")
	}
	if cfg.GPS.Device != "/dev/ttyUSB3" || cfg.GPS.Baud != 38400 {
		t.Fatalf("gps=%+v want override kept", cfg.GPS)
	}
}

func TestLoad_ParameterGroupValidated(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "NavGainTooHigh",
			body: "navigation:\n  track_gain: 5.0\n",
			want: "navigation: bad parameter: track_gain 5 outside [0.5, 2.0]",
		},
		{
			name: "OrbitRadiusTooSmall",
			body: "control:\n  orbit_radius_m: 20\n",
			want: "control: bad parameter: orbit_radius_m 20 outside [50, 200]",
		},
		{
			name: "SafetyBelowOrbitFactor",
			body: "control:\n  orbit_radius_m: 150\n  safety_radius_m: 200\n",
			want: "control: bad parameter: safety_radius_m 200 below 225 (1.5x orbit radius)",
		},
		{
			name: "FailsafeTimeoutTooShort",
			body: "failsafe:\n  gps_timeout_ms: 1000\n",
			want: "failsafe: bad parameter: gps_timeout_ms 1000 outside [5000, 30000]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.body)
			_, err := Load(path)
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ActuatorPulseOrdering(t *testing.T) {
	path := writeTempConfig(t, "actuator:\n  servo_min_us: 1800\n  servo_max_us: 1700\n")
	_, err := Load(path)
	requireErrEq(t, err, "actuator.servo_min_us must be below actuator.servo_max_us")
}

func TestLoad_SimRequiresScript(t *testing.T) {
	path := writeTempConfig(t, "sim:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "sim.script is required when sim.enable is true")
}

func TestLoad_FlightLogRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "flight_log:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "flight_log.path is required when flight_log.enable is true")
}

func TestLoad_BoardChipDefaulted(t *testing.T) {
	path := writeTempConfig(t, "board:\n  button_pin: 17\n  led_pin: 27\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Board.GPIOChip != "gpiochip0" {
		t.Fatalf("gpio_chip=%q want gpiochip0", cfg.Board.GPIOChip)
	}
}
