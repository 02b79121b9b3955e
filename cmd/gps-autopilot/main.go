package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gps-autopilot/internal/config"
	"gps-autopilot/internal/flightlog"
	"gps-autopilot/internal/hal"
	"gps-autopilot/internal/serial"
	"gps-autopilot/internal/sim"
)

func main() {
	var configPath, simScript string
	flag.StringVar(&configPath, "config", "./autopilot.yaml", "Path to YAML config")
	flag.StringVar(&simScript, "sim", "", "Run against a simulated GPS script instead of the serial port")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if simScript != "" {
		cfg.Sim.Enable = true
		cfg.Sim.Script = simScript
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	nowMS := func() int64 { return time.Since(start).Milliseconds() }

	var src serial.Source
	if cfg.Sim.Enable {
		script, err := sim.LoadScript(cfg.Sim.Script)
		if err != nil {
			log.Fatalf("sim script load failed: %v", err)
		}
		src, err = sim.New(script, nowMS)
		if err != nil {
			log.Fatalf("sim source init failed: %v", err)
		}
		log.Printf("gps source=sim script=%s", cfg.Sim.Script)
	} else {
		src, err = serial.Open(serial.Config{Device: cfg.GPS.Device, Baud: cfg.GPS.Baud})
		if err != nil {
			log.Fatalf("gps serial open failed: %v", err)
		}
	}
	defer src.Close()

	var out hal.Output = hal.NopOutput{}
	if cfg.Actuator.Enable {
		pwm, err := hal.OpenPWMOutput(cfg.Actuator)
		if err != nil {
			log.Fatalf("actuator init failed: %v", err)
		}
		out = pwm
	}
	defer out.Close()

	board, err := hal.OpenBoard(cfg.Board)
	if err != nil {
		log.Fatalf("board init failed: %v", err)
	}
	defer board.Close()

	var flog *flightlog.Writer
	if cfg.FlightLog.Enable {
		flog, err = flightlog.Create(cfg.FlightLog.Path, cfg.FlightLog.EveryNTicks)
		if err != nil {
			log.Fatalf("flight log init failed: %v", err)
		}
		log.Printf("flight log path=%s every_n_ticks=%d", cfg.FlightLog.Path, cfg.FlightLog.EveryNTicks)
	}
	defer flog.Close()

	rt, err := newRuntime(cfg, src, out, board, flog, nowMS)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}

	log.Printf("gps-autopilot starting")
	rt.Run(ctx)
	log.Printf("gps-autopilot stopping")
}
