// Binwatch watches a sorting bin through a fixed camera, classifies
// items on motion, and relays serial telemetry from the bin hardware.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/binsort/binwatch/internal/config"
	"github.com/binsort/binwatch/internal/log"
	"github.com/binsort/binwatch/pkg/monitor"
)

func main() {
	// A missing .env is fine; real environment variables win.
	_ = godotenv.Load()

	cfg, once := parseFlags()

	level := config.Get("LOG_LEVEL", "info")
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app, err := monitor.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if once {
		if err := app.RunOnce(ctx); err != nil {
			log.Error("single cycle failed", "error", err)
			app.Shutdown()
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags returns the configuration and whether to run a single
// cycle. Precedence is defaults, then environment, then flags.
func parseFlags() (monitor.Config, bool) {
	cfg := monitor.DefaultConfig()
	cfg.LoadEnvConfig()

	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.IntVar(&cfg.IntervalMs, "interval", cfg.IntervalMs, "Pause between capture cycles in milliseconds")
	flag.IntVar(&cfg.MotionThreshold, "threshold", cfg.MotionThreshold, "Changed-pixel count a frame pair must exceed to classify")
	flag.StringVar(&cfg.CameraDevice, "device", cfg.CameraDevice, "Camera device index or path")
	flag.StringVar(&cfg.SnapshotURL, "snapshot-url", cfg.SnapshotURL, "Fetch frames from this HTTP endpoint instead of a local camera")
	flag.StringVar(&cfg.SerialPath, "serial", cfg.SerialPath, "Serial device path for bin telemetry (empty disables)")
	flag.IntVar(&cfg.SerialBaud, "baud", cfg.SerialBaud, "Serial baud rate")
	flag.StringVar(&cfg.StatusAddr, "addr", cfg.StatusAddr, "Status server listen address (empty disables)")
	once := flag.Bool("once", false, "Run a single capture cycle and exit")
	flag.Parse()

	return cfg, *once
}
