package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/injector"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "robosim:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file (defaults when empty)")
		mode        = flag.String("mode", "", "override the start mode: autonomous or manual")
		ticks       = flag.Int("ticks", -1, "override the tick limit; 0 runs until stopped")
		addr        = flag.String("telemetry", "", "serve the snapshot feed on this address, e.g. :8080")
		realtime    = flag.Bool("realtime", false, "pace ticks at wall-clock speed")
		printConfig = flag.Bool("print-config", false, "print the effective config and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if *mode != "" {
		cfg.Simulation.Mode = *mode
	}
	if *ticks >= 0 {
		cfg.Simulation.MaxTicks = *ticks
	}
	if *addr != "" {
		cfg.Telemetry.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *printConfig {
		return cfg.Write(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := injector.InitializeApp(&cfg, injector.Options{Realtime: *realtime})
	if err != nil {
		return err
	}
	defer cleanup()

	// SIGUSR1 toggles debug logging while the run is in progress.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1:
				app.ToggleDebug()
			}
		}
	}()

	report, err := app.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
