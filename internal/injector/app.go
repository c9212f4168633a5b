package injector

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/manual"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/sim"
	"github.com/zeusync/robosim/internal/telemetry"
)

// Options are run settings that come from the command line rather than the
// config file.
type Options struct {
	// Realtime paces ticks at the configured tick length.
	Realtime bool
}

// App is a fully wired simulator.
type App struct {
	Config *config.Config
	Log    *log.Logger
	Events bus.EventBus
	Keys   *manual.KeyState
	Sim    *sim.Simulation
	Hub    *telemetry.Hub
}

// ProvideLogger builds the zap logger from the log section; the cleanup
// flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	l, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

func ProvideEvents() bus.EventBus { return bus.New() }

func ProvideKeys() *manual.KeyState { return manual.NewKeyState() }

// ProvideSimulation builds the simulation on the shared bus. Tick frames only
// feed telemetry, so they are filtered out when no hub address is configured.
func ProvideSimulation(cfg *config.Config, opts Options, l *log.Logger, events bus.EventBus, keys *manual.KeyState) (*sim.Simulation, func(), error) {
	simOpts := []sim.Option{sim.WithLogger(l), sim.WithEvents(events), sim.WithInput(keys)}
	if opts.Realtime {
		simOpts = append(simOpts, sim.WithPace(time.Duration(cfg.Simulation.TickSeconds*float64(time.Second))))
	}
	if cfg.Telemetry.Addr == "" {
		simOpts = append(simOpts, sim.WithEventFilters(bus.ExcludeTypes(bus.TypeSimTick)))
	}
	s, err := sim.New(cfg, simOpts...)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// ProvideHub attaches a telemetry hub to the bus. The hub only listens when
// App.Run serves it.
func ProvideHub(cfg *config.Config, l *log.Logger, events bus.EventBus, keys *manual.KeyState) (*telemetry.Hub, func(), error) {
	h := telemetry.New(cfg.Telemetry, l, telemetry.WithKeys(keys))
	sub, err := h.Attach(events)
	if err != nil {
		return nil, nil, err
	}
	return h, func() {
		_ = events.Unsubscribe(sub)
		_ = h.Close()
	}, nil
}

// ToggleDebug flips the logger between debug and the configured level and
// returns the level now in effect.
func (a *App) ToggleDebug() log.Level {
	next := log.LevelDebug
	if a.Log.GetLevel() == log.LevelDebug {
		base, err := log.ParseLevel(a.Config.Log.Level)
		if err != nil || base == log.LevelDebug {
			base = log.LevelInfo
		}
		next = base
	}
	a.Log.SetLevel(next)
	a.Log.Info("log level changed", log.String("level", next.String()))
	return next
}

// Run steps the simulation until it stops and serves telemetry alongside when
// an address is configured. Without telemetry the run also ends at the goal.
func (a *App) Run(ctx context.Context) (sim.Report, error) {
	stops := []sim.StopFunc{}
	if a.Config.Simulation.StopOnHalt {
		stops = append(stops, sim.UntilHalted)
	}
	if a.Config.Telemetry.Addr == "" {
		stops = append(stops, sim.UntilGoal)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if addr := a.Config.Telemetry.Addr; addr != "" {
		g.Go(func() error { return a.Hub.Serve(gctx, addr, a.Config.Telemetry.Path) })
	}

	var report sim.Report
	g.Go(func() error {
		defer cancel()
		var err error
		report, err = a.Sim.Run(gctx, a.Config.Simulation.MaxTicks, sim.AnyOf(stops...))
		return err
	})

	err := g.Wait()
	return report, err
}
