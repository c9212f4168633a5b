package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

func TestInitializeAppRunsToGoal(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	app, cleanup, err := InitializeApp(&cfg, Options{})
	require.NoError(t, err)
	defer cleanup()

	var ticks int
	_, err = app.Events.Subscribe(bus.TypeSimTick, func(bus.Event) error {
		ticks++
		return nil
	})
	require.NoError(t, err)

	report, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.ReachedGoal)
	assert.Zero(t, app.Hub.Clients())

	// Without a telemetry address nobody reads tick frames.
	assert.Zero(t, ticks)
	require.NotNil(t, report.Events)
	assert.Equal(t, report.Ticks, report.Events.Filtered)
	assert.Zero(t, report.Events.ByType[bus.TypeSimTick])
	assert.Positive(t, report.Events.ByType[bus.TypeNavigatorTransition])
	assert.Equal(t, report.Events.ByType[bus.TypeNavigatorTransition], report.Events.Published)
	assert.InDelta(t, 1, report.Progress, 0.01)
}

func TestInitializeAppRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, _, err := InitializeApp(&cfg, Options{})
	require.Error(t, err)

	cfg = config.Default()
	cfg.Simulation.Mode = "remote"
	_, _, err = InitializeApp(&cfg, Options{})
	require.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Simulation.MaxTicks = 0

	app, cleanup, err := InitializeApp(&cfg, Options{})
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = app.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestToggleDebug(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"

	app, cleanup, err := InitializeApp(&cfg, Options{})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, log.LevelDebug, app.ToggleDebug())
	assert.Equal(t, log.LevelDebug, app.Log.GetLevel())
	assert.Equal(t, log.LevelWarn, app.ToggleDebug())
	assert.Equal(t, log.LevelWarn, app.Log.GetLevel())

	// A config that already asks for debug falls back to info.
	cfg.Log.Level = "debug"
	require.Equal(t, log.LevelDebug, app.ToggleDebug())
	assert.Equal(t, log.LevelInfo, app.ToggleDebug())
}
