package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/robot"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	m, err := cfg.World.Map()
	require.NoError(t, err)
	assert.Len(t, m.Waypoints(), 6)
	assert.Equal(t, robot.Pose{X: 1, Y: 1, Heading: 90}, cfg.StartPose(m))
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
simulation:
  mode: manual
  start: {x: 2, y: 3, heading: 45}
navigator:
  base_speed: 0.2
`))
	require.NoError(t, err)

	want := Default()
	want.Simulation.Mode = ModeManual
	want.Simulation.Start = &robot.Pose{X: 2, Y: 3, Heading: 45}
	want.Navigator.BaseSpeed = 0.2
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("decoded config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Default(), *cfg))
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":    "simulation: {speed: 3}",
		"bad mode":       "simulation: {mode: remote}",
		"zero tick":      "simulation: {tick_seconds: 0}",
		"bad level":      "log: {level: loud}",
		"bad car":        "car: {track_width: 0}",
		"bad navigator":  "navigator: {initial_state: halted}",
		"bad manual":     "manual: {turn_bias: 3}",
		"bad obstacle":   "world: {obstacles: [{x: 1, y: 1, width: 0, height: 1}]}",
		"bad thickness":  "world: {line_thickness: 0}",
		"bad telemetry":  "telemetry: {buffer: 0}",
		"malformed yaml": "simulation: [",
		"short sweep":    "navigator: {sweep_ticks: [1, 2]}",
		"negative stop":  "navigator: {stop_distance: -0.5}",
		"manual stop":    "manual: {stop_distance: -1}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestModeNames(t *testing.T) {
	for in, want := range map[string]string{
		"autonomous": ModeAutonomous,
		"auto":       ModeAutonomous,
		" Manual ":   ModeManual,
	} {
		got, err := NormalizeMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)

		cfg := Default()
		cfg.Simulation.Mode = in
		require.NoError(t, cfg.Validate(), in)
	}
	_, err := NormalizeMode("remote")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCustomWorldAndStart(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
world:
  waypoints: [{x: 0, y: 0}, {x: 4, y: 0}]
  obstacles: [{x: 2, y: 1, width: 1, height: 1}]
`))
	require.NoError(t, err)
	m, err := cfg.World.Map()
	require.NoError(t, err)
	assert.Equal(t, []geometry.Point{geometry.Pt(0, 0), geometry.Pt(4, 0)}, m.Waypoints())
	assert.Len(t, m.Obstacles(), 1)
	assert.Equal(t, robot.Pose{}, cfg.StartPose(m))
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, *got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "robosim.yaml"))
	require.NoError(t, err)

	m, err := cfg.World.Map()
	require.NoError(t, err)
	assert.InDelta(t, 25, m.PathLength(), 1e-9)
	assert.True(t, cfg.Simulation.StopOnHalt)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
