// Package config loads the simulator configuration from YAML. Every section
// starts from its defaults and a file only needs to name what it changes.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/manual"
	"github.com/zeusync/robosim/internal/core/navigator"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/core/world"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	ModeAutonomous = "autonomous"
	ModeManual     = "manual"
)

// NormalizeMode maps a mode name, case-insensitively and with "auto" as an
// alias, to ModeAutonomous or ModeManual.
func NormalizeMode(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ModeAutonomous, "auto":
		return ModeAutonomous, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("%w: mode %q", ErrInvalidConfig, s)
	}
}

// Config is the whole simulator configuration as read from YAML.
type Config struct {
	Simulation Simulation       `yaml:"simulation" json:"simulation"`
	World      World            `yaml:"world" json:"world"`
	Car        robot.Params     `yaml:"car" json:"car"`
	Navigator  navigator.Config `yaml:"navigator" json:"navigator"`
	Manual     manual.Config    `yaml:"manual" json:"manual"`
	Log        log.Config       `yaml:"log" json:"log"`
	Telemetry  Telemetry        `yaml:"telemetry" json:"telemetry"`
}

// Simulation holds the run settings.
type Simulation struct {
	TickSeconds float64 `yaml:"tick_seconds" json:"tick_seconds"`
	// MaxTicks bounds a headless run; 0 runs until cancelled or halted.
	MaxTicks int    `yaml:"max_ticks" json:"max_ticks"`
	Mode     string `yaml:"mode" json:"mode"`
	// Start overrides the starting pose. When nil the car starts on the first
	// waypoint facing along the first segment.
	Start *robot.Pose `yaml:"start,omitempty" json:"start,omitempty"`
	// StopOnHalt ends a run once the navigator halts.
	StopOnHalt bool `yaml:"stop_on_halt" json:"stop_on_halt"`
}

// World describes the arena. With no waypoints and no obstacles the
// reference map is used.
type World struct {
	Width         float64         `yaml:"width" json:"width"`
	Height        float64         `yaml:"height" json:"height"`
	LineThickness float64         `yaml:"line_thickness" json:"line_thickness"`
	Waypoints     []Point         `yaml:"waypoints,omitempty" json:"waypoints,omitempty"`
	Obstacles     []geometry.Rect `yaml:"obstacles,omitempty" json:"obstacles,omitempty"`
}

// Point is a waypoint in world units.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Telemetry configures the websocket snapshot feed. An empty Addr disables it.
type Telemetry struct {
	// Addr is the listen address of the snapshot feed; empty disables it.
	Addr string `yaml:"addr" json:"addr"`
	Path string `yaml:"path" json:"path"`
	// Buffer is the per-client queue length; slow clients drop snapshots.
	Buffer int `yaml:"buffer" json:"buffer"`
	// Every publishes one snapshot per this many ticks.
	Every int `yaml:"every" json:"every"`
}

// Default is the reference arena with the tuned navigator at 50 Hz.
func Default() Config {
	return Config{
		Simulation: Simulation{
			TickSeconds: 0.02,
			MaxTicks:    6000,
			Mode:        ModeAutonomous,
		},
		World: World{
			Width:         world.DefaultWidth,
			Height:        world.DefaultHeight,
			LineThickness: world.DefaultLineThickness,
		},
		Car:       robot.DefaultParams(),
		Navigator: navigator.DefaultConfig(),
		Manual:    manual.DefaultConfig(),
		Log:       log.DefaultConfig(),
		Telemetry: Telemetry{Path: "/ws", Buffer: 64, Every: 1},
	}
}

// Load reads and validates a YAML file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the YAML document in r on Default and validates the
// result. Unknown keys are rejected. An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write encodes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Validate checks every section and returns the first error found.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.TickSeconds <= 0 || math.IsNaN(s.TickSeconds) {
		return fmt.Errorf("%w: tick_seconds %v must be positive", ErrInvalidConfig, s.TickSeconds)
	}
	if s.MaxTicks < 0 {
		return fmt.Errorf("%w: max_ticks %d is negative", ErrInvalidConfig, s.MaxTicks)
	}
	if _, err := NormalizeMode(s.Mode); err != nil {
		return err
	}
	if _, err := c.World.Map(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for _, v := range []interface{ Validate() error }{c.Car, c.Navigator, c.Manual} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Telemetry.Buffer < 1 || c.Telemetry.Every < 1 {
		return fmt.Errorf("%w: telemetry buffer and every must be positive", ErrInvalidConfig)
	}
	return nil
}

// Map builds the world map.
func (w World) Map() (*world.Map, error) {
	if len(w.Waypoints) == 0 && len(w.Obstacles) == 0 {
		spec := world.DefaultSpec(w.LineThickness)
		spec.Width, spec.Height = w.Width, w.Height
		return world.New(spec)
	}
	spec := world.Spec{
		Width:         w.Width,
		Height:        w.Height,
		LineThickness: w.LineThickness,
		Waypoints:     make([]geometry.Point, 0, len(w.Waypoints)),
		Obstacles:     make([]world.Obstacle, 0, len(w.Obstacles)),
	}
	for _, p := range w.Waypoints {
		spec.Waypoints = append(spec.Waypoints, geometry.Pt(p.X, p.Y))
	}
	for _, r := range w.Obstacles {
		spec.Obstacles = append(spec.Obstacles, world.Obstacle{Bounds: r})
	}
	return world.New(spec)
}

// StartPose returns the configured start or the head of the path.
func (c *Config) StartPose(m *world.Map) robot.Pose {
	if c.Simulation.Start != nil {
		return *c.Simulation.Start
	}
	wp := m.Waypoints()
	switch len(wp) {
	case 0:
		return robot.Pose{Heading: 90}
	case 1:
		return robot.Pose{X: wp[0].X, Y: wp[0].Y, Heading: 90}
	}
	heading := geometry.Degrees(math.Atan2(wp[1].Y-wp[0].Y, wp[1].X-wp[0].X))
	return robot.Pose{X: wp[0].X, Y: wp[0].Y, Heading: heading}
}
