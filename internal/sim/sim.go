// Package sim drives a single robot through its world in fixed ticks.
//
// Each tick runs in two passes:
//
//  1. Control pass - the active controller reads the sensors (as refreshed at
//     the end of the previous tick) and sets the motor commands.
//  2. Motion pass - the car integrates one step, rejecting it whole if the body
//     would overlap an obstacle, and refreshes its sensors.
//
// A Simulation is not safe for concurrent use; independent simulations share
// nothing and can run in parallel.
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/control"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/manual"
	"github.com/zeusync/robosim/internal/core/navigator"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/core/world"
)

const (
	eventSource = "sim"
	// metaRun is the event metadata key carrying the run id.
	metaRun = "run"
)

var (
	ErrUnknownMode  = errors.New("unknown mode")
	ErrNoController = errors.New("no controller for mode")
)

// Mode selects which controller drives the car.
type Mode uint8

const (
	ModeAutonomous Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAutonomous:
		return config.ModeAutonomous
	case ModeManual:
		return config.ModeManual
	default:
		return "unknown"
	}
}

// ParseMode accepts the same names as the config file's simulation.mode.
func ParseMode(s string) (Mode, error) {
	name, err := config.NormalizeMode(s)
	if err != nil {
		return ModeAutonomous, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	if name == config.ModeManual {
		return ModeManual, nil
	}
	return ModeAutonomous, nil
}

// Readings are the sensor values a controller saw on a tick.
type Readings struct {
	Left       float64 `json:"left"`
	Mid        float64 `json:"mid"`
	Right      float64 `json:"right"`
	Ultrasonic float64 `json:"ultrasonic"`
}

// SensorSample is one sensor's value and where it was taken.
type SensorSample struct {
	Name  string         `json:"name"`
	At    geometry.Point `json:"at"`
	Value float64        `json:"value"`
}

// Snapshot is the observable state after a tick.
type Snapshot struct {
	RunID     string              `json:"run_id"`
	Tick      uint64              `json:"tick"`
	Time      float64             `json:"time"`
	Mode      string              `json:"mode"`
	Pose      robot.Pose          `json:"pose"`
	Motors    [2]float64          `json:"motors"`
	Readings  Readings            `json:"readings"`
	Sensors   []SensorSample      `json:"sensors"`
	Rays      [3]geometry.Segment `json:"rays"`
	State     string              `json:"state"`
	Committed bool                `json:"committed"`
	// Blocked is set while the active controller holds for an obstacle;
	// Recovering while manual mode backs away from one.
	Blocked    bool `json:"blocked"`
	Recovering bool `json:"recovering"`
	Goal       bool `json:"goal"`
	Halted     bool `json:"halted"`
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger shared with both controllers.
func WithLogger(l log.Log) Option {
	return func(s *Simulation) { s.log = l }
}

// WithEvents publishes ticks, collisions, mode changes and navigator events
// on b.
func WithEvents(b bus.EventBus) Option {
	return func(s *Simulation) { s.events = b }
}

// WithEventFilters drops events rejected by any filter before they reach the
// bus. Filtered events are counted in the report.
func WithEventFilters(filters ...bus.EventFilter) Option {
	return func(s *Simulation) { s.filters = append(s.filters, filters...) }
}

// WithInput supplies the keys for manual mode and for the mode switch keys.
func WithInput(in manual.Input) Option {
	return func(s *Simulation) { s.input = in }
}

// WithPace makes Run wait d between ticks; zero runs as fast as possible.
func WithPace(d time.Duration) Option {
	return func(s *Simulation) { s.pace = d }
}

// Simulation owns one car, its world and both controllers.
type Simulation struct {
	id      uuid.UUID
	cfg     config.Config
	dt      float64
	world   *world.Map
	car     *robot.Car
	gate    *control.Gate
	log     log.Log
	events  bus.EventBus
	filters []bus.EventFilter
	counter *eventCounter
	input   manual.Input
	pace    time.Duration

	controllers map[Mode]control.Controller
	navigator   *navigator.Navigator
	manual      *manual.Controller
	mode        Mode
	tick        uint64

	goal    geometry.Point
	hasGoal bool
	stats   *tracker
}

// New builds a simulation from cfg. The car is placed at the configured start
// and its sensors are primed so the first control pass sees real readings.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := cfg.World.Map()
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}
	mode, err := ParseMode(cfg.Simulation.Mode)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:    uuid.New(),
		cfg:   *cfg,
		dt:    cfg.Simulation.TickSeconds,
		world: m,
		log:   log.Nop(),
		input: manual.NewKeyState(),
		mode:  mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(log.String("run", s.id.String()))
	if s.events != nil {
		s.counter = newEventCounter()
		s.events.AddObserver(s.counter)
	}

	s.car = robot.New(cfg.Car, cfg.StartPose(m))
	s.car.Sense(m)
	if m.IsColliding(s.car.Bounds()) {
		return nil, fmt.Errorf("%w: start pose overlaps an obstacle", config.ErrInvalidConfig)
	}

	s.gate = control.NewGate(m, cfg.Navigator.StopDistance)
	navOpts := []navigator.Option{navigator.WithLogger(s.log)}
	if s.events != nil {
		navOpts = append(navOpts, navigator.WithEvents(s.events))
	}
	s.navigator = navigator.New(cfg.Navigator, s.gate, navOpts...)
	manualGate := control.NewGate(m, cfg.Manual.StopDistance)
	s.manual = manual.New(cfg.Manual, manualGate, s.input, manual.WithLogger(s.log))
	s.controllers = map[Mode]control.Controller{
		ModeAutonomous: s.navigator,
		ModeManual:     s.manual,
	}

	if wp := m.Waypoints(); len(wp) > 0 {
		s.goal = wp[len(wp)-1]
		s.hasGoal = true
	}
	s.stats = newTracker(m)

	s.log.Info("simulation ready",
		log.String("mode", mode.String()),
		log.Float64("x", s.car.X()),
		log.Float64("y", s.car.Y()),
		log.Float64("heading", s.car.Heading()))
	return s, nil
}

// Close detaches the simulation from its event bus. The simulation itself
// stays usable.
func (s *Simulation) Close() {
	if s.events != nil {
		s.events.RemoveObserver(s.counter)
	}
}

func (s *Simulation) ID() string                      { return s.id.String() }
func (s *Simulation) Car() *robot.Car                 { return s.car }
func (s *Simulation) World() *world.Map               { return s.world }
func (s *Simulation) Navigator() *navigator.Navigator { return s.navigator }
func (s *Simulation) Mode() Mode                      { return s.mode }
func (s *Simulation) Tick() uint64                    { return s.tick }

// SetMode switches the active controller. The car is stopped and the newly
// active controller is reset.
func (s *Simulation) SetMode(m Mode) error {
	next, ok := s.controllers[m]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoController, m)
	}
	if m == s.mode {
		return nil
	}
	if r, ok := next.(control.Resetter); ok {
		r.Reset()
	}
	s.car.SetMotorSpeeds(0, 0)
	from := s.mode
	s.mode = m
	s.log.Info("mode changed", log.String("from", from.String()), log.String("to", m.String()))
	s.publish(bus.TypeSimMode, bus.ModeChange{From: from.String(), To: m.String(), Tick: s.tick})
	return nil
}

// Step advances one tick and returns the resulting snapshot.
func (s *Simulation) Step() Snapshot {
	s.tick++
	s.pollModeKeys()

	rd, samples := readingsOf(s.car)
	s.controllers[s.mode].UpdateControl(s.car, s.dt)

	before := s.car.Pose()
	committed := s.car.Update(s.dt, s.world)
	after := s.car.Pose()
	if !committed {
		s.log.Debug("step rejected by collision", log.Uint64("tick", s.tick))
		s.publish(bus.TypeRobotCollision, bus.Collision{Tick: s.tick, X: after.X, Y: after.Y})
	}

	left, right := s.car.MotorSpeeds()
	s.stats.observe(before, after, committed, [2]float64{left, right}, s.navigator.State())

	snap := Snapshot{
		RunID:     s.id.String(),
		Tick:      s.tick,
		Time:      float64(s.tick) * s.dt,
		Mode:      s.mode.String(),
		Pose:      after,
		Motors:    [2]float64{left, right},
		Readings:  rd,
		Sensors:   samples,
		Rays:      s.car.Ultrasonic().Rays(),
		State:     s.navigator.State().String(),
		Committed: committed,
		Halted:    s.navigator.Halted(),
	}
	if s.mode == ModeManual {
		snap.Recovering = s.manual.Recovering()
	} else {
		snap.Blocked = s.navigator.Blocked()
	}
	if s.hasGoal && geometry.Distance(after.Position(), s.goal) <= s.world.LineThickness() {
		snap.Goal = true
		s.stats.reachGoal(s.tick)
	}
	s.publish(bus.TypeSimTick, snap)
	return snap
}

// readingsOf collects what the controller is about to see, before the car
// moves.
func readingsOf(car *robot.Car) (Readings, []SensorSample) {
	var rd Readings
	sensors := car.Sensors()
	samples := make([]SensorSample, 0, len(sensors))
	for _, sn := range sensors {
		samples = append(samples, SensorSample{
			Name:  sn.Name(),
			At:    car.LocalToWorld(sn.Mount()),
			Value: sn.Value(),
		})
		switch sn.Name() {
		case robot.SensorLeft:
			rd.Left = sn.Value()
		case robot.SensorMid:
			rd.Mid = sn.Value()
		case robot.SensorRight:
			rd.Right = sn.Value()
		case robot.SensorUltrasonic:
			rd.Ultrasonic = sn.Value()
		}
	}
	return rd, samples
}

func (s *Simulation) pollModeKeys() {
	var err error
	switch {
	case s.input.Pressed(manual.KeyModeAutonomous):
		err = s.SetMode(ModeAutonomous)
	case s.input.Pressed(manual.KeyModeManual):
		err = s.SetMode(ModeManual)
	}
	if err != nil {
		s.log.Warn("mode switch failed", log.Error(err))
	}
}

func (s *Simulation) publish(eventType string, data any) {
	if s.events == nil {
		return
	}
	e := bus.NewEvent(eventType, eventSource, data, map[string]any{metaRun: s.id.String()})
	if err := s.events.PublishWithFilters(e, s.filters...); err != nil {
		s.log.Warn("event handler failed", log.String("type", eventType), log.Error(err))
	}
}
