package sim

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/navigator"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/core/world"
)

// Report summarises a run.
type Report struct {
	RunID       string     `json:"run_id"`
	Ticks       uint64     `json:"ticks"`
	SimSeconds  float64    `json:"sim_seconds"`
	Mode        string     `json:"mode"`
	FinalPose   robot.Pose `json:"final_pose"`
	FinalState  string     `json:"final_state"`
	Halted      bool       `json:"halted"`
	ReachedGoal bool       `json:"reached_goal"`
	GoalTick    uint64     `json:"goal_tick,omitempty"`
	Distance    float64    `json:"distance"`
	Rejected    int        `json:"rejected"`

	// Progress is the furthest point reached along the path, as a fraction of
	// PathLength.
	PathLength float64 `json:"path_length"`
	Progress   float64 `json:"progress"`

	// Cross-track error is the distance from the car centre to the path.
	CrossTrackMean   float64 `json:"cross_track_mean"`
	CrossTrackStdDev float64 `json:"cross_track_stddev"`
	CrossTrackMax    float64 `json:"cross_track_max"`

	// Fingerprint digests every committed pose, motor command and state;
	// identical runs have identical fingerprints.
	Fingerprint uint64 `json:"fingerprint"`

	Events *EventStats `json:"events,omitempty"`
}

// EventStats counts what went over the event bus. Totals come from the bus
// itself; ByType counts what the simulation observed while attached.
type EventStats struct {
	Published uint64            `json:"published"`
	Delivered uint64            `json:"delivered"`
	Errors    uint64            `json:"errors"`
	Filtered  uint64            `json:"filtered"`
	ByType    map[string]uint64 `json:"by_type"`
}

type eventCounter struct {
	mu     sync.Mutex
	byType map[string]uint64
}

func newEventCounter() *eventCounter {
	return &eventCounter{byType: make(map[string]uint64)}
}

func (c *eventCounter) OnPublish(eventType string, _ bus.Event) {
	c.mu.Lock()
	c.byType[eventType]++
	c.mu.Unlock()
}

func (c *eventCounter) OnDelivered(string, int, error, int64) {}

func (c *eventCounter) snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.byType))
	for k, v := range c.byType {
		out[k] = v
	}
	return out
}

type tracker struct {
	world      *world.Map
	crossTrack []float64
	distance   float64
	rejected   int
	progress   float64
	goalTick   uint64
	digest     *xxhash.Digest
	buf        [41]byte
}

func newTracker(m *world.Map) *tracker {
	return &tracker{world: m, digest: xxhash.New()}
}

func (t *tracker) observe(before, after robot.Pose, committed bool, motors [2]float64, state navigator.State) {
	if !committed {
		t.rejected++
	}
	t.distance += geometry.Distance(before.Position(), after.Position())
	if e := t.world.CrossTrackError(after.Position()); !math.IsInf(e, 0) {
		t.crossTrack = append(t.crossTrack, e)
	}
	t.progress = math.Max(t.progress, t.world.Progress(after.Position()))

	for i, v := range [5]float64{after.X, after.Y, after.Heading, motors[0], motors[1]} {
		binary.LittleEndian.PutUint64(t.buf[i*8:], math.Float64bits(v))
	}
	t.buf[40] = byte(state)
	_, _ = t.digest.Write(t.buf[:])
}

func (t *tracker) reachGoal(tick uint64) {
	if t.goalTick == 0 {
		t.goalTick = tick
	}
}

// Report summarises the run so far.
func (s *Simulation) Report() Report {
	t := s.stats
	r := Report{
		RunID:       s.id.String(),
		Ticks:       s.tick,
		SimSeconds:  float64(s.tick) * s.dt,
		Mode:        s.mode.String(),
		FinalPose:   s.car.Pose(),
		FinalState:  s.navigator.State().String(),
		Halted:      s.navigator.Halted(),
		ReachedGoal: t.goalTick != 0,
		GoalTick:    t.goalTick,
		Distance:    t.distance,
		Rejected:    t.rejected,
		PathLength:  s.world.PathLength(),
		Fingerprint: t.digest.Sum64(),
	}
	if r.PathLength > 0 {
		r.Progress = t.progress / r.PathLength
	}
	if len(t.crossTrack) > 0 {
		r.CrossTrackMean, r.CrossTrackStdDev = stat.MeanStdDev(t.crossTrack, nil)
		r.CrossTrackMax = floats.Max(t.crossTrack)
	}
	if s.events != nil {
		m := s.events.GetMetrics()
		r.Events = &EventStats{
			Published: m.Published,
			Delivered: m.DeliveredHandlers,
			Errors:    m.Errors,
			Filtered:  m.DroppedByFilters,
			ByType:    s.counter.snapshot(),
		}
	}
	return r
}
