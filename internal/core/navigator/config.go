package navigator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/robosim/internal/core/control"
)

// ErrInvalidConfig wraps Config validation failures.
var ErrInvalidConfig = errors.New("invalid navigator config")

// Config tunes the line follower. Speeds are normalised motor commands and
// durations are ticks.
type Config struct {
	LineThreshold float64 `yaml:"line_threshold" json:"line_threshold"`
	// StopDistance of zero uses control.DefaultStopDistance.
	StopDistance float64 `yaml:"stop_distance" json:"stop_distance"`

	BaseSpeed   float64 `yaml:"base_speed" json:"base_speed"`
	MinForward  float64 `yaml:"min_forward" json:"min_forward"`
	PivotSpeed  float64 `yaml:"pivot_speed" json:"pivot_speed"`
	NudgeScale  float64 `yaml:"nudge_scale" json:"nudge_scale"`
	NudgeMargin float64 `yaml:"nudge_margin" json:"nudge_margin"`
	ProbeScale  float64 `yaml:"probe_scale" json:"probe_scale"`
	GraceScale  float64 `yaml:"grace_scale" json:"grace_scale"`
	SweepScale  float64 `yaml:"sweep_scale" json:"sweep_scale"`
	CueArcScale float64 `yaml:"cue_arc_scale" json:"cue_arc_scale"`

	TurnDetectTicks      int    `yaml:"turn_detect_ticks" json:"turn_detect_ticks"`
	MinCenterStableTicks int    `yaml:"min_center_stable_ticks" json:"min_center_stable_ticks"`
	NoLineGraceTicks     int    `yaml:"no_line_grace_ticks" json:"no_line_grace_ticks"`
	TurnTicksMax         int    `yaml:"turn_ticks_max" json:"turn_ticks_max"`
	SnapForwardTicks     int    `yaml:"snap_forward_ticks" json:"snap_forward_ticks"`
	PostTurnHoldTicks    int    `yaml:"post_turn_hold_ticks" json:"post_turn_hold_ticks"`
	SideMemoryTicks      int    `yaml:"side_memory_ticks" json:"side_memory_ticks"`
	SearchTimeoutTicks   int    `yaml:"search_timeout_ticks" json:"search_timeout_ticks"`
	SearchRollTicks      int    `yaml:"search_roll_ticks" json:"search_roll_ticks"`
	SweepTicks           [4]int `yaml:"sweep_ticks,flow" json:"sweep_ticks"`

	// While turning or searching, a live side cue is chased by pivoting
	// toward it for CuePivotTicks, then arcing for CueArcTicks, repeating.
	CuePivotTicks int `yaml:"cue_pivot_ticks" json:"cue_pivot_ticks"`
	CueArcTicks   int `yaml:"cue_arc_ticks" json:"cue_arc_ticks"`

	// InitialState is "following" or "searching".
	InitialState string `yaml:"initial_state" json:"initial_state"`
}

// DefaultConfig returns the tuning used on the default map at 50 Hz.
func DefaultConfig() Config {
	return Config{
		LineThreshold: 0.30,
		StopDistance:  control.DefaultStopDistance,

		BaseSpeed:   0.18,
		MinForward:  0.12,
		PivotSpeed:  0.22,
		NudgeScale:  0.88,
		NudgeMargin: 0.05,
		ProbeScale:  0.8,
		GraceScale:  0.9,
		SweepScale:  0.5,
		CueArcScale: 0.4,

		TurnDetectTicks:      4,
		MinCenterStableTicks: 10,
		NoLineGraceTicks:     10,
		TurnTicksMax:         90,
		SnapForwardTicks:     8,
		PostTurnHoldTicks:    30,
		SideMemoryTicks:      50,
		SearchTimeoutTicks:   300,
		SearchRollTicks:      6,
		SweepTicks:           [4]int{20, 25, 40, 25},
		CuePivotTicks:        8,
		CueArcTicks:          12,

		InitialState: "following",
	}
}

// Validate reports the first out-of-range field, wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if c.LineThreshold <= 0 || c.LineThreshold >= 1 {
		return fmt.Errorf("%w: line threshold %.2f not in (0,1)", ErrInvalidConfig, c.LineThreshold)
	}
	for name, v := range map[string]float64{
		"base_speed":    c.BaseSpeed,
		"min_forward":   c.MinForward,
		"pivot_speed":   c.PivotSpeed,
		"nudge_scale":   c.NudgeScale,
		"probe_scale":   c.ProbeScale,
		"grace_scale":   c.GraceScale,
		"sweep_scale":   c.SweepScale,
		"cue_arc_scale": c.CueArcScale,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %.2f not in [0,1]", ErrInvalidConfig, name, v)
		}
	}
	if c.StopDistance < 0 || math.IsNaN(c.StopDistance) {
		return fmt.Errorf("%w: stop distance %.2f", ErrInvalidConfig, c.StopDistance)
	}
	if c.TurnDetectTicks < 1 || c.SearchTimeoutTicks < 1 || c.SearchRollTicks < 1 ||
		c.CuePivotTicks < 1 || c.CueArcTicks < 1 {
		return fmt.Errorf("%w: detect, search timeout, roll and cue ticks must be positive", ErrInvalidConfig)
	}
	if c.TurnTicksMax < 0 || c.SnapForwardTicks < 0 || c.PostTurnHoldTicks < 0 ||
		c.NoLineGraceTicks < 0 || c.MinCenterStableTicks < 0 || c.SideMemoryTicks < 0 {
		return fmt.Errorf("%w: negative tick count", ErrInvalidConfig)
	}
	for i, n := range c.SweepTicks {
		if n < 1 {
			return fmt.Errorf("%w: sweep phase %d has %d ticks", ErrInvalidConfig, i, n)
		}
	}
	if _, err := ParseState(c.InitialState); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ParseState accepts the initial states a navigator may boot into.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "following":
		return Following, nil
	case "searching":
		return Searching, nil
	default:
		return Following, fmt.Errorf("unsupported initial state %q", s)
	}
}
