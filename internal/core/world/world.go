// Package world models the static arena: a polyline the robot follows and a
// set of rectangular obstacles. A Map is immutable once built.
package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// ErrInvalidMap wraps Spec validation failures.
var ErrInvalidMap = errors.New("invalid world map")

const (
	DefaultWidth         = 12.8
	DefaultHeight        = 7.2
	DefaultLineThickness = 0.1
)

// Spec describes a map to build.
type Spec struct {
	Width         float64
	Height        float64
	LineThickness float64
	Waypoints     []geometry.Point
	Obstacles     []Obstacle
}

// Map answers line and collision queries for the sensors and the car.
type Map struct {
	width, height float64
	thickness     float64
	waypoints     []geometry.Point
	obstacles     []Obstacle
}

// New validates spec and builds a Map. A path with fewer than two waypoints is
// accepted; such a map simply never reports a point on the line.
func New(spec Spec) (*Map, error) {
	if spec.LineThickness <= 0 {
		return nil, fmt.Errorf("%w: line thickness %.3f must be positive", ErrInvalidMap, spec.LineThickness)
	}
	if spec.Width < 0 || spec.Height < 0 {
		return nil, fmt.Errorf("%w: negative world size %.2fx%.2f", ErrInvalidMap, spec.Width, spec.Height)
	}
	for i, o := range spec.Obstacles {
		if o.Bounds.Width <= 0 || o.Bounds.Height <= 0 {
			return nil, fmt.Errorf("%w: obstacle %d has empty bounds", ErrInvalidMap, i)
		}
	}
	return &Map{
		width:     spec.Width,
		height:    spec.Height,
		thickness: spec.LineThickness,
		waypoints: append([]geometry.Point(nil), spec.Waypoints...),
		obstacles: append([]Obstacle(nil), spec.Obstacles...),
	}, nil
}

// DefaultSpec is the reference arena: an S-shaped path with four right-angle
// corners and two blocks placed off the path.
func DefaultSpec(lineThickness float64) Spec {
	return Spec{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		LineThickness: lineThickness,
		Waypoints: []geometry.Point{
			geometry.Pt(1, 1),
			geometry.Pt(1, 6),
			geometry.Pt(6, 6),
			geometry.Pt(6, 1),
			geometry.Pt(11, 1),
			geometry.Pt(11, 6),
		},
		Obstacles: []Obstacle{
			NewObstacle(3, 4, 1, 1),
			NewObstacle(8, 2, 1.5, 1),
		},
	}
}

// Default builds the reference arena.
func Default(lineThickness float64) *Map {
	m, err := New(DefaultSpec(lineThickness))
	if err != nil {
		panic(err)
	}
	return m
}

// IsOnLine reports whether p lies within half the line thickness of any path
// segment.
func (m *Map) IsOnLine(p geometry.Point) bool {
	if len(m.waypoints) < 2 {
		return false
	}
	half := m.thickness / 2
	for i := 0; i < len(m.waypoints)-1; i++ {
		if geometry.DistancePointToSegment(p, m.waypoints[i], m.waypoints[i+1]) <= half {
			return true
		}
	}
	return false
}

// IsColliding reports whether r overlaps any obstacle.
func (m *Map) IsColliding(r geometry.Rect) bool {
	for _, o := range m.obstacles {
		if o.Overlaps(r) {
			return true
		}
	}
	return false
}

// CrossTrackError returns the distance from p to the nearest path segment, or
// +Inf when the path has no segments.
func (m *Map) CrossTrackError(p geometry.Point) float64 {
	best := math.Inf(1)
	for i := 0; i < len(m.waypoints)-1; i++ {
		best = math.Min(best, geometry.DistancePointToSegment(p, m.waypoints[i], m.waypoints[i+1]))
	}
	return best
}

// PathLength is the summed length of all segments.
func (m *Map) PathLength() float64 {
	var total float64
	for i := 0; i < len(m.waypoints)-1; i++ {
		total += geometry.Distance(m.waypoints[i], m.waypoints[i+1])
	}
	return total
}

// Progress returns the distance along the path from the first waypoint to the
// path point nearest p. Ties go to the earlier segment.
func (m *Map) Progress(p geometry.Point) float64 {
	best, along, done := math.Inf(1), 0.0, 0.0
	for i := 0; i < len(m.waypoints)-1; i++ {
		a, b := m.waypoints[i], m.waypoints[i+1]
		c, _ := geometry.ClosestOnSegment(p, a, b)
		if d := geometry.Distance(p, c); d < best {
			best, along = d, done+geometry.Distance(a, c)
		}
		done += geometry.Distance(a, b)
	}
	return along
}

// Waypoints returns a copy of the path.
func (m *Map) Waypoints() []geometry.Point { return append([]geometry.Point(nil), m.waypoints...) }

// Obstacles returns the obstacle list. Callers must not modify it.
func (m *Map) Obstacles() []Obstacle { return m.obstacles }

func (m *Map) LineThickness() float64 { return m.thickness }

// Size returns the arena dimensions.
func (m *Map) Size() (width, height float64) { return m.width, m.height }
