package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

type body struct {
	pos     geometry.Point
	heading float64
}

func (b body) LocalToWorld(local geometry.Point) geometry.Point {
	r := geometry.Rotate(local, b.heading)
	return geometry.Pt(b.pos.X+r.X, b.pos.Y+r.Y)
}

func (b body) Heading() float64 { return b.heading }

func newMap(t *testing.T, obstacles ...world.Obstacle) *world.Map {
	t.Helper()
	m, err := world.New(world.Spec{
		Width:         10,
		Height:        10,
		LineThickness: 0.1,
		Waypoints:     []geometry.Point{geometry.Pt(0, 0), geometry.Pt(5, 0)},
		Obstacles:     obstacles,
	})
	require.NoError(t, err)
	return m
}

func TestLineSensor(t *testing.T) {
	m := newMap(t)
	s := NewLine("mid", geometry.Pt(0.15, 0))

	s.Update(body{pos: geometry.Pt(1, 0)}, m, 0.02)
	assert.Equal(t, 1.0, s.Value())

	// Facing +Y the mount sits 0.15 above the line.
	s.Update(body{pos: geometry.Pt(1, 0), heading: 90}, m, 0.02)
	assert.Equal(t, 0.0, s.Value())

	s.Update(body{pos: geometry.Pt(1, -0.15), heading: 90}, m, 0.02)
	assert.Equal(t, 1.0, s.Value())
}

func TestLineSensorMountRoundTrip(t *testing.T) {
	m := newMap(t)
	s := NewLine("left", geometry.Pt(0.15, -0.1))

	b := body{pos: geometry.Pt(2, 0.1)}
	require.InDelta(t, 0, s.Position(b).Y, 1e-12)
	s.Update(b, m, 0.02)
	assert.Equal(t, 1.0, s.Value())

	b.pos = geometry.Pt(2, 0.3)
	s.Update(b, m, 0.02)
	assert.Equal(t, 0.0, s.Value())
}

func TestUltrasonicMaxRange(t *testing.T) {
	m := newMap(t)
	u := NewUltrasonic("us", geometry.Pt(0.2, 0), DefaultMaxRange, DefaultConeDeg)

	u.Update(body{pos: geometry.Pt(1, 1)}, m, 0.02)
	assert.Equal(t, DefaultMaxRange, u.Value())
	for _, ray := range u.Rays() {
		assert.InDelta(t, DefaultMaxRange, ray.Length(), 1e-9)
	}
}

func TestUltrasonicObstacleDistance(t *testing.T) {
	m := newMap(t, world.NewObstacle(1.5, -0.5, 1, 1))
	u := NewUltrasonic("us", geometry.Point{}, DefaultMaxRange, DefaultConeDeg)

	u.Update(body{}, m, 0.02)
	assert.InDelta(t, 1.5, u.Value(), 1e-9)
	assert.InDelta(t, 1.5, u.Rays()[0].Length(), 1e-9)
	assert.Greater(t, u.Rays()[1].Length(), 1.5)

	// Turned away the obstacle is out of every ray.
	u.Update(body{heading: 180}, m, 0.02)
	assert.Equal(t, DefaultMaxRange, u.Value())
}

func TestUltrasonicConeEdge(t *testing.T) {
	// Only the port cone ray reaches this block.
	m := newMap(t, world.NewObstacle(1.9, 0.45, 0.5, 0.5))
	u := NewUltrasonic("us", geometry.Point{}, DefaultMaxRange, DefaultConeDeg)

	u.Update(body{}, m, 0.02)
	assert.Less(t, u.Value(), DefaultMaxRange)
	assert.InDelta(t, DefaultMaxRange, u.Rays()[0].Length(), 1e-9)
}
