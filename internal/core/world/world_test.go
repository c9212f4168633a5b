package world

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/geometry"
)

func TestIsOnLine(t *testing.T) {
	m := Default(0.1)

	tests := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{"on first segment", geometry.Pt(1, 3), true},
		{"inside half thickness", geometry.Pt(1.049, 3), true},
		{"outside half thickness", geometry.Pt(1.06, 3), false},
		{"corner", geometry.Pt(6, 6), true},
		{"past path end", geometry.Pt(11, 6.2), false},
		{"far away", geometry.Pt(3, 3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsOnLine(tt.p))
		})
	}
}

func TestIsOnLineShortPath(t *testing.T) {
	m, err := New(Spec{LineThickness: 0.1, Waypoints: []geometry.Point{geometry.Pt(1, 1)}})
	require.NoError(t, err)
	assert.False(t, m.IsOnLine(geometry.Pt(1, 1)))
	assert.True(t, math.IsInf(m.CrossTrackError(geometry.Pt(1, 1)), 1))
}

func TestIsColliding(t *testing.T) {
	m := Default(0.1)

	assert.True(t, m.IsColliding(geometry.CenteredAt(geometry.Pt(3.5, 4.5), 0.3, 0.4)))
	assert.True(t, m.IsColliding(geometry.Rect{X: 2.9, Y: 3.9, Width: 0.2, Height: 0.2}))
	// Edge contact only.
	assert.False(t, m.IsColliding(geometry.Rect{X: 2.5, Y: 4, Width: 0.5, Height: 0.5}))
	assert.False(t, m.IsColliding(geometry.CenteredAt(geometry.Pt(1, 1), 0.3, 0.4)))
}

func TestObstacleIntersection(t *testing.T) {
	o := NewObstacle(2, -0.5, 1, 1)

	hit, ok := o.Intersection(geometry.Pt(0, 0), geometry.Pt(4, 0))
	require.True(t, ok)
	assert.InDelta(t, 2, hit.X, 1e-9)
	assert.InDelta(t, 0, hit.Y, 1e-9)

	// Reversed ray hits the far edge first.
	hit, ok = o.Intersection(geometry.Pt(4, 0), geometry.Pt(0, 0))
	require.True(t, ok)
	assert.InDelta(t, 3, hit.X, 1e-9)

	_, ok = o.Intersection(geometry.Pt(0, 1), geometry.Pt(4, 1))
	assert.False(t, ok)

	_, ok = o.Intersection(geometry.Pt(0, 0), geometry.Pt(1.5, 0))
	assert.False(t, ok)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Spec{LineThickness: 0})
	require.True(t, errors.Is(err, ErrInvalidMap))

	_, err = New(Spec{LineThickness: 0.1, Obstacles: []Obstacle{NewObstacle(0, 0, 0, 1)}})
	require.ErrorIs(t, err, ErrInvalidMap)
}

func TestDefaultMapMetrics(t *testing.T) {
	m := Default(0.1)
	assert.InDelta(t, 25, m.PathLength(), 1e-9)
	assert.InDelta(t, 0.2, m.CrossTrackError(geometry.Pt(1.2, 3)), 1e-9)

	assert.Zero(t, m.Progress(geometry.Pt(0.5, 0.5)))
	assert.InDelta(t, 2, m.Progress(geometry.Pt(1.2, 3)), 1e-9)
	assert.InDelta(t, 5+5+2, m.Progress(geometry.Pt(5.9, 4)), 1e-9)
	assert.InDelta(t, 25, m.Progress(geometry.Pt(11, 7)), 1e-9)

	w, h := m.Size()
	assert.Equal(t, DefaultWidth, w)
	assert.Equal(t, DefaultHeight, h)
	assert.Len(t, m.Waypoints(), 6)
	assert.Len(t, m.Obstacles(), 2)

	wp := m.Waypoints()
	wp[0] = geometry.Pt(100, 100)
	assert.Equal(t, geometry.Pt(1, 1), m.Waypoints()[0])
}
