package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistancePointToSegment(t *testing.T) {
	a, b := Pt(0, 0), Pt(4, 0)

	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"perpendicular inside", Pt(2, 3), 3},
		{"on segment", Pt(1, 0), 0},
		{"beyond end clamps to b", Pt(7, 4), 5},
		{"before start clamps to a", Pt(-3, 4), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistancePointToSegment(tt.p, a, b), 1e-12)
		})
	}

	t.Run("degenerate segment", func(t *testing.T) {
		assert.InDelta(t, 5.0, DistancePointToSegment(Pt(3, 4), Pt(0, 0), Pt(0, 0)), 1e-12)
	})
}

func TestClosestOnSegment(t *testing.T) {
	c, u := ClosestOnSegment(Pt(1, 2), Pt(0, 0), Pt(4, 0))
	assert.Equal(t, Pt(1, 0), c)
	assert.InDelta(t, 0.25, u, 1e-12)

	c, u = ClosestOnSegment(Pt(9, -1), Pt(0, 0), Pt(4, 0))
	assert.Equal(t, Pt(4, 0), c)
	assert.Equal(t, 1.0, u)

	c, u = ClosestOnSegment(Pt(9, -1), Pt(2, 2), Pt(2, 2))
	assert.Equal(t, Pt(2, 2), c)
	assert.Zero(t, u)
}

func TestSegmentIntersection(t *testing.T) {
	p, ok := SegmentIntersection(Pt(0, 0), Pt(2, 2), Pt(0, 2), Pt(2, 0))
	require.True(t, ok)
	assert.InDelta(t, 1.0, p.X, 1e-12)
	assert.InDelta(t, 1.0, p.Y, 1e-12)

	_, ok = SegmentIntersection(Pt(0, 0), Pt(1, 0), Pt(0, 1), Pt(1, 1))
	assert.False(t, ok, "parallel")

	_, ok = SegmentIntersection(Pt(0, 0), Pt(2, 0), Pt(1, 0), Pt(3, 0))
	assert.False(t, ok, "collinear overlap is not reported")

	_, ok = SegmentIntersection(Pt(0, 0), Pt(1, 1), Pt(3, 0), Pt(0, 3))
	assert.False(t, ok, "lines cross outside the first segment")

	p, ok = SegmentIntersection(Pt(0, 0), Pt(2, 0), Pt(2, -1), Pt(2, 1))
	require.True(t, ok, "touching at an endpoint counts")
	assert.InDelta(t, 2.0, p.X, 1e-12)
}

func TestRectOverlaps(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 1, Height: 1}

	assert.True(t, r.Overlaps(Rect{X: 0.5, Y: 0.5, Width: 1, Height: 1}))
	assert.True(t, r.Overlaps(Rect{X: 0.25, Y: 0.25, Width: 0.1, Height: 0.1}))
	assert.False(t, r.Overlaps(Rect{X: 1, Y: 0, Width: 1, Height: 1}), "shared edge")
	assert.False(t, r.Overlaps(Rect{X: 2, Y: 2, Width: 1, Height: 1}))
}

func TestCenteredAtAndEdges(t *testing.T) {
	r := CenteredAt(Pt(1, 1), 0.3, 0.4)
	assert.InDelta(t, 0.85, r.X, 1e-12)
	assert.InDelta(t, 0.8, r.Y, 1e-12)
	c := r.Center()
	assert.InDelta(t, 1.0, c.X, 1e-12)
	assert.InDelta(t, 1.0, c.Y, 1e-12)

	var perimeter float64
	for _, e := range r.Edges() {
		perimeter += e.Length()
	}
	assert.InDelta(t, 1.4, perimeter, 1e-12)
}

func TestRotateAndHeading(t *testing.T) {
	p := Rotate(Pt(1, 0), 90)
	assert.InDelta(t, 0.0, p.X, 1e-12)
	assert.InDelta(t, 1.0, p.Y, 1e-12)

	h := Heading(180)
	assert.InDelta(t, -1.0, h.X, 1e-12)
	assert.InDelta(t, math.Pi, Radians(180), 1e-15)
	assert.InDelta(t, 90.0, Degrees(math.Pi/2), 1e-12)
}
