package world

import (
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// Obstacle is a static axis-aligned block.
type Obstacle struct {
	Bounds geometry.Rect
}

// NewObstacle creates an obstacle anchored at (x, y).
func NewObstacle(x, y, width, height float64) Obstacle {
	return Obstacle{Bounds: geometry.Rect{X: x, Y: y, Width: width, Height: height}}
}

// Overlaps reports whether r intrudes into the obstacle.
func (o Obstacle) Overlaps(r geometry.Rect) bool { return o.Bounds.Overlaps(r) }

// Intersection returns the hit on the obstacle boundary closest to start along
// the segment start->end. All four edges are tested.
func (o Obstacle) Intersection(start, end geometry.Point) (geometry.Point, bool) {
	var (
		closest geometry.Point
		found   bool
		best    = math.MaxFloat64
	)
	for _, edge := range o.Bounds.Edges() {
		hit, ok := geometry.SegmentIntersection(start, end, edge.A, edge.B)
		if !ok {
			continue
		}
		if d := geometry.Distance(start, hit); d < best {
			best = d
			closest = hit
			found = true
		}
	}
	return closest, found
}
