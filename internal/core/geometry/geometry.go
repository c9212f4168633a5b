// Package geometry holds the 2D primitives shared by the world map, the sensors
// and the robot kinematics. Points are gonum r2 vectors; angles are degrees at
// the API boundary and radians internally.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position or displacement in world units.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Segment is a directed line segment from A to B.
type Segment struct {
	A, B Point
}

// Length returns |B-A|.
func (s Segment) Length() float64 { return r2.Norm(r2.Sub(s.B, s.A)) }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Rotate rotates p about the origin by deg degrees, counter-clockwise.
func Rotate(p Point, deg float64) Point {
	return r2.Rotate(p, Radians(deg), Point{})
}

// Heading returns the unit vector for a heading in degrees.
func Heading(deg float64) Point {
	rad := Radians(deg)
	return Point{X: math.Cos(rad), Y: math.Sin(rad)}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 { return r2.Norm(r2.Sub(b, a)) }

// ClosestOnSegment returns the point of ab nearest p and its parameter in
// [0,1]. A degenerate segment (a == b) yields a.
func ClosestOnSegment(p, a, b Point) (Point, float64) {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return a, 0
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r2.Add(a, r2.Scale(t, ab)), t
}

// DistancePointToSegment returns the distance from p to the closest point of
// the segment ab.
func DistancePointToSegment(p, a, b Point) float64 {
	c, _ := ClosestOnSegment(p, a, b)
	return Distance(p, c)
}

// SegmentIntersection returns the point where p1p2 crosses p3p4 when both
// segment parameters lie in [0,1]. Parallel and collinear segments never
// intersect.
func SegmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d1 := r2.Sub(p2, p1)
	d2 := r2.Sub(p4, p3)
	denom := r2.Cross(d1, d2)
	if denom == 0 {
		return Point{}, false
	}
	w := r2.Sub(p3, p1)
	ua := r2.Cross(w, d2) / denom
	if ua < 0 || ua > 1 {
		return Point{}, false
	}
	ub := r2.Cross(w, d1) / denom
	if ub < 0 || ub > 1 {
		return Point{}, false
	}
	return r2.Add(p1, r2.Scale(ua, d1)), true
}
