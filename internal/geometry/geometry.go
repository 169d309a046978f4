// Package geometry holds the pure 2D primitives used by tracking and zone routing.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle with (X1,Y1) top-left and (X2,Y2) bottom-right.
// On the wire it is the array [x1, y1, x2, y2].
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewBox builds a box and orders its corners so that X1<=X2 and Y1<=Y2.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box, 0 for inverted boxes.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Center returns the center point of the box
func (b Box) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// IsFinite reports whether every coordinate is a finite number.
func (b Box) IsFinite() bool {
	for _, v := range [4]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a box from [x1, y1, x2, y2].
func (b *Box) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("box needs 4 coordinates, got %d", len(raw))
	}
	*b = NewBox(raw[0], raw[1], raw[2], raw[3])
	return nil
}

// IoU calculates the intersection over union of two boxes.
// Degenerate inputs (zero union) yield 0.
func IoU(a, b Box) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	interW := max(0, x2-x1)
	interH := max(0, y2-y1)
	intersection := interW * interH

	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	iou := intersection / union
	if iou > 1 {
		return 1
	}
	return iou
}

// Polygon is an ordered ring of points; the last point connects back to the first.
type Polygon []Point

// Contains reports whether p lies inside the polygon. Points on an edge or a vertex
// count as inside.
func (poly Polygon) Contains(p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[j]

		if onSegment(a, b, p) {
			return true
		}

		// Ray casting towards +X
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}

// Bounds returns the bounding box of the polygon.
func (poly Polygon) Bounds() Box {
	if len(poly) == 0 {
		return Box{}
	}
	b := Box{X1: poly[0].X, Y1: poly[0].Y, X2: poly[0].X, Y2: poly[0].Y}
	for _, p := range poly[1:] {
		b.X1 = min(b.X1, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.X2 = max(b.X2, p.X)
		b.Y2 = max(b.Y2, p.Y)
	}
	return b
}

const collinearEpsilon = 1e-9

func onSegment(a, b, p Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > collinearEpsilon {
		return false
	}
	return p.X >= min(a.X, b.X)-collinearEpsilon && p.X <= max(a.X, b.X)+collinearEpsilon &&
		p.Y >= min(a.Y, b.Y)-collinearEpsilon && p.Y <= max(a.Y, b.Y)+collinearEpsilon
}
