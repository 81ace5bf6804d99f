// Package geom provides the planar primitives used by the scan engine:
// axis-aligned rectangles for envelope queries and the distance functions
// selectable per trajectory.
package geom

// Point is a position in the trajectory's coordinate frame. For cartesian
// trajectories X and Y are plane coordinates; for geographic trajectories
// X is latitude and Y is longitude, in degrees.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The zero value is the empty rectangle
// at the origin.
type Rect struct {
	XMin, YMin float64
	XMax, YMax float64
}

// NewRect builds the rectangle spanned by two corner points. Inverted
// corners are normalised so that min <= max on both axes.
func NewRect(p1, p2 Point) Rect {
	r := Rect{XMin: p1.X, YMin: p1.Y, XMax: p2.X, YMax: p2.Y}
	r.Normalize()
	return r
}

// RectAround returns the degenerate rectangle covering a single point.
func RectAround(p Point) Rect {
	return Rect{XMin: p.X, YMin: p.Y, XMax: p.X, YMax: p.Y}
}

// Normalize swaps min and max on any inverted axis.
func (r *Rect) Normalize() {
	if r.XMin > r.XMax {
		r.XMin, r.XMax = r.XMax, r.XMin
	}
	if r.YMin > r.YMax {
		r.YMin, r.YMax = r.YMax, r.YMin
	}
}

// Buffer inflates the rectangle by w on all four sides and returns it.
func (r *Rect) Buffer(w float64) *Rect {
	r.XMin -= w
	r.YMin -= w
	r.XMax += w
	r.YMax += w
	return r
}

// Grow is an alias of Buffer kept for symmetry with the envelope helpers.
func (r *Rect) Grow(d float64) *Rect {
	return r.Buffer(d)
}

// Intersects reports whether the two rectangles share any area, border
// contact included.
func (r Rect) Intersects(other Rect) bool {
	x1 := max(r.XMin, other.XMin)
	x2 := min(r.XMax, other.XMax)
	if x1 > x2 {
		return false
	}
	y1 := max(r.YMin, other.YMin)
	y2 := min(r.YMax, other.YMax)
	return y1 <= y2
}

// ContainsPoint reports whether p lies inside the rectangle, borders
// included.
func (r Rect) ContainsPoint(p Point) bool {
	return r.XMin <= p.X && p.X <= r.XMax && r.YMin <= p.Y && p.Y <= r.YMax
}

// ContainsRect reports whether other lies entirely inside the rectangle.
func (r Rect) ContainsRect(other Rect) bool {
	return other.XMin >= r.XMin && other.XMax <= r.XMax &&
		other.YMin >= r.YMin && other.YMax <= r.YMax
}

// CombineExtentWith extends the rectangle to cover the coordinate (x, y).
func (r *Rect) CombineExtentWith(x, y float64) {
	if x < r.XMin {
		r.XMin = x
	}
	if x > r.XMax {
		r.XMax = x
	}
	if y < r.YMin {
		r.YMin = y
	}
	if y > r.YMax {
		r.YMax = y
	}
}

// CombineExtentWithRect extends the rectangle to cover other.
func (r *Rect) CombineExtentWithRect(other Rect) {
	if other.XMin < r.XMin {
		r.XMin = other.XMin
	}
	if other.XMax > r.XMax {
		r.XMax = other.XMax
	}
	if other.YMin < r.YMin {
		r.YMin = other.YMin
	}
	if other.YMax > r.YMax {
		r.YMax = other.YMax
	}
}

// IsEmpty reports whether the rectangle has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.XMax <= r.XMin || r.YMax <= r.YMin
}
