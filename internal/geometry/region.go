package geometry

import "math/rand"

// Region is an axis-aligned screen rectangle, optionally masked for
// non-rectangular subregions (e.g. the circular minimap).
type Region struct {
	X      int
	Y      int
	Width  int
	Height int

	// mask, when non-nil, marks which pixels belong to the region,
	// row-major [y*Width + x]. A nil mask means the full rectangle.
	mask []bool
}

// NewRegion returns a plain rectangular region.
func NewRegion(x, y, w, h int) Region {
	return Region{X: x, Y: y, Width: w, Height: h}
}

// NewMaskedRegion returns a region restricted by a row-major bitmap mask.
// The mask length must be w*h; a short mask is ignored.
func NewMaskedRegion(x, y, w, h int, mask []bool) Region {
	r := Region{X: x, Y: y, Width: w, Height: h}
	if len(mask) == w*h {
		r.mask = mask
	}
	return r
}

// Center returns the rectangle midpoint.
func (r Region) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether the absolute screen point lies inside the region
// (and its mask, when present).
func (r Region) Contains(p Point) bool {
	lx := p.X - r.X
	ly := p.Y - r.Y
	if lx < 0 || lx >= r.Width || ly < 0 || ly >= r.Height {
		return false
	}
	if r.mask == nil {
		return true
	}
	return r.mask[ly*r.Width+lx]
}

// RandomPoint samples a point inside the region. With a mask it rejects up to
// 64 samples before falling back to the center.
func (r Region) RandomPoint(rng *rand.Rand) Point {
	if r.Width <= 0 || r.Height <= 0 {
		return r.Center()
	}
	for i := 0; i < 64; i++ {
		p := Point{X: r.X + rng.Intn(r.Width), Y: r.Y + rng.Intn(r.Height)}
		if r.Contains(p) {
			return p
		}
	}
	return r.Center()
}

// Clamp pushes a point to the nearest position inside the rectangle.
func (r Region) Clamp(p Point) Point {
	if p.X < r.X {
		p.X = r.X
	}
	if p.X >= r.X+r.Width {
		p.X = r.X + r.Width - 1
	}
	if p.Y < r.Y {
		p.Y = r.Y
	}
	if p.Y >= r.Y+r.Height {
		p.Y = r.Y + r.Height - 1
	}
	return p
}
