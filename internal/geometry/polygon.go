package geometry

import (
	"math"
	"math/rand"
)

// Point is a screen-space pixel position.
type Point struct {
	X int
	Y int
}

// Polygon is an ordered list of screen-space vertices, typically the convex
// hull of an entity's on-screen footprint.
type Polygon struct {
	Vertices []Point
}

// NewPolygon copies the vertex list into a polygon.
func NewPolygon(vertices []Point) Polygon {
	vs := make([]Point, len(vertices))
	copy(vs, vertices)
	return Polygon{Vertices: vs}
}

// Bounds returns the axis-aligned bounding box (min, max).
func (p Polygon) Bounds() (min, max Point) {
	if len(p.Vertices) == 0 {
		return Point{}, Point{}
	}
	min, max = p.Vertices[0], p.Vertices[0]
	for _, v := range p.Vertices[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
	}
	return min, max
}

// Area returns the polygon area via the shoelace formula.
func (p Polygon) Area() float64 {
	n := len(p.Vertices)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		a := p.Vertices[i]
		b := p.Vertices[(i+1)%n]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// Centroid returns the vertex-average center. Falls back to the zero point
// for an empty polygon.
func (p Polygon) Centroid() Point {
	n := len(p.Vertices)
	if n == 0 {
		return Point{}
	}
	var sx, sy int
	for _, v := range p.Vertices {
		sx += v.X
		sy += v.Y
	}
	return Point{X: sx / n, Y: sy / n}
}

// Contains reports whether pt is inside the polygon (even-odd fill rule).
func (p Polygon) Contains(pt Point) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a := p.Vertices[i]
		b := p.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			cross := float64(b.X-a.X)*float64(pt.Y-a.Y)/float64(b.Y-a.Y) + float64(a.X)
			if float64(pt.X) < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// RandomPoint samples a uniform interior point via area-weighted fan
// triangulation from the first vertex. Degenerate polygons fall back to the
// centroid.
func (p Polygon) RandomPoint(rng *rand.Rand) Point {
	n := len(p.Vertices)
	if n < 3 || p.Area() == 0 {
		return p.Centroid()
	}

	// Fan triangle areas from vertex 0.
	areas := make([]float64, n-2)
	total := 0.0
	for i := 0; i < n-2; i++ {
		areas[i] = triArea(p.Vertices[0], p.Vertices[i+1], p.Vertices[i+2])
		total += areas[i]
	}
	if total == 0 {
		return p.Centroid()
	}

	pick := rng.Float64() * total
	idx := 0
	for idx < len(areas)-1 && pick > areas[idx] {
		pick -= areas[idx]
		idx++
	}
	a, b, c := p.Vertices[0], p.Vertices[idx+1], p.Vertices[idx+2]

	// Uniform sample in triangle via the sqrt trick.
	sq := math.Sqrt(rng.Float64())
	r2 := rng.Float64()
	x := (1-sq)*float64(a.X) + sq*(1-r2)*float64(b.X) + sq*r2*float64(c.X)
	y := (1-sq)*float64(a.Y) + sq*(1-r2)*float64(b.Y) + sq*r2*float64(c.Y)
	return Point{X: int(x), Y: int(y)}
}

func triArea(a, b, c Point) float64 {
	v := float64(b.X-a.X)*float64(c.Y-a.Y) - float64(c.X-a.X)*float64(b.Y-a.Y)
	if v < 0 {
		v = -v
	}
	return v / 2
}
