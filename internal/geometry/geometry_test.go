package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldCoordRegionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    WorldCoord
	}{
		{"lumbridge-ish", WorldCoord{X: 3222, Y: 3218, Plane: 0}},
		{"region origin", WorldCoord{X: 3264, Y: 3392, Plane: 1}},
		{"upper plane", WorldCoord{X: 2950, Y: 3450, Plane: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rx, ry := tt.c.RegionID()
			tx, ty := tt.c.TileInRegion()
			assert.Equal(t, tt.c, FromRegion(rx, ry, tx, ty, tt.c.Plane))
		})
	}
}

func TestChebyshevAndWithin(t *testing.T) {
	a := WorldCoord{X: 3200, Y: 3200}
	b := WorldCoord{X: 3203, Y: 3198}
	assert.Equal(t, int32(3), a.Chebyshev(b))
	assert.True(t, a.Within(b, 3))
	assert.False(t, a.Within(b, 2))
	assert.False(t, a.Within(WorldCoord{X: 3200, Y: 3200, Plane: 1}, 5))
}

func TestPolygonRoundTrip(t *testing.T) {
	src := []Point{{10, 10}, {40, 12}, {42, 50}, {8, 48}}
	p := NewPolygon(src)
	rebuilt := NewPolygon(p.Vertices)
	assert.Equal(t, p, rebuilt)
}

func TestPolygonContains(t *testing.T) {
	square := NewPolygon([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	assert.True(t, square.Contains(Point{5, 5}))
	assert.False(t, square.Contains(Point{15, 5}))
	assert.False(t, square.Contains(Point{-1, 5}))
}

func TestPolygonRandomPointInside(t *testing.T) {
	hull := NewPolygon([]Point{{100, 100}, {160, 110}, {170, 180}, {95, 170}})
	rng := rand.New(rand.NewSource(7))
	min, max := hull.Bounds()
	for i := 0; i < 200; i++ {
		pt := hull.RandomPoint(rng)
		require.GreaterOrEqual(t, pt.X, min.X)
		require.LessOrEqual(t, pt.X, max.X)
		require.GreaterOrEqual(t, pt.Y, min.Y)
		require.LessOrEqual(t, pt.Y, max.Y)
	}
}

func TestPolygonDegenerate(t *testing.T) {
	line := NewPolygon([]Point{{0, 0}, {10, 0}})
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, line.Centroid(), line.RandomPoint(rng))
	assert.Zero(t, line.Area())
}

func TestRegionMask(t *testing.T) {
	// 3×3 region with only the center pixel set.
	mask := make([]bool, 9)
	mask[4] = true
	r := NewMaskedRegion(10, 10, 3, 3, mask)
	assert.True(t, r.Contains(Point{11, 11}))
	assert.False(t, r.Contains(Point{10, 10}))

	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, Point{11, 11}, r.RandomPoint(rng))
}

func TestRegionClamp(t *testing.T) {
	r := NewRegion(0, 0, 100, 50)
	assert.Equal(t, Point{0, 0}, r.Clamp(Point{-5, -5}))
	assert.Equal(t, Point{99, 49}, r.Clamp(Point{200, 200}))
	assert.Equal(t, Point{30, 20}, r.Clamp(Point{30, 20}))
}
