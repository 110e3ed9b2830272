package geometry

import "math"

// WorldCoord is an absolute tile position on the world grid.
// Plane 0 is ground level; up to 3.
type WorldCoord struct {
	X     int32
	Y     int32
	Plane int8
}

// LocalCoord is a position relative to the current scene origin. Not persisted.
type LocalCoord struct {
	SceneX int32
	SceneY int32
}

// RegionID returns the 64×64 collision region containing the coordinate.
func (c WorldCoord) RegionID() (regionX, regionY int32) {
	return c.X >> 6, c.Y >> 6
}

// TileInRegion returns the tile offset within its region.
func (c WorldCoord) TileInRegion() (tileX, tileY int32) {
	return c.X & 63, c.Y & 63
}

// FromRegion rebuilds a world coordinate from its region decomposition.
func FromRegion(regionX, regionY, tileX, tileY int32, plane int8) WorldCoord {
	return WorldCoord{X: regionX*64 + tileX, Y: regionY*64 + tileY, Plane: plane}
}

// Distance returns the Euclidean tile distance, ignoring plane.
func (c WorldCoord) Distance(o WorldCoord) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Chebyshev returns the chessboard distance, ignoring plane.
func (c WorldCoord) Chebyshev(o WorldCoord) int32 {
	dx := c.X - o.X
	dy := c.Y - o.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// Within reports whether o is within radius tiles (Chebyshev) on the same plane.
func (c WorldCoord) Within(o WorldCoord, radius int32) bool {
	return c.Plane == o.Plane && c.Chebyshev(o) <= radius
}
