// Package collision answers 8-direction walkability queries over the world
// grid. Region payloads live bit-packed inside a ZIP archive and are
// materialized on demand into an LRU cache.
package collision

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/lru"
	"go.uber.org/zap"
)

const (
	// RegionSize is the tile width/height of one collision region.
	RegionSize = 64

	// planeBytes is the payload size of one plane within a region file:
	// 64×64 tiles × 2 flag bits / 8.
	planeBytes = RegionSize * RegionSize * 2 / 8

	planeCount = 4
)

// Per-tile movement flags. 1 = open, 0 = blocked. South/west walkability is
// encoded on the neighboring tile's flag.
const (
	flagNorth = 0
	flagEast  = 1
)

type regionKey struct {
	regionX int32
	regionY int32
	plane   int8
}

// Map is the lazily-loaded walkability grid. Not safe for concurrent use.
type Map struct {
	archive *zip.ReadCloser
	files   map[string]*zip.File
	cache   *lru.Cache[regionKey, []byte]
	log     *zap.Logger
}

// Open opens the collision archive. A missing or unreadable archive is fatal;
// missing individual regions at query time are treated as blocked.
func Open(path string, cacheSize int, log *zap.Logger) (*Map, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open collision archive %s: %w", path, err)
	}
	files := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		files[f.Name] = f
	}
	log.Info("collision archive opened",
		zap.String("path", path), zap.Int("regions", len(files)))
	return &Map{
		archive: rc,
		files:   files,
		cache:   lru.New[regionKey, []byte](cacheSize),
		log:     log,
	}, nil
}

// Close releases the underlying archive.
func (m *Map) Close() error {
	return m.archive.Close()
}

// CacheLen exposes the live region count, for diagnostics and tests.
func (m *Map) CacheLen() int {
	return m.cache.Len()
}

// HasData reports whether the archive carries the region containing c. Used
// by the navigator to decide between pathfinding and the linear fallback.
func (m *Map) HasData(c geometry.WorldCoord) bool {
	rx, ry := c.RegionID()
	_, ok := m.files[fmt.Sprintf("%d_%d", rx, ry)]
	return ok
}

// plane returns the 1 KiB plane payload for the region holding (x,y), or nil
// when the region is absent (all queries then read as blocked).
func (m *Map) plane(x, y int32, z int8) []byte {
	if z < 0 || z >= planeCount {
		return nil
	}
	rx, ry := x>>6, y>>6
	key := regionKey{regionX: rx, regionY: ry, plane: z}
	if data, ok := m.cache.Get(key); ok {
		return data
	}

	f, ok := m.files[fmt.Sprintf("%d_%d", rx, ry)]
	if !ok {
		return nil
	}
	r, err := f.Open()
	if err != nil {
		m.log.Warn("collision region unreadable",
			zap.Int32("region_x", rx), zap.Int32("region_y", ry), zap.Error(err))
		return nil
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil || len(raw) < planeBytes*planeCount {
		m.log.Warn("collision region truncated",
			zap.Int32("region_x", rx), zap.Int32("region_y", ry), zap.Int("bytes", len(raw)))
		return nil
	}

	// One archive read warms all four planes of the region.
	var want []byte
	for p := int8(0); p < planeCount; p++ {
		data := raw[int(p)*planeBytes : int(p+1)*planeBytes]
		m.cache.Put(regionKey{regionX: rx, regionY: ry, plane: p}, data)
		if p == z {
			want = data
		}
	}
	return want
}

// flag reads one movement bit for the tile at (x,y,z).
func (m *Map) flag(x, y int32, z int8, flag int) bool {
	data := m.plane(x, y, z)
	if data == nil {
		return false
	}
	tileX := x & 63
	tileY := y & 63
	bitIndex := (tileY*RegionSize+tileX)*2 + int32(flag)
	return data[bitIndex/8]&(1<<(bitIndex%8)) != 0
}

// CanMoveNorth reports whether stepping north from (x,y,z) is open.
func (m *Map) CanMoveNorth(x, y int32, z int8) bool {
	return m.flag(x, y, z, flagNorth)
}

// CanMoveEast reports whether stepping east from (x,y,z) is open.
func (m *Map) CanMoveEast(x, y int32, z int8) bool {
	return m.flag(x, y, z, flagEast)
}

// CanMoveSouth is the north flag of the tile below.
func (m *Map) CanMoveSouth(x, y int32, z int8) bool {
	return m.CanMoveNorth(x, y-1, z)
}

// CanMoveWest is the east flag of the tile to the left.
func (m *Map) CanMoveWest(x, y int32, z int8) bool {
	return m.CanMoveEast(x-1, y, z)
}

// Diagonal moves require both orthogonal edges open on both corner tiles.
func (m *Map) CanMoveNorthEast(x, y int32, z int8) bool {
	return m.CanMoveNorth(x, y, z) && m.CanMoveEast(x, y+1, z) &&
		m.CanMoveEast(x, y, z) && m.CanMoveNorth(x+1, y, z)
}

func (m *Map) CanMoveNorthWest(x, y int32, z int8) bool {
	return m.CanMoveNorth(x, y, z) && m.CanMoveWest(x, y+1, z) &&
		m.CanMoveWest(x, y, z) && m.CanMoveNorth(x-1, y, z)
}

func (m *Map) CanMoveSouthEast(x, y int32, z int8) bool {
	return m.CanMoveSouth(x, y, z) && m.CanMoveEast(x, y-1, z) &&
		m.CanMoveEast(x, y, z) && m.CanMoveSouth(x+1, y, z)
}

func (m *Map) CanMoveSouthWest(x, y int32, z int8) bool {
	return m.CanMoveSouth(x, y, z) && m.CanMoveWest(x, y-1, z) &&
		m.CanMoveWest(x, y, z) && m.CanMoveSouth(x-1, y, z)
}

// Direction deltas, cardinal first so the pathfinder prefers straight edges
// on cost ties.
var neighborSteps = []struct {
	dx, dy   int32
	diagonal bool
	can      func(*Map, int32, int32, int8) bool
}{
	{0, 1, false, (*Map).CanMoveNorth},
	{0, -1, false, (*Map).CanMoveSouth},
	{1, 0, false, (*Map).CanMoveEast},
	{-1, 0, false, (*Map).CanMoveWest},
	{1, 1, true, (*Map).CanMoveNorthEast},
	{-1, 1, true, (*Map).CanMoveNorthWest},
	{1, -1, true, (*Map).CanMoveSouthEast},
	{-1, -1, true, (*Map).CanMoveSouthWest},
}

// Neighbor is one walkable step out of a tile.
type Neighbor struct {
	Coord    geometry.WorldCoord
	Diagonal bool
}

// WalkableNeighbors returns up to eight adjacent tiles reachable from
// (x,y,z), honoring the diagonal corner rule.
func (m *Map) WalkableNeighbors(x, y int32, z int8) []Neighbor {
	out := make([]Neighbor, 0, 8)
	for _, s := range neighborSteps {
		if s.can(m, x, y, z) {
			out = append(out, Neighbor{
				Coord:    geometry.WorldCoord{X: x + s.dx, Y: y + s.dy, Plane: z},
				Diagonal: s.diagonal,
			})
		}
	}
	return out
}

// Walkable reports whether the tile has any open edge at all. Fully-blocked
// tiles break line-of-sight simplification.
func (m *Map) Walkable(c geometry.WorldCoord) bool {
	return m.CanMoveNorth(c.X, c.Y, c.Plane) ||
		m.CanMoveSouth(c.X, c.Y, c.Plane) ||
		m.CanMoveEast(c.X, c.Y, c.Plane) ||
		m.CanMoveWest(c.X, c.Y, c.Plane)
}
