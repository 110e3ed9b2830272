// Package pathfind produces walkable tile paths over the collision graph.
// Dijkstra with per-edge random cost factors keeps repeated journeys from
// tracing identical lines; post-processing injects waypoint deviations and
// simplifies by line of sight.
package pathfind

import (
	"math"
	"math/rand"

	"github.com/kaolin/runebot/internal/collision"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/lru"
	"go.uber.org/zap"
)

// Grid is the walkability source. Satisfied by *collision.Map.
type Grid interface {
	WalkableNeighbors(x, y int32, z int8) []collision.Neighbor
	Walkable(c geometry.WorldCoord) bool
}

// Path is an ordered waypoint sequence from start to goal inclusive.
type Path []geometry.WorldCoord

// Variance selects how much randomness shapes the path.
type Variance int

const (
	Conservative Variance = iota
	Moderate
	Aggressive
)

// ParseVariance maps a config string onto a variance level. Unknown values
// fall back to Moderate.
func ParseVariance(s string) Variance {
	switch s {
	case "conservative":
		return Conservative
	case "aggressive":
		return Aggressive
	default:
		return Moderate
	}
}

type varianceParams struct {
	factorMin    float64 // per-edge cost multiplier range
	factorMax    float64
	injectMin    int // waypoints injected into long paths
	injectMax    int
	maxOffset    int32 // injected waypoint deviation, per axis
}

var varianceTable = map[Variance]varianceParams{
	Conservative: {factorMin: 0.90, factorMax: 1.10, injectMin: 0, injectMax: 1, maxOffset: 3},
	Moderate:     {factorMin: 0.85, factorMax: 1.25, injectMin: 1, injectMax: 2, maxOffset: 5},
	Aggressive:   {factorMin: 0.75, factorMax: 1.35, injectMin: 2, injectMax: 3, maxOffset: 8},
}

const (
	// Dijkstra stops after expanding this many tiles; an unreachable goal
	// returns absence instead of walking the whole world.
	maxExpanded = 60000

	// Paths shorter than this skip waypoint injection.
	injectMinLength = 15

	// losLookahead is the farthest simplification may jump between kept
	// waypoints, matching the minimap click range.
	losLookahead = 12
)

type cacheKey struct {
	start geometry.WorldCoord
	goal  geometry.WorldCoord
}

// Finder computes and caches paths. Owned by a single bot loop.
type Finder struct {
	grid     Grid
	variance varianceParams
	cache    *lru.Cache[cacheKey, Path]
	rng      *rand.Rand
	log      *zap.Logger
}

// NewFinder builds a pathfinder at the given variance level.
func NewFinder(grid Grid, v Variance, cacheSize int, rng *rand.Rand, log *zap.Logger) *Finder {
	return &Finder{
		grid:     grid,
		variance: varianceTable[v],
		cache:    lru.New[cacheKey, Path](cacheSize),
		rng:      rng,
		log:      log,
	}
}

// Find returns a simplified path from start to goal, or false when the goal
// is unreachable. Cached results are returned as stored; execution-layer
// randomness (click jitter) keeps repeats from looking identical.
func (f *Finder) Find(start, goal geometry.WorldCoord) (Path, bool) {
	if start == goal {
		return Path{start}, true
	}
	if start.Plane != goal.Plane {
		// Plane connectors (stairs, ladders) are journey steps, not edges.
		return nil, false
	}

	key := cacheKey{start: start, goal: goal}
	if p, ok := f.cache.Get(key); ok {
		return p, true
	}

	raw, ok := f.dijkstra(start, goal)
	if !ok {
		f.log.Debug("no path",
			zap.Int32("sx", start.X), zap.Int32("sy", start.Y),
			zap.Int32("gx", goal.X), zap.Int32("gy", goal.Y))
		return nil, false
	}

	withDeviations := f.injectWaypoints(raw)
	simplified := f.simplify(withDeviations)
	f.cache.Put(key, simplified)
	return simplified, true
}

// FindRaw returns the unsimplified Dijkstra output. Exposed for tests of the
// adjacency invariant.
func (f *Finder) FindRaw(start, goal geometry.WorldCoord) (Path, bool) {
	if start == goal {
		return Path{start}, true
	}
	if start.Plane != goal.Plane {
		return nil, false
	}
	return f.dijkstra(start, goal)
}

// ClearCache drops cached paths. Called by the navigator on stuck detection.
func (f *Finder) ClearCache() {
	f.cache.Clear()
}

// CacheLen exposes the live path count for tests.
func (f *Finder) CacheLen() int {
	return f.cache.Len()
}

func (f *Finder) edgeCost(diagonal bool) float64 {
	base := 1.0
	if diagonal {
		base = math.Sqrt2
	}
	factor := f.variance.factorMin + f.rng.Float64()*(f.variance.factorMax-f.variance.factorMin)
	return base * factor
}

func (f *Finder) dijkstra(start, goal geometry.WorldCoord) (Path, bool) {
	dist := map[geometry.WorldCoord]float64{start: 0}
	prev := map[geometry.WorldCoord]geometry.WorldCoord{}
	done := map[geometry.WorldCoord]bool{}

	pq := &tileHeap{{coord: start, cost: 0}}
	expanded := 0

	for pq.Len() > 0 {
		cur := pq.pop()
		if done[cur.coord] {
			continue
		}
		done[cur.coord] = true

		if cur.coord == goal {
			return reconstruct(prev, start, goal), true
		}

		expanded++
		if expanded > maxExpanded {
			return nil, false
		}

		for _, n := range f.grid.WalkableNeighbors(cur.coord.X, cur.coord.Y, cur.coord.Plane) {
			if done[n.Coord] {
				continue
			}
			next := cur.cost + f.edgeCost(n.Diagonal)
			if old, seen := dist[n.Coord]; !seen || next < old {
				dist[n.Coord] = next
				prev[n.Coord] = cur.coord
				pq.push(tileNode{coord: n.Coord, cost: next})
			}
		}
	}
	return nil, false
}

func reconstruct(prev map[geometry.WorldCoord]geometry.WorldCoord, start, goal geometry.WorldCoord) Path {
	var rev Path
	for c := goal; ; {
		rev = append(rev, c)
		if c == start {
			break
		}
		c = prev[c]
	}
	out := make(Path, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}

// injectWaypoints detours the path through randomly offset midpoints. Any
// failed sub-path leaves the original untouched.
func (f *Finder) injectWaypoints(p Path) Path {
	if len(p) < injectMinLength {
		return p
	}
	v := f.variance
	count := v.injectMin
	if v.injectMax > v.injectMin {
		count += f.rng.Intn(v.injectMax - v.injectMin + 1)
	}
	if count == 0 {
		return p
	}

	// Evenly spaced segment midpoints as anchors.
	anchors := []geometry.WorldCoord{p[0]}
	for i := 1; i <= count; i++ {
		idx := i * (len(p) - 1) / (count + 1)
		mid := p[idx]
		off := geometry.WorldCoord{
			X:     mid.X + int32(f.rng.Intn(int(v.maxOffset*2+1))) - v.maxOffset,
			Y:     mid.Y + int32(f.rng.Intn(int(v.maxOffset*2+1))) - v.maxOffset,
			Plane: mid.Plane,
		}
		if !f.grid.Walkable(off) {
			off = mid
		}
		anchors = append(anchors, off)
	}
	anchors = append(anchors, p[len(p)-1])

	var out Path
	for i := 0; i+1 < len(anchors); i++ {
		leg, ok := f.dijkstra(anchors[i], anchors[i+1])
		if !ok {
			return p
		}
		if i > 0 {
			leg = leg[1:] // drop duplicated anchor
		}
		out = append(out, leg...)
	}
	return out
}

// simplify greedily keeps the farthest waypoint within losLookahead tiles
// reachable by a fully-walkable Bresenham line.
func (f *Finder) simplify(p Path) Path {
	if len(p) <= 2 {
		return p
	}
	out := Path{p[0]}
	i := 0
	for i < len(p)-1 {
		best := i + 1
		for j := i + 2; j < len(p); j++ {
			if p[i].Chebyshev(p[j]) > losLookahead {
				break
			}
			if f.lineWalkable(p[i], p[j]) {
				best = j
			}
		}
		out = append(out, p[best])
		i = best
	}
	return out
}

// lineWalkable checks every tile on the Bresenham line between a and b.
// Different planes are never line-of-sight connected.
func (f *Finder) lineWalkable(a, b geometry.WorldCoord) bool {
	if a.Plane != b.Plane {
		return false
	}
	for _, c := range bresenham(a, b) {
		if !f.grid.Walkable(c) {
			return false
		}
	}
	return true
}

// bresenham returns the tiles on the line from a to b, inclusive.
func bresenham(a, b geometry.WorldCoord) []geometry.WorldCoord {
	dx := b.X - a.X
	if dx < 0 {
		dx = -dx
	}
	dy := b.Y - a.Y
	if dy < 0 {
		dy = -dy
	}
	sx := int32(1)
	if a.X > b.X {
		sx = -1
	}
	sy := int32(1)
	if a.Y > b.Y {
		sy = -1
	}

	out := []geometry.WorldCoord{a}
	x, y := a.X, a.Y
	errTerm := dx - dy
	for x != b.X || y != b.Y {
		e2 := errTerm * 2
		if e2 > -dy {
			errTerm -= dy
			x += sx
		}
		if e2 < dx {
			errTerm += dx
			y += sy
		}
		out = append(out, geometry.WorldCoord{X: x, Y: y, Plane: a.Plane})
	}
	return out
}
