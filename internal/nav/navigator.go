// Package nav turns world-coordinate goals into minimap click sequences.
// The navigator owns journey-level concerns: chunking a path into click
// legs, yaw-corrected click placement, arrival verification and stuck
// recovery.
package nav

import (
	"math"
	"math/rand"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/input"
	"github.com/kaolin/runebot/internal/pathfind"
	"go.uber.org/zap"
)

// Telemetry is the navigator's read surface of the API client.
type Telemetry interface {
	Coords() (api.CoordsSnapshot, bool)
	Camera() (api.CameraSnapshot, bool)
	Animation() (api.AnimationSnapshot, bool)
}

// Pathfinder plans tile paths. A nil Pathfinder forces the linear fallback.
type Pathfinder interface {
	Find(start, goal geometry.WorldCoord) (pathfind.Path, bool)
	ClearCache()
}

const (
	arrivalTolerance = 2  // tiles
	chunkRange       = 12 // max tiles per minimap click
	repathChance     = 0.20
	clickJitterPx    = 2.5

	linearStepMin = 10
	linearStepMax = 12

	arrivalTimeout = 30 * time.Second
	sampleInterval = time.Second
	stuckSamples   = 3 // identical position samples before a stuck trip
	maxStuckEvents = 3 // stuck trips per journey before giving up
	maxBadClicks   = 3 // consecutive rejected minimap targets before giving up
)

type legResult int

const (
	legArrivedGoal legResult = iota
	legArrivedWaypoint
	legStuck
	legTimeout
	legLost
)

// Navigator executes walks. Owned by a single bot loop.
type Navigator struct {
	tel   Telemetry
	pf    Pathfinder
	synth *input.Synthesizer
	cfg   config.NavConfig
	rng   *rand.Rand
	log   *zap.Logger

	sleep func(time.Duration)
}

// NewNavigator wires a navigator. pf may be nil when no collision archive
// is loaded; every walk then uses straight-line waypoints.
func NewNavigator(tel Telemetry, pf Pathfinder, synth *input.Synthesizer, cfg config.NavConfig, rng *rand.Rand, log *zap.Logger) *Navigator {
	return &Navigator{
		tel:   tel,
		pf:    pf,
		synth: synth,
		cfg:   cfg,
		rng:   rng,
		log:   log,
		sleep: time.Sleep,
	}
}

// WalkTo walks the avatar to within 2 tiles of goal, reporting false when
// the journey cannot be completed. usePathfinding=false skips collision
// planning and clicks along the straight line.
func (n *Navigator) WalkTo(goal geometry.WorldCoord, usePathfinding bool) bool {
	stuckEvents := 0
	badClicks := 0
	needPlan := true
	var path []geometry.WorldCoord

	for {
		cur, ok := n.position()
		if !ok {
			return false
		}
		if cur.Chebyshev(goal) <= arrivalTolerance {
			return true
		}

		if needPlan || len(path) == 0 {
			path, ok = n.plan(cur, goal, usePathfinding)
			if !ok {
				return false
			}
			needPlan = false
		}

		var wp geometry.WorldCoord
		wp, path = nextChunk(cur, path)

		// Occasionally replan the remainder so repeated journeys never
		// replay the same click sequence.
		if n.pf != nil && usePathfinding && n.rng.Float64() < repathChance {
			needPlan = true
			continue
		}

		if !n.clickMinimap(cur, wp) {
			badClicks++
			if badClicks >= maxBadClicks {
				n.log.Warn("minimap click repeatedly rejected",
					zap.Int32("wp_x", wp.X), zap.Int32("wp_y", wp.Y))
				return false
			}
			needPlan = true
			continue
		}
		badClicks = 0

		switch n.awaitLeg(wp, goal) {
		case legArrivedGoal:
			return true
		case legArrivedWaypoint:
			// next chunk
		case legLost:
			return false
		case legStuck, legTimeout:
			stuckEvents++
			if n.pf != nil {
				n.pf.ClearCache()
			}
			if stuckEvents >= maxStuckEvents {
				n.log.Warn("journey abandoned after repeated stuck trips",
					zap.Int32("goal_x", goal.X), zap.Int32("goal_y", goal.Y))
				return false
			}
			needPlan = true
		}
	}
}

func (n *Navigator) position() (geometry.WorldCoord, bool) {
	c, ok := n.tel.Coords()
	if !ok {
		return geometry.WorldCoord{}, false
	}
	return c.Coord(), true
}

// plan produces journey waypoints, preferring the pathfinder and falling
// back to straight-line interpolation.
func (n *Navigator) plan(cur, goal geometry.WorldCoord, usePathfinding bool) ([]geometry.WorldCoord, bool) {
	if usePathfinding && n.pf != nil {
		if p, ok := n.pf.Find(cur, goal); ok {
			return p, true
		}
		n.log.Debug("no collision path, using linear fallback")
	}
	return n.linearWaypoints(cur, goal)
}

// linearWaypoints samples the straight line every 10-12 tiles. Cross-plane
// goals cannot be expressed as a line walk.
func (n *Navigator) linearWaypoints(cur, goal geometry.WorldCoord) ([]geometry.WorldCoord, bool) {
	if cur.Plane != goal.Plane {
		return nil, false
	}
	dist := cur.Chebyshev(goal)
	if dist == 0 {
		return []geometry.WorldCoord{goal}, true
	}

	var out []geometry.WorldCoord
	covered := int32(0)
	for covered < dist {
		step := int32(linearStepMin + n.rng.Intn(linearStepMax-linearStepMin+1))
		covered += step
		if covered >= dist {
			out = append(out, goal)
			break
		}
		t := float64(covered) / float64(dist)
		out = append(out, geometry.WorldCoord{
			X:     cur.X + int32(math.Round(float64(goal.X-cur.X)*t)),
			Y:     cur.Y + int32(math.Round(float64(goal.Y-cur.Y)*t)),
			Plane: cur.Plane,
		})
	}
	return out, true
}

// nextChunk greedily picks the farthest waypoint within minimap click range
// and returns the remaining tail.
func nextChunk(cur geometry.WorldCoord, path []geometry.WorldCoord) (geometry.WorldCoord, []geometry.WorldCoord) {
	pick := 0
	for i, wp := range path {
		if cur.Chebyshev(wp) <= chunkRange {
			pick = i
		}
	}
	return path[pick], path[pick+1:]
}

// clickMinimap converts a tile offset into a yaw-corrected minimap click.
// Targets outside the circular minimap are rejected.
func (n *Navigator) clickMinimap(cur, wp geometry.WorldCoord) bool {
	dx := float64(wp.X - cur.X)
	dy := float64(wp.Y - cur.Y)

	yaw := 0
	if cam, ok := n.tel.Camera(); ok {
		yaw = cam.Yaw
	} else {
		// Unreadable yaw: force the camera north with a compass click so
		// the zero assumption below holds.
		n.synth.MoveTo(n.cfg.CompassX, n.cfg.CompassY,
			250*time.Millisecond+time.Duration(n.rng.Int63n(int64(150*time.Millisecond))), 0.7)
		n.synth.Click(input.ButtonLeft)
		n.sleep(400 * time.Millisecond)
		n.log.Warn("camera yaw unreadable, clicked compass to face north")
	}

	// Undo the camera rotation so the offset lands in minimap space.
	theta := float64(yaw) * 2 * math.Pi / 2048
	rx := dx*math.Cos(theta) + dy*math.Sin(theta)
	ry := -dx*math.Sin(theta) + dy*math.Cos(theta)

	// North is up on the minimap: world +Y maps to screen -Y.
	px := float64(n.cfg.MinimapCenterX) + rx*n.cfg.PixelsPerTile
	py := float64(n.cfg.MinimapCenterY) - ry*n.cfg.PixelsPerTile
	px += (n.rng.Float64()*2 - 1) * clickJitterPx
	py += (n.rng.Float64()*2 - 1) * clickJitterPx

	dcx := px - float64(n.cfg.MinimapCenterX)
	dcy := py - float64(n.cfg.MinimapCenterY)
	if math.Hypot(dcx, dcy) > n.cfg.MinimapRadius {
		n.log.Debug("minimap target outside circle",
			zap.Float64("px", px), zap.Float64("py", py))
		return false
	}

	n.synth.MoveTo(int(math.Round(px)), int(math.Round(py)),
		250*time.Millisecond+time.Duration(n.rng.Int63n(int64(150*time.Millisecond))), 0.7)
	n.synth.Click(input.ButtonLeft)
	return true
}

// awaitLeg samples position about once a second until the waypoint or goal
// is reached, the stuck detector trips, or the leg times out.
func (n *Navigator) awaitLeg(wp, goal geometry.WorldCoord) legResult {
	samples := int(arrivalTimeout / sampleInterval)
	var last geometry.WorldCoord
	identical := 0

	for i := 0; i < samples; i++ {
		n.sleep(sampleInterval)

		cur, ok := n.position()
		if !ok {
			return legLost
		}
		if cur.Chebyshev(goal) <= arrivalTolerance {
			return legArrivedGoal
		}
		if cur.Chebyshev(wp) <= arrivalTolerance {
			return legArrivedWaypoint
		}

		if i > 0 && cur == last {
			identical++
			if identical >= stuckSamples {
				moving := false
				if anim, ok := n.tel.Animation(); ok {
					moving = anim.IsMoving
				}
				n.log.Warn("stuck detector tripped",
					zap.Int32("x", cur.X), zap.Int32("y", cur.Y),
					zap.Bool("is_moving", moving))
				return legStuck
			}
		} else {
			identical = 0
		}
		last = cur
	}
	return legTimeout
}
