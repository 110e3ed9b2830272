package nav

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/input"
	"github.com/kaolin/runebot/internal/pathfind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWorld plays both sides: telemetry and input driver. A left click
// starts the avatar walking; each Coords poll then advances it toward dest.
type fakeWorld struct {
	pos        geometry.WorldCoord
	dest       geometry.WorldCoord
	stepSize   int32
	walking    bool
	frozen     bool
	coordsFail bool
	yaw        int
	cameraFail bool

	mouseX, mouseY int
	clicks         [][2]int
}

func (w *fakeWorld) Coords() (api.CoordsSnapshot, bool) {
	if w.coordsFail {
		return api.CoordsSnapshot{}, false
	}
	if w.walking && !w.frozen {
		w.pos.X = stepToward(w.pos.X, w.dest.X, w.stepSize)
		w.pos.Y = stepToward(w.pos.Y, w.dest.Y, w.stepSize)
	}
	var c api.CoordsSnapshot
	c.World.X, c.World.Y, c.World.Plane = w.pos.X, w.pos.Y, w.pos.Plane
	return c, true
}

func stepToward(cur, dest, step int32) int32 {
	d := dest - cur
	if d > step {
		d = step
	}
	if d < -step {
		d = -step
	}
	return cur + d
}

func (w *fakeWorld) Camera() (api.CameraSnapshot, bool) {
	if w.cameraFail {
		return api.CameraSnapshot{}, false
	}
	return api.CameraSnapshot{Yaw: w.yaw}, true
}

func (w *fakeWorld) Animation() (api.AnimationSnapshot, bool) {
	return api.AnimationSnapshot{IsMoving: w.walking && !w.frozen}, true
}

func (w *fakeWorld) Position() (int, int) { return w.mouseX, w.mouseY }
func (w *fakeWorld) SetPosition(x, y int) { w.mouseX, w.mouseY = x, y }
func (w *fakeWorld) ButtonDown(input.MouseButton) {}
func (w *fakeWorld) ButtonUp(b input.MouseButton) {
	if b == input.ButtonLeft {
		w.clicks = append(w.clicks, [2]int{w.mouseX, w.mouseY})
		w.walking = true
	}
}
func (w *fakeWorld) Wheel(int)       {}
func (w *fakeWorld) KeyDown(string)  {}
func (w *fakeWorld) KeyUp(string)    {}

// fakePathfinder serves a fixed path and counts cache clears.
type fakePathfinder struct {
	path      pathfind.Path
	ok        bool
	findCalls int
	clears    int
}

func (p *fakePathfinder) Find(start, goal geometry.WorldCoord) (pathfind.Path, bool) {
	p.findCalls++
	return p.path, p.ok
}
func (p *fakePathfinder) ClearCache() { p.clears++ }

func navConfig() config.NavConfig {
	return config.NavConfig{
		PixelsPerTile:  4.0,
		MinimapCenterX: 1690,
		MinimapCenterY: 120,
		MinimapRadius:  72,
	}
}

func newTestNavigator(w *fakeWorld, pf Pathfinder, cfg config.NavConfig, seed int64) *Navigator {
	synth := input.NewSynthesizer(w, 1920, 1080, rand.New(rand.NewSource(seed)), zap.NewNop())
	synth.SetSleep(func(time.Duration) {})
	n := NewNavigator(w, pf, synth, cfg, rand.New(rand.NewSource(seed)), zap.NewNop())
	n.sleep = func(time.Duration) {}
	return n
}

func straightPath(from, to geometry.WorldCoord, step int32) pathfind.Path {
	var p pathfind.Path
	cur := from
	for cur != to {
		cur.X = stepToward(cur.X, to.X, step)
		cur.Y = stepToward(cur.Y, to.Y, step)
		p = append(p, cur)
	}
	return p
}

func TestWalkToAlreadyThere(t *testing.T) {
	w := &fakeWorld{pos: geometry.WorldCoord{X: 3200, Y: 3200}}
	n := newTestNavigator(w, nil, navConfig(), 1)
	assert.True(t, n.WalkTo(geometry.WorldCoord{X: 3201, Y: 3199}, true))
	assert.Empty(t, w.clicks)
}

func TestWalkToCoordsUnavailable(t *testing.T) {
	w := &fakeWorld{coordsFail: true}
	n := newTestNavigator(w, nil, navConfig(), 2)
	assert.False(t, n.WalkTo(geometry.WorldCoord{X: 3200, Y: 3200}, true))
}

func TestWalkToFollowsPath(t *testing.T) {
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3200, Y: 3230}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 4}
	pf := &fakePathfinder{path: straightPath(start, goal, 8), ok: true}
	n := newTestNavigator(w, pf, navConfig(), 3)

	require.True(t, n.WalkTo(goal, true))
	require.NotEmpty(t, w.clicks)
	assert.GreaterOrEqual(t, pf.findCalls, 1)

	cfg := navConfig()
	for _, c := range w.clicks {
		dx := float64(c[0] - cfg.MinimapCenterX)
		dy := float64(c[1] - cfg.MinimapCenterY)
		assert.LessOrEqual(t, math.Hypot(dx, dy), cfg.MinimapRadius+1,
			"every click stays inside the minimap circle")
	}
}

func TestWalkToLinearFallback(t *testing.T) {
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3230, Y: 3200}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 4}
	pf := &fakePathfinder{ok: false} // no collision path available
	n := newTestNavigator(w, pf, navConfig(), 4)

	assert.True(t, n.WalkTo(goal, true))
	assert.NotEmpty(t, w.clicks)
}

func TestWalkToCrossPlaneWithoutPathfinding(t *testing.T) {
	w := &fakeWorld{pos: geometry.WorldCoord{X: 3200, Y: 3200, Plane: 0}}
	n := newTestNavigator(w, nil, navConfig(), 5)
	assert.False(t, n.WalkTo(geometry.WorldCoord{X: 3200, Y: 3220, Plane: 1}, false))
	assert.Empty(t, w.clicks)
}

func TestWalkToStuckJourneyFails(t *testing.T) {
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3200, Y: 3240}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 4, frozen: true}
	pf := &fakePathfinder{path: straightPath(start, goal, 8), ok: true}
	n := newTestNavigator(w, pf, navConfig(), 6)

	assert.False(t, n.WalkTo(goal, true))
	assert.Equal(t, maxStuckEvents, pf.clears,
		"pathfinder cache cleared on every stuck trip")
}

func TestWalkToRejectsOffMinimapClicks(t *testing.T) {
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3200, Y: 3240}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 4}
	pf := &fakePathfinder{path: straightPath(start, goal, 8), ok: true}
	cfg := navConfig()
	cfg.MinimapRadius = 1 // every real offset lands outside

	n := newTestNavigator(w, pf, cfg, 7)
	assert.False(t, n.WalkTo(goal, true))
	assert.Empty(t, w.clicks)
}

func TestUnreadableYawClicksCompass(t *testing.T) {
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3200, Y: 3208}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 8, cameraFail: true}
	pf := &fakePathfinder{path: pathfind.Path{goal}, ok: true}
	cfg := navConfig()
	cfg.CompassX, cfg.CompassY = 1592, 48
	n := newTestNavigator(w, pf, cfg, 9)

	require.True(t, n.WalkTo(goal, true))
	require.GreaterOrEqual(t, len(w.clicks), 2)
	assert.Equal(t, [2]int{1592, 48}, w.clicks[0], "compass clicked before the minimap")

	second := w.clicks[1]
	dx := float64(second[0] - cfg.MinimapCenterX)
	dy := float64(second[1] - cfg.MinimapCenterY)
	assert.LessOrEqual(t, math.Hypot(dx, dy), cfg.MinimapRadius+1)
}

func TestClickAppliesYawRotation(t *testing.T) {
	// Facing east (yaw 512): a due-north offset must land east of center.
	start := geometry.WorldCoord{X: 3200, Y: 3200}
	goal := geometry.WorldCoord{X: 3200, Y: 3208}
	w := &fakeWorld{pos: start, dest: goal, stepSize: 8, yaw: 512}
	pf := &fakePathfinder{path: pathfind.Path{goal}, ok: true}
	n := newTestNavigator(w, pf, navConfig(), 8)

	require.True(t, n.WalkTo(goal, true))
	require.NotEmpty(t, w.clicks)

	cfg := navConfig()
	first := w.clicks[0]
	assert.InDelta(t, cfg.MinimapCenterX+32, first[0], 4, "8 tiles east of center at 4 px/tile")
	assert.InDelta(t, cfg.MinimapCenterY, first[1], 4, "no vertical component after yaw correction")
}
