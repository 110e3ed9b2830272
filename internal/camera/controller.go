// Package camera solves the inverse viewing problem: given a target world
// tile, apply drag and scroll adjustments until the tile is visible. The
// telemetry API supplies the required drag pixels directly; the controller
// closes the loop by executing them and re-querying.
package camera

import (
	"math/rand"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/input"
	"go.uber.org/zap"
)

// Telemetry is the camera's read surface of the API client.
type Telemetry interface {
	CameraRotationTo(x, y int32, plane int8) (api.RotationSnapshot, bool)
	Camera() (api.CameraSnapshot, bool)
	Viewport() (api.ViewportSnapshot, bool)
}

const (
	maxAttempts = 5

	// Drags below this magnitude on both axes are within the game's own
	// tolerance; treat as success.
	dragDeadzonePx = 5

	// Zoom pre-step bounds: scales at or above zoomedInScale get pulled
	// back into [zoomTargetMin, zoomTargetMax].
	zoomedInScale = 330
	zoomTargetMin = 305
	zoomTargetMax = 325

	// scrollUnitsPerScale converts a scale delta into wheel units.
	scrollUnitsPerScale = 50
	maxScrollDelta      = 600

	// Drags beyond this length are split into sequential segments.
	maxSingleDragPx = 200
)

// Controller executes closed-loop camera positioning.
type Controller struct {
	tel   Telemetry
	synth *input.Synthesizer
	rng   *rand.Rand
	log   *zap.Logger

	sleep func(time.Duration)
}

// NewController wires the controller to telemetry and input.
func NewController(tel Telemetry, synth *input.Synthesizer, rng *rand.Rand, log *zap.Logger) *Controller {
	return &Controller{
		tel:   tel,
		synth: synth,
		rng:   rng,
		log:   log,
		sleep: time.Sleep,
	}
}

// MakeVisible rotates and zooms until the tile is visible, or reports false
// after the attempt budget is spent. Already-visible tiles return true with
// no input issued.
func (c *Controller) MakeVisible(target geometry.WorldCoord) bool {
	rot, ok := c.tel.CameraRotationTo(target.X, target.Y, target.Plane)
	if !ok {
		return false
	}
	if rot.Visible {
		return true
	}

	c.adjustZoom(rot.CurrentScale)

	lastYaw, lastPitch := -1, -1
	stuck := 0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		rot, ok = c.tel.CameraRotationTo(target.X, target.Y, target.Plane)
		if !ok {
			return false
		}
		if rot.Visible {
			return true
		}

		abs := func(v int) int {
			if v < 0 {
				return -v
			}
			return v
		}
		if abs(rot.DragPixelsX) < dragDeadzonePx && abs(rot.DragPixelsY) < dragDeadzonePx {
			// Within the game's own snap tolerance.
			return true
		}

		if rot.CurrentYaw == lastYaw && rot.CurrentPitch == lastPitch {
			stuck++
			if stuck >= 3 {
				c.log.Warn("camera stuck",
					zap.Int("yaw", rot.CurrentYaw), zap.Int("pitch", rot.CurrentPitch))
				return false
			}
		} else {
			stuck = 0
		}
		lastYaw, lastPitch = rot.CurrentYaw, rot.CurrentPitch

		c.executeDrag(rot.DragPixelsX, rot.DragPixelsY)
		c.sleep(c.randRange(400*time.Millisecond, 600*time.Millisecond))
	}

	rot, ok = c.tel.CameraRotationTo(target.X, target.Y, target.Plane)
	return ok && rot.Visible
}

// adjustZoom scrolls out when the camera sits too close, verifying the new
// scale through re-query with up to two retries.
func (c *Controller) adjustZoom(scale int) {
	if scale < zoomedInScale {
		return
	}
	vp, ok := c.tel.Viewport()
	if !ok {
		return
	}
	center := vp.GameArea().Center()

	for retry := 0; retry <= 2; retry++ {
		targetScale := zoomTargetMin + c.rng.Intn(zoomTargetMax-zoomTargetMin+1)
		delta := (targetScale - scale) * scrollUnitsPerScale
		delta += int(float64(delta) * (c.rng.Float64()*0.2 - 0.1))
		if delta > maxScrollDelta {
			delta = maxScrollDelta
		}
		if delta < -maxScrollDelta {
			delta = -maxScrollDelta
		}

		c.synth.MoveTo(center.X, center.Y, 250*time.Millisecond, 0.8)
		c.synth.ScrollWheel(delta, 300*time.Millisecond)
		c.sleep(c.randRange(1200*time.Millisecond, 1800*time.Millisecond))

		cam, ok := c.tel.Camera()
		if !ok {
			return
		}
		scale = cam.Scale
		if scale < zoomedInScale {
			return
		}
	}
}

// executeDrag performs one combined yaw+pitch adjustment as a diagonal
// middle-button drag with ±7% per-axis jitter. Oversized drags are split
// into segments, each starting near the viewport center.
func (c *Controller) executeDrag(dragX, dragY int) {
	vp, ok := c.tel.Viewport()
	if !ok {
		return
	}
	area := vp.GameArea()
	center := area.Center()

	jitter := func(v int) int {
		return v + int(float64(v)*(c.rng.Float64()*0.14-0.07))
	}
	dragX = jitter(dragX)
	dragY = jitter(dragY)

	segments := 1
	maxAxis := dragX
	if maxAxis < 0 {
		maxAxis = -maxAxis
	}
	if dy := dragY; dy > maxAxis || -dy > maxAxis {
		maxAxis = dy
		if maxAxis < 0 {
			maxAxis = -maxAxis
		}
	}
	if maxAxis > maxSingleDragPx {
		segments = (maxAxis + maxSingleDragPx - 1) / maxSingleDragPx
	}

	for seg := 0; seg < segments; seg++ {
		// Randomized start near the viewport center.
		startX := center.X + c.rng.Intn(81) - 40
		startY := center.Y + c.rng.Intn(81) - 40
		start := area.Clamp(geometry.Point{X: startX, Y: startY})

		end := area.Clamp(geometry.Point{
			X: start.X + dragX/segments,
			Y: start.Y + dragY/segments,
		})

		c.synth.MoveTo(start.X, start.Y, 200*time.Millisecond, 0.6)
		c.synth.DragMiddle(end.X, end.Y, 350*time.Millisecond, 0.4)

		if seg+1 < segments {
			c.sleep(c.randRange(100*time.Millisecond, 200*time.Millisecond))
		}
	}
}

func (c *Controller) randRange(min, max time.Duration) time.Duration {
	return min + time.Duration(c.rng.Int63n(int64(max-min)))
}
