// Package input synthesizes humanized mouse and keyboard activity on top of
// an OS injection driver. Motion follows cubic Bézier curves with jittered
// step timing so no two traversals are alike.
package input

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Synthesizer drives the OS input driver with humanized motion. Owned by a
// single bot loop; not safe for concurrent use.
type Synthesizer struct {
	drv          Driver
	rng          *rand.Rand
	log          *zap.Logger
	screenWidth  int
	screenHeight int

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewSynthesizer wires a synthesizer to a driver and screen bounds.
func NewSynthesizer(drv Driver, screenWidth, screenHeight int, rng *rand.Rand, log *zap.Logger) *Synthesizer {
	return &Synthesizer{
		drv:          drv,
		rng:          rng,
		log:          log,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		sleep:        time.Sleep,
	}
}

// SetSleep replaces the wait function. Tests install a no-op to run
// synthesized motion instantly.
func (s *Synthesizer) SetSleep(fn func(time.Duration)) {
	if fn != nil {
		s.sleep = fn
	}
}

// clamp keeps a target within screen bounds.
func (s *Synthesizer) clamp(x, y int) (int, int) {
	if x < 0 {
		x = 0
	}
	if x >= s.screenWidth {
		x = s.screenWidth - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= s.screenHeight {
		y = s.screenHeight - 1
	}
	return x, y
}

// easeInOutQuad is the velocity profile across t ∈ [0,1].
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// MoveTo traces a cubic Bézier from the current position to (x,y) over
// roughly duration. curveIntensity scales the two randomized perpendicular
// control offsets; 0 gives a near-straight line.
func (s *Synthesizer) MoveTo(x, y int, duration time.Duration, curveIntensity float64) {
	x, y = s.clamp(x, y)
	sx, sy := s.drv.Position()
	dx := float64(x - sx)
	dy := float64(y - sy)
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		s.drv.SetPosition(x, y)
		return
	}

	// Perpendicular unit vector for control point displacement.
	px, py := -dy/dist, dx/dist
	off1 := (s.rng.Float64()*2 - 1) * curveIntensity * dist * 0.25
	off2 := (s.rng.Float64()*2 - 1) * curveIntensity * dist * 0.25

	c1x := float64(sx) + dx/3 + px*off1
	c1y := float64(sy) + dy/3 + py*off1
	c2x := float64(sx) + 2*dx/3 + px*off2
	c2y := float64(sy) + 2*dy/3 + py*off2

	steps := int(duration.Seconds() * 60)
	if steps < 10 {
		steps = 10
	}
	stepDelay := duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		t := easeInOutQuad(float64(i) / float64(steps))
		mt := 1 - t
		bx := mt*mt*mt*float64(sx) + 3*mt*mt*t*c1x + 3*mt*t*t*c2x + t*t*t*float64(x)
		by := mt*mt*mt*float64(sy) + 3*mt*mt*t*c1y + 3*mt*t*t*c2y + t*t*t*float64(y)
		cx, cy := s.clamp(int(math.Round(bx)), int(math.Round(by)))
		s.drv.SetPosition(cx, cy)
		s.sleep(jitterDuration(s.rng, stepDelay, 0.2))
	}
	s.drv.SetPosition(x, y)
}

// Click presses and releases a button with humanized pre-delay and hold.
func (s *Synthesizer) Click(b MouseButton) {
	s.sleep(randDuration(s.rng, 50*time.Millisecond, 150*time.Millisecond))
	s.drv.ButtonDown(b)
	s.sleep(randDuration(s.rng, 50*time.Millisecond, 120*time.Millisecond))
	s.drv.ButtonUp(b)
}

// DragMiddle presses the middle button, traces a curve to the target, and
// releases. Used for camera rotation.
func (s *Synthesizer) DragMiddle(x, y int, duration time.Duration, curveIntensity float64) {
	s.drv.ButtonDown(ButtonMiddle)
	s.sleep(randDuration(s.rng, 30*time.Millisecond, 70*time.Millisecond))
	s.MoveTo(x, y, duration, curveIntensity)
	s.sleep(randDuration(s.rng, 30*time.Millisecond, 70*time.Millisecond))
	s.drv.ButtonUp(ButtonMiddle)
}

// ScrollWheel emits delta notches split into 3-5 chunks with inter-chunk
// jitter. Positive delta zooms in.
func (s *Synthesizer) ScrollWheel(delta int, duration time.Duration) {
	if delta == 0 {
		return
	}
	chunks := 3 + s.rng.Intn(3)
	remaining := delta
	sign := 1
	if delta < 0 {
		sign = -1
		remaining = -delta
	}
	per := remaining / chunks
	if per == 0 {
		per = 1
	}
	chunkDelay := duration / time.Duration(chunks)

	for remaining > 0 {
		n := per
		if n > remaining {
			n = remaining
		}
		s.drv.Wheel(sign * n)
		remaining -= n
		if remaining > 0 {
			s.sleep(jitterDuration(s.rng, chunkDelay, 0.3))
		}
	}
}

// randDuration samples uniformly in [min, max].
func randDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// jitterDuration perturbs d by ±fraction, never below 1ns.
func jitterDuration(rng *rand.Rand, d time.Duration, fraction float64) time.Duration {
	f := 1 + (rng.Float64()*2-1)*fraction
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		out = time.Nanosecond
	}
	return out
}
