package input

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDriver records every injected event.
type fakeDriver struct {
	x, y      int
	positions [][2]int
	downs     []MouseButton
	ups       []MouseButton
	wheel     []int
	keysDown  []string
	keysUp    []string
}

func (d *fakeDriver) Position() (int, int) { return d.x, d.y }
func (d *fakeDriver) SetPosition(x, y int) {
	d.x, d.y = x, y
	d.positions = append(d.positions, [2]int{x, y})
}
func (d *fakeDriver) ButtonDown(b MouseButton) { d.downs = append(d.downs, b) }
func (d *fakeDriver) ButtonUp(b MouseButton)   { d.ups = append(d.ups, b) }
func (d *fakeDriver) Wheel(n int)              { d.wheel = append(d.wheel, n) }
func (d *fakeDriver) KeyDown(k string)         { d.keysDown = append(d.keysDown, k) }
func (d *fakeDriver) KeyUp(k string)           { d.keysUp = append(d.keysUp, k) }

func newTestSynth(seed int64) (*Synthesizer, *fakeDriver) {
	drv := &fakeDriver{}
	s := NewSynthesizer(drv, 1920, 1080, rand.New(rand.NewSource(seed)), zap.NewNop())
	s.sleep = func(time.Duration) {} // no real waiting in tests
	return s, drv
}

func TestMoveToEndsAtTarget(t *testing.T) {
	s, drv := newTestSynth(1)
	s.MoveTo(800, 400, 300*time.Millisecond, 1.0)
	assert.Equal(t, 800, drv.x)
	assert.Equal(t, 400, drv.y)
	assert.GreaterOrEqual(t, len(drv.positions), 10, "at least 10 interpolation steps")
}

func TestMoveToClampsToScreen(t *testing.T) {
	s, drv := newTestSynth(2)
	s.MoveTo(5000, -100, 200*time.Millisecond, 0.5)
	assert.Equal(t, 1919, drv.x)
	assert.Equal(t, 0, drv.y)
	for _, p := range drv.positions {
		require.GreaterOrEqual(t, p[0], 0)
		require.Less(t, p[0], 1920)
		require.GreaterOrEqual(t, p[1], 0)
		require.Less(t, p[1], 1080)
	}
}

func TestClickOrder(t *testing.T) {
	s, drv := newTestSynth(3)
	s.Click(ButtonRight)
	require.Equal(t, []MouseButton{ButtonRight}, drv.downs)
	require.Equal(t, []MouseButton{ButtonRight}, drv.ups)
}

func TestDragMiddleWrapsMove(t *testing.T) {
	s, drv := newTestSynth(4)
	s.DragMiddle(600, 300, 250*time.Millisecond, 1.0)
	require.Equal(t, []MouseButton{ButtonMiddle}, drv.downs)
	require.Equal(t, []MouseButton{ButtonMiddle}, drv.ups)
	assert.Equal(t, 600, drv.x)
	assert.Equal(t, 300, drv.y)
}

func TestScrollWheelSumsToDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int
	}{
		{"zoom in", 12},
		{"zoom out", -9},
		{"single notch", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, drv := newTestSynth(5)
			s.ScrollWheel(tt.delta, 200*time.Millisecond)
			sum := 0
			for _, n := range drv.wheel {
				sum += n
			}
			assert.Equal(t, tt.delta, sum)
		})
	}
}

func TestHotkeyReleasesInReverse(t *testing.T) {
	s, drv := newTestSynth(6)
	s.Hotkey("ctrl", "shift", "p")
	assert.Equal(t, []string{"ctrl", "shift", "p"}, drv.keysDown)
	assert.Equal(t, []string{"p", "shift", "ctrl"}, drv.keysUp)
}

func TestTypeText(t *testing.T) {
	s, drv := newTestSynth(7)
	s.TypeText("abc", time.Millisecond, 2*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, drv.keysDown)
	assert.Equal(t, []string{"a", "b", "c"}, drv.keysUp)
}

func TestJitterDurationPositive(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 1000; i++ {
		assert.Positive(t, jitterDuration(rng, time.Microsecond, 0.2))
	}
}
