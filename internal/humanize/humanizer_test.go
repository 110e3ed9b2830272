package humanize

import (
	"math/rand"
	"testing"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock advances simulated time on every sleep.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

type fakeDriver struct {
	events int
	x, y   int
}

func (d *fakeDriver) Position() (int, int)           { return d.x, d.y }
func (d *fakeDriver) SetPosition(x, y int)           { d.x, d.y = x, y; d.events++ }
func (d *fakeDriver) ButtonDown(input.MouseButton)   { d.events++ }
func (d *fakeDriver) ButtonUp(input.MouseButton)     { d.events++ }
func (d *fakeDriver) Wheel(int)                      { d.events++ }
func (d *fakeDriver) KeyDown(string)                 { d.events++ }
func (d *fakeDriver) KeyUp(string)                   { d.events++ }

type fakeViewport struct{}

func (fakeViewport) Viewport() (api.ViewportSnapshot, bool) {
	return api.ViewportSnapshot{Width: 1280, Height: 720}, true
}

type fakeSession struct {
	logouts      int
	logins       int
	loginResults []bool
}

func (s *fakeSession) Logout() bool { s.logouts++; return true }
func (s *fakeSession) Login() bool {
	s.logins++
	if len(s.loginResults) == 0 {
		return true
	}
	r := s.loginResults[0]
	s.loginResults = s.loginResults[1:]
	return r
}

func testConfig() config.HumanizeConfig {
	return config.HumanizeConfig{
		IdleFreqMin:   20 * time.Second,
		IdleFreqMax:   70 * time.Second,
		BreakFreqMin:  25 * time.Minute,
		BreakFreqMax:  55 * time.Minute,
		BreakDurMin:   2 * time.Minute,
		BreakDurMax:   7 * time.Minute,
		LogoutFreqMin: 90 * time.Minute,
		LogoutFreqMax: 180 * time.Minute,
		LogoutDurMin:  10 * time.Minute,
		LogoutDurMax:  30 * time.Minute,
	}
}

func newTestHumanizer(cfg config.HumanizeConfig, session Session, seed int64) (*Humanizer, *fakeClock, *fakeDriver) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	drv := &fakeDriver{}
	synth := input.NewSynthesizer(drv, 1920, 1080, rand.New(rand.NewSource(seed)), zap.NewNop())
	synth.SetSleep(clock.sleep)
	h := NewHumanizer(cfg, fakeViewport{}, synth, session, rand.New(rand.NewSource(seed)), zap.NewNop())
	h.now = clock.now
	h.sleep = clock.sleep
	// Reschedule against the fake clock instead of the wall clock.
	h.scheduleIdleAction()
	h.scheduleIdleBreak()
	h.scheduleLogoutBreak()
	return h, clock, drv
}

func TestFatigueAccumulatesAndCaps(t *testing.T) {
	h, _, _ := newTestHumanizer(testConfig(), &fakeSession{}, 1)
	for i := 0; i < 300; i++ {
		h.RecordAction()
	}
	assert.InDelta(t, 0.3, h.Fatigue(), 1e-9)
	for i := 0; i < 2000; i++ {
		h.RecordAction()
	}
	assert.Equal(t, 1.0, h.Fatigue(), "fatigue caps at 1")
}

func TestReactionDelayScalesWithFatigue(t *testing.T) {
	h, clock, _ := newTestHumanizer(testConfig(), &fakeSession{}, 2)

	h.ReactionDelay()
	fresh := clock.sleeps[len(clock.sleeps)-1]
	assert.GreaterOrEqual(t, fresh, 150*time.Millisecond)
	assert.LessOrEqual(t, fresh, 400*time.Millisecond)

	h.fatigue = 1
	h.ReactionDelay()
	tired := clock.sleeps[len(clock.sleeps)-1]
	assert.GreaterOrEqual(t, tired, time.Duration(float64(150*time.Millisecond)*1.3))
	assert.LessOrEqual(t, tired, time.Duration(float64(400*time.Millisecond)*1.3))
}

func TestPostActionDelayScalesWithFatigue(t *testing.T) {
	h, clock, _ := newTestHumanizer(testConfig(), &fakeSession{}, 3)
	h.fatigue = 0.5
	h.PostActionDelay(100 * time.Millisecond)
	assert.Equal(t, 125*time.Millisecond, clock.sleeps[len(clock.sleeps)-1])
}

func TestIdleBreakResetsFatigueAndReschedules(t *testing.T) {
	h, clock, _ := newTestHumanizer(testConfig(), &fakeSession{}, 4)
	h.fatigue = 0.8
	clock.t = h.nextIdleBreak // break is due

	require.NoError(t, h.CheckBreak())
	assert.Zero(t, h.Fatigue(), "break resets fatigue")
	assert.True(t, h.nextIdleBreak.After(clock.t), "next break rescheduled ahead")
}

func TestIdleBreakNotDueIsNoOp(t *testing.T) {
	h, clock, drv := newTestHumanizer(testConfig(), &fakeSession{}, 5)
	h.fatigue = 0.4
	before := len(clock.sleeps)

	require.NoError(t, h.CheckBreak())
	assert.Equal(t, 0.4, h.Fatigue())
	assert.Equal(t, before, len(clock.sleeps))
	assert.Zero(t, drv.events)
}

func TestLogoutBreakLoginRetriesThenFatal(t *testing.T) {
	cfg := testConfig()
	cfg.LogoutBreaks = true
	session := &fakeSession{loginResults: []bool{false, false, false}}
	h, clock, _ := newTestHumanizer(cfg, session, 6)
	clock.t = h.nextLogoutBreak

	err := h.CheckBreak()
	require.Error(t, err, "exhausted login attempts are fatal")
	assert.Equal(t, 1, session.logouts)
	assert.Equal(t, 3, session.logins)
}

func TestLogoutBreakSuccessResetsFatigue(t *testing.T) {
	cfg := testConfig()
	cfg.LogoutBreaks = true
	session := &fakeSession{loginResults: []bool{false, true}}
	h, clock, _ := newTestHumanizer(cfg, session, 7)
	h.fatigue = 0.6
	clock.t = h.nextLogoutBreak
	start := clock.t

	require.NoError(t, h.CheckBreak())
	assert.Zero(t, h.Fatigue())
	assert.Equal(t, 2, session.logins, "second attempt succeeded")
	assert.GreaterOrEqual(t, clock.t.Sub(start), cfg.LogoutDurMin, "slept through the break")
	assert.True(t, h.nextLogoutBreak.After(clock.t))
}

func TestMaybeIdleActionRespectsTimer(t *testing.T) {
	h, clock, drv := newTestHumanizer(testConfig(), &fakeSession{}, 8)

	h.MaybeIdleAction()
	assert.Zero(t, drv.events, "timer not lapsed yet")

	clock.t = h.nextIdleAction
	h.MaybeIdleAction()
	assert.Positive(t, drv.events, "a micro-action ran")
	assert.True(t, h.nextIdleAction.After(clock.t), "idle action rescheduled")
}
