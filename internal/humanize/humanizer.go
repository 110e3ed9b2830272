// Package humanize shapes the bot's cadence: fatigue-scaled delays, idle
// micro-actions and scheduled breaks, including full logout breaks.
package humanize

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/input"
	"go.uber.org/zap"
)

// Telemetry is the humanizer's read surface of the API client.
type Telemetry interface {
	Viewport() (api.ViewportSnapshot, bool)
}

// Session performs logout and login for logout breaks.
type Session interface {
	Logout() bool
	Login() bool
}

const (
	fatiguePerAction = 0.001
	reactionScale    = 0.3
	postActionScale  = 0.5

	loginAttempts = 3
)

// Humanizer tracks fatigue and break schedules. Owned by a single bot loop.
type Humanizer struct {
	cfg     config.HumanizeConfig
	tel     Telemetry
	synth   *input.Synthesizer
	session Session
	rng     *rand.Rand
	log     *zap.Logger

	fatigue         float64
	nextIdleAction  time.Time
	nextIdleBreak   time.Time
	nextLogoutBreak time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewHumanizer schedules the first idle action and breaks relative to now.
func NewHumanizer(cfg config.HumanizeConfig, tel Telemetry, synth *input.Synthesizer, session Session, rng *rand.Rand, log *zap.Logger) *Humanizer {
	h := &Humanizer{
		cfg:     cfg,
		tel:     tel,
		synth:   synth,
		session: session,
		rng:     rng,
		log:     log,
		now:     time.Now,
		sleep:   time.Sleep,
	}
	h.scheduleIdleAction()
	h.scheduleIdleBreak()
	h.scheduleLogoutBreak()
	return h
}

// Fatigue returns the current fatigue scalar in [0,1].
func (h *Humanizer) Fatigue() float64 {
	return h.fatigue
}

// RecordAction accumulates fatigue and pushes the idle-action timer out.
func (h *Humanizer) RecordAction() {
	h.fatigue += fatiguePerAction
	if h.fatigue > 1 {
		h.fatigue = 1
	}
	h.scheduleIdleAction()
}

// ReactionDelay pauses 150-400 ms, stretched by fatigue, before an action.
func (h *Humanizer) ReactionDelay() {
	base := h.randRange(150*time.Millisecond, 400*time.Millisecond)
	h.sleep(time.Duration(float64(base) * (1 + reactionScale*h.fatigue)))
}

// PostActionDelay pauses for base stretched by fatigue after an action.
func (h *Humanizer) PostActionDelay(base time.Duration) {
	h.sleep(time.Duration(float64(base) * (1 + postActionScale*h.fatigue)))
}

// MaybeIdleAction runs one micro-action when the idle timer has lapsed.
func (h *Humanizer) MaybeIdleAction() {
	if h.now().Before(h.nextIdleAction) {
		return
	}
	h.microAction()
	h.scheduleIdleAction()
}

// CheckBreak takes any due break. Logout breaks outrank idle breaks. The
// returned error is fatal: login could not be re-established.
func (h *Humanizer) CheckBreak() error {
	if h.cfg.LogoutBreaks && !h.now().Before(h.nextLogoutBreak) {
		if err := h.logoutBreak(); err != nil {
			return err
		}
		h.scheduleLogoutBreak()
		h.fatigue = 0
		return nil
	}
	if !h.now().Before(h.nextIdleBreak) {
		h.idleBreak()
		h.scheduleIdleBreak()
		h.fatigue = 0
	}
	return nil
}

// idleBreak stays logged in, idling with occasional micro-actions.
func (h *Humanizer) idleBreak() {
	dur := h.randRange(h.cfg.BreakDurMin, h.cfg.BreakDurMax)
	end := h.now().Add(dur)
	h.log.Info("idle break", zap.Duration("duration", dur))

	for h.now().Before(end) {
		pause := h.randRange(10*time.Second, 30*time.Second)
		if remaining := end.Sub(h.now()); pause > remaining {
			pause = remaining
		}
		h.sleep(pause)
		if h.rng.Float64() < 0.3 {
			h.microAction()
		}
	}
}

// logoutBreak logs out, waits the break duration, then logs back in.
func (h *Humanizer) logoutBreak() error {
	dur := h.randRange(h.cfg.LogoutDurMin, h.cfg.LogoutDurMax)
	h.log.Info("logout break", zap.Duration("duration", dur))

	if !h.session.Logout() {
		h.log.Warn("logout did not complete, idling through the break anyway")
	}
	h.sleep(dur)

	for attempt := 1; attempt <= loginAttempts; attempt++ {
		if h.session.Login() {
			return nil
		}
		h.log.Warn("login attempt failed", zap.Int("attempt", attempt))
		if attempt < loginAttempts {
			h.sleep(h.randRange(5*time.Second, 10*time.Second))
		}
	}
	return fmt.Errorf("login failed after %d attempts", loginAttempts)
}

// microAction performs one small human tell.
func (h *Humanizer) microAction() {
	switch h.rng.Intn(4) {
	case 0: // hover somewhere in the game area
		if p, ok := h.randomGamePoint(); ok {
			h.synth.MoveTo(p[0], p[1], h.randRange(300*time.Millisecond, 700*time.Millisecond), 1.2)
		}
	case 1: // glance at the stats tab and back
		h.synth.Tap("f1", 0)
		h.sleep(h.randRange(800*time.Millisecond, 2*time.Second))
		h.synth.Tap("f4", 0)
	case 2: // small camera drag
		if p, ok := h.randomGamePoint(); ok {
			h.synth.MoveTo(p[0], p[1], h.randRange(200*time.Millisecond, 400*time.Millisecond), 0.6)
			h.synth.DragMiddle(p[0]+h.rng.Intn(161)-80, p[1]+h.rng.Intn(81)-40,
				h.randRange(300*time.Millisecond, 600*time.Millisecond), 0.5)
		}
	case 3: // hover and linger
		if p, ok := h.randomGamePoint(); ok {
			h.synth.MoveTo(p[0], p[1], h.randRange(300*time.Millisecond, 700*time.Millisecond), 1.0)
			h.sleep(h.randRange(time.Second, 3*time.Second))
		}
	}
}

func (h *Humanizer) randomGamePoint() ([2]int, bool) {
	vp, ok := h.tel.Viewport()
	if !ok {
		return [2]int{}, false
	}
	p := vp.GameArea().RandomPoint(h.rng)
	return [2]int{p.X, p.Y}, true
}

func (h *Humanizer) scheduleIdleAction() {
	h.nextIdleAction = h.now().Add(h.randRange(h.cfg.IdleFreqMin, h.cfg.IdleFreqMax))
}

func (h *Humanizer) scheduleIdleBreak() {
	h.nextIdleBreak = h.now().Add(h.randRange(h.cfg.BreakFreqMin, h.cfg.BreakFreqMax))
}

func (h *Humanizer) scheduleLogoutBreak() {
	h.nextLogoutBreak = h.now().Add(h.randRange(h.cfg.LogoutFreqMin, h.cfg.LogoutFreqMax))
}

func (h *Humanizer) randRange(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(h.rng.Int63n(int64(max-min)))
}
