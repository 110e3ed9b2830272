package bot

import (
	"errors"
	"time"

	"github.com/kaolin/runebot/internal/input"
	"github.com/kaolin/runebot/internal/state"
)

var errLoginFailed = errors.New("login failed")

// Fixed-layout screen anchors for the login and logout flows. The telemetry
// API reports no widget positions outside the bank, so these follow the
// client's fixed 1920x1080 interface layout.
const (
	existingUserX = 968
	existingUserY = 330
	playButtonX   = 960
	playButtonY   = 420

	logoutTabX    = 1806
	logoutTabY    = 1034
	logoutButtonX = 1712
	logoutButtonY = 846
)

const loginPollInterval = 600 * time.Millisecond

// SessionControl adapts the bot's login and logout to the break scheduler.
// It is created before the bot so the humanizer can hold it, then bound.
type SessionControl struct {
	b *Bot
}

func NewSessionControl() *SessionControl {
	return &SessionControl{}
}

// Bind attaches the bot once it exists.
func (s *SessionControl) Bind(b *Bot) {
	s.b = b
}

// Logout ends the session for a scheduled break.
func (s *SessionControl) Logout() bool {
	if s.b == nil {
		return false
	}
	return s.b.Logout(20 * time.Second)
}

// Login resumes the session after a scheduled break.
func (s *SessionControl) Login() bool {
	if s.b == nil {
		return false
	}
	return s.b.login()
}

// login walks the title screen back into the world: existing-user button,
// then the play button once the lobby appears, then wait for LoggedIn.
func (b *Bot) login() bool {
	if gs, ok := b.tel.GameState(); ok && gs.LoggedIn {
		return true
	}

	b.clickScreen(existingUserX, existingUserY)
	b.sleep(b.randRange(1200*time.Millisecond, 2200*time.Millisecond))
	b.clickScreen(playButtonX, playButtonY)

	deadline := b.now().Add(25 * time.Second)
	for b.now().Before(deadline) {
		if gs, ok := b.tel.GameState(); ok && gs.LoggedIn {
			b.sleep(b.randRange(800*time.Millisecond, 1500*time.Millisecond))
			return true
		}
		b.sleep(loginPollInterval)
	}
	return false
}

// Logout opens the logout panel and clicks through it, waiting until the
// session is observably gone. Part of the emergency teardown surface.
func (b *Bot) Logout(timeout time.Duration) bool {
	if gs, ok := b.tel.GameState(); ok && !gs.LoggedIn {
		return true
	}

	deadline := b.now().Add(timeout)
	for b.now().Before(deadline) {
		w, ok := b.tel.Widgets()
		if ok && w.IsLogoutPanelOpen {
			b.clickScreen(logoutButtonX, logoutButtonY)
		} else {
			b.clickScreen(logoutTabX, logoutTabY)
		}
		b.sleep(b.randRange(600*time.Millisecond, 1100*time.Millisecond))

		if gs, ok := b.tel.GameState(); ok && !gs.LoggedIn {
			b.machine.Transition(state.Idle)
			return true
		}
	}
	return false
}

// clickScreen left-clicks a fixed point with a small jitter.
func (b *Bot) clickScreen(x, y int) {
	x += b.rng.Intn(7) - 3
	y += b.rng.Intn(7) - 3
	b.synth.MoveTo(x, y, b.randRange(200*time.Millisecond, 400*time.Millisecond), 0.7)
	b.sleep(b.randRange(60*time.Millisecond, 140*time.Millisecond))
	b.synth.Click(input.ButtonLeft)
}
