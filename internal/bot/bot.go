// Package bot runs the top-level automation loops: gathering and combat
// cycles, banking trips, break handling and the emergency teardown.
package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/errhandle"
	"github.com/kaolin/runebot/internal/event"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/input"
	"github.com/kaolin/runebot/internal/interact"
	"github.com/kaolin/runebot/internal/monitor"
	"github.com/kaolin/runebot/internal/persist"
	"github.com/kaolin/runebot/internal/state"
)

// Telemetry is the bot loop's read surface of the API client.
type Telemetry interface {
	Stats() ([]api.StatEntry, bool)
	Player() (api.PlayerSnapshot, bool)
	Coords() (api.CoordsSnapshot, bool)
	Combat() (api.CombatSnapshot, bool)
	Animation() (api.AnimationSnapshot, bool)
	Inventory() ([]api.ItemSlot, bool)
	Equipment() ([]api.ItemSlot, bool)
	Bank() ([]api.ItemSlot, bool)
	Widgets() (api.WidgetsSnapshot, bool)
	GameState() (api.GameStateSnapshot, bool)
	GroundItems(x, y int32, plane int8, radius int) ([]api.GroundItemSnapshot, bool)
	CameraRotationTo(x, y int32, plane int8) (api.RotationSnapshot, bool)
	ObjectsInViewport() ([]api.ObjectSnapshot, bool)
}

// Walker moves the avatar across the world.
type Walker interface {
	WalkTo(goal geometry.WorldCoord, usePathfinding bool) bool
}

// Interactor clicks entities and UI points.
type Interactor interface {
	Find(ids []int, kind api.EntityKind) (interact.Entity, bool)
	Click(e interact.Entity, actionText string) bool
	ClickAt(point geometry.Point, actionText string) bool
	Interact(ids []int, kind api.EntityKind, actionText string) bool
}

// Camera brings world tiles into view.
type Camera interface {
	MakeVisible(target geometry.WorldCoord) bool
}

// Humanizer shapes the loop cadence.
type Humanizer interface {
	Fatigue() float64
	RecordAction()
	ReactionDelay()
	PostActionDelay(base time.Duration)
	MaybeIdleAction()
	CheckBreak() error
}

// Deps bundles everything a Bot needs. Monitor, Sessions, Bus and Events
// are optional; nil disables the feature.
type Deps struct {
	Tel      Telemetry
	Synth    *input.Synthesizer
	Nav      Walker
	Interact Interactor
	Camera   Camera
	Human    Humanizer
	Errors   *errhandle.Handler
	Machine  *state.Machine
	Policy   Policy
	InvUI    config.InventoryUIConfig
	Profile  string

	Bus      *event.Bus
	Monitor  *monitor.Server
	Sessions *persist.SessionRepo

	RNG *rand.Rand
	Log *zap.Logger
}

// Bot is the single-goroutine automation core. All loop work happens on the
// goroutine that calls Run.
type Bot struct {
	tel      Telemetry
	synth    *input.Synthesizer
	nav      Walker
	interact Interactor
	camera   Camera
	human    Humanizer
	errors   *errhandle.Handler
	machine  *state.Machine
	policy   Policy
	invUI    config.InventoryUIConfig
	profile  string

	bus      *event.Bus
	monitor  *monitor.Server
	sessions *persist.SessionRepo

	rng *rand.Rand
	log *zap.Logger

	tracker   *Tracker
	running   bool
	stopped   bool
	deathSeen bool
	sessionID uuid.UUID

	lastTabSwitch time.Time
	nextTabSwitch time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

// New wires a Bot from its dependencies.
func New(d Deps) *Bot {
	b := &Bot{
		tel:      d.Tel,
		synth:    d.Synth,
		nav:      d.Nav,
		interact: d.Interact,
		camera:   d.Camera,
		human:    d.Human,
		errors:   d.Errors,
		machine:  d.Machine,
		policy:   d.Policy,
		invUI:    d.InvUI,
		profile:  d.Profile,
		bus:      d.Bus,
		monitor:  d.Monitor,
		sessions: d.Sessions,
		rng:      d.RNG,
		log:      d.Log,
		tracker:  NewTracker(),
		sleep:    time.Sleep,
		now:      time.Now,
	}
	b.nextTabSwitch = b.randRange(5*time.Minute, 15*time.Minute)

	if b.bus != nil {
		event.Subscribe(b.bus, func(ev event.GameEvent) {
			if ev.Type == event.TypeActorDeath {
				b.deathSeen = true
			}
		})
	}
	return b
}

// Run drives cycles until the context is cancelled, a break handler fails
// fatally, or an error escalates into emergency shutdown.
func (b *Bot) Run(ctx context.Context) error {
	b.running = true
	b.lastTabSwitch = b.now()
	defer func() { b.running = false }()

	b.machine.Transition(state.Starting)

	if gs, ok := b.tel.GameState(); !ok || !gs.LoggedIn {
		if !b.login() {
			sev := b.errors.Report("startup", errhandle.LoginFailed, nil)
			if sev.ShouldShutdown() {
				b.emergencyStop()
			}
			return errLoginFailed
		}
	}

	if stats, ok := b.tel.Stats(); ok {
		b.tracker.ObserveStats(stats)
	}
	b.startSession(ctx)

	for {
		select {
		case <-ctx.Done():
			b.shutdown(ctx)
			return ctx.Err()
		default:
		}
		if b.stopped {
			b.shutdown(ctx)
			return nil
		}

		if b.bus != nil {
			b.bus.SwapBuffers()
			b.bus.DispatchAll()
		}

		if err := b.human.CheckBreak(); err != nil {
			b.errors.Report("break", errhandle.LoginFailed, err)
			b.emergencyStop()
			return err
		}
		b.human.MaybeIdleAction()

		b.cycle()
		if stats, ok := b.tel.Stats(); ok {
			b.tracker.ObserveStats(stats)
		}
		b.broadcastStatus()

		delay := time.Duration(float64(b.randRange(400*time.Millisecond, 900*time.Millisecond)) *
			b.policy.CycleDelayScale(b.human.Fatigue()))
		b.sleep(delay)
	}
}

// cycle runs one iteration of the configured mode.
func (b *Bot) cycle() {
	switch b.policy.Mode() {
	case "combat":
		b.combatCycle()
	default:
		b.gatherCycle()
	}
}

// Stop asks the loop to exit after the current cycle.
func (b *Bot) Stop() {
	b.stopped = true
}

func (b *Bot) startSession(ctx context.Context) {
	if b.sessions == nil {
		return
	}
	id, err := b.sessions.Start(ctx, b.profile, b.policy.Mode())
	if err != nil {
		b.log.Warn("session persistence unavailable", zap.Error(err))
		return
	}
	b.sessionID = id
}

func (b *Bot) finishSession(ctx context.Context) {
	if b.sessions == nil || b.sessionID == uuid.Nil {
		return
	}
	if err := b.sessions.Finish(ctx, b.sessionID, b.tracker.Totals()); err != nil {
		b.log.Warn("session finish failed", zap.Error(err))
	}
}

func (b *Bot) recordError(ctx context.Context, task string, kind errhandle.Kind, sev errhandle.Severity, msg string) {
	b.tracker.RecordError()
	if b.sessions == nil || b.sessionID == uuid.Nil {
		return
	}
	if err := b.sessions.RecordError(ctx, b.sessionID, b.now(), task, string(kind), sev.String(), msg); err != nil {
		b.log.Debug("error persistence failed", zap.Error(err))
	}
}

// report classifies a failure and runs the emergency sequence when it
// escalates. Returns true when the loop should keep going.
func (b *Bot) report(task string, kind errhandle.Kind, err error) bool {
	sev := b.errors.Report(task, kind, err)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	b.recordError(context.Background(), task, kind, sev, msg)
	if sev.ShouldShutdown() {
		b.emergencyStop()
		return false
	}
	return true
}

func (b *Bot) emergencyStop() {
	b.errors.EmergencyShutdown(b, b.machine, b.emitStats)
	b.stopped = true
}

// shutdown is the orderly exit path.
func (b *Bot) shutdown(ctx context.Context) {
	b.machine.Transition(state.Stopping)
	b.finishSession(ctx)
	b.emitStats()
}

func (b *Bot) emitStats() {
	b.log.Info("session totals",
		zap.Int64("xp_gained", b.tracker.XPGained()),
		zap.Any("xp_by_skill", b.tracker.XPBySkill()),
		zap.Int("kills", b.tracker.Kills()),
		zap.Int("loots", b.tracker.Loots()),
		zap.Int("bank_trips", b.tracker.BankTrips()),
		zap.Int("eats", b.tracker.Eats()),
		zap.Int("escapes", b.tracker.Escapes()),
		zap.Int("errors", b.tracker.Errors()),
		zap.Duration("runtime", b.tracker.Runtime()))
}

func (b *Bot) broadcastStatus() {
	if b.monitor == nil {
		return
	}
	var pos geometry.WorldCoord
	if c, ok := b.tel.Coords(); ok {
		pos = c.Coord()
	}
	health, maxHealth := 0, 0
	if p, ok := b.tel.Player(); ok {
		health, maxHealth = p.Health, p.MaxHealth
	}
	b.monitor.Broadcast(b.tracker.Status(
		b.machine.Current().String(), b.human.Fatigue(), pos, health, maxHealth))
}

// maybeSwitchTab flips to a random side tab every few minutes, the way an
// idle hand wanders.
func (b *Bot) maybeSwitchTab() {
	if b.now().Sub(b.lastTabSwitch) < b.nextTabSwitch {
		return
	}
	keys := []string{"f1", "f2", "f3", "f4", "f5"}
	b.synth.Tap(keys[b.rng.Intn(len(keys))], b.randRange(40*time.Millisecond, 90*time.Millisecond))
	b.lastTabSwitch = b.now()
	b.nextTabSwitch = b.randRange(5*time.Minute, 15*time.Minute)
}

// maybeAttentionPause takes a short hands-off pause on a 5% roll.
func (b *Bot) maybeAttentionPause() {
	if b.rng.Float64() >= 0.05 {
		return
	}
	b.sleep(b.randRange(2*time.Second, 5*time.Second))
}

func (b *Bot) randRange(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(b.rng.Int63n(int64(max-min)))
}

// --- errhandle.Shutdowner ---

// ClearRunning drops the running flag so no new cycle starts.
func (b *Bot) ClearRunning() {
	b.running = false
	b.stopped = true
}

// StopTasks abandons whatever multi-step operation was in flight. The loop
// is single-threaded so clearing the flags is sufficient.
func (b *Bot) StopTasks() {
	b.stopped = true
}

// CloseInterfaces dismisses any open game interface.
func (b *Bot) CloseInterfaces() {
	b.synth.Tap("escape", b.randRange(40*time.Millisecond, 90*time.Millisecond))
}
