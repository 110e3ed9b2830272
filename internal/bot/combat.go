package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/errhandle"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/interact"
	"github.com/kaolin/runebot/internal/scripting"
	"github.com/kaolin/runebot/internal/state"
	"go.uber.org/zap"
)

const (
	combatMaxDuration = 60 * time.Second
	combatPoll        = 600 * time.Millisecond
	lootWindow        = 2500 * time.Millisecond
	lootRadius        = 3
)

// combatCycle runs one combat iteration: safety checks, then either monitor
// the fight in progress or engage a fresh target.
func (b *Bot) combatCycle() {
	if b.deathSeen {
		b.handleDeath()
		return
	}

	p, ok := b.tel.Player()
	if !ok {
		b.report("combat", errhandle.TelemetryUnavailable, nil)
		return
	}
	if p.Health <= 0 {
		b.handleDeath()
		return
	}
	if p.HealthPercent() <= b.policy.EscapeThreshold() {
		b.escape()
		return
	}

	if !b.checkSupplies() {
		return
	}

	if c, ok := b.tel.Combat(); ok && c.InCombat {
		b.monitorCombat()
		return
	}

	b.engage(p)
}

// checkSupplies returns false after triggering a restock trip when food
// runs low.
func (b *Bot) checkSupplies() bool {
	slots, ok := b.tel.Inventory()
	if !ok {
		return true
	}
	if countAny(slots, b.policy.FoodIDs()) >= b.policy.MinFoodCount() {
		return true
	}
	if !b.policy.BankingEnabled() {
		b.log.Warn("food exhausted with banking disabled; stopping")
		b.Stop()
		return false
	}
	b.log.Info("food low; banking", zap.Int("min", b.policy.MinFoodCount()))
	if b.runBanking() {
		b.errors.Success("banking")
		b.returnToWork()
	}
	return false
}

// engage picks the nearest acceptable target and attacks it.
func (b *Bot) engage(p api.PlayerSnapshot) {
	e, ok := b.interact.Find(b.policy.TargetIDs(), api.KindNpc)
	if !ok {
		b.report("combat", errhandle.ResourceNotFound, fmt.Errorf("no target in range"))
		return
	}

	busy := e.InteractingWith != nil && *e.InteractingWith != p.Name
	dist := 0.0
	if cur, ok := b.position(); ok {
		dist = cur.Distance(e.Coord)
	}
	if !b.policy.AcceptTarget(scripting.TargetContext{
		ID:            e.ID,
		Name:          e.Name,
		CombatLevel:   0,
		HealthPercent: 100,
		Distance:      dist,
		Busy:          busy,
	}) {
		return
	}

	action := b.policy.ActionText()
	if action == "" {
		action = "Attack"
	}
	b.human.ReactionDelay()
	if !b.interact.Click(e, action) {
		b.report("combat", errhandle.InteractionFailed, fmt.Errorf("attack click failed"))
		return
	}
	b.human.RecordAction()
	b.errors.Success("combat")
	b.machine.Transition(state.Combat)
	b.monitorCombat()
}

// monitorCombat watches the fight: eats under the food threshold, flees
// under the escape threshold, and counts a kill with its loot sweep every
// time the target drops or is replaced.
func (b *Bot) monitorCombat() {
	b.machine.Transition(state.Combat)

	var last api.CombatTarget
	hadTarget := false

	deadline := b.now().Add(combatMaxDuration)
	for b.now().Before(deadline) {
		p, ok := b.tel.Player()
		if ok {
			if p.HealthPercent() <= b.policy.EscapeThreshold() {
				b.escape()
				return
			}
			if p.HealthPercent() < b.policy.FoodThreshold() {
				b.machine.Transition(state.Eating)
				if !b.eatFood() {
					b.log.Warn("below food threshold with no food left")
				}
				b.machine.Transition(state.Combat)
			}
		}

		c, ok := b.tel.Combat()
		if !ok {
			b.sleep(combatPoll)
			continue
		}
		switch {
		case c.Target != nil && !c.Target.IsDying:
			// A replacement with the same name only betrays itself by
			// the position shift; the previous target is down either way.
			if hadTarget && (c.Target.Position != last.Position || c.Target.ID != last.ID) {
				b.tracker.RecordKill()
				b.lootSweep()
			}
			last = *c.Target
			hadTarget = true
		case hadTarget:
			hadTarget = false
			b.tracker.RecordKill()
			b.lootSweep()
		}
		if !c.InCombat {
			break
		}
		b.sleep(combatPoll)
	}

	b.maybeSwitchTab()
	b.maybeAttentionPause()
	b.human.PostActionDelay(400 * time.Millisecond)
}

// lootSweep picks up wanted drops around the avatar inside the loot window.
func (b *Bot) lootSweep() {
	b.machine.Transition(state.Looting)
	defer b.machine.Transition(state.Combat)

	pos, ok := b.position()
	if !ok {
		return
	}

	deadline := b.now().Add(lootWindow)
	for b.now().Before(deadline) {
		items, ok := b.tel.GroundItems(pos.X, pos.Y, pos.Plane, lootRadius)
		if !ok {
			b.sleep(combatPoll)
			continue
		}
		for _, g := range items {
			if !matchesID(g.ID, b.policy.LootIDs()) {
				continue
			}
			if b.lootItem(g, "Take") {
				b.tracker.RecordLoot()
				b.human.RecordAction()
				b.applyLootDirective(g)
			}
		}
		b.sleep(combatPoll)
	}
}

// applyLootDirective runs the scripted post-pickup action on a looted item:
// bury bones, drop junk, any custom inventory verb.
func (b *Bot) applyLootDirective(g api.GroundItemSnapshot) {
	d := b.policy.OnLoot(g.ID, g.Quantity)
	if d.Action == "" || d.Action == "none" {
		return
	}
	action := d.ActionText
	if action == "" {
		action = strings.ToUpper(d.Action[:1]) + d.Action[1:]
	}
	if b.clickInventoryItem(g.ID, action) {
		b.human.RecordAction()
		b.human.PostActionDelay(300 * time.Millisecond)
	}
}

// lootItem clicks a ground item through the tile's projected screen point,
// rotating the camera when the tile is off screen.
func (b *Bot) lootItem(g api.GroundItemSnapshot, action string) bool {
	tile := geometry.WorldCoord{X: g.WorldX, Y: g.WorldY, Plane: g.Plane}

	rot, ok := b.tel.CameraRotationTo(g.WorldX, g.WorldY, g.Plane)
	if !ok {
		return false
	}
	if !rot.Visible || rot.ScreenX == nil || rot.ScreenY == nil {
		if b.camera == nil || !b.camera.MakeVisible(tile) {
			return false
		}
		rot, ok = b.tel.CameraRotationTo(g.WorldX, g.WorldY, g.Plane)
		if !ok || rot.ScreenX == nil || rot.ScreenY == nil {
			return false
		}
	}

	e := interact.Entity{
		ID:      g.ID,
		Name:    g.Name,
		Coord:   tile,
		ScreenX: rot.ScreenX,
		ScreenY: rot.ScreenY,
	}
	return b.interact.Click(e, action)
}

// escape is the low-health bail-out: use the escape item when one is
// configured, settle the machine through recovery, then run for the bank.
// Without a teleport the only exit that outruns the damage is logging out.
func (b *Bot) escape() {
	b.tracker.RecordEscape()
	b.log.Warn("escape threshold crossed; fleeing")

	id, action, ok := b.policy.EscapeItem()
	if !ok {
		b.machine.Transition(state.Error)
		b.machine.Transition(state.Recovering)
		if !b.Logout(20 * time.Second) {
			b.log.Error("logout failed during escape")
		}
		b.Stop()
		return
	}

	if b.clickInventoryItem(id, action) {
		b.human.RecordAction()
		b.sleep(b.randRange(2*time.Second, 4*time.Second))
	}

	b.machine.Transition(state.Error)
	b.machine.Transition(state.Recovering)
	b.machine.Transition(state.Idle)

	b.machine.Transition(state.Walking)
	if !b.nav.WalkTo(b.policy.BankTile(), true) {
		b.report("escape", errhandle.NavigationStuck, fmt.Errorf("flee route failed"))
		return
	}
	if b.policy.BankingEnabled() && b.runBanking() {
		b.errors.Success("banking")
	}
}
