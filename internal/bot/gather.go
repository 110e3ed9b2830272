package bot

import (
	"fmt"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/errhandle"
	"github.com/kaolin/runebot/internal/state"
	"go.uber.org/zap"
)

const (
	animStartTimeout = 6 * time.Second
	animPollInterval = 600 * time.Millisecond
	animIdleGrace    = 2 // consecutive idle polls before the action counts as finished
	workNearbyRange  = 20.0
)

// gatherCycle runs one gathering iteration: reposition, handle a full
// inventory, harvest one node, then wait out the respawn.
func (b *Bot) gatherCycle() {
	if b.deathSeen {
		b.handleDeath()
		return
	}

	slots, ok := b.tel.Inventory()
	if !ok {
		b.report("gather", errhandle.TelemetryUnavailable, nil)
		return
	}
	if freeSlots(slots) == 0 {
		b.handleFullInventory()
		return
	}

	cur, ok := b.position()
	if !ok {
		b.report("gather", errhandle.TelemetryUnavailable, nil)
		return
	}
	work := b.policy.WorkTile()
	if cur.Distance(work) > workNearbyRange {
		b.machine.Transition(state.Walking)
		if !b.nav.WalkTo(work, true) {
			b.report("gather", errhandle.NavigationStuck, fmt.Errorf("cannot reach work area"))
			return
		}
	}

	b.machine.Transition(state.Gathering)
	b.human.ReactionDelay()
	if !b.interact.Interact(b.policy.TargetIDs(), api.KindObject, b.policy.ActionText()) {
		if b.awaitRespawn() {
			return
		}
		b.report("gather", errhandle.ResourceNotFound, fmt.Errorf("no target node reachable"))
		return
	}
	b.human.RecordAction()
	b.errors.Success("gather")

	b.watchHarvest()

	b.maybeSwitchTab()
	b.maybeAttentionPause()
	b.human.PostActionDelay(400 * time.Millisecond)
}

// watchHarvest waits for the skilling animation to start, then polls until
// the avatar has been idle long enough to call the node depleted.
func (b *Bot) watchHarvest() {
	if !b.awaitAnimation(true, animStartTimeout) {
		b.log.Debug("harvest never started")
		return
	}

	idle := 0
	deadline := b.now().Add(b.policy.RespawnTimeout())
	for b.now().Before(deadline) {
		a, ok := b.tel.Animation()
		if !ok {
			b.sleep(animPollInterval)
			continue
		}
		if b.isSkillAnimation(a) {
			idle = 0
		} else if !a.IsMoving {
			idle++
			if idle >= animIdleGrace {
				return
			}
		}
		b.sleep(animPollInterval)
	}
}

// isSkillAnimation reports whether the current animation belongs to the
// configured skill. With no configured set, any animation counts.
func (b *Bot) isSkillAnimation(a api.AnimationSnapshot) bool {
	if !a.IsAnimating {
		return false
	}
	anims := b.policy.SkillAnimations()
	if len(anims) == 0 {
		return true
	}
	for _, id := range anims {
		if a.AnimationID == id {
			return true
		}
	}
	return false
}

// awaitAnimation polls until IsAnimating matches want.
func (b *Bot) awaitAnimation(want bool, timeout time.Duration) bool {
	deadline := b.now().Add(timeout)
	for b.now().Before(deadline) {
		if a, ok := b.tel.Animation(); ok && a.IsAnimating == want {
			return true
		}
		b.sleep(animPollInterval)
	}
	return false
}

// awaitRespawn blocks until a target node is visible again, bounded by the
// respawn timeout. Returns true when one came back.
func (b *Bot) awaitRespawn() bool {
	deadline := b.now().Add(b.policy.RespawnTimeout())
	for b.now().Before(deadline) {
		objs, ok := b.tel.ObjectsInViewport()
		if ok {
			for _, o := range objs {
				if matchesID(o.ID, b.policy.TargetIDs()) {
					return true
				}
			}
		}
		b.sleep(b.randRange(800*time.Millisecond, 1400*time.Millisecond))
	}
	b.log.Debug("respawn wait expired",
		zap.Duration("timeout", b.policy.RespawnTimeout()))
	return false
}

// handleFullInventory banks or power-drops, per profile.
func (b *Bot) handleFullInventory() {
	if dropIDs, enabled := b.policy.PowerDrop(); enabled {
		b.machine.Transition(state.Gathering)
		if n := b.dropAll(dropIDs); n > 0 {
			b.log.Info("power-dropped inventory", zap.Int("stacks", n))
		}
		return
	}
	if !b.policy.BankingEnabled() {
		b.log.Warn("inventory full with banking disabled; stopping")
		b.Stop()
		return
	}
	if b.runBanking() {
		b.errors.Success("banking")
		b.returnToWork()
	}
}

// returnToWork walks back to the work tile after a bank trip.
func (b *Bot) returnToWork() {
	cur, ok := b.position()
	if !ok {
		return
	}
	work := b.policy.WorkTile()
	if cur.Distance(work) <= workNearbyRange {
		return
	}
	b.machine.Transition(state.Walking)
	if !b.nav.WalkTo(work, true) {
		b.report("gather", errhandle.NavigationStuck, fmt.Errorf("cannot return to work area"))
	}
}

// handleDeath reacts to an actor death push event: confirm it was us, then
// stop the session.
func (b *Bot) handleDeath() {
	b.deathSeen = false
	p, ok := b.tel.Player()
	if !ok || p.Health > 0 {
		return
	}
	b.log.Error("avatar died; ending session")
	b.report("death", errhandle.CriticalRuntime, fmt.Errorf("player died"))
}
