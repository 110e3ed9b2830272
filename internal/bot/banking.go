package bot

import (
	"fmt"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/errhandle"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/state"
	"go.uber.org/zap"
)

const (
	bankOpenTimeout  = 15 * time.Second
	bankPollInterval = 500 * time.Millisecond
	bankNearbyRange  = 15.0
)

// runBanking executes one full bank trip: reach the bank, deposit, restock
// per the inventory layout and equipment requirements, eat up, close.
func (b *Bot) runBanking() bool {
	// Banking is not adjacent to Idle or Starting; route through Walking.
	if !b.machine.Transition(state.Banking) {
		if !b.machine.Transition(state.Walking) || !b.machine.Transition(state.Banking) {
			return false
		}
	}

	if !b.ensureBankOpen() {
		b.report("banking", errhandle.InteractionFailed, fmt.Errorf("bank would not open"))
		return false
	}

	b.depositSpares()
	b.reconcileEquipment()
	if !b.reconcileInventory() {
		b.report("banking", errhandle.ResourceNotFound, fmt.Errorf("bank missing required items"))
		b.closeBank()
		return false
	}
	b.eatToFull()
	b.closeBank()

	b.tracker.RecordBankTrip()
	b.policy.OnBankVisit(b.tracker.BankTrips())
	b.human.PostActionDelay(500 * time.Millisecond)
	return true
}

// ensureBankOpen walks to the bank when it is far and clicks a bank object
// until the bank interface reports open.
func (b *Bot) ensureBankOpen() bool {
	if w, ok := b.tel.Widgets(); ok && w.IsBankOpen {
		return true
	}

	cur, ok := b.position()
	if !ok {
		return false
	}
	bankTile := b.policy.BankTile()
	if cur.Distance(bankTile) > bankNearbyRange {
		if !b.nav.WalkTo(bankTile, true) {
			return false
		}
	}

	if !b.interact.Interact(b.policy.BankObjectIDs(), api.KindObject, "Bank") {
		return false
	}
	return b.awaitWidget(func(w api.WidgetsSnapshot) bool { return w.IsBankOpen }, bankOpenTimeout)
}

// depositSpares deposits every stack that neither the layout nor the food
// list wants kept.
func (b *Bot) depositSpares() {
	slots, ok := b.tel.Inventory()
	if !ok {
		return
	}
	keep := b.keepIDs()
	for _, s := range slots {
		if s.ID < 0 || matchesID(s.ID, keep) {
			continue
		}
		p := slotPoint(b.invUI, s.Slot, b.rng)
		if b.interact.ClickAt(p, "Deposit-All") {
			b.human.RecordAction()
			b.human.PostActionDelay(150 * time.Millisecond)
		}
	}
}

func (b *Bot) keepIDs() []int {
	var keep []int
	for _, req := range b.policy.InventoryLayout() {
		keep = append(keep, req.ItemID)
	}
	keep = append(keep, b.policy.FoodIDs()...)
	return keep
}

// reconcileEquipment withdraws and wields anything the required-equipment
// map says is missing.
func (b *Bot) reconcileEquipment() {
	required := b.policy.RequiredEquipment()
	if len(required) == 0 {
		return
	}
	equipped, ok := b.tel.Equipment()
	if !ok {
		return
	}
	worn := make(map[int]int, len(equipped))
	for _, s := range equipped {
		if s.ID >= 0 {
			worn[s.Slot] = s.ID
		}
	}

	for slot, itemID := range required {
		if worn[slot] == itemID {
			continue
		}
		if !b.withdraw(itemID, 1, false) {
			b.log.Warn("equipment item unavailable", zap.Int("item_id", itemID))
			continue
		}
		// Wielding from the bank interface equips directly.
		if b.clickInventoryItem(itemID, "Wield") || b.clickInventoryItem(itemID, "Wear") {
			b.human.RecordAction()
			b.human.PostActionDelay(300 * time.Millisecond)
		}
	}
}

// reconcileInventory withdraws each layout requirement up to its count.
// Returns false when a required stack cannot be filled at all.
func (b *Bot) reconcileInventory() bool {
	for _, req := range b.policy.InventoryLayout() {
		slots, ok := b.tel.Inventory()
		if !ok {
			return false
		}
		have := countItem(slots, req.ItemID)
		if req.WithdrawAll {
			if have == 0 && !b.withdraw(req.ItemID, 0, true) {
				return false
			}
			continue
		}
		if have >= req.Count {
			continue
		}
		if !b.withdraw(req.ItemID, req.Count-have, false) {
			return false
		}
	}
	return true
}

// planWithdraw decomposes a target count into the menu's withdraw batch
// sizes, largest first.
func planWithdraw(count int) []int {
	var batches []int
	for _, size := range []int{10, 5, 1} {
		for count >= size {
			batches = append(batches, size)
			count -= size
		}
	}
	return batches
}

// withdraw pulls count of itemID from the open bank, or the whole stack
// when all is set.
func (b *Bot) withdraw(itemID, count int, all bool) bool {
	if all {
		return b.clickBankItem(itemID, "Withdraw-All")
	}
	for _, batch := range planWithdraw(count) {
		if !b.clickBankItem(itemID, fmt.Sprintf("Withdraw-%d", batch)) {
			return false
		}
		b.human.RecordAction()
		b.human.PostActionDelay(150 * time.Millisecond)
	}
	return true
}

// clickBankItem selects action on the bank stack holding itemID, using its
// reported widget box.
func (b *Bot) clickBankItem(itemID int, action string) bool {
	slots, ok := b.tel.Bank()
	if !ok {
		return false
	}
	for _, s := range slots {
		if s.ID != itemID {
			continue
		}
		if s.Widget == nil || !s.Widget.Visible {
			return false
		}
		box := geometry.NewRegion(s.Widget.X+2, s.Widget.Y+2, s.Widget.Width-4, s.Widget.Height-4)
		return b.interact.ClickAt(box.RandomPoint(b.rng), action)
	}
	return false
}

// eatToFull tops health off from bank stock: withdraw one food, eat it,
// repeat until 90% health or the bank runs dry. Runs after the layout
// reconcile; each withdraw+eat pair leaves the pack counts unchanged.
func (b *Bot) eatToFull() {
	for i := 0; i < inventorySlots; i++ {
		p, ok := b.tel.Player()
		if !ok || p.HealthPercent() >= 90 {
			return
		}
		if !b.withdrawBankFood() {
			return
		}
		if !b.eatFood() {
			return
		}
	}
}

// withdrawBankFood pulls a single piece of the first configured food the
// open bank still holds.
func (b *Bot) withdrawBankFood() bool {
	stock, ok := b.tel.Bank()
	if !ok {
		return false
	}
	for _, id := range b.policy.FoodIDs() {
		if countItem(stock, id) == 0 {
			continue
		}
		if b.withdraw(id, 1, false) {
			return true
		}
	}
	return false
}

func (b *Bot) closeBank() {
	b.synth.Tap("escape", b.randRange(40*time.Millisecond, 90*time.Millisecond))
	b.awaitWidget(func(w api.WidgetsSnapshot) bool { return !w.IsBankOpen }, 3*time.Second)
}

// awaitWidget polls /widgets until cond holds or the timeout lapses.
func (b *Bot) awaitWidget(cond func(api.WidgetsSnapshot) bool, timeout time.Duration) bool {
	deadline := b.now().Add(timeout)
	for b.now().Before(deadline) {
		if w, ok := b.tel.Widgets(); ok && cond(w) {
			return true
		}
		b.sleep(bankPollInterval)
	}
	return false
}

func (b *Bot) position() (geometry.WorldCoord, bool) {
	c, ok := b.tel.Coords()
	if !ok {
		return geometry.WorldCoord{}, false
	}
	return c.Coord(), true
}
