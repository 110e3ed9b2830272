package bot

import (
	"math/rand"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/geometry"
)

// inventorySlots is the fixed container size. Slot indices run 1..28.
const inventorySlots = 28

// freeSlots counts empty inventory positions. Telemetry reports occupied
// slots only; an id of -1 also marks an empty position.
func freeSlots(slots []api.ItemSlot) int {
	used := 0
	for _, s := range slots {
		if s.ID >= 0 {
			used++
		}
	}
	if used > inventorySlots {
		used = inventorySlots
	}
	return inventorySlots - used
}

// countItem sums the quantity of itemID across the container.
func countItem(slots []api.ItemSlot, itemID int) int {
	total := 0
	for _, s := range slots {
		if s.ID == itemID {
			total += s.Quantity
		}
	}
	return total
}

// countAny sums quantities across all of the given item ids.
func countAny(slots []api.ItemSlot, ids []int) int {
	total := 0
	for _, id := range ids {
		total += countItem(slots, id)
	}
	return total
}

// findSlot returns the first slot index holding itemID.
func findSlot(slots []api.ItemSlot, itemID int) (int, bool) {
	for _, s := range slots {
		if s.ID == itemID {
			return s.Slot, true
		}
	}
	return 0, false
}

// slotPoint maps a 1-based inventory slot index onto a jittered screen point
// inside the slot's cell of the on-screen grid.
func slotPoint(cfg config.InventoryUIConfig, slot int, rng *rand.Rand) geometry.Point {
	idx := slot - 1
	if idx < 0 {
		idx = 0
	}
	cols := cfg.Columns
	if cols <= 0 {
		cols = 4
	}
	col := idx % cols
	row := idx / cols

	// Center of the cell, jittered to a third of the cell either way.
	x := cfg.OriginX + col*cfg.SlotWidth + cfg.SlotWidth/2
	y := cfg.OriginY + row*cfg.SlotHeight + cfg.SlotHeight/2
	x += rng.Intn(cfg.SlotWidth/3+1) - cfg.SlotWidth/6
	y += rng.Intn(cfg.SlotHeight/3+1) - cfg.SlotHeight/6
	return geometry.Point{X: x, Y: y}
}

// clickInventoryItem selects action on the first slot holding itemID.
func (b *Bot) clickInventoryItem(itemID int, action string) bool {
	slots, ok := b.tel.Inventory()
	if !ok {
		return false
	}
	slot, found := findSlot(slots, itemID)
	if !found {
		return false
	}
	p := slotPoint(b.invUI, slot, b.rng)
	return b.interact.ClickAt(p, action)
}

// eatFood eats one piece of the first available configured food.
func (b *Bot) eatFood() bool {
	for _, id := range b.policy.FoodIDs() {
		if b.clickInventoryItem(id, "Eat") {
			b.tracker.RecordEat()
			b.human.RecordAction()
			b.human.PostActionDelay(600 * time.Millisecond)
			return true
		}
	}
	return false
}

// dropAll drops every slot holding one of the given ids.
func (b *Bot) dropAll(ids []int) int {
	slots, ok := b.tel.Inventory()
	if !ok {
		return 0
	}
	dropped := 0
	for _, s := range slots {
		if s.ID < 0 || !matchesID(s.ID, ids) {
			continue
		}
		p := slotPoint(b.invUI, s.Slot, b.rng)
		if b.interact.ClickAt(p, "Drop") {
			dropped++
			b.human.RecordAction()
			b.human.PostActionDelay(200 * time.Millisecond)
		}
	}
	return dropped
}

func matchesID(id int, ids []int) bool {
	for _, want := range ids {
		if id == want {
			return true
		}
	}
	return false
}
