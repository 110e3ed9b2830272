package bot

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/geometry"
)

func TestTrackerXPBaseline(t *testing.T) {
	tr := NewTracker()

	tr.ObserveStats([]api.StatEntry{
		{Stat: "Mining", XP: 1000},
		{Stat: "Smithing", XP: 500},
	})
	assert.Zero(t, tr.XPGained(), "first poll is the baseline")

	tr.ObserveStats([]api.StatEntry{
		{Stat: "Mining", XP: 1400},
		{Stat: "Smithing", XP: 500},
	})
	assert.Equal(t, int64(400), tr.XPGained())
	assert.Equal(t, map[string]int64{"Mining": 400}, tr.XPBySkill())
}

func TestTrackerXPUnknownBeforeFirstPoll(t *testing.T) {
	tr := NewTracker()
	assert.Zero(t, tr.XPGained())
}

func TestTrackerStatusFrame(t *testing.T) {
	tr := NewTracker()
	base := time.Now()
	tr.now = func() time.Time { return base.Add(90 * time.Second) }

	tr.RecordKill()
	tr.RecordKill()
	tr.RecordLoot()
	tr.RecordBankTrip()
	tr.RecordError()

	st := tr.Status("COMBAT", 0.25, geometry.WorldCoord{X: 3200, Y: 3200, Plane: 0}, 50, 99)
	assert.Equal(t, "COMBAT", st.State)
	assert.Equal(t, 0.25, st.Fatigue)
	assert.Equal(t, int32(3200), st.X)
	assert.Equal(t, 2, st.Kills)
	assert.Equal(t, 1, st.Loots)
	assert.Equal(t, 1, st.BankTrips)
	assert.Equal(t, 1, st.Errors)
	assert.GreaterOrEqual(t, st.RuntimeSec, int64(90))

	totals := tr.Totals()
	assert.Equal(t, 2, totals.Kills)
	assert.Equal(t, 1, totals.BankTrips)
}

func TestFreeSlotsAndCounts(t *testing.T) {
	slots := []api.ItemSlot{
		{ID: 1511, Quantity: 1, Slot: 1},
		{ID: 1511, Quantity: 1, Slot: 2},
		{ID: 379, Quantity: 3, Slot: 3},
		{ID: -1, Quantity: 0, Slot: 4},
	}

	assert.Equal(t, inventorySlots-3, freeSlots(slots))
	assert.Equal(t, 2, countItem(slots, 1511))
	assert.Equal(t, 3, countItem(slots, 379))
	assert.Equal(t, 5, countAny(slots, []int{1511, 379}))

	slot, ok := findSlot(slots, 379)
	assert.True(t, ok)
	assert.Equal(t, 3, slot)
	_, ok = findSlot(slots, 999)
	assert.False(t, ok)
}

func TestSlotPointStaysInsideCell(t *testing.T) {
	cfg := config.InventoryUIConfig{OriginX: 1655, OriginY: 210, SlotWidth: 42, SlotHeight: 36, Columns: 4}
	rng := rand.New(rand.NewSource(9))

	for _, slot := range []int{1, 4, 5, 28} {
		idx := slot - 1
		col := idx % cfg.Columns
		row := idx / cfg.Columns
		minX := cfg.OriginX + col*cfg.SlotWidth
		minY := cfg.OriginY + row*cfg.SlotHeight

		for i := 0; i < 50; i++ {
			p := slotPoint(cfg, slot, rng)
			assert.GreaterOrEqual(t, p.X, minX)
			assert.Less(t, p.X, minX+cfg.SlotWidth)
			assert.GreaterOrEqual(t, p.Y, minY)
			assert.Less(t, p.Y, minY+cfg.SlotHeight)
		}
	}
}
