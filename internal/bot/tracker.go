package bot

import (
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/monitor"
	"github.com/kaolin/runebot/internal/persist"
)

// Tracker accumulates per-session statistics. Owned by the bot loop.
type Tracker struct {
	startedAt time.Time

	xpBase  int64
	xpSeen  int64
	xpKnown bool

	skillBase map[string]int64
	skillSeen map[string]int64

	kills     int
	loots     int
	bankTrips int
	eats      int
	escapes   int
	errors    int

	now func() time.Time
}

func NewTracker() *Tracker {
	t := &Tracker{
		skillBase: make(map[string]int64),
		skillSeen: make(map[string]int64),
		now:       time.Now,
	}
	t.startedAt = t.now()
	return t
}

// ObserveStats folds a /stats poll into the XP counters. The first readable
// poll becomes the baseline.
func (t *Tracker) ObserveStats(stats []api.StatEntry) {
	total := sumXP(stats)
	if !t.xpKnown {
		t.xpBase = total
		t.xpKnown = true
		for _, s := range stats {
			t.skillBase[s.Stat] = s.XP
		}
	}
	t.xpSeen = total
	for _, s := range stats {
		t.skillSeen[s.Stat] = s.XP
	}
}

// XPBySkill returns the nonzero per-skill XP deltas since the baseline.
func (t *Tracker) XPBySkill() map[string]int64 {
	out := make(map[string]int64)
	for skill, xp := range t.skillSeen {
		if d := xp - t.skillBase[skill]; d != 0 {
			out[skill] = d
		}
	}
	return out
}

// XPGained returns total XP earned since the baseline poll.
func (t *Tracker) XPGained() int64 {
	if !t.xpKnown {
		return 0
	}
	return t.xpSeen - t.xpBase
}

func (t *Tracker) RecordKill()     { t.kills++ }
func (t *Tracker) RecordLoot()     { t.loots++ }
func (t *Tracker) RecordBankTrip() { t.bankTrips++ }
func (t *Tracker) RecordEat()      { t.eats++ }
func (t *Tracker) RecordEscape()   { t.escapes++ }
func (t *Tracker) RecordError()    { t.errors++ }

func (t *Tracker) Kills() int     { return t.kills }
func (t *Tracker) Loots() int     { return t.loots }
func (t *Tracker) BankTrips() int { return t.bankTrips }
func (t *Tracker) Eats() int      { return t.eats }
func (t *Tracker) Escapes() int   { return t.escapes }
func (t *Tracker) Errors() int    { return t.errors }

// Runtime returns elapsed wall time since the tracker was created.
func (t *Tracker) Runtime() time.Duration {
	return t.now().Sub(t.startedAt)
}

// Status assembles a monitor frame from the counters plus live readings.
func (t *Tracker) Status(state string, fatigue float64, pos geometry.WorldCoord, health, maxHealth int) monitor.Status {
	return monitor.Status{
		State:      state,
		Fatigue:    fatigue,
		X:          pos.X,
		Y:          pos.Y,
		Plane:      pos.Plane,
		Health:     health,
		MaxHealth:  maxHealth,
		XPGained:   t.XPGained(),
		Kills:      t.kills,
		Loots:      t.loots,
		BankTrips:  t.bankTrips,
		Errors:     t.errors,
		RuntimeSec: int64(t.Runtime() / time.Second),
	}
}

// Totals converts the counters into the persistence row shape.
func (t *Tracker) Totals() persist.Totals {
	return persist.Totals{
		XPGained:  t.XPGained(),
		Kills:     t.kills,
		Loots:     t.loots,
		BankTrips: t.bankTrips,
		Errors:    t.errors,
	}
}

func sumXP(stats []api.StatEntry) int64 {
	var total int64
	for _, s := range stats {
		total += s.XP
	}
	return total
}
