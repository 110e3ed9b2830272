package bot

import (
	"strings"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/data"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/scripting"
)

// Policy supplies everything profile-specific to the core loops: targets,
// thresholds, layouts and the optional Lua hooks.
type Policy interface {
	Mode() string
	TargetIDs() []int
	ActionText() string
	LootIDs() []int
	FoodIDs() []int
	FoodThreshold() int
	EscapeThreshold() int
	EscapeItem() (id int, action string, ok bool)
	MinFoodCount() int
	SkillAnimations() []int
	RespawnTimeout() time.Duration
	BankObjectIDs() []int
	BankTile() geometry.WorldCoord
	WorkTile() geometry.WorldCoord
	BankingEnabled() bool
	PowerDrop() ([]int, bool)
	RequiredEquipment() map[int]int // equipment slot index → item id
	InventoryLayout() []config.InventoryRequirement
	AcceptTarget(ctx scripting.TargetContext) bool
	OnLoot(itemID, quantity int) scripting.LootDirective
	OnBankVisit(trips int)
	CycleDelayScale(fatigue float64) float64
}

// equipSlotNames maps profile slot names onto equipment indices.
var equipSlotNames = map[string]int{
	"head":   api.EquipHead,
	"cape":   api.EquipCape,
	"neck":   api.EquipNeck,
	"weapon": api.EquipWeapon,
	"body":   api.EquipBody,
	"shield": api.EquipShield,
	"legs":   api.EquipLegs,
	"hands":  api.EquipHands,
	"feet":   api.EquipFeet,
	"ring":   api.EquipRing,
	"ammo":   api.EquipAmmo,
}

// ConfigPolicy is the standard Policy built from the TOML profile, the
// static tables and the optional Lua script.
type ConfigPolicy struct {
	profile config.ProfileConfig
	tables  *data.Tables
	engine  *scripting.Engine // nil when no script is configured

	equipment map[int]int
	skillAnim []int
	respawn   time.Duration
	bankIDs   []int
	foodIDs   []int
}

// NewConfigPolicy resolves the profile against the tables.
func NewConfigPolicy(profile config.ProfileConfig, tables *data.Tables, engine *scripting.Engine) *ConfigPolicy {
	p := &ConfigPolicy{
		profile: profile,
		tables:  tables,
		engine:  engine,
		respawn: profile.RespawnTimeout,
		bankIDs: profile.BankObjectIDs,
		foodIDs: profile.FoodIDs,
	}

	p.equipment = make(map[int]int, len(profile.Equipment))
	for name, itemID := range profile.Equipment {
		if slot, ok := equipSlotNames[strings.ToLower(name)]; ok {
			p.equipment[slot] = itemID
		}
	}

	// A single configured animation id wins; otherwise consult the table
	// keyed by the animation's skill.
	if profile.SkillAnimation != 0 {
		p.skillAnim = []int{profile.SkillAnimation}
		if tables != nil {
			if skill, ok := tables.SkillForAnimation(profile.SkillAnimation); ok {
				if a := tables.Animation(skill); a != nil {
					p.skillAnim = a.AnimationIDs
					if p.respawn == 0 {
						p.respawn = a.RespawnTimeout
					}
				}
			}
		}
	}
	if p.respawn == 0 {
		p.respawn = 60 * time.Second
	}

	if len(p.bankIDs) == 0 && tables != nil {
		p.bankIDs = tables.BankObjectIDs()
	}
	if len(p.foodIDs) == 0 && tables != nil {
		p.foodIDs = tables.FoodIDs()
	}

	return p
}

func (p *ConfigPolicy) Mode() string       { return p.profile.Mode }
func (p *ConfigPolicy) TargetIDs() []int   { return p.profile.TargetIDs }
func (p *ConfigPolicy) ActionText() string { return p.profile.ActionText }
func (p *ConfigPolicy) LootIDs() []int     { return p.profile.LootIDs }
func (p *ConfigPolicy) FoodIDs() []int     { return p.foodIDs }

func (p *ConfigPolicy) FoodThreshold() int            { return p.profile.FoodThreshold }
func (p *ConfigPolicy) EscapeThreshold() int          { return p.profile.EscapeThreshold }
func (p *ConfigPolicy) MinFoodCount() int             { return p.profile.MinFoodCount }
func (p *ConfigPolicy) SkillAnimations() []int        { return p.skillAnim }
func (p *ConfigPolicy) RespawnTimeout() time.Duration { return p.respawn }
func (p *ConfigPolicy) BankObjectIDs() []int          { return p.bankIDs }
func (p *ConfigPolicy) BankingEnabled() bool          { return p.profile.Banking }

func (p *ConfigPolicy) EscapeItem() (int, string, bool) {
	if p.profile.EscapeItemID == 0 {
		return 0, "", false
	}
	action := p.profile.EscapeAction
	if action == "" {
		action = "Break"
	}
	return p.profile.EscapeItemID, action, true
}

func (p *ConfigPolicy) BankTile() geometry.WorldCoord { return tileFromSlice(p.profile.BankTile) }
func (p *ConfigPolicy) WorkTile() geometry.WorldCoord { return tileFromSlice(p.profile.WorkTile) }

func (p *ConfigPolicy) PowerDrop() ([]int, bool) {
	return p.profile.DropIDs, p.profile.PowerDrop
}

func (p *ConfigPolicy) RequiredEquipment() map[int]int { return p.equipment }

func (p *ConfigPolicy) InventoryLayout() []config.InventoryRequirement {
	return p.profile.InventoryLayout
}

func (p *ConfigPolicy) AcceptTarget(ctx scripting.TargetContext) bool {
	if p.engine == nil {
		return !ctx.Busy
	}
	return p.engine.AcceptTarget(ctx)
}

func (p *ConfigPolicy) OnLoot(itemID, quantity int) scripting.LootDirective {
	if p.engine == nil {
		return scripting.LootDirective{Action: "none"}
	}
	return p.engine.OnLoot(itemID, quantity)
}

func (p *ConfigPolicy) OnBankVisit(trips int) {
	if p.engine != nil {
		p.engine.OnBankVisit(trips)
	}
}

func (p *ConfigPolicy) CycleDelayScale(fatigue float64) float64 {
	if p.engine == nil {
		return 1
	}
	return p.engine.CycleDelayScale(fatigue)
}

func tileFromSlice(s []int32) geometry.WorldCoord {
	if len(s) < 3 {
		return geometry.WorldCoord{}
	}
	return geometry.WorldCoord{X: s[0], Y: s[1], Plane: int8(s[2])}
}
