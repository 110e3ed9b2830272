// Package scripting embeds a Lua VM for per-profile policy hooks: loot
// handling, target filtering and cycle pacing stay scriptable without
// rebuilding the bot.
package scripting

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for policy hook execution.
// Single-goroutine access only (bot loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads the profile script. An empty
// path yields an engine whose hooks all return their defaults.
func NewEngine(scriptPath string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if scriptPath != "" {
		if _, err := os.Stat(scriptPath); err != nil {
			vm.Close()
			return nil, fmt.Errorf("profile script %s: %w", scriptPath, err)
		}
		if err := vm.DoFile(scriptPath); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s: %w", scriptPath, err)
		}
		log.Debug("loaded lua script", zap.String("file", scriptPath))
	}

	return e, nil
}

// TargetContext holds pre-packed data for a target acceptance decision.
type TargetContext struct {
	ID            int
	Name          string
	CombatLevel   int
	HealthPercent int // -1 when no health bar is shown
	Distance      float64
	Busy          bool // already interacting with another player
}

// AcceptTarget calls Lua accept_target(ctx). Missing hook accepts
// everything not busy.
func (e *Engine) AcceptTarget(ctx TargetContext) bool {
	fn := e.vm.GetGlobal("accept_target")
	if fn == lua.LNil {
		return !ctx.Busy
	}

	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ctx.ID))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("combat_level", lua.LNumber(ctx.CombatLevel))
	t.RawSetString("health_percent", lua.LNumber(ctx.HealthPercent))
	t.RawSetString("distance", lua.LNumber(ctx.Distance))
	t.RawSetString("busy", lua.LBool(ctx.Busy))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua accept_target error", zap.Error(err), zap.Int("id", ctx.ID))
		return !ctx.Busy
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result == lua.LTrue
}

// LootDirective is the post-pickup instruction for one looted item.
type LootDirective struct {
	Action     string // "none", "bury", "alch", "drop", or a custom verb
	ActionText string // menu option to click when Action needs one
}

// OnLoot calls Lua on_loot(item_id, quantity). Missing hook keeps the item.
func (e *Engine) OnLoot(itemID, quantity int) LootDirective {
	fn := e.vm.GetGlobal("on_loot")
	if fn == lua.LNil {
		return LootDirective{Action: "none"}
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(itemID), lua.LNumber(quantity)); err != nil {
		e.log.Error("lua on_loot error", zap.Error(err), zap.Int("item_id", itemID))
		return LootDirective{Action: "none"}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return LootDirective{Action: "none"}
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return LootDirective{Action: "none"}
	}

	d := LootDirective{
		Action:     lStr(rt, "action"),
		ActionText: lStr(rt, "action_text"),
	}
	if d.Action == "" {
		d.Action = "none"
	}
	return d
}

// CycleDelayScale calls Lua cycle_delay_scale(fatigue). Missing hook or a
// non-positive result leaves pacing unchanged.
func (e *Engine) CycleDelayScale(fatigue float64) float64 {
	fn := e.vm.GetGlobal("cycle_delay_scale")
	if fn == lua.LNil {
		return 1
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(fatigue)); err != nil {
		e.log.Error("lua cycle_delay_scale error", zap.Error(err))
		return 1
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	scale := float64(lua.LVAsNumber(result))
	if scale <= 0 {
		return 1
	}
	return scale
}

// OnBankVisit calls Lua on_bank_visit(trips). Fire-and-forget.
func (e *Engine) OnBankVisit(trips int) {
	fn := e.vm.GetGlobal("on_bank_visit")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(trips)); err != nil {
		e.log.Error("lua on_bank_visit error", zap.Error(err))
	}
}

// --- Lua helpers ---

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
