package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testScript = `
function accept_target(ctx)
    if ctx.busy then return false end
    return ctx.combat_level <= 30
end

function on_loot(item_id, quantity)
    if item_id == 526 then
        return { action = "bury", action_text = "Bury" }
    end
    return { action = "none" }
end

function cycle_delay_scale(fatigue)
    return 1 + fatigue
end
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.lua")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestEngine(t *testing.T, body string) *Engine {
	t.Helper()
	e, err := NewEngine(writeScript(t, body), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestAcceptTargetHook(t *testing.T) {
	e := newTestEngine(t, testScript)

	assert.True(t, e.AcceptTarget(TargetContext{ID: 1, CombatLevel: 12}))
	assert.False(t, e.AcceptTarget(TargetContext{ID: 2, CombatLevel: 80}), "script rejects high levels")
	assert.False(t, e.AcceptTarget(TargetContext{ID: 3, CombatLevel: 12, Busy: true}))
}

func TestAcceptTargetDefaultWithoutHook(t *testing.T) {
	e := newTestEngine(t, "-- empty profile\n")

	assert.True(t, e.AcceptTarget(TargetContext{ID: 1}))
	assert.False(t, e.AcceptTarget(TargetContext{ID: 2, Busy: true}))
}

func TestOnLootDirective(t *testing.T) {
	e := newTestEngine(t, testScript)

	d := e.OnLoot(526, 1)
	assert.Equal(t, "bury", d.Action)
	assert.Equal(t, "Bury", d.ActionText)

	assert.Equal(t, "none", e.OnLoot(995, 40).Action)
}

func TestOnLootDefaultWithoutHook(t *testing.T) {
	e := newTestEngine(t, "-- empty profile\n")
	assert.Equal(t, "none", e.OnLoot(526, 1).Action)
}

func TestCycleDelayScale(t *testing.T) {
	e := newTestEngine(t, testScript)
	assert.InDelta(t, 1.5, e.CycleDelayScale(0.5), 1e-9)
}

func TestCycleDelayScaleGuardsBadValues(t *testing.T) {
	e := newTestEngine(t, "function cycle_delay_scale(f) return -3 end\n")
	assert.Equal(t, 1.0, e.CycleDelayScale(0.5))
}

func TestEmptyPathHasDefaults(t *testing.T) {
	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.AcceptTarget(TargetContext{}))
	assert.Equal(t, 1.0, e.CycleDelayScale(0.9))
}

func TestMissingScriptFileErrors(t *testing.T) {
	_, err := NewEngine("/nonexistent/profile.lua", zap.NewNop())
	assert.Error(t, err)
}

func TestBrokenHookFallsBack(t *testing.T) {
	e := newTestEngine(t, "function on_loot(id, q) error('boom') end\n")
	assert.Equal(t, "none", e.OnLoot(1, 1).Action)
}
