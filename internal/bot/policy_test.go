package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/scripting"
)

func TestConfigPolicyEquipmentSlotNames(t *testing.T) {
	p := NewConfigPolicy(config.ProfileConfig{
		Equipment: map[string]int{
			"Weapon": 1277,
			"head":   1155,
			"helmet": 9999, // unknown slot name is ignored
		},
	}, nil, nil)

	eq := p.RequiredEquipment()
	assert.Equal(t, 1277, eq[api.EquipWeapon])
	assert.Equal(t, 1155, eq[api.EquipHead])
	assert.Len(t, eq, 2)
}

func TestConfigPolicyEscapeItem(t *testing.T) {
	p := NewConfigPolicy(config.ProfileConfig{EscapeItemID: 8013}, nil, nil)
	id, action, ok := p.EscapeItem()
	require.True(t, ok)
	assert.Equal(t, 8013, id)
	assert.Equal(t, "Break", action, "action defaults when unset")

	p = NewConfigPolicy(config.ProfileConfig{}, nil, nil)
	_, _, ok = p.EscapeItem()
	assert.False(t, ok)
}

func TestConfigPolicyTiles(t *testing.T) {
	p := NewConfigPolicy(config.ProfileConfig{
		BankTile: []int32{3185, 3436, 0},
		WorkTile: []int32{3145, 3450, 1},
	}, nil, nil)

	assert.Equal(t, geometry.WorldCoord{X: 3185, Y: 3436, Plane: 0}, p.BankTile())
	assert.Equal(t, geometry.WorldCoord{X: 3145, Y: 3450, Plane: 1}, p.WorkTile())

	empty := NewConfigPolicy(config.ProfileConfig{}, nil, nil)
	assert.Equal(t, geometry.WorldCoord{}, empty.BankTile())
}

func TestConfigPolicyDefaultsWithoutScript(t *testing.T) {
	p := NewConfigPolicy(config.ProfileConfig{}, nil, nil)

	assert.True(t, p.AcceptTarget(scripting.TargetContext{Busy: false}))
	assert.False(t, p.AcceptTarget(scripting.TargetContext{Busy: true}))
	assert.Equal(t, "none", p.OnLoot(526, 1).Action)
	assert.Equal(t, 1.0, p.CycleDelayScale(0.8))
}

func TestConfigPolicyRespawnFallback(t *testing.T) {
	p := NewConfigPolicy(config.ProfileConfig{}, nil, nil)
	assert.Equal(t, 60*time.Second, p.RespawnTimeout())

	p = NewConfigPolicy(config.ProfileConfig{RespawnTimeout: 25 * time.Second}, nil, nil)
	assert.Equal(t, 25*time.Second, p.RespawnTimeout())
}

func TestPlanWithdraw(t *testing.T) {
	assert.Equal(t, []int{10, 10, 5, 1, 1}, planWithdraw(27))
	assert.Equal(t, []int{10}, planWithdraw(10))
	assert.Equal(t, []int{1, 1, 1}, planWithdraw(3))
	assert.Nil(t, planWithdraw(0))
}
