package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdjacencyTable(t *testing.T) {
	tests := []struct {
		from, to BotState
		allowed  bool
	}{
		{Idle, Starting, true},
		{Idle, Gathering, true},
		{Idle, Eating, false},
		{Starting, Combat, true},
		{Gathering, Banking, true},
		{Gathering, Combat, false},
		{Combat, Eating, true},
		{Combat, Walking, false},
		{Eating, Combat, true},
		{Looting, Idle, true},
		{Walking, Banking, true},
		{Banking, Gathering, true},
		{Error, Recovering, true},
		{Error, Walking, false},
		{Recovering, Idle, true},
		{Break, Starting, true},
		{Break, Combat, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestUniversalTargets(t *testing.T) {
	all := []BotState{Idle, Starting, Walking, Gathering, Combat, Banking,
		Eating, Looting, Recovering, Error, Break, Stopping}
	for _, from := range all {
		for _, to := range []BotState{Idle, Error, Stopping, Break} {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestInvalidTransitionIsNoOp(t *testing.T) {
	m := NewMachine(zap.NewNop())
	require.True(t, m.Transition(Starting))
	assert.False(t, m.Transition(Banking), "STARTING -> BANKING not allowed")
	assert.Equal(t, Starting, m.Current(), "state unchanged after rejection")
}

func TestSelfTransitionSucceeds(t *testing.T) {
	m := NewMachine(zap.NewNop())
	require.True(t, m.Transition(Walking))
	entered := m.TimeInState()
	time.Sleep(2 * time.Millisecond)
	assert.True(t, m.Transition(Walking))
	assert.GreaterOrEqual(t, m.TimeInState(), entered, "self-transition does not reset the clock")
}

func TestEntryCallbacks(t *testing.T) {
	m := NewMachine(zap.NewNop())
	var got []BotState
	m.OnEnter(Walking, func(from BotState) { got = append(got, from) })

	m.Transition(Walking)
	require.Equal(t, []BotState{Idle}, got)

	// Self-transition must not re-fire.
	m.Transition(Walking)
	assert.Len(t, got, 1)
}

func TestTimeInStateResets(t *testing.T) {
	m := NewMachine(zap.NewNop())
	m.Transition(Starting)
	time.Sleep(5 * time.Millisecond)
	require.GreaterOrEqual(t, m.TimeInState(), 5*time.Millisecond)
	m.Transition(Walking)
	assert.Less(t, m.TimeInState(), 5*time.Millisecond)
}

func TestRecoveryCycle(t *testing.T) {
	m := NewMachine(zap.NewNop())
	require.True(t, m.Transition(Combat))
	require.True(t, m.Transition(Error))
	require.True(t, m.Transition(Recovering))
	require.True(t, m.Transition(Idle))
}
