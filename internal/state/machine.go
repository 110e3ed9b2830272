// Package state holds the bot lifecycle state machine: a closed state set
// with a validated transition table, time-in-state accounting and per-state
// entry callbacks.
package state

import (
	"time"

	"go.uber.org/zap"
)

// BotState is one high-level activity of the bot lifecycle.
type BotState int

const (
	Idle BotState = iota
	Starting
	Walking
	Gathering
	Combat
	Banking
	Eating
	Looting
	Recovering
	Error
	Break
	Stopping
)

func (s BotState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Starting:
		return "STARTING"
	case Walking:
		return "WALKING"
	case Gathering:
		return "GATHERING"
	case Combat:
		return "COMBAT"
	case Banking:
		return "BANKING"
	case Eating:
		return "EATING"
	case Looting:
		return "LOOTING"
	case Recovering:
		return "RECOVERING"
	case Error:
		return "ERROR"
	case Break:
		return "BREAK"
	case Stopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// transitions is the allowed adjacency table. Idle, Error, Stopping and
// Break are additionally reachable from every state.
var transitions = map[BotState][]BotState{
	Idle:       {Starting, Walking, Gathering, Combat},
	Starting:   {Gathering, Walking, Combat},
	Gathering:  {Banking, Walking},
	Combat:     {Eating, Looting, Banking},
	Eating:     {Combat, Banking},
	Looting:    {Combat, Banking, Idle},
	Walking:    {Gathering, Combat, Banking, Idle},
	Banking:    {Walking, Gathering, Combat},
	Error:      {Recovering, Stopping},
	Recovering: {Idle, Error},
	Break:      {Idle, Starting},
	Stopping:   nil,
}

var universalTargets = []BotState{Idle, Error, Stopping, Break}

// Machine tracks the current state. Single-threaded; owned by the bot loop.
type Machine struct {
	current   BotState
	enteredAt time.Time
	callbacks map[BotState][]func(from BotState)
	log       *zap.Logger
}

// NewMachine starts in Idle.
func NewMachine(log *zap.Logger) *Machine {
	return &Machine{
		current:   Idle,
		enteredAt: time.Now(),
		callbacks: make(map[BotState][]func(from BotState)),
		log:       log,
	}
}

// Current returns the active state.
func (m *Machine) Current() BotState {
	return m.current
}

// TimeInState returns how long the machine has been in the current state.
func (m *Machine) TimeInState() time.Duration {
	return time.Since(m.enteredAt)
}

// OnEnter registers a callback fired after entering the given state.
func (m *Machine) OnEnter(s BotState, fn func(from BotState)) {
	m.callbacks[s] = append(m.callbacks[s], fn)
}

// CanTransition reports whether from → to is in the adjacency table.
func CanTransition(from, to BotState) bool {
	if from == to {
		return true
	}
	for _, t := range universalTargets {
		if to == t {
			return true
		}
	}
	for _, t := range transitions[from] {
		if to == t {
			return true
		}
	}
	return false
}

// Transition moves to the target state. A self-transition is a successful
// no-op. An illegal transition is rejected and logged, never raised.
func (m *Machine) Transition(to BotState) bool {
	if to == m.current {
		return true
	}
	if !CanTransition(m.current, to) {
		m.log.Warn("rejected state transition",
			zap.Stringer("from", m.current), zap.Stringer("to", to))
		return false
	}

	from := m.current
	m.log.Info("state transition",
		zap.Stringer("from", from), zap.Stringer("to", to),
		zap.Duration("time_in_state", m.TimeInState()))
	m.current = to
	m.enteredAt = time.Now()
	for _, fn := range m.callbacks[to] {
		fn(from)
	}
	return true
}
