// Package errhandle classifies runtime failures, tracks repeat offenders
// and drives the emergency shutdown sequence.
package errhandle

import (
	"time"

	"github.com/kaolin/runebot/internal/state"
	"go.uber.org/zap"
)

// Kind is the closed set of failure categories the core can report.
type Kind string

const (
	TelemetryUnavailable Kind = "telemetry_unavailable"
	TelemetryMalformed   Kind = "telemetry_malformed"
	ResourceNotFound     Kind = "resource_not_found"
	PathNotFound         Kind = "path_not_found"
	NavigationStuck      Kind = "navigation_stuck"
	InteractionFailed    Kind = "interaction_failed"
	CombatLost           Kind = "combat_lost"
	LogoutFailed         Kind = "logout_failed"
	LoginFailed          Kind = "login_failed"
	ConfigInvalid        Kind = "config_invalid"
	CriticalRuntime      Kind = "critical_runtime"
)

// Severity orders failures by how hard they stop the bot.
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ShouldShutdown reports whether this severity triggers the emergency
// sequence.
func (s Severity) ShouldShutdown() bool {
	return s >= High
}

const (
	maxLogEntries  = 100
	escalateStreak = 3
)

// Entry is one retained failure record.
type Entry struct {
	Time     time.Time
	Task     string
	Kind     Kind
	Severity Severity
	Message  string
}

// Shutdowner is the surface the emergency sequence acts on.
type Shutdowner interface {
	ClearRunning()
	StopTasks()
	CloseInterfaces()
	Logout(timeout time.Duration) bool
}

// Handler is the per-runtime failure sink. Owned by the bot loop.
type Handler struct {
	log *zap.Logger

	entries  []Entry
	lastTask string
	streak   int

	now func() time.Time
}

// NewHandler returns an empty handler.
func NewHandler(log *zap.Logger) *Handler {
	return &Handler{log: log, now: time.Now}
}

// Report records a failure and returns its classified severity.
func (h *Handler) Report(task string, kind Kind, err error) Severity {
	if task == h.lastTask {
		h.streak++
	} else {
		h.lastTask = task
		h.streak = 1
	}

	sev := h.classify(kind)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	h.append(Entry{Time: h.now(), Task: task, Kind: kind, Severity: sev, Message: msg})

	h.log.Warn("task failure",
		zap.String("task", task),
		zap.String("kind", string(kind)),
		zap.Stringer("severity", sev),
		zap.Int("streak", h.streak),
		zap.Error(err))
	return sev
}

// Success clears the failure streak for a task that completed.
func (h *Handler) Success(task string) {
	if task == h.lastTask {
		h.lastTask = ""
		h.streak = 0
	}
}

// Entries returns a copy of the retained failure log, oldest first.
func (h *Handler) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *Handler) classify(kind Kind) Severity {
	switch {
	case kind == CriticalRuntime:
		return Critical
	case kind == LoginFailed:
		// No usable session to recover into.
		return High
	case h.streak >= escalateStreak:
		return High
	case kind == TelemetryUnavailable:
		// A single missed poll is routine.
		return Low
	default:
		return Medium
	}
}

func (h *Handler) append(e Entry) {
	h.entries = append(h.entries, e)
	if len(h.entries) > maxLogEntries {
		h.entries = h.entries[len(h.entries)-maxLogEntries:]
	}
}

// EmergencyShutdown runs the six-step teardown. Every step is guarded so a
// panicking step never blocks the ones after it.
func (h *Handler) EmergencyShutdown(target Shutdowner, machine *state.Machine, emitStats func()) {
	steps := []struct {
		name string
		fn   func()
	}{
		{"clear running flag", target.ClearRunning},
		{"stop task queue", target.StopTasks},
		{"close interfaces", target.CloseInterfaces},
		{"logout", func() {
			if !target.Logout(5 * time.Second) {
				h.log.Warn("logout timed out during shutdown")
			}
		}},
		{"settle state machine", func() {
			machine.Transition(state.Error)
			machine.Transition(state.Stopping)
			machine.Transition(state.Idle)
		}},
		{"emit statistics", emitStats},
	}
	for _, step := range steps {
		h.guarded(step.name, step.fn)
	}
}

func (h *Handler) guarded(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("shutdown step panicked",
				zap.String("step", name), zap.Any("panic", r))
		}
	}()
	fn()
}
