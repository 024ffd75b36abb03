// Package roadmap holds the project-planning domain model: projects, phases,
// tasks, dependency edges and memory items, plus the pure functions that
// derive display state and statistics from them.
package roadmap

import (
	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// TaskStatus is the stored status of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Statuses lists every stored status in workflow order.
var Statuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", perrors.Invalid("status %q must be one of not_started, in_progress, completed, blocked", raw)
	}
	return s, nil
}

// Difficulty ranks a task by effort. Each level maps to an XP band.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Difficulties lists the levels ordered by increasing XP band.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d.Rank() >= 0
}

// Rank returns the position of d in Difficulties, or -1.
func (d Difficulty) Rank() int {
	for i, v := range Difficulties {
		if v == d {
			return i
		}
	}
	return -1
}

// XPBand returns the suggested XP range for the difficulty.
func (d Difficulty) XPBand() (lo, hi int) {
	switch d {
	case DifficultyEasy:
		return 10, 50
	case DifficultyMedium:
		return 50, 150
	case DifficultyHard:
		return 150, 300
	case DifficultyExpert:
		return 300, 500
	}
	return 0, 0
}

// ParseDifficulty validates a raw difficulty string.
func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(raw)
	if !d.Valid() {
		return "", perrors.Invalid("difficulty %q must be one of easy, medium, hard, expert", raw)
	}
	return d, nil
}

// State is the derived display state of a task or phase. It is never stored.
type State string

const (
	StateLocked  State = "LOCKED"
	StateWaiting State = "WAITING"
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
)

// MemoryType tags a memory panel item.
type MemoryType string

const (
	MemoryConstant MemoryType = "constant"
	MemoryFragment MemoryType = "fragment"
	MemoryResource MemoryType = "resource"
)

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryConstant, MemoryFragment, MemoryResource:
		return true
	}
	return false
}

// ParseMemoryType validates a raw memory type string.
func ParseMemoryType(raw string) (MemoryType, error) {
	t := MemoryType(raw)
	if !t.Valid() {
		return "", perrors.Invalid("memory type %q must be one of constant, fragment, resource", raw)
	}
	return t, nil
}

// Task bounds.
const (
	MinXP           = 10
	MaxXP           = 500
	MinTimeEstimate = 0.5
	MaxTimeEstimate = 40.0
)

// ValidateXP checks the inclusive XP bounds.
func ValidateXP(xp int) error {
	if xp < MinXP || xp > MaxXP {
		return perrors.Invalid("xp %d must be between %d and %d", xp, MinXP, MaxXP)
	}
	return nil
}

// ValidateTimeEstimate checks the inclusive time estimate bounds, in hours.
func ValidateTimeEstimate(hours float64) error {
	if hours < MinTimeEstimate || hours > MaxTimeEstimate {
		return perrors.Invalid("timeEstimate %g must be between %g and %g hours", hours, MinTimeEstimate, MaxTimeEstimate)
	}
	return nil
}
