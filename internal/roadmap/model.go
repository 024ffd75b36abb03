package roadmap

import (
	"encoding/json"
	"time"
)

// Project is the root aggregate. Every other entity is reached through it.
type Project struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brief       string    `json:"brief"`
	Prompt      string    `json:"prompt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member grants a user a role on a project they do not own.
type Member struct {
	ProjectID int64     `json:"projectId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Phase groups tasks into an ordered project stage. OrderIndex values may
// repeat or leave gaps.
type Phase struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"orderIndex"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Task is a unit of work worth XP once completed.
type Task struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"projectId"`
	PhaseID      *int64     `json:"phaseId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	XP           int        `json:"xp"`
	Difficulty   Difficulty `json:"difficulty"`
	TimeEstimate float64    `json:"timeEstimate"`
	Status       TaskStatus `json:"status"`
	Tools        []string   `json:"tools"`
	Hints        []string   `json:"hints"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// InPhase reports whether the task is assigned to the given phase.
func (t Task) InPhase(phaseID int64) bool {
	return t.PhaseID != nil && *t.PhaseID == phaseID
}

// Dependency is a directed edge: TaskID cannot proceed until
// PredecessorTaskID is completed.
type Dependency struct {
	ID                int64 `json:"id"`
	ProjectID         int64 `json:"projectId"`
	TaskID            int64 `json:"taskId"`
	PredecessorTaskID int64 `json:"predecessorTaskId"`
}

// MemoryItem is a note pinned to the project's memory panel.
type MemoryItem struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"projectId"`
	Type        MemoryType      `json:"type"`
	Label       string          `json:"label"`
	Content     string          `json:"content"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Snapshot is everything known about one project at a single point in time,
// as seen by one caller.
type Snapshot struct {
	Project      Project      `json:"project"`
	Role         Role         `json:"role"`
	Phases       []Phase      `json:"phases"`
	Tasks        []Task       `json:"tasks"`
	Dependencies []Dependency `json:"dependencies"`
	Memory       []MemoryItem `json:"memory"`
}
