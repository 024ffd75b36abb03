package store

import (
	"encoding/json"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// CreateProjectInput is the input for creating a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	Brief       string
	Prompt      string
}

// Validate checks the input.
func (in CreateProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return perrors.Invalid("project name is required")
	}
	return nil
}

// UpdateProjectInput is the input for updating a project. Nil fields are unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Brief       *string
	Prompt      *string
}

// Validate checks the input.
func (in UpdateProjectInput) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return perrors.Invalid("project name cannot be empty")
	}
	return nil
}

// CreateTaskInput is the input for creating a task.
type CreateTaskInput struct {
	ProjectID    int64
	PhaseID      *int64
	Name         string
	Description  string
	XP           int
	Difficulty   roadmap.Difficulty
	TimeEstimate float64
	Status       roadmap.TaskStatus // defaults to not_started
	Tools        []string
	Hints        []string
}

// Validate checks bounds and enums.
func (in CreateTaskInput) Validate() error {
	if in.ProjectID <= 0 {
		return perrors.Invalid("projectId must be a positive integer")
	}
	if strings.TrimSpace(in.Name) == "" {
		return perrors.Invalid("task name is required")
	}
	if err := roadmap.ValidateXP(in.XP); err != nil {
		return err
	}
	if _, err := roadmap.ParseDifficulty(string(in.Difficulty)); err != nil {
		return err
	}
	if err := roadmap.ValidateTimeEstimate(in.TimeEstimate); err != nil {
		return err
	}
	if in.Status != "" && !in.Status.Valid() {
		_, err := roadmap.ParseTaskStatus(string(in.Status))
		return err
	}
	if in.PhaseID != nil && *in.PhaseID <= 0 {
		return perrors.Invalid("phaseId must be a positive integer")
	}
	return nil
}

// UpdateTaskInput is the input for updating a task. Nil fields are unchanged.
// ClearPhase unassigns the task and takes precedence over PhaseID.
type UpdateTaskInput struct {
	ProjectID    int64
	TaskID       int64
	Name         *string
	Description  *string
	XP           *int
	Difficulty   *roadmap.Difficulty
	TimeEstimate *float64
	Status       *roadmap.TaskStatus
	Tools        *[]string
	Hints        *[]string
	PhaseID      *int64
	ClearPhase   bool
}

// Validate checks bounds and enums of the fields being set.
func (in UpdateTaskInput) Validate() error {
	if in.ProjectID <= 0 {
		return perrors.Invalid("projectId must be a positive integer")
	}
	if in.TaskID <= 0 {
		return perrors.Invalid("taskId must be a positive integer")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return perrors.Invalid("task name cannot be empty")
	}
	if in.XP != nil {
		if err := roadmap.ValidateXP(*in.XP); err != nil {
			return err
		}
	}
	if in.Difficulty != nil {
		if _, err := roadmap.ParseDifficulty(string(*in.Difficulty)); err != nil {
			return err
		}
	}
	if in.TimeEstimate != nil {
		if err := roadmap.ValidateTimeEstimate(*in.TimeEstimate); err != nil {
			return err
		}
	}
	if in.Status != nil {
		if _, err := roadmap.ParseTaskStatus(string(*in.Status)); err != nil {
			return err
		}
	}
	if !in.ClearPhase && in.PhaseID != nil && *in.PhaseID <= 0 {
		return perrors.Invalid("phaseId must be a positive integer")
	}
	return nil
}

// TaskUpdate is the outcome of UpdateTask.
type TaskUpdate struct {
	Task           roadmap.Task
	PreviousStatus roadmap.TaskStatus
}

// Completed reports whether the update moved the task into completed.
func (u TaskUpdate) Completed() bool {
	return u.PreviousStatus != roadmap.StatusCompleted && u.Task.Status == roadmap.StatusCompleted
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Status     roadmap.TaskStatus
	Difficulty roadmap.Difficulty
	PhaseID    *int64
	// Query matches case-insensitively against name and description.
	Query string
}

// CreatePhaseInput is the input for creating a phase.
type CreatePhaseInput struct {
	ProjectID   int64
	Name        string
	Description string
	OrderIndex  int
}

// Validate checks the input.
func (in CreatePhaseInput) Validate() error {
	if in.ProjectID <= 0 {
		return perrors.Invalid("projectId must be a positive integer")
	}
	if strings.TrimSpace(in.Name) == "" {
		return perrors.Invalid("phase name is required")
	}
	return nil
}

// UpdatePhaseInput is the input for updating a phase. Nil fields are unchanged.
type UpdatePhaseInput struct {
	ProjectID   int64
	PhaseID     int64
	Name        *string
	Description *string
	OrderIndex  *int
}

// Validate checks the input.
func (in UpdatePhaseInput) Validate() error {
	if in.ProjectID <= 0 {
		return perrors.Invalid("projectId must be a positive integer")
	}
	if in.PhaseID <= 0 {
		return perrors.Invalid("phaseId must be a positive integer")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return perrors.Invalid("phase name cannot be empty")
	}
	return nil
}

// CreateMemoryInput is the input for pinning a memory item.
type CreateMemoryInput struct {
	ProjectID   int64
	Type        roadmap.MemoryType
	Label       string
	Content     string
	Description string
	Metadata    json.RawMessage
}

// Validate checks the input.
func (in CreateMemoryInput) Validate() error {
	if in.ProjectID <= 0 {
		return perrors.Invalid("projectId must be a positive integer")
	}
	if _, err := roadmap.ParseMemoryType(string(in.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(in.Label) == "" {
		return perrors.Invalid("memory label is required")
	}
	return validMetadata(in.Metadata)
}

// UpdateMemoryInput is the input for editing a memory item. Nil fields are unchanged.
type UpdateMemoryInput struct {
	ProjectID   int64
	ItemID      int64
	Type        *roadmap.MemoryType
	Label       *string
	Content     *string
	Description *string
	Metadata    json.RawMessage
}

// Validate checks the input.
func (in UpdateMemoryInput) Validate() error {
	if in.ProjectID <= 0 || in.ItemID <= 0 {
		return perrors.Invalid("projectId and itemId must be positive integers")
	}
	if in.Type != nil {
		if _, err := roadmap.ParseMemoryType(string(*in.Type)); err != nil {
			return err
		}
	}
	if in.Label != nil && strings.TrimSpace(*in.Label) == "" {
		return perrors.Invalid("memory label cannot be empty")
	}
	return validMetadata(in.Metadata)
}

func validMetadata(raw json.RawMessage) error {
	if len(raw) > 0 && !json.Valid(raw) {
		return perrors.Invalid("metadata must be valid JSON")
	}
	return nil
}
