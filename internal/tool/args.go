package tool

import (
	"bytes"
	"encoding/json"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

// Args is an operation's argument record.
type Args interface {
	Validate() error
}

// StringList accepts a JSON array of strings, a string holding a JSON
// array, or a comma-separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return perrors.Invalid("expected a list of strings")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			*l = arr
			return nil
		}
	}
	out := StringList{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// OptionalID distinguishes an absent id from an explicit null.
type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return perrors.Invalid("phaseId must be an integer or null")
	}
	o.Value = &v
	return nil
}

func positive(name string, v int64) error {
	if v <= 0 {
		return perrors.Invalid("%s must be a positive integer", name)
	}
	return nil
}

func required(name string, set bool) error {
	if !set {
		return perrors.Invalid("%s is required", name)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func statusOf(s string) *roadmap.TaskStatus {
	if s == "" {
		return nil
	}
	st := roadmap.TaskStatus(s)
	return &st
}

func validStatus(s string) error {
	if s == "" {
		return nil
	}
	_, err := roadmap.ParseTaskStatus(s)
	return err
}

func validDifficulty(d string) error {
	if d == "" {
		return nil
	}
	_, err := roadmap.ParseDifficulty(d)
	return err
}

// ProjectArgs addresses a whole project.
type ProjectArgs struct {
	ProjectID int64 `json:"projectId"`
}

func (a ProjectArgs) Validate() error { return positive("projectId", a.ProjectID) }

// TaskRef addresses one task.
type TaskRef struct {
	TaskID    int64 `json:"taskId"`
	ProjectID int64 `json:"projectId"`
}

func (a TaskRef) Validate() error {
	return firstErr(positive("projectId", a.ProjectID), positive("taskId", a.TaskID))
}

// PhaseRef addresses one phase.
type PhaseRef struct {
	PhaseID   int64 `json:"phaseId"`
	ProjectID int64 `json:"projectId"`
}

func (a PhaseRef) Validate() error {
	return firstErr(positive("projectId", a.ProjectID), positive("phaseId", a.PhaseID))
}

type CreateTaskArgs struct {
	ProjectID    int64      `json:"projectId"`
	Name         string     `json:"name"`
	Description  *string    `json:"description"`
	XP           *int       `json:"xp"`
	Difficulty   string     `json:"difficulty"`
	TimeEstimate *float64   `json:"timeEstimate"`
	Tools        StringList `json:"tools,omitempty"`
	Hints        StringList `json:"hints,omitempty"`
	Status       string     `json:"status,omitempty"`
	PhaseID      *int64     `json:"phaseId,omitempty"`
}

func (a CreateTaskArgs) Validate() error {
	if err := firstErr(
		positive("projectId", a.ProjectID),
		required("description", a.Description != nil),
		required("xp", a.XP != nil),
		required("difficulty", a.Difficulty != ""),
		required("timeEstimate", a.TimeEstimate != nil),
	); err != nil {
		return err
	}
	return a.Input().Validate()
}

// Input converts the arguments into a store input.
func (a CreateTaskArgs) Input() store.CreateTaskInput {
	in := store.CreateTaskInput{
		ProjectID:  a.ProjectID,
		PhaseID:    a.PhaseID,
		Name:       strings.TrimSpace(a.Name),
		Difficulty: roadmap.Difficulty(a.Difficulty),
		Status:     roadmap.TaskStatus(a.Status),
		Tools:      a.Tools,
		Hints:      a.Hints,
	}
	if a.Description != nil {
		in.Description = *a.Description
	}
	if a.XP != nil {
		in.XP = *a.XP
	}
	if a.TimeEstimate != nil {
		in.TimeEstimate = *a.TimeEstimate
	}
	return in
}

type UpdateTaskArgs struct {
	TaskID       int64       `json:"taskId"`
	ProjectID    int64       `json:"projectId"`
	Name         *string     `json:"name,omitempty"`
	Description  *string     `json:"description,omitempty"`
	XP           *int        `json:"xp,omitempty"`
	Difficulty   string      `json:"difficulty,omitempty"`
	TimeEstimate *float64    `json:"timeEstimate,omitempty"`
	Tools        *StringList `json:"tools,omitempty"`
	Hints        *StringList `json:"hints,omitempty"`
	Status       string      `json:"status,omitempty"`
	PhaseID      OptionalID  `json:"phaseId"`
}

func (a UpdateTaskArgs) Validate() error {
	return a.Input().Validate()
}

// Input converts the arguments into a store input. An explicit null
// phaseId clears the phase.
func (a UpdateTaskArgs) Input() store.UpdateTaskInput {
	in := store.UpdateTaskInput{
		ProjectID:    a.ProjectID,
		TaskID:       a.TaskID,
		Name:         a.Name,
		Description:  a.Description,
		XP:           a.XP,
		TimeEstimate: a.TimeEstimate,
		Status:       statusOf(a.Status),
	}
	if a.Difficulty != "" {
		d := roadmap.Difficulty(a.Difficulty)
		in.Difficulty = &d
	}
	if a.Tools != nil {
		tools := []string(*a.Tools)
		in.Tools = &tools
	}
	if a.Hints != nil {
		hints := []string(*a.Hints)
		in.Hints = &hints
	}
	if a.PhaseID.Set {
		if a.PhaseID.Value == nil {
			in.ClearPhase = true
		} else {
			in.PhaseID = a.PhaseID.Value
		}
	}
	return in
}

type CreatePhaseArgs struct {
	ProjectID   int64   `json:"projectId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"orderIndex"`
}

func (a CreatePhaseArgs) Validate() error {
	if err := firstErr(
		positive("projectId", a.ProjectID),
		required("description", a.Description != nil),
		required("orderIndex", a.OrderIndex != nil),
	); err != nil {
		return err
	}
	return a.Input().Validate()
}

func (a CreatePhaseArgs) Input() store.CreatePhaseInput {
	in := store.CreatePhaseInput{ProjectID: a.ProjectID, Name: strings.TrimSpace(a.Name)}
	if a.Description != nil {
		in.Description = *a.Description
	}
	if a.OrderIndex != nil {
		in.OrderIndex = *a.OrderIndex
	}
	return in
}

type UpdatePhaseArgs struct {
	PhaseID     int64   `json:"phaseId"`
	ProjectID   int64   `json:"projectId"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	OrderIndex  *int    `json:"orderIndex,omitempty"`
}

func (a UpdatePhaseArgs) Validate() error { return a.Input().Validate() }

func (a UpdatePhaseArgs) Input() store.UpdatePhaseInput {
	return store.UpdatePhaseInput{
		ProjectID:   a.ProjectID,
		PhaseID:     a.PhaseID,
		Name:        a.Name,
		Description: a.Description,
		OrderIndex:  a.OrderIndex,
	}
}

type AddDependencyArgs struct {
	TaskID            int64 `json:"taskId"`
	PredecessorTaskID int64 `json:"predecessorTaskId"`
	ProjectID         int64 `json:"projectId"`
}

func (a AddDependencyArgs) Validate() error {
	if err := firstErr(
		positive("projectId", a.ProjectID),
		positive("taskId", a.TaskID),
		positive("predecessorTaskId", a.PredecessorTaskID),
	); err != nil {
		return err
	}
	if a.TaskID == a.PredecessorTaskID {
		return perrors.Invalid("a task cannot depend on itself")
	}
	return nil
}

type RemoveDependencyArgs struct {
	DependencyID int64 `json:"dependencyId"`
	ProjectID    int64 `json:"projectId"`
}

func (a RemoveDependencyArgs) Validate() error {
	return firstErr(positive("projectId", a.ProjectID), positive("dependencyId", a.DependencyID))
}

type SearchTasksArgs struct {
	ProjectID  int64  `json:"projectId"`
	Query      string `json:"query,omitempty"`
	Status     string `json:"status,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	PhaseID    *int64 `json:"phaseId,omitempty"`
}

func (a SearchTasksArgs) Validate() error {
	if err := firstErr(
		positive("projectId", a.ProjectID),
		validStatus(a.Status),
		validDifficulty(a.Difficulty),
	); err != nil {
		return err
	}
	if a.PhaseID != nil {
		return positive("phaseId", *a.PhaseID)
	}
	return nil
}

// Filter converts the arguments into a task filter.
func (a SearchTasksArgs) Filter() store.TaskFilter {
	return store.TaskFilter{
		Status:     roadmap.TaskStatus(a.Status),
		Difficulty: roadmap.Difficulty(a.Difficulty),
		PhaseID:    a.PhaseID,
		Query:      strings.TrimSpace(a.Query),
	}
}
