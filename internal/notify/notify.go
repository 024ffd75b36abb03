// Package notify delivers achievement notifications when tasks and projects
// are completed.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/roadmap"
)

// Kind identifies an achievement.
type Kind string

const (
	KindTaskCompleted    Kind = "task_completed"
	KindProjectCompleted Kind = "project_completed"
)

// Event is one achievement.
type Event struct {
	Kind    Kind
	UserID  string
	Project roadmap.Project
	Task    *roadmap.Task // set for KindTaskCompleted
	Stats   roadmap.Stats
}

// Summary is a one-line description used by every sink.
func (e Event) Summary() string {
	switch e.Kind {
	case KindTaskCompleted:
		name, xp := "", 0
		if e.Task != nil {
			name, xp = e.Task.Name, e.Task.XP
		}
		return fmt.Sprintf("Quest complete: %q in %s (+%d XP). %s", name, e.Project.Name, xp, e.Stats.Summary())
	case KindProjectCompleted:
		return fmt.Sprintf("Project %s finished: all %d tasks done, %d XP earned", e.Project.Name, e.Stats.TotalTasks, e.Stats.EarnedXP)
	default:
		return string(e.Kind)
	}
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Log writes events to the structured log.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a log notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *Log) Notify(_ context.Context, e Event) error {
	ev := l.logger.Info().
		Str("kind", string(e.Kind)).
		Str("user_id", e.UserID).
		Int64("project_id", e.Project.ID).
		Int("earned_xp", e.Stats.EarnedXP).
		Int("progress", e.Stats.Progress)
	if e.Task != nil {
		ev = ev.Int64("task_id", e.Task.ID).Int("xp", e.Task.XP)
	}
	ev.Msg(e.Summary())
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Completion builds the events for task having just completed in snap: a
// task achievement, plus a project achievement once every task is done.
func Completion(userID string, snap *roadmap.Snapshot, task roadmap.Task) []Event {
	stats := roadmap.ComputeStats(snap.Tasks)
	events := []Event{{
		Kind:    KindTaskCompleted,
		UserID:  userID,
		Project: snap.Project,
		Task:    &task,
		Stats:   stats,
	}}
	if stats.TotalTasks > 0 && stats.CompletedTasks == stats.TotalTasks {
		events = append(events, Event{
			Kind:    KindProjectCompleted,
			UserID:  userID,
			Project: snap.Project,
			Stats:   stats,
		})
	}
	return events
}
