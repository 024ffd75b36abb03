package store

import (
	"context"

	"github.com/p-blackswan/questplan/internal/roadmap"
)

// Snapshot reads a project's phases, tasks, dependency edges and memory
// items in one transaction, so derived views see a consistent state.
func (s *Store) Snapshot(ctx context.Context, userID string, projectID int64) (*roadmap.Snapshot, error) {
	var snap *roadmap.Snapshot
	err := s.withTx(ctx, func(c conn) error {
		role, err := s.authorize(ctx, c, userID, projectID, canRead)
		if err != nil {
			return err
		}
		p, err := s.getProject(ctx, c, projectID)
		if err != nil {
			return err
		}
		phases, err := s.listPhases(ctx, c, projectID)
		if err != nil {
			return err
		}
		tasks, err := s.listTasks(ctx, c, projectID, TaskFilter{})
		if err != nil {
			return err
		}
		deps, err := s.listDependencies(ctx, c, projectID)
		if err != nil {
			return err
		}
		memory, err := s.listMemoryItems(ctx, c, projectID, "")
		if err != nil {
			return err
		}
		snap = &roadmap.Snapshot{
			Project:      *p,
			Role:         role,
			Phases:       phases,
			Tasks:        tasks,
			Dependencies: deps,
			Memory:       memory,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
