package store

import (
	"context"
	"fmt"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// ImportPlan creates a project owned by the caller from a generated plan.
// Every task is validated first; the project and its tasks are written in a
// single transaction, so a bad task leaves nothing behind.
func (s *Store) ImportPlan(ctx context.Context, userID string, plan roadmap.Plan) (*roadmap.Project, error) {
	if userID == "" {
		return nil, perrors.ErrUnauthenticated
	}
	project := CreateProjectInput{Name: plan.ProjectName, Description: plan.ProjectDescription}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	inputs := make([]CreateTaskInput, len(plan.Tasks))
	for i, t := range plan.Tasks {
		inputs[i] = CreateTaskInput{
			ProjectID:    1, // placeholder until the project exists
			Name:         t.Name,
			Description:  t.Description,
			XP:           t.XP,
			Difficulty:   t.Difficulty,
			TimeEstimate: t.TimeEstimate,
			Tools:        t.Tools,
			Hints:        t.Hints,
		}
		if err := inputs[i].Validate(); err != nil {
			return nil, fmt.Errorf("plan task %d (%s): %w", i+1, t.Name, err)
		}
	}
	var p *roadmap.Project
	err := s.withTx(ctx, func(c conn) error {
		var err error
		if p, err = s.insertProject(ctx, c, userID, project); err != nil {
			return err
		}
		for _, in := range inputs {
			in.ProjectID = p.ID
			if _, err := s.insertTask(ctx, c, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("project_id", p.ID).Int("tasks", len(inputs)).Msg("Plan imported")
	return p, nil
}
