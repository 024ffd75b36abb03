package store

import (
	"context"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// ProjectEntry is a project together with the caller's role on it.
type ProjectEntry struct {
	roadmap.Project
	Role roadmap.Role `json:"role"`
}

type scanner interface {
	Scan(dest ...any) error
}

const projectColumns = `p.id, p.owner_id, p.name, p.description, p.brief, p.prompt, p.created_at, p.updated_at`

func scanProject(row scanner, extra ...any) (roadmap.Project, error) {
	var p roadmap.Project
	var createdAt, updatedAt int64
	dest := append([]any{&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Brief, &p.Prompt, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// CreateProject creates a project owned by the caller.
func (s *Store) CreateProject(ctx context.Context, userID string, in CreateProjectInput) (*roadmap.Project, error) {
	if userID == "" {
		return nil, perrors.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var p *roadmap.Project
	err := s.withTx(ctx, func(c conn) error {
		var err error
		p, err = s.insertProject(ctx, c, userID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("project_id", p.ID).Str("owner_id", userID).Msg("Project created")
	return p, nil
}

func (s *Store) insertProject(ctx context.Context, c conn, userID string, in CreateProjectInput) (*roadmap.Project, error) {
	now := s.nowMillis()
	id, err := c.insert(ctx, `
		INSERT INTO projects (owner_id, name, description, brief, prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, strings.TrimSpace(in.Name), in.Description, in.Brief, in.Prompt, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &roadmap.Project{
		ID:          id,
		OwnerID:     userID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Brief:       in.Brief,
		Prompt:      in.Prompt,
		CreatedAt:   fromMillis(now),
		UpdatedAt:   fromMillis(now),
	}, nil
}

// ListProjects returns every project the caller owns or is a member of,
// most recently updated first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]ProjectEntry, error) {
	if userID == "" {
		return nil, perrors.ErrUnauthenticated
	}
	rows, err := s.conn().query(ctx, `
		SELECT `+projectColumns+`,
		       CASE WHEN p.owner_id = ? THEN 1 ELSE COALESCE(m.role, 0) END
		FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id AND m.user_id = ?
		WHERE p.owner_id = ? OR m.user_id IS NOT NULL
		ORDER BY p.updated_at DESC, p.id DESC`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectEntry{}
	for rows.Next() {
		var role int64
		p, err := scanProject(rows, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, ProjectEntry{Project: p, Role: roadmap.Role(role)})
	}
	return out, rows.Err()
}

// GetProject returns a project and the caller's role on it.
func (s *Store) GetProject(ctx context.Context, userID string, projectID int64) (*ProjectEntry, error) {
	c := s.conn()
	role, err := s.authorize(ctx, c, userID, projectID, canRead)
	if err != nil {
		return nil, err
	}
	p, err := s.getProject(ctx, c, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectEntry{Project: *p, Role: role}, nil
}

func (s *Store) getProject(ctx context.Context, c conn, projectID int64) (*roadmap.Project, error) {
	p, err := scanProject(c.queryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, projectID))
	if isNoRows(err) {
		return nil, fmt.Errorf("project %d: %w", projectID, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// UpdateProject changes a project's name, description, brief or prompt.
// Requires edit rights.
func (s *Store) UpdateProject(ctx context.Context, userID string, projectID int64, in UpdateProjectInput) (*roadmap.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var p *roadmap.Project
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		set := newSetBuilder()
		if in.Name != nil {
			set.add("name", strings.TrimSpace(*in.Name))
		}
		set.addPtr("description", in.Description)
		set.addPtr("brief", in.Brief)
		set.addPtr("prompt", in.Prompt)
		set.add("updated_at", s.nowMillis())

		query, args := set.build("projects", "id = ?", projectID)
		if _, err := c.exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		var err error
		p, err = s.getProject(ctx, c, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project and, through cascades, all of its
// children. Only the owner may delete.
func (s *Store) DeleteProject(ctx context.Context, userID string, projectID int64) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canManage); err != nil {
			return err
		}
		if _, err := c.exec(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		s.logger.Info().Int64("project_id", projectID).Msg("Project deleted")
		return nil
	})
}

// touchProject bumps updated_at so that recently edited projects list first.
func (s *Store) touchProject(ctx context.Context, c conn, projectID int64) error {
	if _, err := c.exec(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, s.nowMillis(), projectID); err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}

// setBuilder accumulates the SET clause of an UPDATE.
type setBuilder struct {
	cols []string
	args []any
}

func newSetBuilder() *setBuilder { return &setBuilder{} }

func (b *setBuilder) add(col string, v any) {
	b.cols = append(b.cols, col+" = ?")
	b.args = append(b.args, v)
}

func (b *setBuilder) addPtr(col string, v *string) {
	if v != nil {
		b.add(col, *v)
	}
}

func (b *setBuilder) build(table, where string, whereArgs ...any) (string, []any) {
	query := "UPDATE " + table + " SET " + strings.Join(b.cols, ", ") + " WHERE " + where
	return query, append(b.args, whereArgs...)
}
