package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const memoryColumns = `id, project_id, type, label, content, description, metadata, created_at`

func scanMemoryItem(row scanner) (roadmap.MemoryItem, error) {
	var m roadmap.MemoryItem
	var typ string
	var metadata sql.NullString
	var createdAt int64
	if err := row.Scan(&m.ID, &m.ProjectID, &typ, &m.Label, &m.Content, &m.Description, &metadata, &createdAt); err != nil {
		return m, err
	}
	m.Type = roadmap.MemoryType(typ)
	if metadata.Valid && metadata.String != "" {
		m.Metadata = json.RawMessage(metadata.String)
	}
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// CreateMemoryItem pins an item to the project's memory panel.
func (s *Store) CreateMemoryItem(ctx context.Context, userID string, in CreateMemoryInput) (*roadmap.MemoryItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var m *roadmap.MemoryItem
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		now := s.nowMillis()
		id, err := c.insert(ctx, `
			INSERT INTO memory_items (project_id, type, label, content, description, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ProjectID, string(in.Type), strings.TrimSpace(in.Label), in.Content, in.Description,
			nullJSON(in.Metadata), now, now)
		if err != nil {
			return fmt.Errorf("failed to create memory item: %w", err)
		}
		m, err = s.getMemoryItem(ctx, c, in.ProjectID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) getMemoryItem(ctx context.Context, c conn, projectID, itemID int64) (*roadmap.MemoryItem, error) {
	m, err := scanMemoryItem(c.queryRow(ctx, `SELECT `+memoryColumns+` FROM memory_items WHERE id = ? AND project_id = ?`, itemID, projectID))
	if isNoRows(err) {
		return nil, fmt.Errorf("memory item %d: %w", itemID, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory item: %w", err)
	}
	return &m, nil
}

// ListMemoryItems returns a project's memory items, optionally of one type.
func (s *Store) ListMemoryItems(ctx context.Context, userID string, projectID int64, typ roadmap.MemoryType) ([]roadmap.MemoryItem, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.listMemoryItems(ctx, c, projectID, typ)
}

func (s *Store) listMemoryItems(ctx context.Context, c conn, projectID int64, typ roadmap.MemoryType) ([]roadmap.MemoryItem, error) {
	query := `SELECT ` + memoryColumns + ` FROM memory_items WHERE project_id = ?`
	args := []any{projectID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	rows, err := c.query(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory items: %w", err)
	}
	defer rows.Close()

	out := []roadmap.MemoryItem{}
	for rows.Next() {
		m, err := scanMemoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory item: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMemoryItem edits a memory item.
func (s *Store) UpdateMemoryItem(ctx context.Context, userID string, in UpdateMemoryInput) (*roadmap.MemoryItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var m *roadmap.MemoryItem
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		if _, err := s.getMemoryItem(ctx, c, in.ProjectID, in.ItemID); err != nil {
			return err
		}
		set := newSetBuilder()
		if in.Type != nil {
			set.add("type", string(*in.Type))
		}
		if in.Label != nil {
			set.add("label", strings.TrimSpace(*in.Label))
		}
		set.addPtr("content", in.Content)
		set.addPtr("description", in.Description)
		if len(in.Metadata) > 0 {
			set.add("metadata", string(in.Metadata))
		}
		set.add("updated_at", s.nowMillis())
		query, args := set.build("memory_items", "id = ? AND project_id = ?", in.ItemID, in.ProjectID)
		if _, err := c.exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update memory item: %w", err)
		}
		var err error
		m, err = s.getMemoryItem(ctx, c, in.ProjectID, in.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMemoryItem removes a memory item.
func (s *Store) DeleteMemoryItem(ctx context.Context, userID string, projectID, itemID int64) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		res, err := c.exec(ctx, `DELETE FROM memory_items WHERE id = ? AND project_id = ?`, itemID, projectID)
		if err != nil {
			return fmt.Errorf("failed to delete memory item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("memory item %d: %w", itemID, perrors.ErrNotFound)
		}
		return nil
	})
}
