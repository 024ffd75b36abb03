package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// migration is one schema version. Statements run one at a time, in order,
// inside a single transaction.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS projects (
				id          {{pk}},
				owner_id    TEXT NOT NULL,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  BIGINT NOT NULL,
				updated_at  BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,
			`CREATE TABLE IF NOT EXISTS project_members (
				project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				user_id    TEXT NOT NULL,
				role       INTEGER NOT NULL,
				created_at BIGINT NOT NULL,
				PRIMARY KEY (project_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_members_user ON project_members(user_id)`,
			`CREATE TABLE IF NOT EXISTS phases (
				id          {{pk}},
				project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				order_index INTEGER NOT NULL DEFAULT 0,
				created_at  BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_phases_project ON phases(project_id, order_index)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id            {{pk}},
				project_id    BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				phase_id      BIGINT REFERENCES phases(id) ON DELETE SET NULL,
				name          TEXT NOT NULL,
				description   TEXT NOT NULL DEFAULT '',
				xp            INTEGER NOT NULL,
				difficulty    TEXT NOT NULL,
				time_estimate DOUBLE PRECISION NOT NULL,
				status        TEXT NOT NULL DEFAULT 'not_started',
				tools         TEXT NOT NULL DEFAULT '[]',
				hints         TEXT NOT NULL DEFAULT '[]',
				created_at    BIGINT NOT NULL,
				updated_at    BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_phase ON tasks(phase_id)`,
			`CREATE TABLE IF NOT EXISTS task_dependencies (
				id                  {{pk}},
				project_id          BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				task_id             BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				predecessor_task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				created_at          BIGINT NOT NULL,
				UNIQUE (task_id, predecessor_task_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_deps_project ON task_dependencies(project_id)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`ALTER TABLE projects ADD COLUMN brief TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE projects ADD COLUMN prompt TEXT NOT NULL DEFAULT ''`,
			`CREATE TABLE IF NOT EXISTS memory_items (
				id          {{pk}},
				project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				type        TEXT NOT NULL,
				label       TEXT NOT NULL,
				content     TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				metadata    TEXT,
				created_at  BIGINT NOT NULL,
				updated_at  BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_memory_project ON memory_items(project_id, type)`,
		},
	},
}

// SchemaVersion is the version the store migrates to.
var SchemaVersion = migrations[len(migrations)-1].version

func (s *Store) migrate(ctx context.Context) error {
	c := s.conn()
	if _, err := c.exec(ctx, `CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.withTx(ctx, func(c conn) error {
			for i, stmt := range m.statements {
				if _, err := c.exec(ctx, strings.ReplaceAll(stmt, "{{pk}}", s.dialect.pk)); err != nil {
					return fmt.Errorf("failed to execute migration v%d statement %d: %w", m.version, i+1, err)
				}
			}
			_, err := c.exec(ctx, `INSERT INTO meta(key, value) VALUES ('schema_version', ?)
				ON CONFLICT (key) DO UPDATE SET value = excluded.value`, strconv.Itoa(m.version))
			if err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Info().Int("version", m.version).Msg("Applied schema migration")
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var raw string
	err := s.conn().queryRow(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw)
	if isNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}
