package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
	carol = "user-carol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(DriverSQLite, ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newProject(t *testing.T, s *Store, owner string) *roadmap.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), owner, CreateProjectInput{Name: "Quest", Description: "a game"})
	require.NoError(t, err)
	return p
}

func newTask(t *testing.T, s *Store, user string, projectID int64, name string, mods ...func(*CreateTaskInput)) *roadmap.Task {
	t.Helper()
	in := CreateTaskInput{
		ProjectID:    projectID,
		Name:         name,
		Description:  name + " description",
		XP:           100,
		Difficulty:   roadmap.DifficultyMedium,
		TimeEstimate: 2,
	}
	for _, m := range mods {
		m(&in)
	}
	task, err := s.CreateTask(context.Background(), user, in)
	require.NoError(t, err)
	return task
}

func TestNew_CreatesSchema(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"projects", "project_members", "phases", "tasks", "task_dependencies", "memory_items", "meta"}
	for _, table := range tables {
		var count int
		err := s.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	v, err := s.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quest.db")
	s, err := New(DriverSQLite, path, zerolog.Nop())
	require.NoError(t, err)
	p := newProject(t, s, alice)
	require.NoError(t, s.Close())

	s, err = New(DriverSQLite, path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetProject(context.Background(), alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quest", got.Name)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "x", zerolog.Nop())
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c IN (?, ?)"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)", postgresDialect.rebind(q))
}

func TestProjectRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)

	role, err := s.ProjectRole(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, roadmap.RoleOwner, role)

	_, err = s.ProjectRole(ctx, bob, p.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	_, err = s.ProjectRole(ctx, alice, 9999)
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	_, err = s.ProjectRole(ctx, "", p.ID)
	assert.ErrorIs(t, err, perrors.ErrUnauthenticated)

	_, err = s.SetMember(ctx, alice, p.ID, bob, roadmap.RoleCollaborator)
	require.NoError(t, err)
	role, err = s.ProjectRole(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.Equal(t, roadmap.RoleCollaborator, role)
}

func TestProjects_ListUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p1 := newProject(t, s, alice)
	p2 := newProject(t, s, bob)
	_, err := s.SetMember(ctx, bob, p2.ID, alice, roadmap.RoleViewer)
	require.NoError(t, err)

	list, err := s.ListProjects(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	roles := map[int64]roadmap.Role{}
	for _, e := range list {
		roles[e.ID] = e.Role
	}
	assert.Equal(t, roadmap.RoleOwner, roles[p1.ID])
	assert.Equal(t, roadmap.RoleViewer, roles[p2.ID])

	list, err = s.ListProjects(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, list)

	brief := "Ship a platformer"
	updated, err := s.UpdateProject(ctx, alice, p1.ID, UpdateProjectInput{Brief: &brief})
	require.NoError(t, err)
	assert.Equal(t, brief, updated.Brief)
	assert.Equal(t, "Quest", updated.Name)

	_, err = s.UpdateProject(ctx, alice, p2.ID, UpdateProjectInput{Brief: &brief})
	assert.ErrorIs(t, err, perrors.ErrDenied, "viewer cannot edit")
	assert.Equal(t, perrors.CodeNotFound, perrors.CodeOf(err))

	newTask(t, s, alice, p1.ID, "a")
	assert.ErrorIs(t, s.DeleteProject(ctx, bob, p1.ID), perrors.ErrNotFound)
	require.NoError(t, s.DeleteProject(ctx, alice, p1.ID))
	_, err = s.GetProject(ctx, alice, p1.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	var orphans int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM tasks WHERE project_id = ?`, p1.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestTask_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)

	created := newTask(t, s, alice, p.ID, "Design level", func(in *CreateTaskInput) {
		in.Tools = []string{"Figma"}
		in.Hints = []string{"start small"}
	})
	assert.Equal(t, roadmap.StatusNotStarted, created.Status)
	assert.Equal(t, []string{"Figma"}, created.Tools)
	assert.Nil(t, created.PhaseID)

	got, err := s.GetTask(ctx, alice, p.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, []string{"start small"}, got.Hints)

	status := roadmap.StatusCompleted
	xp := 150
	upd, err := s.UpdateTask(ctx, alice, UpdateTaskInput{ProjectID: p.ID, TaskID: created.ID, Status: &status, XP: &xp})
	require.NoError(t, err)
	assert.Equal(t, roadmap.StatusNotStarted, upd.PreviousStatus)
	assert.True(t, upd.Completed())
	assert.Equal(t, 150, upd.Task.XP)
	assert.Equal(t, "Design level", upd.Task.Name)

	require.NoError(t, s.DeleteTask(ctx, alice, p.ID, created.ID))
	_, err = s.GetTask(ctx, alice, p.ID, created.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, alice, p.ID, created.ID), perrors.ErrNotFound)
}

func TestTask_ValidationBeforeAccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)

	for _, xp := range []int{5, 600} {
		_, err := s.CreateTask(ctx, alice, CreateTaskInput{
			ProjectID: p.ID, Name: "x", XP: xp, Difficulty: roadmap.DifficultyEasy, TimeEstimate: 1,
		})
		assert.ErrorIs(t, err, perrors.ErrInvalidInput, "xp %d", xp)
	}
	for _, xp := range []int{10, 500} {
		newTask(t, s, alice, p.ID, "bound", func(in *CreateTaskInput) { in.XP = xp })
	}
}

func TestTask_CrossProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pa := newProject(t, s, alice)
	pb := newProject(t, s, bob)
	taskB := newTask(t, s, bob, pb.ID, "bob's")

	_, err := s.GetTask(ctx, alice, pb.ID, taskB.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	_, err = s.GetTask(ctx, alice, pa.ID, taskB.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound, "task id routed through another project")

	phaseB, err := s.CreatePhase(ctx, bob, CreatePhaseInput{ProjectID: pb.ID, Name: "B1"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, alice, CreateTaskInput{
		ProjectID: pa.ID, PhaseID: &phaseB.ID, Name: "x", XP: 50, Difficulty: roadmap.DifficultyEasy, TimeEstimate: 1,
	})
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestListTasks_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	phase, err := s.CreatePhase(ctx, alice, CreatePhaseInput{ProjectID: p.ID, Name: "Build"})
	require.NoError(t, err)

	newTask(t, s, alice, p.ID, "Write Parser", func(in *CreateTaskInput) { in.Difficulty = roadmap.DifficultyHard; in.XP = 200 })
	newTask(t, s, alice, p.ID, "Deploy", func(in *CreateTaskInput) { in.Status = roadmap.StatusInProgress; in.PhaseID = &phase.ID })
	newTask(t, s, alice, p.ID, "parser tests", func(in *CreateTaskInput) { in.PhaseID = &phase.ID })

	all, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Write Parser", all[0].Name)

	byQuery, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{Query: "PARSER"})
	require.NoError(t, err)
	assert.Len(t, byQuery, 2)

	byStatus, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{Status: roadmap.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Deploy", byStatus[0].Name)

	byDifficulty, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{Difficulty: roadmap.DifficultyHard})
	require.NoError(t, err)
	assert.Len(t, byDifficulty, 1)

	byPhase, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{PhaseID: &phase.ID, Query: "tests"})
	require.NoError(t, err)
	require.Len(t, byPhase, 1)
	assert.Equal(t, "parser tests", byPhase[0].Name)
}

func TestUpdateTask_PhaseAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	phase, err := s.CreatePhase(ctx, alice, CreatePhaseInput{ProjectID: p.ID, Name: "One"})
	require.NoError(t, err)
	task := newTask(t, s, alice, p.ID, "a")

	upd, err := s.UpdateTask(ctx, alice, UpdateTaskInput{ProjectID: p.ID, TaskID: task.ID, PhaseID: &phase.ID})
	require.NoError(t, err)
	require.NotNil(t, upd.Task.PhaseID)
	assert.Equal(t, phase.ID, *upd.Task.PhaseID)
	assert.False(t, upd.Completed())

	upd, err = s.UpdateTask(ctx, alice, UpdateTaskInput{ProjectID: p.ID, TaskID: task.ID, ClearPhase: true})
	require.NoError(t, err)
	assert.Nil(t, upd.Task.PhaseID)

	missing := int64(777)
	_, err = s.UpdateTask(ctx, alice, UpdateTaskInput{ProjectID: p.ID, TaskID: task.ID, PhaseID: &missing})
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestDeletePhase_UnassignsTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	phase, err := s.CreatePhase(ctx, alice, CreatePhaseInput{ProjectID: p.ID, Name: "Alpha", OrderIndex: 1})
	require.NoError(t, err)
	newTask(t, s, alice, p.ID, "a", func(in *CreateTaskInput) { in.PhaseID = &phase.ID })
	newTask(t, s, alice, p.ID, "b", func(in *CreateTaskInput) { in.PhaseID = &phase.ID })
	newTask(t, s, alice, p.ID, "c")

	n, err := s.DeletePhase(ctx, alice, p.ID, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tasks, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Nil(t, task.PhaseID, task.Name)
	}

	phases, err := s.ListPhases(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Empty(t, phases)
}

func TestPhases_OrderAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	for _, in := range []CreatePhaseInput{
		{ProjectID: p.ID, Name: "Third", OrderIndex: 5},
		{ProjectID: p.ID, Name: "First", OrderIndex: 0},
		{ProjectID: p.ID, Name: "Second", OrderIndex: 5},
	} {
		_, err := s.CreatePhase(ctx, alice, in)
		require.NoError(t, err)
	}
	phases, err := s.ListPhases(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, phases, 3)
	assert.Equal(t, []string{"First", "Third", "Second"}, []string{phases[0].Name, phases[1].Name, phases[2].Name})

	idx := -1
	name := "Zeroth"
	upd, err := s.UpdatePhase(ctx, alice, UpdatePhaseInput{ProjectID: p.ID, PhaseID: phases[2].ID, OrderIndex: &idx, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, -1, upd.OrderIndex)
	assert.Equal(t, "Zeroth", upd.Name)

	_, err = s.UpdatePhase(ctx, bob, UpdatePhaseInput{ProjectID: p.ID, PhaseID: phases[0].ID, Name: &name})
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	a := newTask(t, s, alice, p.ID, "a")
	b := newTask(t, s, alice, p.ID, "b")
	c := newTask(t, s, alice, p.ID, "c")

	ab, err := s.AddDependency(ctx, alice, p.ID, b.ID, a.ID)
	require.NoError(t, err)
	_, err = s.AddDependency(ctx, alice, p.ID, c.ID, b.ID)
	require.NoError(t, err)

	_, err = s.AddDependency(ctx, alice, p.ID, b.ID, a.ID)
	assert.ErrorIs(t, err, perrors.ErrConflict)

	_, err = s.AddDependency(ctx, alice, p.ID, a.ID, a.ID)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = s.AddDependency(ctx, alice, p.ID, a.ID, 9999)
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	deps, err := s.ListDependencies(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	require.NoError(t, s.RemoveDependency(ctx, alice, p.ID, ab.ID))
	assert.ErrorIs(t, s.RemoveDependency(ctx, alice, p.ID, ab.ID), perrors.ErrNotFound)
}

func TestDeleteTask_CascadesDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	a := newTask(t, s, alice, p.ID, "a")
	b := newTask(t, s, alice, p.ID, "b")
	c := newTask(t, s, alice, p.ID, "c")
	_, err := s.AddDependency(ctx, alice, p.ID, b.ID, a.ID)
	require.NoError(t, err)
	_, err = s.AddDependency(ctx, alice, p.ID, c.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, alice, p.ID, b.ID))

	deps, err := s.ListDependencies(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestMemberRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)

	_, err := s.SetMember(ctx, alice, p.ID, bob, roadmap.RoleCollaborator)
	require.NoError(t, err)
	_, err = s.SetMember(ctx, alice, p.ID, carol, roadmap.RoleViewer)
	require.NoError(t, err)

	_, err = s.SetMember(ctx, alice, p.ID, carol, roadmap.RoleOwner)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = s.SetMember(ctx, bob, p.ID, carol, roadmap.RoleCollaborator)
	assert.ErrorIs(t, err, perrors.ErrDenied)

	newTask(t, s, bob, p.ID, "collab task")

	_, err = s.CreateTask(ctx, carol, CreateTaskInput{
		ProjectID: p.ID, Name: "viewer task", XP: 50, Difficulty: roadmap.DifficultyEasy, TimeEstimate: 1,
	})
	assert.ErrorIs(t, err, perrors.ErrDenied)

	tasks, err := s.ListTasks(ctx, carol, p.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	members, err := s.ListMembers(ctx, carol, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, alice, members[0].UserID)
	assert.Equal(t, roadmap.RoleOwner, members[0].Role)
	assert.Equal(t, bob, members[1].UserID)

	require.NoError(t, s.RemoveMember(ctx, alice, p.ID, bob))
	_, err = s.ListTasks(ctx, bob, p.ID, TaskFilter{})
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	assert.ErrorIs(t, s.RemoveMember(ctx, alice, p.ID, bob), perrors.ErrNotFound)
}

func TestMemoryItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)

	item, err := s.CreateMemoryItem(ctx, alice, CreateMemoryInput{
		ProjectID: p.ID, Type: roadmap.MemoryResource, Label: "Docs", Content: "https://example.com",
		Metadata: []byte(`{"kind":"link"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"link"}`, string(item.Metadata))

	_, err = s.CreateMemoryItem(ctx, alice, CreateMemoryInput{ProjectID: p.ID, Type: roadmap.MemoryConstant, Label: "Budget", Content: "1000"})
	require.NoError(t, err)

	_, err = s.CreateMemoryItem(ctx, alice, CreateMemoryInput{ProjectID: p.ID, Type: "secret", Label: "x"})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
	_, err = s.CreateMemoryItem(ctx, alice, CreateMemoryInput{ProjectID: p.ID, Type: roadmap.MemoryFragment, Label: "x", Metadata: []byte("{")})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	resources, err := s.ListMemoryItems(ctx, alice, p.ID, roadmap.MemoryResource)
	require.NoError(t, err)
	assert.Len(t, resources, 1)

	content := "https://example.org"
	upd, err := s.UpdateMemoryItem(ctx, alice, UpdateMemoryInput{ProjectID: p.ID, ItemID: item.ID, Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, upd.Content)
	assert.Equal(t, "Docs", upd.Label)

	require.NoError(t, s.DeleteMemoryItem(ctx, alice, p.ID, item.ID))
	all, err := s.ListMemoryItems(ctx, alice, p.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProject(t, s, alice)
	phase, err := s.CreatePhase(ctx, alice, CreatePhaseInput{ProjectID: p.ID, Name: "P"})
	require.NoError(t, err)
	a := newTask(t, s, alice, p.ID, "a", func(in *CreateTaskInput) { in.PhaseID = &phase.ID })
	b := newTask(t, s, alice, p.ID, "b")
	_, err = s.AddDependency(ctx, alice, p.ID, b.ID, a.ID)
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, snap.Project.ID)
	assert.Equal(t, roadmap.RoleOwner, snap.Role)
	assert.Len(t, snap.Phases, 1)
	assert.Len(t, snap.Tasks, 2)
	assert.Len(t, snap.Dependencies, 1)
	assert.Empty(t, snap.Memory)

	_, err = s.Snapshot(ctx, bob, p.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestImportPlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	plan := roadmap.Plan{
		ProjectName:        "Bakery site",
		ProjectDescription: "Online orders",
		Tasks: []roadmap.PlanTask{
			{ID: "x1", Name: "Menu page", Description: "d", XP: 40, Difficulty: roadmap.DifficultyEasy, TimeEstimate: 2, Hints: []string{"h"}},
			{ID: "x2", Name: "Checkout", Description: "d", XP: 250, Difficulty: roadmap.DifficultyHard, TimeEstimate: 8},
		},
	}
	p, err := s.ImportPlan(ctx, alice, plan)
	require.NoError(t, err)
	assert.Equal(t, "Bakery site", p.Name)

	tasks, err := s.ListTasks(ctx, alice, p.ID, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, []string{"h"}, tasks[0].Hints)

	plan.ProjectName = "Broken"
	plan.Tasks[1].XP = 900
	_, err = s.ImportPlan(ctx, alice, plan)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	list, err := s.ListProjects(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a rejected plan leaves nothing behind")
}
