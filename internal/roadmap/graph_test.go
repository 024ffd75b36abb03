package roadmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id int64, name string, status TaskStatus) Task {
	return Task{ID: id, ProjectID: 1, Name: name, Status: status, XP: 50, Difficulty: DifficultyMedium, TimeEstimate: 2}
}

func edge(id, taskID, predID int64) Dependency {
	return Dependency{ID: id, ProjectID: 1, TaskID: taskID, PredecessorTaskID: predID}
}

func blockedIDs(bts []BlockedTask) []int64 {
	ids := make([]int64, 0, len(bts))
	for _, bt := range bts {
		ids = append(ids, bt.Task.ID)
	}
	return ids
}

func TestBlockedTasks_DirectPredecessorsOnly(t *testing.T) {
	a := task(1, "A", StatusCompleted)
	b := task(2, "B", StatusNotStarted)
	c := task(3, "C", StatusNotStarted)
	g := NewGraph([]Task{a, b, c}, []Dependency{edge(1, 2, 1), edge(2, 3, 2)})

	blocked := g.BlockedTasks()
	require.Len(t, blocked, 1)
	assert.Equal(t, int64(3), blocked[0].Task.ID)
	assert.False(t, blocked[0].StatusBlocked)
	require.Len(t, blocked[0].WaitingFor, 1)
	assert.Equal(t, "B", blocked[0].WaitingFor[0].Name)

	assert.False(t, g.IsBlocked(2))
	assert.Equal(t, StateWaiting, g.State(2))
	assert.Equal(t, StateLocked, g.State(3))
}

func TestBlockedTasks_IncludesStoredBlocked(t *testing.T) {
	g := NewGraph([]Task{task(1, "A", StatusBlocked), task(2, "B", StatusNotStarted)}, nil)
	blocked := g.BlockedTasks()
	require.Len(t, blocked, 1)
	assert.True(t, blocked[0].StatusBlocked)
	assert.Empty(t, blocked[0].WaitingFor)
}

func TestBlockedTasks_AgreesWithDerivedState(t *testing.T) {
	tasks := []Task{
		task(1, "A", StatusCompleted),
		task(2, "B", StatusInProgress),
		task(3, "C", StatusCompleted),
		task(4, "D", StatusBlocked),
		task(5, "E", StatusNotStarted),
	}
	deps := []Dependency{edge(1, 3, 2), edge(2, 5, 1), edge(3, 5, 3)}
	g := NewGraph(tasks, deps)

	var locked []int64
	for _, tk := range tasks {
		if g.State(tk.ID) == StateLocked {
			locked = append(locked, tk.ID)
		}
	}
	if diff := cmp.Diff(locked, blockedIDs(g.BlockedTasks())); diff != "" {
		t.Errorf("locked vs blocked mismatch (-locked +blocked):\n%s", diff)
	}
	assert.Equal(t, []int64{3, 4}, locked)
}

func TestNewGraph_IgnoresDanglingEdges(t *testing.T) {
	g := NewGraph([]Task{task(1, "A", StatusNotStarted)}, []Dependency{edge(1, 1, 99), edge(2, 42, 1)})
	assert.False(t, g.IsBlocked(1))
	assert.Empty(t, g.Predecessors(1))
	assert.Empty(t, g.Dependents(1))
}

func TestGraph_Dependents(t *testing.T) {
	g := NewGraph(
		[]Task{task(1, "A", StatusNotStarted), task(2, "B", StatusNotStarted), task(3, "C", StatusNotStarted)},
		[]Dependency{edge(1, 2, 1), edge(2, 3, 1)},
	)
	deps := g.Dependents(1)
	require.Len(t, deps, 2)
	assert.Equal(t, "B", deps[0].Name)
	assert.Equal(t, "C", deps[1].Name)
	assert.Equal(t, []int64{1}, g.PredecessorIDs(2))
}
