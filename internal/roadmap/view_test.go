package roadmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func inPhase(t Task, phaseID int64) Task {
	t.PhaseID = ptr(phaseID)
	return t
}

func phaseStates(v View) []State {
	out := make([]State, len(v.Phases))
	for i, p := range v.Phases {
		out[i] = p.State
	}
	return out
}

func TestBuildView_PhaseChain(t *testing.T) {
	phases := []Phase{
		{ID: 30, Name: "Launch", OrderIndex: 3},
		{ID: 10, Name: "Design", OrderIndex: 1},
		{ID: 20, Name: "Build", OrderIndex: 2},
	}
	tasks := []Task{
		inPhase(task(1, "wireframes", StatusCompleted), 10),
		inPhase(task(2, "api", StatusInProgress), 20),
		inPhase(task(3, "deploy", StatusNotStarted), 30),
	}
	v := BuildView(phases, tasks, nil)

	require.Len(t, v.Phases, 3)
	assert.Equal(t, []string{"Design", "Build", "Launch"}, []string{v.Phases[0].Name, v.Phases[1].Name, v.Phases[2].Name})
	if diff := cmp.Diff([]State{StateDone, StateRunning, StateLocked}, phaseStates(v)); diff != "" {
		t.Errorf("phase states (-want +got):\n%s", diff)
	}
	assert.Equal(t, 100, v.Phases[0].Progress)
	assert.False(t, v.Complete)
}

func TestBuildView_EmptyPhaseIsDoneAndDoesNotLock(t *testing.T) {
	phases := []Phase{
		{ID: 1, Name: "Empty", OrderIndex: 0},
		{ID: 2, Name: "Work", OrderIndex: 1},
	}
	tasks := []Task{inPhase(task(1, "only", StatusNotStarted), 2)}
	v := BuildView(phases, tasks, nil)
	assert.Equal(t, []State{StateDone, StateWaiting}, phaseStates(v))
}

func TestBuildView_DuplicateOrderIndexTieBreaksByID(t *testing.T) {
	phases := []Phase{{ID: 9, Name: "B", OrderIndex: 1}, {ID: 3, Name: "A", OrderIndex: 1}}
	v := BuildView(phases, nil, nil)
	assert.Equal(t, "A", v.Phases[0].Name)
	assert.Equal(t, "B", v.Phases[1].Name)
}

func TestBuildView_UnassignedAndUnknownPhase(t *testing.T) {
	tasks := []Task{task(1, "loose", StatusNotStarted), inPhase(task(2, "orphan", StatusNotStarted), 77)}
	v := BuildView(nil, tasks, nil)
	require.Len(t, v.Unassigned, 2)
	assert.Equal(t, StateWaiting, v.Unassigned[0].State)
	assert.Equal(t, []int64{}, v.Unassigned[0].Predecessors)
}

func TestBuildView_Complete(t *testing.T) {
	assert.False(t, BuildView([]Phase{{ID: 1}}, nil, nil).Complete, "no tasks never completes")

	tasks := []Task{
		inPhase(task(1, "a", StatusCompleted), 1),
		task(2, "b", StatusCompleted),
	}
	v := BuildView([]Phase{{ID: 1}, {ID: 2, OrderIndex: 1}}, tasks, []Dependency{edge(1, 2, 1)})
	assert.True(t, v.Complete)
	assert.Equal(t, 100, v.Stats.Progress)

	tasks[1].Status = StatusInProgress
	assert.False(t, BuildView(nil, tasks, nil).Complete)
}

func TestBuildView_LockedTaskKeepsPhaseOpen(t *testing.T) {
	tasks := []Task{
		inPhase(task(1, "a", StatusNotStarted), 1),
		inPhase(task(2, "b", StatusCompleted), 1),
	}
	v := BuildView([]Phase{{ID: 1}}, tasks, []Dependency{edge(1, 2, 1)})
	require.Len(t, v.Phases[0].Tasks, 2)
	assert.Equal(t, StateLocked, v.Phases[0].Tasks[1].State)
	assert.Equal(t, StateWaiting, v.Phases[0].State)
	assert.Equal(t, 0, v.Phases[0].Progress)
}
