package roadmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil)
	assert.Equal(t, 0, s.TotalTasks)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, 0, s.TotalXP)
	assert.Equal(t, 0, s.ByDifficulty[DifficultyExpert])
	assert.Len(t, s.ByStatus, 4)
}

func TestComputeStats_Counts(t *testing.T) {
	tasks := []Task{
		{XP: 100, Difficulty: DifficultyMedium, Status: StatusCompleted, TimeEstimate: 2},
		{XP: 200, Difficulty: DifficultyHard, Status: StatusInProgress, TimeEstimate: 5},
		{XP: 20, Difficulty: DifficultyEasy, Status: StatusNotStarted, TimeEstimate: 0.5},
		{XP: 400, Difficulty: DifficultyExpert, Status: StatusBlocked, TimeEstimate: 10},
	}
	s := ComputeStats(tasks)
	assert.Equal(t, 4, s.TotalTasks)
	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 25, s.Progress)
	assert.Equal(t, 720, s.TotalXP)
	assert.Equal(t, 100, s.EarnedXP)
	assert.InDelta(t, 17.5, s.TotalHours, 1e-9)
	assert.Equal(t, 1, s.ByStatus[StatusBlocked])
	assert.Equal(t, 1, s.ByDifficulty[DifficultyHard])
	assert.Equal(t, "1/4 tasks completed (25%), 100/720 XP earned", s.Summary())
}

func TestComputeStats_Rounding(t *testing.T) {
	tasks := []Task{
		{XP: 10, Status: StatusCompleted},
		{XP: 10, Status: StatusCompleted},
		{XP: 10, Status: StatusNotStarted},
	}
	assert.Equal(t, 67, ComputeStats(tasks).Progress)
	assert.Equal(t, 50, ComputeStats(tasks[1:]).Progress)
	assert.Equal(t, 33, ComputeStats([]Task{tasks[0], tasks[2], tasks[2]}).Progress)
}

func TestComputeStats_Invariants(t *testing.T) {
	lists := [][]Task{
		nil,
		{{XP: 10, Status: StatusCompleted}},
		{{XP: 500, Status: StatusNotStarted}, {XP: 10, Status: StatusCompleted}},
		{{XP: 300, Status: StatusBlocked}, {XP: 150, Status: StatusInProgress}},
	}
	for _, l := range lists {
		s := ComputeStats(l)
		assert.LessOrEqual(t, s.EarnedXP, s.TotalXP)
		assert.LessOrEqual(t, s.CompletedTasks, s.TotalTasks)
		assert.GreaterOrEqual(t, s.Progress, 0)
		assert.LessOrEqual(t, s.Progress, 100)
	}
}
