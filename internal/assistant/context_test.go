package assistant

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/p-blackswan/questplan/internal/roadmap"
)

func int64p(v int64) *int64 { return &v }

func sampleSnapshot() *roadmap.Snapshot {
	return &roadmap.Snapshot{
		Project: roadmap.Project{
			ID: 7, Name: "Blog", Description: "Personal blog",
			Brief: "Ship by summer.", Prompt: "Answer in short sentences.",
		},
		Role:   roadmap.RoleCollaborator,
		Phases: []roadmap.Phase{{ID: 1, ProjectID: 7, Name: "Setup", OrderIndex: 0}},
		Tasks: []roadmap.Task{
			{ID: 10, ProjectID: 7, PhaseID: int64p(1), Name: "Pick stack", XP: 50, Difficulty: roadmap.DifficultyEasy, TimeEstimate: 1, Status: roadmap.StatusCompleted},
			{ID: 11, ProjectID: 7, PhaseID: int64p(1), Name: "Write posts", XP: 150, Difficulty: roadmap.DifficultyMedium, TimeEstimate: 4, Status: roadmap.StatusNotStarted},
			{ID: 12, ProjectID: 7, Name: "Launch", XP: 100, Difficulty: roadmap.DifficultyMedium, TimeEstimate: 2, Status: roadmap.StatusNotStarted},
		},
		Dependencies: []roadmap.Dependency{{ID: 3, ProjectID: 7, TaskID: 12, PredecessorTaskID: 11}},
		Memory: []roadmap.MemoryItem{
			{ID: 1, ProjectID: 7, Type: roadmap.MemoryConstant, Label: "Domain", Content: strings.Repeat("x", 600)},
		},
	}
}

func TestBuildContext(t *testing.T) {
	out := BuildContext(sampleSnapshot())

	assert.Contains(t, out, "Project ID: 7")
	assert.Contains(t, out, "Name: Blog")
	assert.Contains(t, out, "role: collaborator")
	assert.Contains(t, out, "1/3 tasks completed")
	assert.Contains(t, out, "Ship by summer.")
	assert.Contains(t, out, "### Phase #1 Setup")
	assert.Contains(t, out, "- #11 Write posts [not_started, WAITING]")
	assert.Contains(t, out, "- #12 Launch [not_started, LOCKED]")
	assert.Contains(t, out, "depends on #11")
	assert.Contains(t, out, "task #12 waits for task #11")
	assert.Contains(t, out, "Answer in short sentences.")
	assert.NotContains(t, out, strings.Repeat("x", 501))
}

func TestBuildContext_EmptyProject(t *testing.T) {
	out := BuildContext(&roadmap.Snapshot{Project: roadmap.Project{ID: 1, Name: "Empty"}, Role: roadmap.RoleOwner})
	assert.Contains(t, out, "No phases yet.")
	assert.Contains(t, out, "Tasks without a phase (0)")
	assert.NotContains(t, out, "## Dependencies")
	assert.NotContains(t, out, "## Project instructions")
}

func TestTruncate_KeepsCharactersWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	arabic := "a" + strings.Repeat("ب", 300)
	out := truncate(arabic, maxMemoryContent)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), maxMemoryContent+len("…"))
	assert.Equal(t, "a"+strings.Repeat("ب", 249)+"…", out)

	snap := sampleSnapshot()
	snap.Memory[0].Content = arabic
	assert.True(t, utf8.ValidString(BuildContext(snap)))
}
