package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const validPlan = `{
  "projectName": "Todo App",
  "projectDescription": "A small todo list",
  "tasks": [
    {"name": "Design schema", "description": "Model todos.", "xp": 100, "difficulty": "easy",
     "hints": ["keep it small"], "tools": ["sqlite"], "timeEstimate": 2},
    {"name": "Build API", "description": "CRUD endpoints.", "xp": 249.6, "difficulty": "hard",
     "timeEstimate": 6.5}
  ]
}`

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(validPlan)
	require.NoError(t, err)

	assert.Equal(t, "Todo App", plan.ProjectName)
	assert.Equal(t, "A small todo list", plan.ProjectDescription)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, 250, plan.Tasks[1].XP)
	assert.Equal(t, roadmap.DifficultyHard, plan.Tasks[1].Difficulty)
	assert.Equal(t, []string{}, plan.Tasks[1].Hints)
	assert.Equal(t, 350, plan.TotalXP)
	assert.InDelta(t, 8.5, plan.TotalTime, 1e-9)
	assert.NotEmpty(t, plan.Tasks[0].ID)
	assert.NotEqual(t, plan.Tasks[0].ID, plan.Tasks[1].ID)
}

func TestParsePlan_Fenced(t *testing.T) {
	text := "Here is your plan:\n```json\n" + validPlan + "\n```\nGood luck!"
	plan, err := ParsePlan(text)
	require.NoError(t, err)
	assert.Len(t, plan.Tasks, 2)
}

func TestParsePlan_CommentsAndTrailingCommas(t *testing.T) {
	text := `{
	  // generated
	  "projectName": "X",
	  "tasks": [
	    {"name": "a", "description": "b", "xp": 10, "difficulty": "easy",},
	  ],
	}`
	plan, err := ParsePlan(text)
	require.NoError(t, err)
	assert.Equal(t, 10, plan.TotalXP)
}

func TestParsePlan_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":              "   ",
		"prose":              "Sure! I'd be happy to help.",
		"missing name":       `{"tasks": [{"name": "a", "description": "b", "xp": 10, "difficulty": "easy"}]}`,
		"missing tasks":      `{"projectName": "X"}`,
		"empty tasks":        `{"projectName": "X", "tasks": []}`,
		"task without name":  `{"projectName": "X", "tasks": [{"description": "b", "xp": 10, "difficulty": "easy"}]}`,
		"task without desc":  `{"projectName": "X", "tasks": [{"name": "a", "xp": 10, "difficulty": "easy"}]}`,
		"string xp":          `{"projectName": "X", "tasks": [{"name": "a", "description": "b", "xp": "10", "difficulty": "easy"}]}`,
		"missing xp":         `{"projectName": "X", "tasks": [{"name": "a", "description": "b", "difficulty": "easy"}]}`,
		"unknown difficulty": `{"projectName": "X", "tasks": [{"name": "a", "description": "b", "xp": 10, "difficulty": "legendary"}]}`,
		"second task broken": `{"projectName": "X", "tasks": [{"name": "a", "description": "b", "xp": 10, "difficulty": "easy"}, {"name": "c"}]}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			plan, err := ParsePlan(text)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, perrors.ErrInvalidPlan)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "{}", stripFences("```\n{}\n```"))
	assert.Equal(t, "{}", stripFences("  {}  "))
	assert.Equal(t, `{"a":1}`, stripFences("text\n```json\n{\"a\":1}\n```"))
}

func TestFormatConversation(t *testing.T) {
	got := FormatConversation([]llm.Message{
		{Role: llm.RoleSystem, Content: "ignore me"},
		{Role: llm.RoleUser, Content: "I want a blog"},
		{Role: llm.RoleAssistant, Content: "Who reads it?"},
	})
	assert.Equal(t, "User: I want a blog\n\nAssistant: Who reads it?", got)
}
