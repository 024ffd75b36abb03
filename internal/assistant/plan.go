package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tailscale/hujson"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

var fenceRE = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n(.*?)\r?\n?[ \t]*```")

// stripFences returns the body of the first fenced code block in text, or
// text itself when there is none.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

type rawPlanTask struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	XP           *float64 `json:"xp"`
	Difficulty   string   `json:"difficulty"`
	Hints        []string `json:"hints"`
	Tools        []string `json:"tools"`
	TimeEstimate float64  `json:"timeEstimate"`
}

type rawPlan struct {
	ProjectName        string         `json:"projectName"`
	ProjectDescription string         `json:"projectDescription"`
	Tasks              *[]rawPlanTask `json:"tasks"`
}

func planError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", perrors.ErrInvalidPlan, fmt.Sprintf(format, args...))
}

// ParsePlan parses a plan-generation response. Any structural problem fails
// the whole plan. Comments and trailing commas are tolerated.
func ParsePlan(text string) (*roadmap.Plan, error) {
	body := stripFences(text)
	if body == "" {
		return nil, planError("empty response")
	}
	std, err := hujson.Standardize([]byte(body))
	if err != nil {
		return nil, planError("response is not valid JSON: %v", err)
	}
	var raw rawPlan
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, planError("response does not match the plan format: %v", err)
	}

	if strings.TrimSpace(raw.ProjectName) == "" {
		return nil, planError("missing projectName")
	}
	if raw.Tasks == nil {
		return nil, planError("missing tasks")
	}
	if len(*raw.Tasks) == 0 {
		return nil, planError("plan has no tasks")
	}

	plan := &roadmap.Plan{
		ProjectName:        strings.TrimSpace(raw.ProjectName),
		ProjectDescription: strings.TrimSpace(raw.ProjectDescription),
		Tasks:              make([]roadmap.PlanTask, 0, len(*raw.Tasks)),
	}
	for i, rt := range *raw.Tasks {
		n := i + 1
		if strings.TrimSpace(rt.Name) == "" {
			return nil, planError("task %d has no name", n)
		}
		if strings.TrimSpace(rt.Description) == "" {
			return nil, planError("task %d (%s) has no description", n, rt.Name)
		}
		if rt.XP == nil {
			return nil, planError("task %d (%s) has no numeric xp", n, rt.Name)
		}
		d := roadmap.Difficulty(rt.Difficulty)
		if !d.Valid() {
			return nil, planError("task %d (%s) has invalid difficulty %q", n, rt.Name, rt.Difficulty)
		}
		plan.Tasks = append(plan.Tasks, roadmap.PlanTask{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(rt.Name),
			Description:  strings.TrimSpace(rt.Description),
			XP:           int(math.Round(*rt.XP)),
			Difficulty:   d,
			Hints:        nonNil(rt.Hints),
			Tools:        nonNil(rt.Tools),
			TimeEstimate: rt.TimeEstimate,
		})
	}
	plan.Totals()
	return plan, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FormatConversation renders the non-system turns as a transcript.
func FormatConversation(msgs []llm.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			parts = append(parts, "User: "+m.Content)
		case llm.RoleAssistant:
			parts = append(parts, "Assistant: "+m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
