package assistant

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/p-blackswan/questplan/internal/roadmap"
)

// maxMemoryContent bounds each memory item's content in the context block.
const maxMemoryContent = 500

// truncate cuts s to at most max bytes without splitting a character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}

// BuildContext flattens a project snapshot into the text block the assistant
// sees before every turn.
func BuildContext(snap *roadmap.Snapshot) string {
	var b strings.Builder
	p := snap.Project
	view := roadmap.BuildView(snap.Phases, snap.Tasks, snap.Dependencies)

	fmt.Fprintf(&b, "## Current project\n")
	fmt.Fprintf(&b, "Project ID: %d (pass this as projectId to every tool)\n", p.ID)
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Your user's role: %s\n", snap.Role)
	fmt.Fprintf(&b, "Progress: %s\n", view.Stats.Summary())
	if p.Brief != "" {
		fmt.Fprintf(&b, "\n## Brief\n%s\n", strings.TrimSpace(p.Brief))
	}

	writeTask := func(tv roadmap.TaskView) {
		fmt.Fprintf(&b, "- #%d %s [%s, %s] %d XP, %s, %gh",
			tv.ID, tv.Name, tv.Status, tv.State, tv.XP, tv.Difficulty, tv.TimeEstimate)
		if len(tv.Predecessors) > 0 {
			fmt.Fprintf(&b, ", depends on %s", idList(tv.Predecessors))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\n## Phases (%d)\n", len(view.Phases))
	if len(view.Phases) == 0 {
		b.WriteString("No phases yet.\n")
	}
	for _, pv := range view.Phases {
		fmt.Fprintf(&b, "### Phase #%d %s (order %d, %s, %d%%)\n", pv.ID, pv.Name, pv.OrderIndex, pv.State, pv.Progress)
		for _, tv := range pv.Tasks {
			writeTask(tv)
		}
	}

	fmt.Fprintf(&b, "\n## Tasks without a phase (%d)\n", len(view.Unassigned))
	for _, tv := range view.Unassigned {
		writeTask(tv)
	}

	if len(snap.Dependencies) > 0 {
		fmt.Fprintf(&b, "\n## Dependencies\n")
		for _, d := range snap.Dependencies {
			fmt.Fprintf(&b, "- dependency #%d: task #%d waits for task #%d\n", d.ID, d.TaskID, d.PredecessorTaskID)
		}
	}

	if len(snap.Memory) > 0 {
		fmt.Fprintf(&b, "\n## Project memory\n")
		for _, m := range snap.Memory {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", m.Type, m.Label, truncate(m.Content, maxMemoryContent))
		}
	}

	if p.Prompt != "" {
		fmt.Fprintf(&b, "\n## Project instructions\n%s\n", strings.TrimSpace(p.Prompt))
	}
	return b.String()
}
