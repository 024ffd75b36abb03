package roadmap

import "sort"

// TaskView is a task with its derived display state.
type TaskView struct {
	Task
	State        State   `json:"state"`
	Predecessors []int64 `json:"predecessors"`
}

// PhaseView is a phase with its derived display state and tasks.
type PhaseView struct {
	Phase
	State    State      `json:"state"`
	Progress int        `json:"progress"`
	Tasks    []TaskView `json:"tasks"`
}

// View is the roadmap dashboard for one project.
type View struct {
	Phases     []PhaseView `json:"phases"`
	Unassigned []TaskView  `json:"unassigned"`
	Stats      Stats       `json:"stats"`
	// Complete requires at least one task, so an empty project never reports
	// completion even though all of its (empty) phases are DONE.
	Complete bool `json:"complete"`
}

// SortPhases orders phases by order index, breaking ties by id.
func SortPhases(phases []Phase) []Phase {
	out := append([]Phase(nil), phases...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BuildView derives the roadmap from a snapshot's phases, tasks and edges.
// Tasks whose phase is not among phases are listed as unassigned.
func BuildView(phases []Phase, tasks []Task, deps []Dependency) View {
	g := NewGraph(tasks, deps)
	sorted := SortPhases(phases)

	known := make(map[int64]bool, len(sorted))
	for _, p := range sorted {
		known[p.ID] = true
	}

	byPhase := make(map[int64][]TaskView)
	view := View{
		Phases:     make([]PhaseView, 0, len(sorted)),
		Unassigned: []TaskView{},
		Stats:      ComputeStats(g.Tasks()),
	}
	allDone := true
	for _, t := range g.Tasks() {
		tv := TaskView{Task: t, State: g.State(t.ID), Predecessors: g.PredecessorIDs(t.ID)}
		if tv.Predecessors == nil {
			tv.Predecessors = []int64{}
		}
		if tv.State != StateDone {
			allDone = false
		}
		if t.PhaseID != nil && known[*t.PhaseID] {
			byPhase[*t.PhaseID] = append(byPhase[*t.PhaseID], tv)
			continue
		}
		view.Unassigned = append(view.Unassigned, tv)
	}

	previousDone := true
	for _, p := range sorted {
		tvs := byPhase[p.ID]
		if tvs == nil {
			tvs = []TaskView{}
		}
		states := make([]State, len(tvs))
		done := 0
		for i, tv := range tvs {
			states[i] = tv.State
			if tv.State == StateDone {
				done++
			}
		}
		pv := PhaseView{Phase: p, State: PhaseState(previousDone, states), Tasks: tvs}
		if len(tvs) > 0 {
			pv.Progress = percent(done, len(tvs))
		}
		view.Phases = append(view.Phases, pv)
		previousDone = pv.State == StateDone
	}

	view.Complete = len(tasks) > 0 && allDone && previousDone
	return view
}
