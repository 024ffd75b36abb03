package roadmap

// Graph indexes a project's tasks and dependency edges for state lookups.
// It is built from a fetched snapshot and never mutated afterwards.
type Graph struct {
	tasks map[int64]Task
	order []int64
	preds map[int64][]int64
}

// NewGraph indexes tasks and edges. Edges whose predecessor or dependent is
// not among tasks are ignored, so a dangling reference never locks a task.
func NewGraph(tasks []Task, deps []Dependency) *Graph {
	g := &Graph{
		tasks: make(map[int64]Task, len(tasks)),
		order: make([]int64, 0, len(tasks)),
		preds: make(map[int64][]int64),
	}
	for _, t := range tasks {
		if _, dup := g.tasks[t.ID]; !dup {
			g.order = append(g.order, t.ID)
		}
		g.tasks[t.ID] = t
	}
	for _, d := range deps {
		if _, ok := g.tasks[d.TaskID]; !ok {
			continue
		}
		if _, ok := g.tasks[d.PredecessorTaskID]; !ok {
			continue
		}
		g.preds[d.TaskID] = append(g.preds[d.TaskID], d.PredecessorTaskID)
	}
	return g
}

// Task returns the indexed task with the given id.
func (g *Graph) Task(id int64) (Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Tasks returns the indexed tasks in input order.
func (g *Graph) Tasks() []Task {
	out := make([]Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id])
	}
	return out
}

// Predecessors returns the direct predecessors of a task.
func (g *Graph) Predecessors(id int64) []Task {
	ids := g.preds[id]
	out := make([]Task, 0, len(ids))
	for _, p := range ids {
		out = append(out, g.tasks[p])
	}
	return out
}

// PredecessorIDs returns the ids of the direct predecessors of a task.
func (g *Graph) PredecessorIDs(id int64) []int64 {
	return append([]int64(nil), g.preds[id]...)
}

// Dependents returns the tasks that list id as a direct predecessor.
func (g *Graph) Dependents(id int64) []Task {
	var out []Task
	for _, tid := range g.order {
		for _, p := range g.preds[tid] {
			if p == id {
				out = append(out, g.tasks[tid])
				break
			}
		}
	}
	return out
}

func (g *Graph) predecessorStatuses(id int64) []TaskStatus {
	ids := g.preds[id]
	out := make([]TaskStatus, len(ids))
	for i, p := range ids {
		out[i] = g.tasks[p].Status
	}
	return out
}

// IsBlocked applies Blocked to an indexed task.
func (g *Graph) IsBlocked(id int64) bool {
	t, ok := g.tasks[id]
	if !ok {
		return false
	}
	return Blocked(t.Status, g.predecessorStatuses(id))
}

// State returns the derived display state of an indexed task.
func (g *Graph) State(id int64) State {
	t, ok := g.tasks[id]
	if !ok {
		return StateWaiting
	}
	return TaskState(t.Status, g.predecessorStatuses(id))
}

// BlockedTask is a task that cannot proceed, with the reason.
type BlockedTask struct {
	Task Task `json:"task"`
	// StatusBlocked is set when the stored status itself is blocked.
	StatusBlocked bool `json:"statusBlocked"`
	// WaitingFor lists the direct predecessors that are not completed.
	WaitingFor []Task `json:"waitingFor"`
}

// BlockedTasks lists every indexed task for which IsBlocked holds, in input order.
func (g *Graph) BlockedTasks() []BlockedTask {
	var out []BlockedTask
	for _, id := range g.order {
		if !g.IsBlocked(id) {
			continue
		}
		t := g.tasks[id]
		bt := BlockedTask{Task: t, StatusBlocked: t.Status == StatusBlocked, WaitingFor: []Task{}}
		for _, p := range g.Predecessors(id) {
			if p.Status != StatusCompleted {
				bt.WaitingFor = append(bt.WaitingFor, p)
			}
		}
		out = append(out, bt)
	}
	return out
}
