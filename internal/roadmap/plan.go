package roadmap

// Plan is a generated project breakdown, not yet persisted.
type Plan struct {
	ProjectName        string     `json:"projectName"`
	ProjectDescription string     `json:"projectDescription"`
	Tasks              []PlanTask `json:"tasks"`
	TotalXP            int        `json:"totalXP"`
	TotalTime          float64    `json:"totalTime"`
}

// PlanTask is one task of a generated plan. ID is a locally generated
// identifier that only lives as long as the plan.
type PlanTask struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	XP           int        `json:"xp"`
	Difficulty   Difficulty `json:"difficulty"`
	Hints        []string   `json:"hints"`
	Tools        []string   `json:"tools"`
	TimeEstimate float64    `json:"timeEstimate"`
}

// Totals recomputes TotalXP and TotalTime from the plan's tasks.
func (p *Plan) Totals() {
	p.TotalXP, p.TotalTime = 0, 0
	for _, t := range p.Tasks {
		p.TotalXP += t.XP
		p.TotalTime += t.TimeEstimate
	}
}
