package roadmap

import (
	"fmt"
	"math"
)

// Stats aggregates a project's task list.
type Stats struct {
	TotalTasks     int                `json:"totalTasks"`
	CompletedTasks int                `json:"completedTasks"`
	Progress       int                `json:"progress"`
	TotalXP        int                `json:"totalXP"`
	EarnedXP       int                `json:"earnedXP"`
	TotalHours     float64            `json:"totalHours"`
	ByStatus       map[TaskStatus]int `json:"byStatus"`
	ByDifficulty   map[Difficulty]int `json:"byDifficulty"`
}

// ComputeStats aggregates tasks in a single pass. Progress is the rounded
// completion percentage and is 0 for an empty list.
func ComputeStats(tasks []Task) Stats {
	s := Stats{
		ByStatus:     make(map[TaskStatus]int, len(Statuses)),
		ByDifficulty: make(map[Difficulty]int, len(Difficulties)),
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, d := range Difficulties {
		s.ByDifficulty[d] = 0
	}
	for _, t := range tasks {
		s.TotalTasks++
		s.TotalXP += t.XP
		s.TotalHours += t.TimeEstimate
		s.ByStatus[t.Status]++
		s.ByDifficulty[t.Difficulty]++
		if t.Status == StatusCompleted {
			s.CompletedTasks++
			s.EarnedXP += t.XP
		}
	}
	s.Progress = percent(s.CompletedTasks, s.TotalTasks)
	return s
}

// Summary renders the stats as one line.
func (s Stats) Summary() string {
	return fmt.Sprintf("%d/%d tasks completed (%d%%), %d/%d XP earned",
		s.CompletedTasks, s.TotalTasks, s.Progress, s.EarnedXP, s.TotalXP)
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
