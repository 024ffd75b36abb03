package roadmap

// Blocked is the single predicate behind both the LOCKED display state and
// the blocked-task listing. A task is blocked when its stored status is
// blocked or when any direct predecessor is not completed. Only direct
// predecessors are considered.
func Blocked(status TaskStatus, predecessors []TaskStatus) bool {
	if status == StatusBlocked {
		return true
	}
	for _, p := range predecessors {
		if p != StatusCompleted {
			return true
		}
	}
	return false
}

// TaskState derives the display state of a task. LOCKED wins over the
// task's own stored status.
func TaskState(status TaskStatus, predecessors []TaskStatus) State {
	if Blocked(status, predecessors) {
		return StateLocked
	}
	switch status {
	case StatusCompleted:
		return StateDone
	case StatusInProgress:
		return StateRunning
	default:
		return StateWaiting
	}
}

// PhaseState derives the display state of a phase from whether the previous
// phase is DONE and the derived states of its own tasks. A phase without
// tasks is DONE.
func PhaseState(previousDone bool, tasks []State) State {
	if !previousDone {
		return StateLocked
	}
	allDone, anyRunning := true, false
	for _, s := range tasks {
		if s != StateDone {
			allDone = false
		}
		if s == StateRunning {
			anyRunning = true
		}
	}
	switch {
	case allDone:
		return StateDone
	case anyRunning:
		return StateRunning
	default:
		return StateWaiting
	}
}
