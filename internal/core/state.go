package core

// TaskState is the protocol-visible lifecycle state of a task.
type TaskState string

const (
	StateSubmitted     TaskState = "submitted"
	StateWorking       TaskState = "working"
	StateInputRequired TaskState = "input-required"
	StateCompleted     TaskState = "completed"
	StateCanceled      TaskState = "canceled"
	StateFailed        TaskState = "failed"
	StateUnknown       TaskState = "unknown"
	StateRejected      TaskState = "rejected"
	StateAuthRequired  TaskState = "auth-required"
)

var knownStates = map[TaskState]struct{}{
	StateSubmitted:     {},
	StateWorking:       {},
	StateInputRequired: {},
	StateCompleted:     {},
	StateCanceled:      {},
	StateFailed:        {},
	StateUnknown:       {},
	StateRejected:      {},
	StateAuthRequired:  {},
}

// ParseTaskState maps a stored string to a TaskState, falling back to unknown.
func ParseTaskState(s string) TaskState {
	if _, ok := knownStates[TaskState(s)]; ok {
		return TaskState(s)
	}
	return StateUnknown
}

func (s TaskState) String() string {
	return string(s)
}

// IsTerminal reports whether no further turns are expected for the task.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCanceled, StateFailed, StateRejected:
		return true
	default:
		return false
	}
}
