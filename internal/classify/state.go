package classify

import "fmt"

// TaskStatus is a single task's position in the per-task state machine of
// spec.md §4.3. Transitions are monotonic: a task already Aggregated is
// never re-ingested within a run.
type TaskStatus string

const (
	StatusDiscovered     TaskStatus = "discovered"
	StatusIngested       TaskStatus = "ingested"
	StatusParsed         TaskStatus = "parsed"
	StatusClassified     TaskStatus = "classified"
	StatusAggregated     TaskStatus = "aggregated"
	StatusRetried        TaskStatus = "retried"
	StatusFailedPermanent TaskStatus = "failed-permanent"
)

var transitions = map[TaskStatus]map[TaskStatus]bool{
	StatusDiscovered: {StatusIngested: true, StatusRetried: true, StatusFailedPermanent: true},
	StatusIngested:   {StatusParsed: true, StatusRetried: true, StatusFailedPermanent: true},
	StatusParsed:     {StatusClassified: true, StatusFailedPermanent: true},
	StatusClassified: {StatusAggregated: true},
	StatusRetried:    {StatusIngested: true, StatusFailedPermanent: true},
	// StatusFailedPermanent branches to a synthetic issue, which is itself
	// folded straight into StatusAggregated by the caller.
	StatusFailedPermanent: {StatusAggregated: true},
}

// Terminal reports whether status will never transition again within
// this run.
func (s TaskStatus) Terminal() bool {
	return s == StatusAggregated
}

// TaskState tracks one CI task's progress through the machine.
type TaskState struct {
	TaskID string
	Status TaskStatus
}

// NewTaskState starts a task in its initial state.
func NewTaskState(taskID string) *TaskState {
	return &TaskState{TaskID: taskID, Status: StatusDiscovered}
}

// Transition moves to next if the edge is legal, returning an error
// otherwise. An already-Aggregated task always rejects further transitions.
func (t *TaskState) Transition(next TaskStatus) error {
	if t.Status.Terminal() {
		return fmt.Errorf("task %s already aggregated, cannot transition to %s", t.TaskID, next)
	}
	allowed, ok := transitions[t.Status]
	if !ok || !allowed[next] {
		return fmt.Errorf("task %s: illegal transition %s -> %s", t.TaskID, t.Status, next)
	}
	t.Status = next
	return nil
}
