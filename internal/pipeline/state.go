package pipeline

import (
	"sync"

	"github.com/mozilla/code-review/internal/classify"
)

// stateTracker guards a per-run map of classify.TaskState under concurrent
// access from the worker pool.
type stateTracker struct {
	mu     sync.Mutex
	states map[string]*classify.TaskState
}

func newStateTracker() *stateTracker {
	return &stateTracker{states: make(map[string]*classify.TaskState)}
}

func (t *stateTracker) start(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[taskID]; !ok {
		t.states[taskID] = classify.NewTaskState(taskID)
	}
}

func (t *stateTracker) advance(taskID string, status classify.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[taskID]
	if !ok {
		s = classify.NewTaskState(taskID)
		t.states[taskID] = s
	}
	_ = s.Transition(status)
}

func (t *stateTracker) fail(taskID string) {
	t.advance(taskID, classify.StatusFailedPermanent)
	t.advance(taskID, classify.StatusAggregated)
}
