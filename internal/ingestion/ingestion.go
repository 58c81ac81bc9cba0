// Package ingestion defines the artifact ingestion contract: enumerating a
// CI task group, fetching task definitions, and fetching declared
// artifacts by path. Concrete transport lives in internal/ingestion/taskcluster.
// A seen-task store lives in internal/ingestion/checkpoint; ListGroup does
// not use it, and every enumeration pages the group from its start.
package ingestion

import "context"

// TaskState is the terminal/non-terminal lifecycle state of a CI task.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskException TaskState = "exception"
)

// Terminal reports whether a task in this state will never change again.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskException:
		return true
	default:
		return false
	}
}

// TaskRef is a single member of a task group, as returned by ListGroup.
type TaskRef struct {
	TaskID string
}

// TaskRecord is a task's definition/status, as returned by GetTask.
type TaskRecord struct {
	ID    string
	Name  string
	Tags  map[string]string
	State TaskState
	RunID int
}

// Client is the artifact ingestion contract of SPEC_FULL.md §4.1. It fetches
// transport bytes and decodes HTTP framing only; callers decide how to
// interpret artifact content.
type Client interface {
	// ListGroup streams the task-group membership. The channel is closed
	// when enumeration completes; a send on errc (at most one) signals an
	// IngestFatal failure (auth/permissions, another non-200 listing
	// response, or a transport error left after retries) and ends the stream.
	ListGroup(ctx context.Context, taskGroupID string) (<-chan TaskRef, <-chan error)

	GetTask(ctx context.Context, taskID string) (*TaskRecord, error)

	// GetArtifact returns apperrors.ErrNotFound when the platform reports
	// no such artifact, and a transport error for everything else.
	GetArtifact(ctx context.Context, taskID string, runID int, path string) ([]byte, error)
}
