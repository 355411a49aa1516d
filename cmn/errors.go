// Package cmn holds error types and small helpers shared across the
// duplication core: the producer, the processor, and every storage/queue
// backend they drive.
package cmn

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is a domain signal, not a failure: the case analysis in the
// processor's reconciliation table treats it as "absent", never retries it,
// and never logs it as an error.
var ErrNotFound = errors.New("not found")

// ErrTimeout signals an empty-queue poll (TaskQueue.Take). A visibility
// extension or delete against an unknown task reports ErrTaskNotFound.
var ErrTimeout = errors.New("timeout")

// ErrTaskNotFound is returned by TaskQueue.Delete/ExtendVisibility when the
// queue has no record of the task (already deleted, or redelivered under a
// different receipt).
var ErrTaskNotFound = errors.New("task not found")

// TaskExecutionFailed wraps a fatal, non-retryable task error: missing
// checksum, empty spaceId, persistent checksum mismatch. The worker layer
// (cmd/dupworker) decides whether to dead-letter the task.
type TaskExecutionFailed struct {
	Account   string
	SpaceID   string
	ContentID string
	Cause     error
}

func (e *TaskExecutionFailed) Error() string {
	return fmt.Sprintf("task execution failed [account=%s space=%s content=%s]: %v",
		e.Account, e.SpaceID, e.ContentID, e.Cause)
}

func (e *TaskExecutionFailed) Unwrap() error { return e.Cause }

// NewTaskExecutionFailed wraps cause with task coordinates for logging and
// dead-letter inspection.
func NewTaskExecutionFailed(account, spaceID, contentID string, cause error) *TaskExecutionFailed {
	return &TaskExecutionFailed{Account: account, SpaceID: spaceID, ContentID: contentID, Cause: cause}
}

// RunAborted is fatal for a producer run: state-store or queue unavailable.
// The caller must exit non-zero without writing partial state.
type RunAborted struct {
	Reason string
	Cause  error
}

func (e *RunAborted) Error() string {
	return fmt.Sprintf("producer run aborted: %s: %v", e.Reason, e.Cause)
}

func (e *RunAborted) Unwrap() error { return e.Cause }

// IsNotFound reports whether err (or any cause in its chain) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
