// Package queue defines the durable, at-least-once work queue contract the
// producer writes to and the worker layer (cmd/dupworker) reads from.
package queue

import (
	"context"

	"github.com/duplicationmill/core/task"
)

// Delivery is one received Task plus the receipt handle the queue needs to
// extend its visibility or delete it. Queue implementations that don't
// need a separate receipt (e.g. an in-memory queue keyed by Task identity)
// may set Receipt to any stable value derived from the task.
type Delivery struct {
	Task    task.Task
	Receipt string
}

// Queue is the duplication core's TaskQueue contract: durable, FIFO-ish,
// at-least-once, with visibility timeouts.
type Queue interface {
	// PutBatch enqueues tasks. Callers batch in groups of 10 (SQS's
	// SendMessageBatch limit; see queue/sqs).
	PutBatch(ctx context.Context, tasks []task.Task) error

	// Take receives the next available task, or cmn.ErrTimeout if the
	// queue is empty.
	Take(ctx context.Context) (Delivery, error)

	// ExtendVisibility extends d's invisibility window, used by a worker on
	// a long-running task so the queue doesn't redrive it mid-processing.
	ExtendVisibility(ctx context.Context, d Delivery) error

	// Delete acknowledges d, removing it from the queue permanently.
	// Returns cmn.ErrTaskNotFound if the queue no longer knows about it.
	Delete(ctx context.Context, d Delivery) error

	// Size returns an advisory, possibly-lagging approximate depth, used by
	// the producer purely as a backpressure signal.
	Size(ctx context.Context) (int, error)
}
