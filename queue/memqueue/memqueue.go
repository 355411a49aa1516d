// Package memqueue is an in-memory Queue implementation with visibility
// timeouts, used by the scenario test suite and by small single-process
// deployments that don't need cross-process durability.
package memqueue

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/queue"
	"github.com/duplicationmill/core/task"
)

type entry struct {
	id        uint64
	task      task.Task
	visibleAt time.Time // zero means visible now
}

// Queue is a thread-safe in-memory queue.
type Queue struct {
	mu              sync.Mutex
	items           *list.List // of *entry, visible-order head-first among ready items
	byReceipt       map[string]*list.Element
	nextID          uint64
	visibilityDelay time.Duration
}

// New returns an empty queue. visibilityDelay is how long a taken task stays
// invisible before the queue would redrive it (this implementation redrives
// lazily, on the next Take, rather than via a background timer).
func New(visibilityDelay time.Duration) *Queue {
	return &Queue{
		items:           list.New(),
		byReceipt:       make(map[string]*list.Element),
		visibilityDelay: visibilityDelay,
	}
}

var _ queue.Queue = (*Queue)(nil)

func (q *Queue) PutBatch(_ context.Context, tasks []task.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range tasks {
		q.nextID++
		e := &entry{id: q.nextID, task: t}
		el := q.items.PushBack(e)
		q.byReceipt[receiptFor(e)] = el
	}
	return nil
}

func receiptFor(e *entry) string { return fmt.Sprintf("r-%d", e.id) }

func (q *Queue) Take(_ context.Context) (queue.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for el := q.items.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.visibleAt.IsZero() || !e.visibleAt.After(now) {
			e.visibleAt = now.Add(q.visibilityDelay)
			return queue.Delivery{Task: e.task, Receipt: receiptFor(e)}, nil
		}
	}
	return queue.Delivery{}, cmn.ErrTimeout
}

func (q *Queue) ExtendVisibility(_ context.Context, d queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	el, ok := q.byReceipt[d.Receipt]
	if !ok {
		return cmn.ErrTaskNotFound
	}
	el.Value.(*entry).visibleAt = time.Now().Add(q.visibilityDelay)
	return nil
}

func (q *Queue) Delete(_ context.Context, d queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	el, ok := q.byReceipt[d.Receipt]
	if !ok {
		return cmn.ErrTaskNotFound
	}
	q.items.Remove(el)
	delete(q.byReceipt, d.Receipt)
	return nil
}

func (q *Queue) Size(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len(), nil
}
