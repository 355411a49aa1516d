// Package producer implements the Looping Task Producer: a resumable,
// bounded, fair enumerator that converts tenants × spaces × replication
// policies × content-ids into duplication tasks and feeds them into a
// durable queue, never holding more than a bounded working set in memory
// regardless of how many objects a space contains.
package producer

import (
	"context"
	"fmt"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/morsel"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/policy"
	"github.com/duplicationmill/core/queue"
	"github.com/duplicationmill/core/statestore"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/task"
)

// batchSize is the number of tasks flushed per TaskQueue.PutBatch call.
const batchSize = 10

// listChunkSize is how many contentIds a single nibble fetches.
const listChunkSize = storage.ChunkSize

// Producer is the LoopingTaskProducer of the duplication core.
type Producer struct {
	id          string
	ceiling     int
	stores      StoreResolver
	queue       queue.Queue
	state       *statestore.Store
	filter      *policy.InclusionExclusion
	metrics     *metrics.Metrics

	dedup         *task.DedupSet
	morselsToLoad *morsel.Queue
	pendingBatch  []task.Task
}

// StoreResolver resolves a storeId (as named in a StorePolicy) to the
// storage.Provider backing it. One Producer may replicate across many
// distinct stores, each with its own credentials and backend kind.
type StoreResolver interface {
	Resolve(storeID string) (storage.Provider, error)
}

// Config bundles the arguments Producer.New needs beyond the collaborators
// that have their own constructors (state store, queue, metrics).
type Config struct {
	ProducerID       string
	MaxTaskQueueSize int
}

// New builds a Producer. state, q, and stores are owned by the caller for
// the lifetime of the process; New does not take ownership of closing them.
func New(cfg Config, stores StoreResolver, q queue.Queue, state *statestore.Store, filter *policy.InclusionExclusion, m *metrics.Metrics) *Producer {
	return &Producer{
		id:      cfg.ProducerID,
		ceiling: cfg.MaxTaskQueueSize,
		stores:  stores,
		queue:   q,
		state:   state,
		filter:  filter,
		metrics: m,
	}
}

// Run performs one complete producer pass: load persisted morsels, expand
// the current policy snapshot, and nibble morsels until the queue ceiling
// is reached or all morsels are exhausted. It returns nil on a normal exit
// (ceiling reached or work exhausted) and a *cmn.RunAborted error if the
// state store or queue becomes unavailable mid-run.
func (p *Producer) Run(ctx context.Context, snapshot policy.Snapshot) error {
	persisted, err := p.state.Load(p.id)
	if err != nil {
		return &cmn.RunAborted{Reason: "load persisted state", Cause: err}
	}

	active := morsel.NewQueue()
	active.AddAll(persisted) // persisted morsels take precedence: added first

	snapshot.Walk(func(account, spaceID string, sp policy.StorePolicy) {
		if p.filter != nil && !p.filter.Allows(account, spaceID) {
			return
		}
		active.Add(morsel.New(account, spaceID, sp))
	})

	p.dedup = task.NewDedupSet(p.ceiling * 2)
	p.morselsToLoad = morsel.NewQueue()
	p.pendingBatch = nil

	for {
		select {
		case <-ctx.Done():
			return p.persistAndExit(ctx, active)
		default:
		}

		depth, err := p.queue.Size(ctx)
		if err != nil {
			return &cmn.RunAborted{Reason: "observe queue size", Cause: err}
		}
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(depth))
		}
		if depth >= p.ceiling {
			nlog.Infof("producer %s: queue depth %d >= ceiling %d, stopping", p.id, depth, p.ceiling)
			return p.persistAndExit(ctx, active)
		}

		if active.IsEmpty() {
			active, p.morselsToLoad = p.morselsToLoad, morsel.NewQueue()
			if active.IsEmpty() {
				nlog.Infof("producer %s: all morsels exhausted, run complete", p.id)
				return p.flushAndPersist(ctx, nil)
			}
		}

		m, ok := active.Poll()
		if !ok {
			continue
		}
		if err := p.nibble(ctx, m); err != nil {
			return &cmn.RunAborted{Reason: fmt.Sprintf("nibble morsel %s/%s", m.Account, m.SpaceID), Cause: err}
		}

		if err := p.flushAndPersist(ctx, active); err != nil {
			return err
		}
	}
}

func (p *Producer) persistAndExit(ctx context.Context, active *morsel.Queue) error {
	return p.flushAndPersist(ctx, active)
}

// flushAndPersist flushes any pending sub-batchSize batch and persists the
// union of active (remaining) and morselsToLoad, which is the full
// remaining working set after this step.
func (p *Producer) flushAndPersist(ctx context.Context, active *morsel.Queue) error {
	if err := p.flushPending(ctx); err != nil {
		return &cmn.RunAborted{Reason: "flush pending batch", Cause: err}
	}
	var remaining []morsel.Morsel
	if active != nil {
		remaining = append(remaining, active.All()...)
	}
	remaining = append(remaining, p.morselsToLoad.All()...)
	if err := p.state.Save(p.id, remaining); err != nil {
		return &cmn.RunAborted{Reason: "persist morsel state", Cause: err}
	}
	return nil
}
