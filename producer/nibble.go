package producer

import (
	"context"

	"github.com/duplicationmill/core/morsel"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/task"
)

// nibble advances morsel m by at most one page of source content: running
// the deletion sweep if the morsel hasn't started yet, fetching up to
// listChunkSize contentIds, enqueueing deduplicated tasks for them, and
// either dropping the morsel (space exhausted) or pushing it onto
// morselsToLoad for another slice next iteration.
func (p *Producer) nibble(ctx context.Context, m morsel.Morsel) error {
	src, err := p.stores.Resolve(m.SrcStoreID)
	if err != nil {
		return err
	}

	if !m.Started() {
		dst, err := p.stores.Resolve(m.DstStoreID)
		if err != nil {
			return err
		}
		if err := p.deletionSweep(ctx, m, src, dst); err != nil {
			return err
		}
	}

	ids, err := src.ListSpaceChunk(ctx, m.SpaceID, m.Marker, listChunkSize)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		nlog.Infof("producer %s: morsel %s/%s exhausted", p.id, m.Account, m.SpaceID)
		return nil
	}

	newCount := 0
	lastSeen := m.Marker
	for _, id := range ids {
		t := task.New(m.Account, m.SpaceID, id, m.SrcStoreID, m.DstStoreID)
		if p.dedup.Add(t.Identity()) {
			if err := p.enqueue(ctx, t); err != nil {
				return err
			}
			newCount++
		}
		lastSeen = id
	}

	if newCount == 0 {
		// Every id in this page was already seen in this run. Per the
		// resolved open question (SPEC_FULL §9), this is a no-progress
		// signal, not a completion signal: the morsel still gets reloaded
		// for a future nibble rather than dropped as if the space were
		// fully enumerated. The marker does NOT advance, so the same page
		// is re-fetched once the morsel comes back around.
		nlog.Warningf("producer %s: morsel %s/%s made no progress this page (all %d ids already seen)", p.id, m.Account, m.SpaceID, len(ids))
		p.morselsToLoad.Add(m)
		return nil
	}

	m.Marker = lastSeen
	p.morselsToLoad.Add(m)
	return nil
}

// enqueue buffers t for the next flush, flushing immediately once the batch
// reaches batchSize so pendingBatch never holds more than one TaskQueue
// batch's worth of tasks at a time.
func (p *Producer) enqueue(ctx context.Context, t task.Task) error {
	p.pendingBatch = append(p.pendingBatch, t)
	if p.metrics != nil {
		p.metrics.TasksEnqueued.WithLabelValues(t.Account).Inc()
	}
	if len(p.pendingBatch) >= batchSize {
		return p.flushPending(ctx)
	}
	return nil
}
