package producer

import (
	"context"
	"fmt"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/membership"
	"github.com/duplicationmill/core/morsel"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/task"
)

// membershipHeadroom is the capacity multiplier applied over the source
// space's actual listed count when sizing the deletion sweep's membership
// filter, keeping its load factor comfortably under the threshold where
// cuckoofilter inserts start failing.
const membershipHeadroom = 1.3

// sourceSetCapacity sizes a SourceSet for n observed source ids.
func sourceSetCapacity(n uint) uint {
	if n == 0 {
		return 1
	}
	return uint(float64(n)*membershipHeadroom) + 1
}

// sweepFlushSize is how many delete tasks the deletion sweep batches in
// memory before flushing, independent of the normal enqueue batchSize —
// the sweep walks the destination listing in one pass and would otherwise
// hold an unbounded number of delete tasks if it waited for the per-page
// enqueue/flush cycle.
const sweepFlushSize = 10000

// deletionSweep runs once per morsel, before its first nibble (Marker ==
// "" on entry). It builds a bounded-memory membership test over every
// contentId currently in the source space, then walks the destination
// space end to end, enqueueing a delete task for every destination id the
// source no longer has. A false positive in the membership test only
// suppresses a legitimate delete; it can never cause a wrongful one, so no
// second verification pass follows it (see membership.SourceSet).
func (p *Producer) deletionSweep(ctx context.Context, m morsel.Morsel, src, dst storage.Provider) error {
	dstExists, err := dst.SpaceExists(ctx, m.SpaceID)
	if err != nil {
		return err
	}
	if !dstExists {
		// Nothing has ever been replicated into this space yet: there is
		// nothing stray to delete.
		nlog.Infof("producer %s: skipping deletion sweep for %s/%s, destination space does not exist", p.id, m.Account, m.SpaceID)
		return nil
	}

	var srcCount uint
	if err := src.ListSpace(ctx, m.SpaceID, func(string) error {
		srcCount++
		return nil
	}); err != nil {
		return err
	}

	present := membership.NewSourceSet(sourceSetCapacity(srcCount))
	defer present.Reset()

	if err := src.ListSpace(ctx, m.SpaceID, func(contentID string) error {
		if !present.Add(contentID) {
			return &cmn.RunAborted{
				Reason: fmt.Sprintf("deletion sweep membership filter for %s/%s exceeded capacity", m.Account, m.SpaceID),
				Cause:  fmt.Errorf("insert failed after %d of %d observed source ids", present.Count(), srcCount),
			}
		}
		return nil
	}); err != nil {
		return err
	}

	var toDelete []task.Task
	flush := func() error {
		if len(toDelete) == 0 {
			return nil
		}
		for start := 0; start < len(toDelete); start += batchSize {
			end := start + batchSize
			if end > len(toDelete) {
				end = len(toDelete)
			}
			if err := p.queue.PutBatch(ctx, toDelete[start:end]); err != nil {
				return &cmn.RunAborted{Reason: "flush deletion sweep batch", Cause: err}
			}
			if p.metrics != nil {
				for range toDelete[start:end] {
					p.metrics.SweepDeletes.Inc()
				}
			}
		}
		toDelete = toDelete[:0]
		return nil
	}

	err = dst.ListSpace(ctx, m.SpaceID, func(contentID string) error {
		if present.Contains(contentID) {
			return nil
		}
		t := task.Task{
			Kind:       task.KindDuplicate,
			Account:    m.Account,
			SpaceID:    m.SpaceID,
			ContentID:  contentID,
			SrcStoreID: m.SrcStoreID,
			DstStoreID: m.DstStoreID,
			StoreID:    m.SrcStoreID,
		}
		toDelete = append(toDelete, t)
		if len(toDelete) >= sweepFlushSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	nlog.Infof("producer %s: deletion sweep for %s/%s complete, %d source ids observed", p.id, m.Account, m.SpaceID, present.Count())
	return nil
}
