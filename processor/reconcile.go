package processor

import (
	"context"
	"errors"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/cmn/cos"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/task"
)

// reconcileContent implements §4.6's content-level case table over
// (srcProps, dstProps), dispatching to the copy protocol, a property-only
// write, or a delete as the table dictates.
func (p *Processor) reconcileContent(ctx context.Context, t task.Task, src, dst storage.Provider) (outcome string, err error) {
	if err := retry.DoErr(ctx, p.cfg.Retry, func() error { return dst.CreateSpace(ctx, t.SpaceID) }); err != nil {
		return "", err
	}

	srcProps, err := fetchProps(ctx, p.cfg.Retry, src, t.SpaceID, t.ContentID)
	if err != nil {
		return "", err
	}
	dstProps, err := fetchProps(ctx, p.cfg.Retry, dst, t.SpaceID, t.ContentID)
	if err != nil {
		return "", err
	}

	switch {
	case srcProps == nil && dstProps == nil:
		return metrics.OutcomeNoop, nil

	case srcProps == nil && dstProps != nil:
		if err := retry.DoErr(ctx, p.cfg.Retry, func() error { return dst.DeleteContent(ctx, t.SpaceID, t.ContentID) }); err != nil && !cmn.IsNotFound(err) {
			return "", err
		}
		return metrics.OutcomeDeleted, nil

	case srcProps != nil:
		srcChecksum, ok := cos.Checksum(srcProps)
		if !ok {
			return "", cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, errors.New("missing source content-checksum property"))
		}

		if dstProps == nil {
			return p.copy(ctx, t, src, dst, srcProps, srcChecksum)
		}

		dstChecksum, _ := cos.Checksum(dstProps)
		if dstChecksum != srcChecksum {
			return p.copy(ctx, t, src, dst, srcProps, srcChecksum)
		}

		if cos.Equal(cos.Clean(srcProps), cos.Clean(dstProps)) {
			return metrics.OutcomeNoop, nil
		}

		if err := retry.DoErr(ctx, p.cfg.Retry, func() error {
			return dst.SetContentProperties(ctx, t.SpaceID, t.ContentID, cos.Clean(srcProps))
		}); err != nil {
			return "", err
		}
		return metrics.OutcomePropsSet, nil
	}

	return metrics.OutcomeNoop, nil
}

// fetchProps retries GetContentProperties, mapping cmn.ErrNotFound to a nil
// map rather than an error, matching the case table's null/present model.
func fetchProps(ctx context.Context, opts retry.Options, p storage.Provider, spaceID, contentID string) (map[string]string, error) {
	props, err := retry.Do(ctx, opts, func() (map[string]string, error) {
		return p.GetContentProperties(ctx, spaceID, contentID)
	})
	if err != nil {
		if cmn.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return props, nil
}
