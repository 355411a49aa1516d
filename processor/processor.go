// Package processor implements the DuplicationTaskProcessor: reconciliation
// of a single (space, content) tuple between a source and destination
// storage.Provider, driven one Task at a time by the worker layer
// (cmd/dupworker).
package processor

import (
	"context"
	"errors"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/task"
)

// StoreResolver resolves a storeId to the storage.Provider backing it. The
// processor consumes the same resolver shape the producer does, but each
// package declares its own interface so neither imports the other.
type StoreResolver interface {
	Resolve(storeID string) (storage.Provider, error)
}

// Config bundles the processor's tunables beyond its collaborators.
type Config struct {
	// StagingDir is where source content is staged locally before its
	// checksum is verified and it is uploaded to destination.
	StagingDir string
	// StagingDevice is the host block device backing StagingDir, used to
	// sample disk IO rate gauges around the copy protocol. Left empty to
	// skip sampling (e.g. when StagingDir isn't on its own device).
	StagingDevice string
	Retry         retry.Options
}

// Processor is the DuplicationTaskProcessor.
type Processor struct {
	stores  StoreResolver
	cfg     Config
	metrics *metrics.Metrics
}

// New builds a Processor. stores is owned by the caller.
func New(cfg Config, stores StoreResolver, m *metrics.Metrics) *Processor {
	if cfg.Retry == (retry.Options{}) {
		cfg.Retry = retry.DefaultOptions
	}
	return &Processor{stores: stores, cfg: cfg, metrics: m}
}

// Process reconciles one Task to completion (or a fatal outcome). A
// returned error is always either a *cmn.TaskExecutionFailed (fatal, no
// retry will help) or a transient error the caller should retry by leaving
// the task's queue visibility to expire.
func (p *Processor) Process(ctx context.Context, t task.Task) error {
	if t.SpaceID == "" {
		return cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, errors.New("empty spaceId"))
	}

	src, err := p.stores.Resolve(t.SrcStoreID)
	if err != nil {
		return cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, err)
	}
	dst, err := p.stores.Resolve(t.DstStoreID)
	if err != nil {
		return cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, err)
	}

	if t.IsSpaceLevel() {
		outcome, err := p.reconcileSpace(ctx, t, src, dst)
		p.recordOutcome(t, outcome, err)
		return err
	}

	outcome, err := p.reconcileContent(ctx, t, src, dst)
	p.recordOutcome(t, outcome, err)
	return err
}

func (p *Processor) recordOutcome(t task.Task, outcome string, err error) {
	if p.metrics == nil {
		return
	}
	if err != nil {
		p.metrics.TasksProcessed.WithLabelValues(metrics.OutcomeFatal).Inc()
		return
	}
	p.metrics.TasksProcessed.WithLabelValues(outcome).Inc()
}

// reconcileSpace implements §4.6's space-level reconciliation: ensure the
// destination space tracks the source space's existence, never deleting a
// non-empty destination.
func (p *Processor) reconcileSpace(ctx context.Context, t task.Task, src, dst storage.Provider) (outcome string, err error) {
	srcExists, err := retry.Do(ctx, p.cfg.Retry, func() (bool, error) { return src.SpaceExists(ctx, t.SpaceID) })
	if err != nil {
		return "", err
	}

	if srcExists {
		if err := retry.DoErr(ctx, p.cfg.Retry, func() error { return dst.CreateSpace(ctx, t.SpaceID) }); err != nil {
			return "", err
		}
		return metrics.OutcomeSpaceSync, nil
	}

	dstExists, err := retry.Do(ctx, p.cfg.Retry, func() (bool, error) { return dst.SpaceExists(ctx, t.SpaceID) })
	if err != nil {
		return "", err
	}
	if !dstExists {
		return metrics.OutcomeNoop, nil
	}

	empty, err := retry.Do(ctx, p.cfg.Retry, func() (bool, error) { return dst.SpaceEmpty(ctx, t.SpaceID) })
	if err != nil {
		return "", err
	}
	if !empty {
		return metrics.OutcomeNoop, nil
	}

	if err := retry.DoErr(ctx, p.cfg.Retry, func() error { return dst.DeleteSpace(ctx, t.SpaceID) }); err != nil {
		return "", err
	}
	return metrics.OutcomeSpaceSync, nil
}
