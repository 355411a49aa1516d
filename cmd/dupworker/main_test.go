package main

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duplicationmill/core/config"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/processor"
	"github.com/duplicationmill/core/queue/memqueue"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/storage/memstore"
	"github.com/duplicationmill/core/task"
)

func TestBuildQueueMemPrefixReturnsInMemoryQueue(t *testing.T) {
	cfg := &config.Config{QueueName: "mem:local"}
	q, err := buildQueue(cfg)
	if err != nil {
		t.Fatalf("buildQueue: %v", err)
	}
	if _, ok := q.(*memqueue.Queue); !ok {
		t.Fatalf("buildQueue(%q) = %T, want *memqueue.Queue", cfg.QueueName, q)
	}
}

// workerResolver resolves "src"/"dst" to independent in-memory stores.
type workerResolver struct {
	stores map[string]*memstore.Store
}

func (r *workerResolver) Resolve(storeID string) (storage.Provider, error) {
	return r.stores[storeID], nil
}

func TestWorkerLoopDeletesTaskAfterSuccessfulReconcile(t *testing.T) {
	resolver := &workerResolver{stores: map[string]*memstore.Store{
		"src": memstore.New(),
		"dst": memstore.New(),
	}}
	ctx := context.Background()
	resolver.stores["src"].CreateSpace(ctx, "space1")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	proc := processor.New(processor.Config{
		StagingDir: t.TempDir(),
		Retry:      retry.Options{Attempts: 1},
	}, resolver, m)

	q := memqueue.New(0)
	tk := task.New("acct-a", "space1", "content1", "src", "dst")
	if err := q.PutBatch(ctx, []task.Task{tk}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- workerLoop(loopCtx, q, proc) }()

	deadline := time.After(2 * time.Second)
	for {
		size, err := q.Size(ctx)
		if err != nil {
			t.Fatalf("Size: %v", err)
		}
		if size == 0 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("task was never drained from the queue")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("workerLoop returned an error: %v", err)
	}
}
