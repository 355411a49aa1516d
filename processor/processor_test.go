package processor

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/storage/memstore"
	"github.com/duplicationmill/core/task"
)

type testResolver struct {
	stores map[string]*memstore.Store
}

func newTestResolver() *testResolver {
	return &testResolver{stores: map[string]*memstore.Store{
		"src": memstore.New(),
		"dst": memstore.New(),
	}}
}

func (r *testResolver) Resolve(storeID string) (storage.Provider, error) {
	s, ok := r.stores[storeID]
	if !ok {
		return nil, fmt.Errorf("unknown store %q", storeID)
	}
	return s, nil
}

func newTestProcessor(t *testing.T, resolver *testResolver) *Processor {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cfg := Config{StagingDir: t.TempDir(), Retry: retry.Options{Attempts: 2, Delay: 0}}
	return New(cfg, resolver, m)
}

func TestProcessRejectsEmptySpaceID(t *testing.T) {
	resolver := newTestResolver()
	p := newTestProcessor(t, resolver)

	tk := task.New("acct-a", "", "content1", "src", "dst")
	err := p.Process(context.Background(), tk)
	if err == nil {
		t.Fatalf("expected a fatal error for empty spaceId")
	}
	if retry.Classify(err) != retry.KindFatal {
		t.Fatalf("empty spaceId should classify as fatal, got %v (%v)", retry.Classify(err), err)
	}
}

func TestProcessUnresolvableStoreIsFatal(t *testing.T) {
	resolver := newTestResolver()
	p := newTestProcessor(t, resolver)

	tk := task.New("acct-a", "space1", "content1", "does-not-exist", "dst")
	err := p.Process(context.Background(), tk)
	if err == nil {
		t.Fatalf("expected an error resolving an unknown store")
	}
	var fatal *cmn.TaskExecutionFailed
	if !asTaskExecutionFailed(err, &fatal) {
		t.Fatalf("expected *cmn.TaskExecutionFailed, got %T: %v", err, err)
	}
}

func TestProcessSpaceLevelCreatesDestinationWhenSourceExists(t *testing.T) {
	resolver := newTestResolver()
	ctx := context.Background()
	resolver.stores["src"].CreateSpace(ctx, "space1")
	p := newTestProcessor(t, resolver)

	tk := task.New("acct-a", "space1", "", "src", "dst")
	if err := p.Process(ctx, tk); err != nil {
		t.Fatalf("Process: %v", err)
	}
	exists, err := resolver.stores["dst"].SpaceExists(ctx, "space1")
	if err != nil || !exists {
		t.Fatalf("destination space should have been created: exists=%v err=%v", exists, err)
	}
}

func TestProcessSpaceLevelNeverDeletesNonEmptyDestination(t *testing.T) {
	resolver := newTestResolver()
	ctx := context.Background()
	dst := resolver.stores["dst"]
	dst.CreateSpace(ctx, "space1")
	dst.Seed("space1", "leftover", map[string]string{"content-checksum": "x"}, []byte("leftover"))
	p := newTestProcessor(t, resolver)

	// source space does not exist at all: a naive implementation might
	// delete the destination space outright.
	tk := task.New("acct-a", "space1", "", "src", "dst")
	if err := p.Process(ctx, tk); err != nil {
		t.Fatalf("Process: %v", err)
	}
	exists, err := dst.SpaceExists(ctx, "space1")
	if err != nil || !exists {
		t.Fatalf("non-empty destination space must survive reconciliation: exists=%v err=%v", exists, err)
	}
}

func TestProcessSpaceLevelDeletesEmptyOrphanedDestination(t *testing.T) {
	resolver := newTestResolver()
	ctx := context.Background()
	dst := resolver.stores["dst"]
	dst.CreateSpace(ctx, "space1")
	p := newTestProcessor(t, resolver)

	tk := task.New("acct-a", "space1", "", "src", "dst")
	if err := p.Process(ctx, tk); err != nil {
		t.Fatalf("Process: %v", err)
	}
	exists, err := dst.SpaceExists(ctx, "space1")
	if err != nil {
		t.Fatalf("SpaceExists: %v", err)
	}
	if exists {
		t.Fatalf("empty orphaned destination space should have been deleted")
	}
}

func asTaskExecutionFailed(err error, target **cmn.TaskExecutionFailed) bool {
	if e, ok := err.(*cmn.TaskExecutionFailed); ok {
		*target = e
		return true
	}
	return false
}
