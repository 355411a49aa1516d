package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSnapshotGroupsByAccount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	contents := `
replications:
  - account: acct-a
    spaceId: space1
    srcStoreId: s3
    dstStoreId: azure
  - account: acct-a
    spaceId: space1
    srcStoreId: s3
    dstStoreId: gcs
  - account: acct-a
    spaceId: space2
    srcStoreId: hdfs
    dstStoreId: s3
  - account: acct-b
    spaceId: space1
    srcStoreId: s3
    dstStoreId: http
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Tenants) != 2 {
		t.Fatalf("len(Tenants) = %d, want 2", len(snap.Tenants))
	}
	if snap.Tenants[0].Account != "acct-a" {
		t.Fatalf("first tenant = %q, want acct-a (first-seen order)", snap.Tenants[0].Account)
	}
	if len(snap.Tenants[0].Spaces["space1"]) != 2 {
		t.Fatalf("acct-a/space1 has %d store-pairs, want 2", len(snap.Tenants[0].Spaces["space1"]))
	}
	if len(snap.Tenants[0].Spaces["space2"]) != 1 {
		t.Fatalf("acct-a/space2 has %d store-pairs, want 1", len(snap.Tenants[0].Spaces["space2"]))
	}
	if snap.Tenants[1].Account != "acct-b" {
		t.Fatalf("second tenant = %q, want acct-b", snap.Tenants[1].Account)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	if _, err := LoadSnapshot("/nonexistent/path/policy.yaml"); err == nil {
		t.Fatalf("expected error for missing policy file")
	}
}
