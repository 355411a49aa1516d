package task

import "testing"

func TestWriteReadTaskRoundTrip(t *testing.T) {
	want := New("acct", "space1", "content1", "s3", "azure")
	want.Attempts = 2

	data, err := WriteTask(want)
	if err != nil {
		t.Fatalf("WriteTask: %v", err)
	}
	got, err := ReadTask(data)
	if err != nil {
		t.Fatalf("ReadTask: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestReadTaskFillsStoreIDFromLegacyField(t *testing.T) {
	// a payload from an older producer might only carry storeId, not
	// sourceStoreId; ReadTask must still populate SrcStoreID from it.
	data := []byte(`{"task-type":"DUPLICATE","account":"acct","spaceId":"space1","contentId":"c1","storeId":"s3","destStoreId":"azure"}`)
	got, err := ReadTask(data)
	if err != nil {
		t.Fatalf("ReadTask: %v", err)
	}
	if got.SrcStoreID != "s3" {
		t.Fatalf("SrcStoreID = %q, want %q", got.SrcStoreID, "s3")
	}
	if got.StoreID != "s3" {
		t.Fatalf("StoreID = %q, want %q", got.StoreID, "s3")
	}
}

func TestReadTaskKeepsStoreIDInSyncWhenOnlySrcSet(t *testing.T) {
	data := []byte(`{"task-type":"DUPLICATE","account":"acct","spaceId":"space1","contentId":"c1","sourceStoreId":"s3","destStoreId":"azure"}`)
	got, err := ReadTask(data)
	if err != nil {
		t.Fatalf("ReadTask: %v", err)
	}
	if got.StoreID != "s3" {
		t.Fatalf("StoreID = %q, want %q", got.StoreID, "s3")
	}
}
