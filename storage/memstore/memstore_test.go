package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/duplicationmill/core/cmn"
)

func TestCreateSpaceIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateSpace(ctx, "space1"); err != nil {
		t.Fatalf("CreateSpace: %v", err)
	}
	if err := s.CreateSpace(ctx, "space1"); err != nil {
		t.Fatalf("CreateSpace second call should not error: %v", err)
	}
	exists, err := s.SpaceExists(ctx, "space1")
	if err != nil || !exists {
		t.Fatalf("SpaceExists = (%v, %v), want (true, nil)", exists, err)
	}
}

func TestSpaceEmptyOnUnknownSpaceIsTrue(t *testing.T) {
	s := New()
	empty, err := s.SpaceEmpty(context.Background(), "never-created")
	if err != nil || !empty {
		t.Fatalf("SpaceEmpty(unknown) = (%v, %v), want (true, nil)", empty, err)
	}
}

func TestPutThenGetContentRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	data := []byte("hello world")
	checksum, err := s.PutContent(ctx, "space1", "c1", "text/plain", map[string]string{"owner": "a"}, int64(len(data)), "", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	if checksum == "" {
		t.Fatalf("expected non-empty checksum")
	}

	r, err := s.GetContent(ctx, "space1", "c1")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}

	props, err := s.GetContentProperties(ctx, "space1", "c1")
	if err != nil {
		t.Fatalf("GetContentProperties: %v", err)
	}
	if props["content-checksum"] != checksum {
		t.Fatalf("stored checksum mismatch: %q vs %q", props["content-checksum"], checksum)
	}
	if props["owner"] != "a" {
		t.Fatalf("caller-supplied property lost: %v", props)
	}
}

func TestGetContentMissingReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.GetContent(context.Background(), "space1", "missing")
	if !cmn.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetContentPropertiesPreservesChecksum(t *testing.T) {
	s := New()
	ctx := context.Background()
	checksum, _ := s.PutContent(ctx, "space1", "c1", "text/plain", nil, 5, "", bytes.NewReader([]byte("hello")))

	if err := s.SetContentProperties(ctx, "space1", "c1", map[string]string{"owner": "b"}); err != nil {
		t.Fatalf("SetContentProperties: %v", err)
	}
	props, err := s.GetContentProperties(ctx, "space1", "c1")
	if err != nil {
		t.Fatalf("GetContentProperties: %v", err)
	}
	if props["owner"] != "b" {
		t.Fatalf("property not updated: %v", props)
	}
	if props["content-checksum"] != checksum {
		t.Fatalf("SetContentProperties must not disturb content-checksum: got %q, want %q", props["content-checksum"], checksum)
	}
}

func TestSetContentPropertiesMissingReturnsNotFound(t *testing.T) {
	s := New()
	err := s.SetContentProperties(context.Background(), "space1", "missing", map[string]string{"a": "b"})
	if !cmn.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteContentThenMissing(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutContent(ctx, "space1", "c1", "text/plain", nil, 1, "", bytes.NewReader([]byte("x")))

	if err := s.DeleteContent(ctx, "space1", "c1"); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if err := s.DeleteContent(ctx, "space1", "c1"); !cmn.IsNotFound(err) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestListSpaceChunkPaginatesLexicographically(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"c3", "c1", "c2"} {
		s.Seed("space1", id, nil, []byte(id))
	}

	first, err := s.ListSpaceChunk(ctx, "space1", "", 2)
	if err != nil {
		t.Fatalf("ListSpaceChunk: %v", err)
	}
	if len(first) != 2 || first[0] != "c1" || first[1] != "c2" {
		t.Fatalf("first page = %v, want [c1 c2]", first)
	}

	second, err := s.ListSpaceChunk(ctx, "space1", first[len(first)-1], 2)
	if err != nil {
		t.Fatalf("ListSpaceChunk: %v", err)
	}
	if len(second) != 1 || second[0] != "c3" {
		t.Fatalf("second page = %v, want [c3]", second)
	}
}

func TestListSpaceVisitsEveryID(t *testing.T) {
	s := New()
	for i := 0; i < 2500; i++ {
		s.Seed("space1", fmt.Sprintf("c%05d", i), nil, nil)
	}
	count := 0
	err := s.ListSpace(context.Background(), "space1", func(string) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ListSpace: %v", err)
	}
	if count != 2500 {
		t.Fatalf("ListSpace visited %d ids, want 2500 (exercises multi-page PageAll)", count)
	}
}
