// Package storage defines the uniform object-store contract the producer
// and processor drive, independent of which backend (S3, Azure, GCS, HDFS,
// a generic REST gateway, or an in-memory test double) answers it.
package storage

import (
	"context"
	"io"
)

// Provider is the set of operations the duplication core consumes from an
// object-storage backend. Every method may fail transiently. The processor
// wraps its calls (CreateSpace included) in retry.Do/DoErr; the producer
// calls the provider directly and does not retry. CreateSpace's "already
// exists" outcome is swallowed by the implementation itself, not by the
// caller.
type Provider interface {
	// SpaceExists reports whether spaceID exists.
	SpaceExists(ctx context.Context, spaceID string) (bool, error)

	// CreateSpace creates spaceID. Idempotent: pre-existing space is not an
	// error.
	CreateSpace(ctx context.Context, spaceID string) error

	// DeleteSpace deletes spaceID.
	DeleteSpace(ctx context.Context, spaceID string) error

	// SpaceEmpty reports whether spaceID contains zero content ids. Used by
	// the processor's space-level reconciliation before deleting a
	// destination space.
	SpaceEmpty(ctx context.Context, spaceID string) (bool, error)

	// ListSpaceChunk returns up to limit contentIds from spaceID, ordered
	// lexicographically, strictly greater than marker (marker=="" starts
	// from the beginning). An empty result means the space is exhausted
	// from marker onward.
	ListSpaceChunk(ctx context.Context, spaceID, marker string, limit int) ([]string, error)

	// ListSpace returns every contentId in spaceID via cb, paging
	// internally with ListSpaceChunk-sized batches. cb returning an error
	// stops enumeration and propagates the error.
	ListSpace(ctx context.Context, spaceID string, cb func(contentID string) error) error

	// GetContentProperties returns spaceID/contentID's property map, or
	// cmn.ErrNotFound when absent.
	GetContentProperties(ctx context.Context, spaceID, contentID string) (map[string]string, error)

	// GetContent streams spaceID/contentID's bytes. The caller must Close
	// the returned ReadCloser.
	GetContent(ctx context.Context, spaceID, contentID string) (io.ReadCloser, error)

	// PutContent uploads length bytes from r as spaceID/contentID with the
	// given mimetype and properties, and returns the checksum the backend
	// computed/stored. expectedChecksum is passed through for server-side
	// validation, but none of the backends in this repository use it; the
	// processor compares the returned checksum against the source itself.
	PutContent(ctx context.Context, spaceID, contentID, mimetype string, props map[string]string, length int64, expectedChecksum string, r io.Reader) (storedChecksum string, err error)

	// DeleteContent deletes spaceID/contentID, or cmn.ErrNotFound when
	// already absent (non-fatal).
	DeleteContent(ctx context.Context, spaceID, contentID string) error

	// SetContentProperties updates spaceID/contentID's properties in place,
	// without re-uploading content. Used by the processor's property-drift
	// reconciliation branch (checksums equal, properties differ), where a
	// full copy would be wasted work.
	SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error
}

// ChunkSize is the default page size for ListSpaceChunk/ListSpace, matching
// the producer's per-nibble fetch of up to 1000 contentIds.
const ChunkSize = 1000
