package task

import (
	"strconv"

	"github.com/OneOfOne/xxhash"
)

// Hash computes a compact dedup key for id, so the producer's in-run dedup
// set can do a fixed-size integer compare across tens of millions of
// identities instead of a multi-field struct/string compare. Identity
// itself remains the source of truth; Hash is purely a set-membership
// optimization and collisions are resolved by DedupSet keeping the full
// Identity alongside the hash.
func (id Identity) Hash() uint64 {
	h := xxhash.New64()
	_, _ = h.WriteString(id.Account)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.SpaceID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.ContentID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.SrcStoreID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.DstStoreID)
	return h.Sum64()
}

// DedupSet is the producer's in-run, in-memory set of Task identities
// already enqueued. Owned exclusively by the producer goroutine; never
// shared across runs.
type DedupSet struct {
	seen map[uint64]Identity
}

// NewDedupSet returns an empty set sized for sizeHint identities.
func NewDedupSet(sizeHint int) *DedupSet {
	return &DedupSet{seen: make(map[uint64]Identity, sizeHint)}
}

// Add records id as seen and reports whether it was new (false if a
// duplicate, in which case the caller must not re-enqueue it).
func (d *DedupSet) Add(id Identity) (isNew bool) {
	h := id.Hash()
	if existing, ok := d.seen[h]; ok && existing == id {
		return false
	}
	d.seen[h] = id
	return true
}

// Len reports how many distinct identities have been recorded.
func (d *DedupSet) Len() int { return len(d.seen) }

func (d *DedupSet) String() string {
	return "dedupset(" + strconv.Itoa(len(d.seen)) + ")"
}
