// Package morsel implements the producer's unit of resumable progress and
// the ordered, identity-deduplicating queue that holds them in memory.
package morsel

import "github.com/duplicationmill/core/policy"

// Morsel is one (account, space, store-pair)'s progress through a listing
// pass. Marker is the last contentId successfully enqueued; an empty Marker
// means the space scan (and its deletion sweep) has not yet begun.
type Morsel struct {
	Account    string
	SpaceID    string
	SrcStoreID string
	DstStoreID string
	Marker     string
}

// Identity is the tuple a MorselQueue deduplicates on: a morsel may not
// appear twice regardless of its current Marker.
type Identity struct {
	Account    string
	SpaceID    string
	SrcStoreID string
	DstStoreID string
}

// Identity extracts m's dedup identity.
func (m Morsel) Identity() Identity {
	return Identity{Account: m.Account, SpaceID: m.SpaceID, SrcStoreID: m.SrcStoreID, DstStoreID: m.DstStoreID}
}

// StorePolicy recovers the (src, dst) pair this morsel replicates over.
func (m Morsel) StorePolicy() policy.StorePolicy {
	return policy.StorePolicy{SrcStoreID: m.SrcStoreID, DstStoreID: m.DstStoreID}
}

// Started reports whether this morsel's space scan (and deletion sweep) has
// already run at least once.
func (m Morsel) Started() bool { return m.Marker != "" }

// New constructs a fresh, not-yet-started morsel for (account, spaceID, sp).
func New(account, spaceID string, sp policy.StorePolicy) Morsel {
	return Morsel{Account: account, SpaceID: spaceID, SrcStoreID: sp.SrcStoreID, DstStoreID: sp.DstStoreID}
}
