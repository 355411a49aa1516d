// Package policy holds the tenant/space/store-pair configuration the
// producer expands into morsels, and the inclusion/exclusion filtering
// consulted before it does.
package policy

import "sort"

// StorePolicy names one replication direction: objects in SrcStoreID are
// duplicated into DstStoreID. A space may fan out to multiple StorePolicies.
type StorePolicy struct {
	SrcStoreID string
	DstStoreID string
}

// TenantPolicy maps a tenant's spaces to the store-pairs replicated for
// each space.
type TenantPolicy struct {
	Account string
	Spaces  map[string][]StorePolicy
}

// Snapshot is the full set of tenant policies in effect at one instant. The
// producer re-expands a Snapshot into morsels on every startup; it never
// mutates a Snapshot.
type Snapshot struct {
	Tenants []TenantPolicy
}

// Walk calls fn once per (account, spaceId, StorePolicy) triple in the
// snapshot, in stable order, so that morsel expansion is deterministic.
func (s Snapshot) Walk(fn func(account, spaceID string, sp StorePolicy)) {
	for _, t := range s.Tenants {
		spaceIDs := make([]string, 0, len(t.Spaces))
		for spaceID := range t.Spaces {
			spaceIDs = append(spaceIDs, spaceID)
		}
		sort.Strings(spaceIDs)
		for _, spaceID := range spaceIDs {
			for _, sp := range t.Spaces[spaceID] {
				fn(t.Account, spaceID, sp)
			}
		}
	}
}
