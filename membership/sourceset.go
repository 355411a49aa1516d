// Package membership implements the bounded-memory "does the source have
// this content id" test the deletion sweep needs, without materializing
// every source content id as a Go string set in process memory.
//
// It wraps a cuckoo filter (github.com/seiflotfy/cuckoofilter). False
// positives bias toward "present", which is the safe direction for a
// delete sweep: a false positive only suppresses a legitimate delete of a
// stray destination object, it can never cause the sweep to delete
// something that still exists at source. That is why no secondary
// verification pass is layered on top for false positives, unlike a
// typical bloom-filter membership test used to gate an expensive lookup.
//
// A cuckoo filter's insert can fail once its load factor is exceeded,
// which is the one way this structure can produce a false negative: a
// source id that was never successfully recorded reads back as absent.
// Add reports that failure so the caller can size the filter correctly up
// front and abort rather than silently trust an overfull one.
package membership

import (
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// SourceSet answers Contains(id) for every content id Add has recorded,
// bounded in memory regardless of space size.
type SourceSet struct {
	filter *cuckoo.Filter
}

// NewSourceSet returns a set sized for expectedItems entries. Sizing it to
// roughly the expected source population keeps the false-positive rate low
// without growing memory use linearly with actual space size beyond the
// filter's fixed capacity. Undersizing it risks Add failing once the
// filter fills.
func NewSourceSet(expectedItems uint) *SourceSet {
	return &SourceSet{filter: cuckoo.NewFilter(expectedItems)}
}

// Add records contentID as a member of the source snapshot. It reports
// whether the insertion succeeded; false means the filter has exceeded its
// capacity and this (and any subsequent) content id can no longer be
// trusted not to produce a false negative from Contains.
func (s *SourceSet) Add(contentID string) bool {
	return s.filter.InsertUnique([]byte(contentID))
}

// Contains reports whether contentID was (probably) added. False positives
// are possible. False negatives are not possible as long as every prior
// Add call for this set returned true.
func (s *SourceSet) Contains(contentID string) bool {
	return s.filter.Lookup([]byte(contentID))
}

// Reset clears the filter so it can be reused (or garbage collected) once
// the sweep for one morsel's space completes.
func (s *SourceSet) Reset() {
	s.filter.Reset()
}

// Count reports the approximate number of entries currently in the filter.
func (s *SourceSet) Count() uint {
	return s.filter.Count()
}
