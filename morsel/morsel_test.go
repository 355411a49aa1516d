package morsel

import (
	"testing"

	"github.com/duplicationmill/core/policy"
)

func TestNewMorselNotStarted(t *testing.T) {
	m := New("acct", "space1", policy.StorePolicy{SrcStoreID: "s3", DstStoreID: "azure"})
	if m.Started() {
		t.Fatalf("fresh morsel should not be Started")
	}
	if m.Marker != "" {
		t.Fatalf("fresh morsel should have empty Marker, got %q", m.Marker)
	}
}

func TestMorselStartedAfterMarkerSet(t *testing.T) {
	m := New("acct", "space1", policy.StorePolicy{SrcStoreID: "s3", DstStoreID: "azure"})
	m.Marker = "content42"
	if !m.Started() {
		t.Fatalf("morsel with non-empty Marker should be Started")
	}
}

func TestMorselIdentityIgnoresMarker(t *testing.T) {
	a := New("acct", "space1", policy.StorePolicy{SrcStoreID: "s3", DstStoreID: "azure"})
	b := a
	b.Marker = "content42"
	if a.Identity() != b.Identity() {
		t.Fatalf("identity changed solely due to Marker")
	}
}

func TestMorselStorePolicyRoundTrip(t *testing.T) {
	sp := policy.StorePolicy{SrcStoreID: "s3", DstStoreID: "azure"}
	m := New("acct", "space1", sp)
	if got := m.StorePolicy(); got != sp {
		t.Fatalf("StorePolicy() = %+v, want %+v", got, sp)
	}
}
