// Package task defines the duplication task envelope: the unit of work the
// producer enqueues and the processor consumes.
package task

import "fmt"

// Kind identifies the task's action. The core defines exactly one.
const KindDuplicate = "DUPLICATE"

// Task is one (account, space, content, src-store, dst-store) reconciliation
// request. ContentID may be empty, denoting a space-level operation.
type Task struct {
	Kind        string `json:"task-type"`
	Account     string `json:"account"`
	SpaceID     string `json:"spaceId"`
	ContentID   string `json:"contentId"`
	SrcStoreID  string `json:"sourceStoreId"`
	DstStoreID  string `json:"destStoreId"`
	StoreID     string `json:"storeId"` // == SrcStoreID, kept for wire compatibility
	Attempts    int    `json:"attempts"`
}

// New builds a Task ready for enqueuing with Attempts at zero.
func New(account, spaceID, contentID, srcStoreID, dstStoreID string) Task {
	return Task{
		Kind:       KindDuplicate,
		Account:    account,
		SpaceID:    spaceID,
		ContentID:  contentID,
		SrcStoreID: srcStoreID,
		DstStoreID: dstStoreID,
		StoreID:    srcStoreID,
	}
}

// Identity is the tuple two Tasks are compared on for dedup purposes. Two
// Tasks with equal Identity are equal regardless of Attempts.
type Identity struct {
	Account    string
	SpaceID    string
	ContentID  string
	SrcStoreID string
	DstStoreID string
}

// Identity extracts t's dedup identity.
func (t Task) Identity() Identity {
	return Identity{
		Account:    t.Account,
		SpaceID:    t.SpaceID,
		ContentID:  t.ContentID,
		SrcStoreID: t.SrcStoreID,
		DstStoreID: t.DstStoreID,
	}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s[%s->%s]", id.Account, id.SpaceID, id.ContentID, id.SrcStoreID, id.DstStoreID)
}

// IsSpaceLevel reports whether the task denotes a space-level operation
// (empty ContentID) rather than a single content reconciliation.
func (t Task) IsSpaceLevel() bool { return t.ContentID == "" }
