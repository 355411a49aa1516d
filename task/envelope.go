package task

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteTask serializes t into the queue's wire envelope.
func WriteTask(t Task) ([]byte, error) {
	return json.Marshal(t)
}

// ReadTask deserializes a queue payload back into a Task.
func ReadTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, err
	}
	// StoreID is a wire-compatibility alias for SrcStoreID; prefer whichever
	// arrived, but keep them in sync for callers that only look at one.
	if t.SrcStoreID == "" && t.StoreID != "" {
		t.SrcStoreID = t.StoreID
	}
	if t.StoreID == "" {
		t.StoreID = t.SrcStoreID
	}
	return t, nil
}
