// Package statestore persists the producer's in-flight morsel set as a
// single durable blob, keyed by producer identity, backed by an embedded
// buntdb database. A write replaces the entire set atomically; a read
// returns the previously written set or empty.
package statestore

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/duplicationmill/core/morsel"
)

const keyPrefix = "morsels:"

// Store is a StateStore backed by a single-file buntdb database.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if absent) the buntdb file at path.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("statestore: open %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

func stateKey(producerID string) string { return keyPrefix + producerID }

// Load returns the morsels last persisted for producerID, or an empty slice
// if none were ever written.
func (s *Store) Load(producerID string) ([]morsel.Morsel, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(stateKey(producerID))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("statestore: load %q: %w", producerID, err)
	}
	if raw == "" {
		return nil, nil
	}
	return decodeMorsels([]byte(raw))
}

// Save replaces the entire persisted morsel set for producerID. The write
// happens inside a single buntdb read-write transaction, so a concurrent
// Load never observes a partially written set.
func (s *Store) Save(producerID string, morsels []morsel.Morsel) error {
	encoded, err := encodeMorsels(morsels)
	if err != nil {
		return fmt.Errorf("statestore: encode: %w", err)
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(stateKey(producerID), string(encoded), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("statestore: save %q: %w", producerID, err)
	}
	return nil
}
