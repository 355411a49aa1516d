// Package memstore is an in-memory storage.Provider used by the scenario
// and unit test suites. It is not a production backend.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"sync"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/storage"
)

type object struct {
	bytes []byte
	props map[string]string
}

// Store is a thread-safe in-memory object store.
type Store struct {
	mu     sync.Mutex
	spaces map[string]map[string]*object
}

// New returns an empty store.
func New() *Store {
	return &Store{spaces: make(map[string]map[string]*object)}
}

var _ storage.Provider = (*Store)(nil)

func (s *Store) SpaceExists(_ context.Context, spaceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.spaces[spaceID]
	return ok, nil
}

func (s *Store) CreateSpace(_ context.Context, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces[spaceID]; ok {
		return nil
	}
	s.spaces[spaceID] = make(map[string]*object)
	return nil
}

func (s *Store) DeleteSpace(_ context.Context, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces, spaceID)
	return nil
}

func (s *Store) SpaceEmpty(_ context.Context, spaceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return true, nil
	}
	return len(sp) == 0, nil
}

func (s *Store) sortedIDs(spaceID string) []string {
	sp := s.spaces[spaceID]
	ids := make([]string, 0, len(sp))
	for id := range sp {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) ListSpaceChunk(_ context.Context, spaceID, marker string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.sortedIDs(spaceID)
	out := make([]string, 0, limit)
	for _, id := range ids {
		if marker != "" && id <= marker {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	return storage.PageAll(ctx, func(ctx context.Context, marker string, limit int) ([]string, error) {
		return s.ListSpaceChunk(ctx, spaceID, marker, limit)
	}, cb)
}

func (s *Store) GetContentProperties(_ context.Context, spaceID, contentID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return nil, cmn.ErrNotFound
	}
	obj, ok := sp[contentID]
	if !ok {
		return nil, cmn.ErrNotFound
	}
	out := make(map[string]string, len(obj.props))
	for k, v := range obj.props {
		out[k] = v
	}
	return out, nil
}

func (s *Store) GetContent(_ context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return nil, cmn.ErrNotFound
	}
	obj, ok := sp[contentID]
	if !ok {
		return nil, cmn.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.bytes)), nil
}

func (s *Store) PutContent(_ context.Context, spaceID, contentID, mimetype string, props map[string]string, _ int64, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	checksum := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		sp = make(map[string]*object)
		s.spaces[spaceID] = sp
	}
	merged := make(map[string]string, len(props)+1)
	for k, v := range props {
		merged[k] = v
	}
	merged["content-checksum"] = checksum
	if mimetype != "" {
		merged["content-mimetype"] = mimetype
	}
	sp[contentID] = &object{bytes: data, props: merged}
	return checksum, nil
}

func (s *Store) SetContentProperties(_ context.Context, spaceID, contentID string, props map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return cmn.ErrNotFound
	}
	obj, ok := sp[contentID]
	if !ok {
		return cmn.ErrNotFound
	}
	merged := make(map[string]string, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	if v, ok := obj.props["content-checksum"]; ok {
		merged["content-checksum"] = v
	}
	obj.props = merged
	return nil
}

func (s *Store) DeleteContent(_ context.Context, spaceID, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		return cmn.ErrNotFound
	}
	if _, ok := sp[contentID]; !ok {
		return cmn.ErrNotFound
	}
	delete(sp, contentID)
	return nil
}

// Seed directly inserts an object with props and content, bypassing
// PutContent's derived checksum — used by tests that need to control the
// stored checksum or simulate a missing content-checksum property.
func (s *Store) Seed(spaceID, contentID string, props map[string]string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[spaceID]
	if !ok {
		sp = make(map[string]*object)
		s.spaces[spaceID] = sp
	}
	cp := make(map[string]string, len(props))
	for k, v := range props {
		cp[k] = v
	}
	sp[contentID] = &object{bytes: content, props: cp}
}
