// Package memory is an in-process ObjectStore backed by a map, used for
// tests and the bootstrap path.
package memory

import (
	"context"
	"sync"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

type key struct {
	kind store.Kind
	id   identity.Identity
}

// Store is a map-backed ObjectStore. The zero value is not usable; call
// New.
type Store struct {
	mu   sync.RWMutex
	data map[key][]byte
}

// New constructs an empty Store.
func New() *Store {
	return &Store{data: make(map[key][]byte)}
}

func (s *Store) Put(_ context.Context, kind store.Kind, id identity.Identity, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key{kind, id}] = cp
	return nil
}

func (s *Store) Get(_ context.Context, kind store.Kind, id identity.Identity) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key{kind, id}]
	if !ok {
		return nil, vfscore.NewNotFoundError(id.String())
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (s *Store) Delete(_ context.Context, kind store.Kind, id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key{kind, id})
	return nil
}
