// Package badger is a BadgerDB-backed ObjectStore: the embedded KV
// engine the store adapter layer persists directories and chunks
// through when a durable backend is wanted over the in-memory one.
package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/logger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

// Store wraps a badger.DB and implements store.ObjectStore by folding
// Kind into the key prefix.
type Store struct {
	db *badgerdb.DB
}

// Open opens (or creates) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, vfscore.NewStoreErrorf(false, "badger: open %q: %v", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func objectKey(kind store.Kind, id identity.Identity) []byte {
	b := make([]byte, 0, 1+identity.Size)
	b = append(b, byte(kind))
	b = append(b, id[:]...)
	return b
}

func (s *Store) Put(ctx context.Context, kind store.Kind, id identity.Identity, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(objectKey(kind, id), value)
	})
	if err != nil {
		return vfscore.NewStoreErrorf(true, "badger: put %s %s: %v", kind, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind store.Kind, id identity.Identity) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(objectKey(kind, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, vfscore.NewNotFoundError(id.String())
	}
	if err != nil {
		logger.Warn("badger get failed", logger.StoreKind(kind.String()), logger.Err(err))
		return nil, vfscore.NewStoreErrorf(true, "badger: get %s %s: %v", kind, id, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, kind store.Kind, id identity.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(objectKey(kind, id))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return vfscore.NewStoreErrorf(true, "badger: delete %s %s: %v", kind, id, err)
	}
	return nil
}
