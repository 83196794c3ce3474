// Package store defines the narrow contract the Directory Handler and
// file handle drive every persisted object through: an opaque put/get/
// delete of bytes keyed by (Kind, Identity).
package store

import (
	"context"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
)

// Kind tags what category of object a key addresses. Backends that key
// by a flat namespace (badger) fold Kind into the key prefix; backends
// with native namespacing may use it directly.
type Kind int

const (
	OwnerDirectory Kind = iota
	GroupDirectory
	WorldDirectory
	Chunk
)

func (k Kind) String() string {
	switch k {
	case OwnerDirectory:
		return "owner_directory"
	case GroupDirectory:
		return "group_directory"
	case WorldDirectory:
		return "world_directory"
	case Chunk:
		return "chunk"
	default:
		return "unknown"
	}
}

// ObjectStore is the minimal contract a storage backend must satisfy.
// Put is idempotent: storing the same (kind, id, value) twice succeeds
// both times. Get on a missing key returns a vfscore NotFound error.
// Delete on a missing key is also idempotent — it succeeds silently.
type ObjectStore interface {
	Put(ctx context.Context, kind Kind, id identity.Identity, value []byte) error
	Get(ctx context.Context, kind Kind, id identity.Identity) ([]byte, error)
	Delete(ctx context.Context, kind Kind, id identity.Identity) error
}
