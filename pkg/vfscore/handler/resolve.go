package handler

import (
	"context"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

// kMaxAttempts bounds the retry budget for transient store errors on
// idempotent Get calls, mirrored from the same-named constant in the
// original directory-handler design.
const kMaxAttempts = 3

// loadDirectory fetches and decodes a directory from the store using the
// encoding appropriate to kind.
func (h *Handler) loadDirectory(ctx context.Context, kind vfscore.DirectoryKind, id identity.Identity) (*vfscore.Directory, error) {
	raw, err := h.getWithRetry(ctx, storeKind(kind), id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case vfscore.KindOwner:
		return h.decodeOwner(raw)
	case vfscore.KindGroup:
		return h.decodeGroup(raw)
	default:
		return h.decodeWorld(raw)
	}
}

// storeDirectory encodes and persists a directory using the encoding
// appropriate to kind.
func (h *Handler) storeDirectory(ctx context.Context, kind vfscore.DirectoryKind, d *vfscore.Directory) error {
	var (
		encoded []byte
		err     error
	)
	switch kind {
	case vfscore.KindOwner:
		encoded, err = h.encodeOwner(d)
	case vfscore.KindGroup:
		encoded, err = h.encodeGroup(d)
	default:
		encoded, err = h.encodeWorld(d)
	}
	if err != nil {
		return err
	}
	return h.store.Put(ctx, storeKind(kind), d.DirectoryID, encoded)
}

// getWithRetry retries a transient store error on Get up to kMaxAttempts
// times. Get is idempotent, so retrying is always safe.
func (h *Handler) getWithRetry(ctx context.Context, kind store.Kind, id identity.Identity) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= kMaxAttempts; attempt++ {
		raw, err := h.store.Get(ctx, kind, id)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !vfscore.IsTransientStoreError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// resolved describes a path's resolution into a directory: its cache
// entry, its identity and the zone kind it is stored under.
type resolved struct {
	dirEntry *cacheEntry
	dirID    identity.Identity
	dirKind  vfscore.DirectoryKind
}

// resolveDirectory walks components, starting from the root, returning
// the cache entry for the directory the full path sequence names. path
// must be the slash-separated component list of an absolute path (no
// leading/trailing empties).
func (h *Handler) resolveDirectory(ctx context.Context, components []string) (*resolved, error) {
	// The root-parent object is a one-entry indirection: it holds a
	// single "/" child pointing at the real root listing, so the root
	// listing's own identity can be rotated without the well-known
	// root-parent identity ever changing.
	rootParentEntry, err := h.entry(ctx, vfscore.KindOwner, h.rootParentID)
	if err != nil {
		return nil, err
	}
	rootParentEntry.mu.Lock()
	rootMeta, err := rootParentEntry.directory.Get("/")
	rootParentEntry.mu.Unlock()
	if err != nil {
		return nil, err
	}

	kind := vfscore.KindOwner
	id := *rootMeta.ChildDirectoryID
	entry, err := h.entry(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	for _, name := range components {
		entry.mu.Lock()
		m, err := entry.directory.Get(name)
		entry.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if !m.HasChildDirectory() {
			return nil, vfscore.NewNotADirectoryError(name)
		}
		nextKind := classifyChild(kind, name)
		nextID := *m.ChildDirectoryID
		nextEntry, err := h.entry(ctx, nextKind, nextID)
		if err != nil {
			return nil, err
		}
		kind, id, entry = nextKind, nextID, nextEntry
	}

	return &resolved{dirEntry: entry, dirID: id, dirKind: kind}, nil
}

// classifyChild determines the DirectoryKind a child directory inherits.
// Only the top-level component under the root selects Owner/Group;
// everything below a zone root inherits that zone's kind, the World root
// selects World, and any other name directly under the root is Owner.
func classifyChild(parentKind vfscore.DirectoryKind, name string) vfscore.DirectoryKind {
	if parentKind != vfscore.KindOwner {
		return parentKind
	}
	switch name {
	case vfscore.ZoneOwnerRoot:
		return vfscore.KindOwner
	case vfscore.ZoneGroupRoot:
		return vfscore.KindGroup
	case vfscore.ZoneWorldRoot:
		return vfscore.KindWorld
	default:
		// Below the synthetic root but not yet into a zone: treated as
		// Owner until a zone root is actually traversed.
		return vfscore.KindOwner
	}
}
