package handler

import (
	"bytes"
	"context"
	"sort"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

// entry returns the cache entry for id, loading it from the store via
// load if not already cached. The returned entry's mutex is NOT held;
// callers must lock it themselves (typically through acquire).
func (h *Handler) entry(ctx context.Context, kind vfscore.DirectoryKind, id identity.Identity) (*cacheEntry, error) {
	h.cacheMu.Lock()
	if e, ok := h.cache[id]; ok {
		h.cacheMu.Unlock()
		return e, nil
	}
	h.cacheMu.Unlock()

	dir, err := h.loadDirectory(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	if e, ok := h.cache[id]; ok {
		return e, nil
	}
	e := &cacheEntry{directory: dir}
	h.cache[id] = e
	return e, nil
}

// pin increments the open-handle pin count for id, preventing eviction.
func (h *Handler) pin(id identity.Identity) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	if e, ok := h.cache[id]; ok {
		e.pinCount++
	}
}

// unpin decrements the pin count and evicts the entry from the cache
// once it reaches zero and the directory is clean.
func (h *Handler) unpin(id identity.Identity) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	e, ok := h.cache[id]
	if !ok {
		return
	}
	if e.pinCount > 0 {
		e.pinCount--
	}
	if e.pinCount == 0 && !e.directory.Dirty() {
		delete(h.cache, id)
	}
}

// acquireOrdered locks the given entries' mutexes in a fixed order
// (ascending DirectoryID) so concurrent operations touching overlapping
// sets of directories never form a lock cycle. It returns an unlock
// function the caller must defer.
func acquireOrdered(entries map[identity.Identity]*cacheEntry) func() {
	ids := make([]identity.Identity, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	for _, id := range ids {
		entries[id].mu.Lock()
	}
	return func() {
		for i := len(ids) - 1; i >= 0; i-- {
			entries[ids[i]].mu.Unlock()
		}
	}
}
