package handler

import (
	"context"
	"time"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/logger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

// splitParentAndName splits an absolute path into its parent's
// component list and the final component name. An empty or root path is
// invalid for every mutating operation.
func splitParentAndName(path string) ([]string, string, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return nil, "", vfscore.NewInvalidParameterError("path has no name component")
	}
	return components[:len(components)-1], components[len(components)-1], nil
}

// Get resolves path to its MetaData, without side effects: LastAccess
// is left unchanged.
func (h *Handler) Get(ctx context.Context, path string) (*vfscore.MetaData, error) {
	parentComponents, name, err := splitParentAndName(path)
	if err != nil {
		return nil, err
	}
	parent, err := h.resolveDirectory(ctx, parentComponents)
	if err != nil {
		return nil, err
	}
	parent.dirEntry.mu.Lock()
	defer parent.dirEntry.mu.Unlock()
	return parent.dirEntry.directory.Get(name)
}

// checkZonePolicy enforces the three-zone write policy: Owner always
// accepts writes from an authorised caller (authorisation itself is the
// host adapter's concern); Group is never writable through this
// interface — adding or deleting a Group entry is always refused, by
// design, regardless of caller; World only accepts writes when the
// Handler's WorldWritable flag is set.
func (h *Handler) checkZonePolicy(kind vfscore.DirectoryKind, path string) error {
	switch kind {
	case vfscore.KindGroup:
		return vfscore.NewPermissionDeniedError(path)
	case vfscore.KindWorld:
		if !h.worldIsWritable() {
			return vfscore.NewPermissionDeniedError(path)
		}
	}
	return nil
}

// Add inserts meta as a new entry at path. If meta describes a
// directory (ChildDirectoryID set), the new directory's own backing
// object is created and stored before the parent listing is updated, so
// a crash between the two leaves at worst an orphaned empty directory,
// never a parent entry pointing at nothing.
func (h *Handler) Add(ctx context.Context, path string, meta *vfscore.MetaData) error {
	parentComponents, name, err := splitParentAndName(path)
	if err != nil {
		return err
	}
	meta.Name = name

	parent, err := h.resolveDirectory(ctx, parentComponents)
	if err != nil {
		return err
	}
	if err := h.checkZonePolicy(parent.dirKind, path); err != nil {
		return err
	}
	if vfscore.IsImmutableRoot(path) {
		return vfscore.NewPermissionDeniedError(path)
	}

	if meta.HasChildDirectory() {
		childKind := classifyChild(parent.dirKind, name)
		childDir := vfscore.NewDirectory(*meta.ChildDirectoryID, parent.dirID, parent.dirEntry.directory.MaxVersions)
		if err := h.storeDirectory(ctx, childKind, childDir); err != nil {
			return err
		}
	}

	parent.dirEntry.mu.Lock()
	err = parent.dirEntry.directory.Add(meta)
	dirty := parent.dirEntry.directory
	parent.dirEntry.mu.Unlock()
	if err != nil {
		return err
	}

	if err := h.storeDirectory(ctx, parent.dirKind, dirty); err != nil {
		// Compensating rollback: take the new entry back out so the
		// in-memory listing matches the stored one.
		parent.dirEntry.mu.Lock()
		_, _ = dirty.Delete(name)
		parent.dirEntry.mu.Unlock()
		return err
	}
	parent.dirEntry.mu.Lock()
	dirty.MarkClean()
	parent.dirEntry.mu.Unlock()

	h.bestEffortGrandparentTouch(ctx, parentComponents)
	h.publish(EventCreated, path)
	return nil
}

// Delete removes the entry at path. Deleting a directory also deletes
// its backing store object; deleting a regular file leaves chunk
// deletion to the caller (the file handle knows which chunks are safe
// to reclaim once its own references are gone).
func (h *Handler) Delete(ctx context.Context, path string) (*vfscore.MetaData, error) {
	if vfscore.IsImmutableRoot(path) {
		return nil, vfscore.NewPermissionDeniedError(path)
	}
	parentComponents, name, err := splitParentAndName(path)
	if err != nil {
		return nil, err
	}

	parent, err := h.resolveDirectory(ctx, parentComponents)
	if err != nil {
		return nil, err
	}
	if err := h.checkZonePolicy(parent.dirKind, path); err != nil {
		return nil, err
	}

	parent.dirEntry.mu.Lock()
	candidate, err := parent.dirEntry.directory.Get(name)
	parent.dirEntry.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if candidate.HasChildDirectory() {
		childKind := classifyChild(parent.dirKind, name)
		childEntry, err := h.entry(ctx, childKind, *candidate.ChildDirectoryID)
		if err != nil {
			return nil, err
		}
		childEntry.mu.Lock()
		empty := childEntry.directory.Empty()
		childEntry.mu.Unlock()
		if !empty {
			return nil, vfscore.NewNotEmptyError(path)
		}
	}

	parent.dirEntry.mu.Lock()
	removed, err := parent.dirEntry.directory.Delete(name)
	dirty := parent.dirEntry.directory
	parent.dirEntry.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := h.storeDirectory(ctx, parent.dirKind, dirty); err != nil {
		// Compensating rollback: put the removed entry back so the
		// in-memory listing matches the stored one.
		parent.dirEntry.mu.Lock()
		_ = dirty.Add(removed)
		parent.dirEntry.mu.Unlock()
		return nil, err
	}
	parent.dirEntry.mu.Lock()
	dirty.MarkClean()
	parent.dirEntry.mu.Unlock()

	if removed.HasChildDirectory() {
		childKind := classifyChild(parent.dirKind, name)
		if err := h.store.Delete(ctx, storeKind(childKind), *removed.ChildDirectoryID); err != nil {
			logger.Warn("failed to delete directory object", logger.Path(path), logger.Err(err))
		}
		h.cacheMu.Lock()
		delete(h.cache, *removed.ChildDirectoryID)
		h.cacheMu.Unlock()
	}

	h.bestEffortGrandparentTouch(ctx, parentComponents)
	h.publish(EventRemoved, path)
	return removed, nil
}

// Rename moves the entry at oldPath to newPath, returning the number of
// bytes reclaimed if newPath named an existing regular file that was
// overwritten. Renaming to a path in a different zone re-encodes and
// re-stores the moved directory's whole subtree under the destination
// zone's encoding.
func (h *Handler) Rename(ctx context.Context, oldPath, newPath string) (reclaimed uint64, err error) {
	if vfscore.IsImmutableRoot(oldPath) || vfscore.IsImmutableRoot(newPath) {
		return 0, vfscore.NewPermissionDeniedError(oldPath)
	}

	oldParentComponents, oldName, err := splitParentAndName(oldPath)
	if err != nil {
		return 0, err
	}
	newParentComponents, newName, err := splitParentAndName(newPath)
	if err != nil {
		return 0, err
	}

	oldParent, err := h.resolveDirectory(ctx, oldParentComponents)
	if err != nil {
		return 0, err
	}
	newParent, err := h.resolveDirectory(ctx, newParentComponents)
	if err != nil {
		return 0, err
	}
	if err := h.checkZonePolicy(oldParent.dirKind, oldPath); err != nil {
		return 0, err
	}
	if err := h.checkZonePolicy(newParent.dirKind, newPath); err != nil {
		return 0, err
	}

	if oldParent.dirID == newParent.dirID {
		return h.renameSameParent(ctx, oldParent, oldName, newName, newPath)
	}
	return h.renameDifferentParent(ctx, oldParent, oldName, newParent, newName, newPath)
}

func (h *Handler) renameSameParent(ctx context.Context, parent *resolved, oldName, newName, newPath string) (uint64, error) {
	unlock := acquireOrdered(map[identity.Identity]*cacheEntry{parent.dirID: parent.dirEntry})
	defer unlock()

	reclaimed, existing, err := h.reclaimExistingTarget(parent.dirEntry.directory, newName)
	if err != nil {
		return 0, err
	}

	if err := parent.dirEntry.directory.Rename(oldName, newName); err != nil {
		// Compensating rollback: restore the target we removed, if any.
		if existing != nil {
			_ = parent.dirEntry.directory.Add(existing)
		}
		return 0, err
	}

	if err := h.storeDirectory(ctx, parent.dirKind, parent.dirEntry.directory); err != nil {
		// Roll back the in-memory rename so a retry sees consistent state.
		_ = parent.dirEntry.directory.Rename(newName, oldName)
		if existing != nil {
			_ = parent.dirEntry.directory.Add(existing)
		}
		return 0, err
	}
	parent.dirEntry.directory.MarkClean()

	h.publish(EventRenamed, newPath)
	return reclaimed, nil
}

func (h *Handler) renameDifferentParent(ctx context.Context, oldParent *resolved, oldName string, newParent *resolved, newName, newPath string) (uint64, error) {
	unlock := acquireOrdered(map[identity.Identity]*cacheEntry{
		oldParent.dirID: oldParent.dirEntry,
		newParent.dirID: newParent.dirEntry,
	})
	defer unlock()

	reclaimed, existing, err := h.reclaimExistingTarget(newParent.dirEntry.directory, newName)
	if err != nil {
		return 0, err
	}

	moved, err := oldParent.dirEntry.directory.Delete(oldName)
	if err != nil {
		if existing != nil {
			_ = newParent.dirEntry.directory.Add(existing)
		}
		return 0, err
	}
	moved.Name = newName

	// A cross-zone move needs its subtree root re-stored under the
	// destination zone's encoding before the destination listing is
	// updated, so a crash never leaves a listing pointing at an object
	// encoded for the wrong zone.
	if moved.HasChildDirectory() && oldParent.dirKind != newParent.dirKind {
		if err := h.restoreUnderZone(ctx, oldParent.dirKind, newParent.dirKind, *moved.ChildDirectoryID); err != nil {
			// Roll back: put the entry back where it was.
			moved.Name = oldName
			_ = oldParent.dirEntry.directory.Add(moved)
			if existing != nil {
				_ = newParent.dirEntry.directory.Add(existing)
			}
			return 0, err
		}
	}

	if err := newParent.dirEntry.directory.Add(moved); err != nil {
		moved.Name = oldName
		_ = oldParent.dirEntry.directory.Add(moved)
		if existing != nil {
			_ = newParent.dirEntry.directory.Add(existing)
		}
		return 0, err
	}

	if err := h.storeDirectory(ctx, oldParent.dirKind, oldParent.dirEntry.directory); err != nil {
		return 0, err
	}
	if err := h.storeDirectory(ctx, newParent.dirKind, newParent.dirEntry.directory); err != nil {
		return 0, err
	}
	oldParent.dirEntry.directory.MarkClean()
	newParent.dirEntry.directory.MarkClean()

	h.publish(EventRenamed, newPath)
	return reclaimed, nil
}

// restoreUnderZone re-fetches a directory subtree under its old zone's
// encoding and re-stores it under the new zone's encoding, recursing
// into its children so the whole subtree is consistently re-encoded.
func (h *Handler) restoreUnderZone(ctx context.Context, oldKind, newKind vfscore.DirectoryKind, id identity.Identity) error {
	dir, err := h.loadDirectory(ctx, oldKind, id)
	if err != nil {
		return err
	}
	for _, child := range dir.All() {
		if child.HasChildDirectory() {
			if err := h.restoreUnderZone(ctx, oldKind, newKind, *child.ChildDirectoryID); err != nil {
				return err
			}
		}
	}
	if err := h.storeDirectory(ctx, newKind, dir); err != nil {
		return err
	}
	return h.store.Delete(ctx, storeKind(oldKind), id)
}

// reclaimExistingTarget removes and returns newName from dir if present,
// so a rename-over-target can proceed; the caller is responsible for
// restoring it on rollback. reclaimed is the removed entry's content
// size in bytes (0 if it named a directory or didn't exist).
func (h *Handler) reclaimExistingTarget(dir *vfscore.Directory, newName string) (reclaimed uint64, existing *vfscore.MetaData, err error) {
	if !dir.Has(newName) {
		return 0, nil, nil
	}
	existing, err = dir.Delete(newName)
	if err != nil {
		return 0, nil, err
	}
	if existing.HasChildDirectory() {
		return 0, existing, nil
	}
	return existing.DataMap.Size(), existing, nil
}

// bestEffortGrandparentTouch updates the grandparent's own LastWrite
// bookkeeping after a mutation. Failures here are logged and swallowed:
// the mutation itself already succeeded, and grandparent timestamp
// drift is not worth failing the caller's operation over.
func (h *Handler) bestEffortGrandparentTouch(ctx context.Context, parentComponents []string) {
	if len(parentComponents) == 0 {
		return
	}
	grandparentComponents := parentComponents[:len(parentComponents)-1]
	grandparent, err := h.resolveDirectory(ctx, grandparentComponents)
	if err != nil {
		logger.Warn("grandparent bookkeeping: resolve failed", logger.Err(err))
		return
	}
	name := parentComponents[len(parentComponents)-1]

	grandparent.dirEntry.mu.Lock()
	m, err := grandparent.dirEntry.directory.Get(name)
	if err == nil {
		m.Touch(time.Now(), m.Size, m.AllocationSize)
		err = grandparent.dirEntry.directory.Update(m)
	}
	dirty := grandparent.dirEntry.directory
	grandparent.dirEntry.mu.Unlock()
	if err != nil {
		logger.Warn("grandparent bookkeeping: update failed", logger.Err(err))
		return
	}

	if err := h.storeDirectory(ctx, grandparent.dirKind, dirty); err != nil {
		logger.Warn("grandparent bookkeeping: store failed", logger.Err(err))
		return
	}
	grandparent.dirEntry.mu.Lock()
	dirty.MarkClean()
	grandparent.dirEntry.mu.Unlock()
}
