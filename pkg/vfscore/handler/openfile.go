package handler

import (
	"context"
	"time"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/filehandle"
)

// OpenFile obtains the File handle cached against path, creating it if
// this is the first open: a second concurrent OpenFile of the same path
// returns the same File with its open-count incremented, rather than a
// second handle racing the first to flush. path must name an existing
// regular file; open a new file by Add-ing its MetaData first.
func (h *Handler) OpenFile(ctx context.Context, path string) (*filehandle.File, error) {
	h.filesMu.Lock()
	if f, ok := h.openFiles[path]; ok {
		f.Open()
		h.filesMu.Unlock()
		return f, nil
	}
	h.filesMu.Unlock()

	parentComponents, name, err := splitParentAndName(path)
	if err != nil {
		return nil, err
	}
	parent, err := h.resolveDirectory(ctx, parentComponents)
	if err != nil {
		return nil, err
	}
	parent.dirEntry.mu.Lock()
	meta, err := parent.dirEntry.directory.Get(name)
	parent.dirEntry.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if meta.Type != vfscore.FileTypeRegular {
		return nil, vfscore.NewInvalidParameterError("open_file: not a regular file: " + path)
	}

	committer := func(ctx context.Context, dm *vfscore.DataMap) error {
		return h.commitFileDataMap(ctx, path, dm)
	}
	f := filehandle.New(h.store, h.encryptor, committer, h.bufPool, meta.DataMap)
	h.pin(parent.dirID)

	h.filesMu.Lock()
	if existing, ok := h.openFiles[path]; ok {
		// Lost a race to another OpenFile of the same path: use its
		// handle instead and release the speculative pin we just took.
		existing.Open()
		h.filesMu.Unlock()
		h.unpin(parent.dirID)
		return existing, nil
	}
	h.openFiles[path] = f
	h.filesMu.Unlock()
	return f, nil
}

// Release drops one reference to the File handle open at path, flushing
// it (via File.Close) once the last reference is gone and evicting it
// from the open-file table.
func (h *Handler) Release(ctx context.Context, path string) error {
	h.filesMu.Lock()
	f, ok := h.openFiles[path]
	h.filesMu.Unlock()
	if !ok {
		return vfscore.NewNotFoundError(path)
	}

	closeErr := f.Close(ctx)
	if f.OpenCount() > 0 {
		return closeErr
	}

	h.filesMu.Lock()
	if h.openFiles[path] == f {
		delete(h.openFiles, path)
	}
	h.filesMu.Unlock()

	if parentComponents, _, err := splitParentAndName(path); err == nil {
		if parent, err := h.resolveDirectory(ctx, parentComponents); err == nil {
			h.unpin(parent.dirID)
		}
	}
	return closeErr
}

// commitFileDataMap is the Committer a File calls back into on flush: it
// writes the new DataMap and size into the owning directory's MetaData
// entry for path, mirroring the update_parent step of the core's data
// flow.
func (h *Handler) commitFileDataMap(ctx context.Context, path string, dm *vfscore.DataMap) error {
	parentComponents, name, err := splitParentAndName(path)
	if err != nil {
		return err
	}
	parent, err := h.resolveDirectory(ctx, parentComponents)
	if err != nil {
		return err
	}

	parent.dirEntry.mu.Lock()
	m, err := parent.dirEntry.directory.Get(name)
	if err != nil {
		parent.dirEntry.mu.Unlock()
		return err
	}
	m.DataMap = dm
	m.Touch(time.Now(), dm.Size(), dm.Size())
	err = parent.dirEntry.directory.Update(m)
	dirty := parent.dirEntry.directory
	parent.dirEntry.mu.Unlock()
	if err != nil {
		return err
	}

	if err := h.storeDirectory(ctx, parent.dirKind, dirty); err != nil {
		return err
	}
	parent.dirEntry.mu.Lock()
	dirty.MarkClean()
	parent.dirEntry.mu.Unlock()

	h.bestEffortGrandparentTouch(ctx, parentComponents)
	h.publish(EventModified, path)
	return nil
}
