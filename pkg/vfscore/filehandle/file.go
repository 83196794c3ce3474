// Package filehandle implements the per-open-file object: it keeps the
// file's live content addressable by offset so unflushed writes are
// observable to a subsequent read, drives the self-encryptor to produce
// a DataMap on flush, and debounces repeated writes behind a single
// re-armable timer so a burst of small writes commits once instead of
// once per write.
package filehandle

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/logger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/bufpool"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/selfencrypt"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

// DefaultFlushDelay is how long a File waits after the last write before
// it flushes on its own, absent an explicit Flush or Close call.
const DefaultFlushDelay = 2 * time.Second

// Committer is the narrow callback a File uses to persist the DataMap
// it produces on flush back into the owning directory's MetaData entry.
// The Directory Handler supplies this; the file handle itself has no
// notion of paths or parent directories.
type Committer func(ctx context.Context, dm *vfscore.DataMap) error

// File is a single open file's live state: a positional buffer holding
// the file's full current content (flushed and unflushed alike), the
// self-encryptor that turns a flush into chunk ciphertexts plus a
// DataMap, and a debounce timer that coalesces a burst of writes into
// one flush.
type File struct {
	mu sync.Mutex

	store     store.ObjectStore
	encryptor selfencrypt.Encryptor
	commit    Committer
	flushWait time.Duration

	buf       *writeBuffer
	size      uint64
	dirty     bool
	flushed   bool
	hydrated  bool
	initialDM *vfscore.DataMap

	timer *time.Timer

	openCount atomic.Int32
}

// New constructs a File. pool is the buffer pool content accumulates
// into; pass nil to use a package-private default pool. initial is the
// DataMap of content already persisted for this path, or nil when
// opening a brand-new, empty file — it is decrypted lazily, on the
// first Read, Write, or Truncate, not at construction time.
func New(st store.ObjectStore, encryptor selfencrypt.Encryptor, commit Committer, pool *bufpool.Pool, initial *vfscore.DataMap) *File {
	if pool == nil {
		pool = bufpool.NewPool(nil)
	}
	f := &File{
		store:     st,
		encryptor: encryptor,
		commit:    commit,
		flushWait: DefaultFlushDelay,
		buf:       newWriteBuffer(pool),
		flushed:   true,
		initialDM: initial,
		hydrated:  initial == nil,
	}
	if initial != nil {
		f.size = initial.Size()
	}
	f.openCount.Store(1)
	return f
}

// Open increments the handle's open-count, pinning it against eviction
// by whichever cache owns it.
func (f *File) Open() {
	f.openCount.Add(1)
}

// OpenCount returns the current number of open references.
func (f *File) OpenCount() int32 {
	return f.openCount.Load()
}

// Size returns the file's current logical size, including unflushed
// writes and truncations.
func (f *File) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// hydrate decrypts the file's initial DataMap into the buffer, once,
// the first time any operation needs to see existing content. Decrypt
// runs without the lock held, matching Flush's rule that store
// round-trips never block a concurrent Write or Read.
func (f *File) hydrate(ctx context.Context) error {
	f.mu.Lock()
	if f.hydrated {
		f.mu.Unlock()
		return nil
	}
	dm := f.initialDM
	f.mu.Unlock()

	var content []byte
	if dm != nil {
		decoded, err := f.decrypt(ctx, dm)
		if err != nil {
			return err
		}
		content = decoded
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hydrated {
		return nil
	}
	if len(content) > 0 {
		if err := f.buf.WriteAt(content, 0); err != nil {
			return err
		}
	}
	f.hydrated = true
	return nil
}

func (f *File) decrypt(ctx context.Context, dm *vfscore.DataMap) ([]byte, error) {
	return f.encryptor.Decrypt(ctx, dm, func(ctx context.Context, postHash vfscore.ContentHash) ([]byte, error) {
		return f.store.Get(ctx, store.Chunk, identity.FromBytes(postHash[:]))
	})
}

// Write stores p at byte offset off, extending the file's size if the
// write reaches past the current end, and (re)arms the flush timer. A
// write never blocks on the store: it only reaches the store at the
// next flush.
func (f *File) Write(ctx context.Context, p []byte, off uint64) (int, error) {
	if err := f.hydrate(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.buf.WriteAt(p, int64(off)); err != nil {
		return 0, err
	}
	if end := off + uint64(len(p)); end > f.size {
		f.size = end
	}
	f.dirty = true
	f.flushed = false
	f.armTimerLocked()
	return len(p), nil
}

// Read copies up to len(p) bytes starting at byte offset off into p,
// observing any write not yet flushed. The result is clamped at the
// file's current end: reading at or past it returns (0, nil).
func (f *File) Read(ctx context.Context, p []byte, off uint64) (int, error) {
	if err := f.hydrate(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if off >= f.size {
		return 0, nil
	}
	want := uint64(len(p))
	if off+want > f.size {
		want = f.size - off
	}
	n, err := f.buf.ReadAt(p[:want], int64(off))
	if err != nil && err != io.EOF {
		return n, err
	}
	return n, nil
}

// Truncate sets the file's size to newSize: growing zero-fills the new
// region, shrinking discards the tail. Either direction dirties the
// file and re-arms the flush timer, since both change persisted
// content.
func (f *File) Truncate(ctx context.Context, newSize uint64) error {
	if err := f.hydrate(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.buf.Truncate(int64(newSize)); err != nil {
		return err
	}
	f.size = newSize
	f.dirty = true
	f.flushed = false
	f.armTimerLocked()
	return nil
}

// armTimerLocked (re)starts the debounce timer. Callers must hold f.mu.
func (f *File) armTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.flushWait, func() {
		if err := f.Flush(context.Background()); err != nil {
			logger.Warn("deferred flush failed", logger.Err(err))
		}
	})
}

// Flush commits the buffer's full current content: it drives the
// self-encryptor to produce a DataMap and chunk ciphertexts, persists
// every chunk, and invokes the Committer with the resulting DataMap.
// Flush is a no-op if nothing has changed since the last flush.
func (f *File) Flush(ctx context.Context) error {
	if err := f.hydrate(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return nil
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	content, err := f.buf.Bytes()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	// Copy out of the buffer before releasing the lock: encryption and
	// the store round-trips below must not hold f.mu for their
	// duration, or a concurrent Write would stall behind a slow flush.
	content = append([]byte(nil), content...)
	f.mu.Unlock()

	dm, chunks, err := f.encryptor.Encrypt(ctx, content)
	if err != nil {
		return err
	}
	if err := f.putChunks(ctx, chunks); err != nil {
		return err
	}
	if err := f.commit(ctx, dm); err != nil {
		return err
	}

	f.mu.Lock()
	f.dirty = false
	f.flushed = true
	f.initialDM = dm
	f.mu.Unlock()
	return nil
}

// putChunks stores every chunk produced by a flush concurrently: chunks
// are independent, content-addressed objects, so there is no ordering
// requirement between them and no reason to serialize their round
// trips to the store.
func (f *File) putChunks(ctx context.Context, chunks []selfencrypt.ChunkPayload) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			return f.putChunk(gctx, c.Descriptor.PostHash, c.Ciphertext)
		})
	}
	return g.Wait()
}

// putChunk stores chunk ciphertext under its post-hash address. A failed
// Put, transient or not, is returned to the caller without a retry.
func (f *File) putChunk(ctx context.Context, postHash vfscore.ContentHash, ciphertext []byte) error {
	id := identity.FromBytes(postHash[:])
	return f.store.Put(ctx, store.Chunk, id, ciphertext)
}

// Dirty reports whether the file has unflushed changes.
func (f *File) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Close decrements the open-count and, once it reaches zero, performs a
// final flush of any pending writes.
func (f *File) Close(ctx context.Context) error {
	if f.openCount.Add(-1) > 0 {
		return nil
	}
	return f.Flush(ctx)
}
