package filehandle

import (
	"io"
	"os"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/bufpool"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

// memorySpillThreshold is the largest a write buffer is allowed to grow
// in memory before further writes spill to a temporary file instead:
// eight times bufpool's large tier, so buffers above the large tier are
// allocated directly rather than drawn from the pool.
const memorySpillThreshold = 8 * bufpool.DefaultLargeSize

// writeBuffer holds a File's full current logical content, addressed by
// position rather than append order: a read at any offset must be able
// to observe a write at that offset regardless of flush state, so the
// buffer cannot be a delta that gets discarded once committed. Small
// files stay in a pooled in-memory slice; once the content grows past
// memorySpillThreshold it spills to a temp file so an unbounded file
// can't exhaust the process's memory.
type writeBuffer struct {
	pool *bufpool.Pool
	mem  []byte

	spillFile *os.File
	spillSize int64
}

func newWriteBuffer(pool *bufpool.Pool) *writeBuffer {
	return &writeBuffer{pool: pool}
}

// Len returns the total number of bytes currently held.
func (b *writeBuffer) Len() int64 {
	if b.spillFile != nil {
		return b.spillSize
	}
	return int64(len(b.mem))
}

// growMem grows the in-memory slice to size bytes, zero-filling
// the new region, returning the old pooled slice to the pool.
func (b *writeBuffer) growMem(size int64) {
	grown := b.pool.Get(int(size))
	grown = grown[:size]
	copy(grown, b.mem)
	for i := len(b.mem); i < int(size); i++ {
		grown[i] = 0
	}
	if b.mem != nil {
		b.pool.Put(b.mem)
	}
	b.mem = grown
}

// spill moves the in-memory content to a temp file, used once a
// write or truncate would grow the buffer past memorySpillThreshold.
func (b *writeBuffer) spill() error {
	if b.spillFile != nil {
		return nil
	}
	f, err := os.CreateTemp("", "dittovfs-filehandle-*")
	if err != nil {
		return vfscore.NewStoreErrorf(false, "write buffer: create spill file: %v", err)
	}
	b.spillFile = f
	if len(b.mem) > 0 {
		if _, err := f.WriteAt(b.mem, 0); err != nil {
			return vfscore.NewStoreErrorf(false, "write buffer: seed spill file: %v", err)
		}
		b.spillSize = int64(len(b.mem))
		b.pool.Put(b.mem)
		b.mem = nil
	}
	return nil
}

// WriteAt writes p at byte offset off, growing the buffer (zero-filling
// any gap) if off+len(p) extends past the current length.
func (b *writeBuffer) WriteAt(p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}
	end := off + int64(len(p))

	if b.spillFile == nil && end <= memorySpillThreshold {
		if end > int64(len(b.mem)) {
			b.growMem(end)
		}
		copy(b.mem[off:end], p)
		return nil
	}

	if err := b.spill(); err != nil {
		return err
	}
	if off > b.spillSize {
		// WriteAt on a file leaves the gap implicitly zero-filled by the
		// filesystem, same as a grow-by-write on a regular file.
		if err := b.spillFile.Truncate(off); err != nil {
			return vfscore.NewStoreErrorf(false, "write buffer: extend spill file: %v", err)
		}
	}
	if _, err := b.spillFile.WriteAt(p, off); err != nil {
		return vfscore.NewStoreErrorf(false, "write buffer: spill write: %v", err)
	}
	if end > b.spillSize {
		b.spillSize = end
	}
	return nil
}

// ReadAt reads into p starting at byte offset off, returning the number
// of bytes read and io.EOF once off is at or past the buffer's length.
func (b *writeBuffer) ReadAt(p []byte, off int64) (int, error) {
	if b.spillFile != nil {
		return b.spillFile.ReadAt(p, off)
	}
	if off >= int64(len(b.mem)) {
		return 0, io.EOF
	}
	n := copy(p, b.mem[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Truncate sets the buffer's length to size, zero-filling newly exposed
// bytes when size grows it and discarding the tail when it shrinks it.
func (b *writeBuffer) Truncate(size int64) error {
	if b.spillFile != nil {
		if err := b.spillFile.Truncate(size); err != nil {
			return vfscore.NewStoreErrorf(false, "write buffer: truncate spill file: %v", err)
		}
		b.spillSize = size
		return nil
	}
	if size > memorySpillThreshold {
		if err := b.spill(); err != nil {
			return err
		}
		return b.Truncate(size)
	}
	if size <= int64(len(b.mem)) {
		b.mem = b.mem[:size]
		return nil
	}
	b.growMem(size)
	return nil
}

// Bytes returns the full buffered content as a single slice, reading
// back from the spill file if one was created.
func (b *writeBuffer) Bytes() ([]byte, error) {
	if b.spillFile == nil {
		return b.mem, nil
	}
	out := make([]byte, b.spillSize)
	if _, err := b.spillFile.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, vfscore.NewStoreErrorf(false, "write buffer: read spill file: %v", err)
	}
	return out, nil
}

// Reset discards all buffered content, releasing the pooled slice and
// removing the spill file.
func (b *writeBuffer) Reset() {
	if b.mem != nil {
		b.pool.Put(b.mem)
		b.mem = nil
	}
	if b.spillFile != nil {
		name := b.spillFile.Name()
		_ = b.spillFile.Close()
		_ = os.Remove(name)
		b.spillFile = nil
	}
	b.spillSize = 0
}
