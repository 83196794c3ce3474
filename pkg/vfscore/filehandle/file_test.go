package filehandle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/selfencrypt"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[identity.Identity][]byte
	puts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[identity.Identity][]byte)}
}

func (s *fakeStore) Put(_ context.Context, _ store.Kind, id identity.Identity, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.data[id] = append([]byte(nil), value...)
	return nil
}

func (s *fakeStore) Get(_ context.Context, _ store.Kind, id identity.Identity) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[id]
	if !ok {
		return nil, vfscore.NewNotFoundError(id.String())
	}
	return v, nil
}

func (s *fakeStore) Delete(_ context.Context, _ store.Kind, id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func newTestFile(st store.ObjectStore, flushDelay time.Duration) (*File, chan *vfscore.DataMap) {
	committed := make(chan *vfscore.DataMap, 16)
	f := New(st, selfencrypt.NewConvergent(), func(_ context.Context, dm *vfscore.DataMap) error {
		committed <- dm
		return nil
	}, nil, nil)
	f.flushWait = flushDelay
	return f, committed
}

func TestFile_WriteThenFlushCommitsDataMap(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, time.Hour)

	_, err := f.Write(context.Background(), []byte("hello world"), 0)
	require.NoError(t, err)
	assert.True(t, f.Dirty())

	require.NoError(t, f.Flush(context.Background()))
	assert.False(t, f.Dirty())

	select {
	case dm := <-committed:
		assert.Equal(t, uint64(len("hello world")), dm.Size())
	default:
		t.Fatal("expected a commit")
	}
}

func TestFile_ReadYourWritesBeforeFlush(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, time.Hour)

	content := []byte("content visible before flush")
	_, err := f.Write(context.Background(), content, 0)
	require.NoError(t, err)

	out := make([]byte, len(content))
	n, err := f.Read(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Equal(t, len(content), n)
	assert.Equal(t, content, out)
	assert.True(t, f.Dirty(), "read must not itself flush the pending write")

	select {
	case <-committed:
		t.Fatal("reading unflushed content must not trigger a commit")
	default:
	}
}

func TestFile_WriteOverwritesRangeWithoutFlush(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, _ := newTestFile(st, time.Hour)

	_, err := f.Write(context.Background(), []byte("aaaaaaaaaa"), 0)
	require.NoError(t, err)
	_, err = f.Write(context.Background(), []byte("BB"), 3)
	require.NoError(t, err)

	out := make([]byte, 10)
	n, err := f.Read(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("aaaBBaaaaa"), out)
}

func TestFile_ReadClampsAtEOF(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, _ := newTestFile(st, time.Hour)

	_, err := f.Write(context.Background(), []byte("short"), 0)
	require.NoError(t, err)

	out := make([]byte, 100)
	n, err := f.Read(context.Background(), out, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("ort"), out[:n])

	n, err = f.Read(context.Background(), out, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFile_ReadAfterReopenSeesFlushedContent(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, time.Hour)

	_, err := f.Write(context.Background(), []byte("persisted"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Flush(context.Background()))
	dm := <-committed

	reopened := New(st, selfencrypt.NewConvergent(), func(context.Context, *vfscore.DataMap) error { return nil }, nil, dm)
	out := make([]byte, len("persisted"))
	n, err := reopened.Read(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(out[:n]))
}

func TestFile_FlushTimerCoalescesBurstOfWrites(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		_, err := f.Write(context.Background(), []byte("x"), uint64(i))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case dm := <-committed:
		assert.Equal(t, uint64(5), dm.Size())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced flush")
	}

	select {
	case <-committed:
		t.Fatal("expected exactly one flush from the coalesced burst")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFile_CloseFlushesOnlyWhenLastReferenceCloses(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, time.Hour)
	f.Open() // openCount now 2

	_, err := f.Write(context.Background(), []byte("data"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close(context.Background()))

	select {
	case <-committed:
		t.Fatal("should not flush while a reference is still open")
	default:
	}

	require.NoError(t, f.Close(context.Background()))
	select {
	case <-committed:
	default:
		t.Fatal("expected flush on final close")
	}
}

func TestFile_TruncateShrinksAndZeroFillsOnGrow(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	f, committed := newTestFile(st, time.Hour)

	_, err := f.Write(context.Background(), []byte("0123456789"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(context.Background(), 4))
	assert.Equal(t, uint64(4), f.Size())
	out := make([]byte, 4)
	n, err := f.Read(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), out[:n])

	require.NoError(t, f.Truncate(context.Background(), 8))
	assert.Equal(t, uint64(8), f.Size())
	out = make([]byte, 8)
	n, err = f.Read(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123\x00\x00\x00\x00"), out[:n])

	require.NoError(t, f.Flush(context.Background()))
	select {
	case dm := <-committed:
		assert.Equal(t, uint64(8), dm.Size())
	default:
		t.Fatal("expected a commit reflecting the truncated content")
	}
}
