package vfscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	return NewDirectory(identity.MustNew(), identity.MustNew(), 5)
}

func regularFile(name string) *MetaData {
	return &MetaData{
		Name:    name,
		Type:    FileTypeRegular,
		DataMap: &DataMap{InlineData: []byte("hello")},
	}
}

func TestDirectory_AddRejectsCaseInsensitiveDuplicate(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)

	require.NoError(t, d.Add(regularFile("Report.txt")))
	err := d.Add(regularFile("report.TXT"))

	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))
}

func TestDirectory_AddThenGetReturnsSameMetadata(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)

	m := regularFile("notes.txt")
	require.NoError(t, d.Add(m))

	got, err := d.Get("NOTES.TXT")
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.True(t, d.Dirty())
}

func TestDirectory_ExactlyOneOfDataMapOrChildDirectory(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)

	neither := &MetaData{Name: "bad", Type: FileTypeRegular}
	err := d.Add(neither)
	require.Error(t, err)

	childID := identity.MustNew()
	both := &MetaData{
		Name:             "bad2",
		Type:             FileTypeRegular,
		DataMap:          &DataMap{InlineData: []byte("x")},
		ChildDirectoryID: &childID,
	}
	err = d.Add(both)
	require.Error(t, err)
}

func TestDirectory_DeleteRemovesEntry(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)
	require.NoError(t, d.Add(regularFile("a.txt")))

	removed, err := d.Delete("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", removed.Name)
	assert.False(t, d.Has("a.txt"))

	_, err = d.Delete("a.txt")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDirectory_RenameIsReversible(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)
	require.NoError(t, d.Add(regularFile("old.txt")))

	require.NoError(t, d.Rename("old.txt", "new.txt"))
	assert.False(t, d.Has("old.txt"))
	assert.True(t, d.Has("new.txt"))

	require.NoError(t, d.Rename("new.txt", "old.txt"))
	assert.True(t, d.Has("old.txt"))
	assert.False(t, d.Has("new.txt"))
}

func TestDirectory_EnumerationSkipsHiddenEntries(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)
	require.NoError(t, d.Add(regularFile("visible.txt")))
	require.NoError(t, d.Add(regularFile("secret.ms_hidden")))

	d.ResetCursor()
	var names []string
	for {
		m, ok := d.Next()
		if !ok {
			break
		}
		names = append(names, m.Name)
	}

	assert.Equal(t, []string{"visible.txt"}, names)
	assert.Equal(t, 2, d.Count())
}

func TestDirectory_RoundTripSerialisation(t *testing.T) {
	t.Parallel()
	d := newTestDirectory(t)
	require.NoError(t, d.Add(regularFile("a.txt")))
	require.NoError(t, d.Add(regularFile("b.txt")))

	encoded, err := d.MarshalBinary()
	require.NoError(t, err)

	decoded, err := UnmarshalDirectory(encoded)
	require.NoError(t, err)

	assert.Equal(t, d.DirectoryID, decoded.DirectoryID)
	assert.Equal(t, d.ParentID, decoded.ParentID)
	assert.ElementsMatch(t, d.All(), decoded.All())
}

func TestUnmarshalDirectory_RejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	_, err := UnmarshalDirectory([]byte(`{"version": 999}`))
	require.Error(t, err)
}
