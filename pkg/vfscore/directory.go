package vfscore

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
)

// directoryFormatVersion is bumped whenever the on-disk envelope changes
// shape. Readers reject a version they don't recognise rather than guess.
const directoryFormatVersion = 1

// Directory is an ordered, case-insensitive-unique-by-name collection of
// MetaData children, plus the bookkeeping the Directory Handler needs:
// the parent link, a MaxVersions cap carried for history retention, and
// a dirty bit marking unflushed in-memory changes.
type Directory struct {
	DirectoryID identity.Identity
	ParentID    identity.Identity
	MaxVersions int

	children []*MetaData

	// contentsChanged is the dirty bit: true whenever children has
	// diverged from what was last flushed to the store.
	contentsChanged bool

	// cursor is the one-shot enumeration position used by Next. It is
	// not persisted.
	cursor int
}

// NewDirectory constructs an empty Directory owned by parentID.
func NewDirectory(dirID, parentID identity.Identity, maxVersions int) *Directory {
	return &Directory{
		DirectoryID: dirID,
		ParentID:    parentID,
		MaxVersions: maxVersions,
	}
}

// Dirty reports whether the directory has unflushed changes.
func (d *Directory) Dirty() bool {
	return d.contentsChanged
}

// MarkClean clears the dirty bit; called by the handler after a
// successful flush.
func (d *Directory) MarkClean() {
	d.contentsChanged = false
}

// Count returns the number of children, including hidden ones.
func (d *Directory) Count() int {
	return len(d.children)
}

// findIndex returns the index of the child named name (case-insensitive)
// or -1.
func (d *Directory) findIndex(name string) int {
	for i, c := range d.children {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Get returns a copy of the MetaData for name, or a NotFound error.
func (d *Directory) Get(name string) (*MetaData, error) {
	idx := d.findIndex(name)
	if idx < 0 {
		return nil, NewNotFoundError(name)
	}
	copied := *d.children[idx]
	return &copied, nil
}

// Has reports whether name exists in the directory, case-insensitively.
func (d *Directory) Has(name string) bool {
	return d.findIndex(name) >= 0
}

// Add inserts a new child. Returns AlreadyExists if name collides
// case-insensitively with an existing child.
func (d *Directory) Add(m *MetaData) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if d.Has(m.Name) {
		return NewAlreadyExistsError(m.Name)
	}
	copied := *m
	d.children = append(d.children, &copied)
	d.sortChildren()
	d.contentsChanged = true
	d.ResetCursor()
	return nil
}

// Delete removes the child named name. Returns NotFound if absent.
func (d *Directory) Delete(name string) (*MetaData, error) {
	idx := d.findIndex(name)
	if idx < 0 {
		return nil, NewNotFoundError(name)
	}
	removed := d.children[idx]
	d.children = append(d.children[:idx], d.children[idx+1:]...)
	d.contentsChanged = true
	d.ResetCursor()
	return removed, nil
}

// Empty reports whether the directory has no children other than hidden
// ones — the condition the handler requires before a directory's
// backing object may be deleted.
func (d *Directory) Empty() bool {
	for _, c := range d.children {
		if !IsHidden(c.Name) {
			return false
		}
	}
	return true
}

// HiddenChildNames returns the names of every hidden child, in storage
// order. Exposed only to the core itself; the mount adapter never sees
// hidden entries through normal enumeration.
func (d *Directory) HiddenChildNames() []string {
	var names []string
	for _, c := range d.children {
		if IsHidden(c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Update replaces the stored MetaData for an existing child with m,
// keeping the same position. Returns NotFound if m.Name is absent.
func (d *Directory) Update(m *MetaData) error {
	if err := m.Validate(); err != nil {
		return err
	}
	idx := d.findIndex(m.Name)
	if idx < 0 {
		return NewNotFoundError(m.Name)
	}
	copied := *m
	d.children[idx] = &copied
	d.contentsChanged = true
	return nil
}

// Rename changes the name of an existing child in place, enforcing the
// same case-insensitive uniqueness constraint Add does. It does not
// move the entry between directories; cross-directory moves are the
// handler's responsibility (delete from source, add to destination).
func (d *Directory) Rename(oldName, newName string) error {
	idx := d.findIndex(oldName)
	if idx < 0 {
		return NewNotFoundError(oldName)
	}
	if !strings.EqualFold(oldName, newName) && d.Has(newName) {
		return NewAlreadyExistsError(newName)
	}
	d.children[idx].Name = newName
	d.sortChildren()
	d.contentsChanged = true
	return nil
}

func (d *Directory) sortChildren() {
	sort.SliceStable(d.children, func(i, j int) bool {
		return strings.ToLower(d.children[i].Name) < strings.ToLower(d.children[j].Name)
	})
}

// ResetCursor rewinds the one-shot enumeration cursor to the start.
func (d *Directory) ResetCursor() {
	d.cursor = 0
}

// Next returns the next non-hidden child in enumeration order, advancing
// the cursor, or (nil, false) once exhausted. The cursor is one-shot:
// callers that need to re-enumerate must call ResetCursor first.
func (d *Directory) Next() (*MetaData, bool) {
	for d.cursor < len(d.children) {
		c := d.children[d.cursor]
		d.cursor++
		if IsHidden(c.Name) {
			continue
		}
		copied := *c
		return &copied, true
	}
	return nil, false
}

// All returns a copy of every non-hidden child, in enumeration order.
// Unlike Next, it does not consume the cursor.
func (d *Directory) All() []*MetaData {
	out := make([]*MetaData, 0, len(d.children))
	for _, c := range d.children {
		if IsHidden(c.Name) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out
}

// ----------------------------------------------------------------------------
// Serialisation
// ----------------------------------------------------------------------------

// directoryEnvelope is the on-disk shape of a Directory: versioned so a
// future format change can be detected on read.
type directoryEnvelope struct {
	Version     int               `json:"version"`
	DirectoryID identity.Identity `json:"directory_id"`
	ParentID    identity.Identity `json:"parent_id"`
	MaxVersions int               `json:"max_versions"`
	Children    []*MetaData       `json:"children"`
}

// MarshalBinary serialises the directory to its persisted form.
func (d *Directory) MarshalBinary() ([]byte, error) {
	env := directoryEnvelope{
		Version:     directoryFormatVersion,
		DirectoryID: d.DirectoryID,
		ParentID:    d.ParentID,
		MaxVersions: d.MaxVersions,
		Children:    d.children,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, NewSerialisationError(err.Error())
	}
	return b, nil
}

// UnmarshalDirectory parses a persisted Directory. It rejects an
// unrecognised envelope version rather than guess at forward
// compatibility.
func UnmarshalDirectory(data []byte) (*Directory, error) {
	var env directoryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, NewParsingError(err.Error())
	}
	if env.Version != directoryFormatVersion {
		return nil, NewParsingError("directory: unsupported envelope version")
	}
	d := &Directory{
		DirectoryID: env.DirectoryID,
		ParentID:    env.ParentID,
		MaxVersions: env.MaxVersions,
		children:    env.Children,
	}
	d.sortChildren()
	return d, nil
}
