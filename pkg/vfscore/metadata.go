package vfscore

import (
	"time"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
)

// FileType is the type of a filesystem object a MetaData record
// describes.
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// MetaData is one directory entry: the attributes the handler and file
// handle need, plus exactly one of a DataMap (regular file content) or a
// ChildDirectoryID (the entry is itself a directory). An empty regular
// file carries an empty DataMap; Validate rejects an entry with neither.
type MetaData struct {
	Name string   `json:"name"`
	Type FileType `json:"type"`

	CreationTime     time.Time `json:"creation_time"`
	LastAccess       time.Time `json:"last_access"`
	LastWrite        time.Time `json:"last_write"`
	LastStatusChange time.Time `json:"last_status_change"`

	Size           uint64 `json:"size"`
	AllocationSize uint64 `json:"allocation_size"`

	// Attributes is an opaque platform-attribute blob. The core never
	// interprets these keys; it only stores and returns them verbatim.
	// The host adapter owns their semantics.
	Attributes map[string]uint64 `json:"attributes,omitempty"`

	// Exactly one of DataMap / ChildDirectoryID is set, unless Type is
	// FileTypeSymlink, in which case neither is set and LinkTarget
	// carries the link's destination.
	DataMap          *DataMap            `json:"data_map,omitempty"`
	ChildDirectoryID *identity.Identity  `json:"child_directory_id,omitempty"`
	LinkTarget       string              `json:"link_target,omitempty"`

	Notes []string `json:"notes,omitempty"`

	// Hidden entries, excluded from enumeration, carry no field of their
	// own: the marker is the kMsHiddenSuffix on the name, queried
	// through IsHidden.
}

const kMsHiddenSuffix = ".ms_hidden"

// IsHidden reports whether name carries the hidden-entry marker.
func IsHidden(name string) bool {
	return len(name) > len(kMsHiddenSuffix) && name[len(name)-len(kMsHiddenSuffix):] == kMsHiddenSuffix
}

// HasDataMap reports whether m describes regular file content.
func (m *MetaData) HasDataMap() bool {
	return m != nil && m.DataMap != nil
}

// HasChildDirectory reports whether m describes a nested directory.
func (m *MetaData) HasChildDirectory() bool {
	return m != nil && m.ChildDirectoryID != nil
}

// Validate enforces the "exactly one of DataMap / ChildDirectoryID"
// invariant for non-symlink entries.
func (m *MetaData) Validate() error {
	if m == nil {
		return NewInvalidParameterError("nil metadata")
	}
	if m.Name == "" {
		return NewInvalidParameterError("metadata: empty name")
	}
	if m.Type == FileTypeSymlink {
		if m.DataMap != nil || m.ChildDirectoryID != nil {
			return NewInvalidParameterError("metadata: symlink must not carry data_map or child_directory_id")
		}
		return nil
	}
	hasData := m.DataMap != nil
	hasChild := m.ChildDirectoryID != nil
	if hasData == hasChild {
		return NewInvalidParameterError("metadata: exactly one of data_map/child_directory_id must be set")
	}
	return nil
}

// Touch updates LastWrite/LastStatusChange (and Size/AllocationSize) to
// reflect a content change at t.
func (m *MetaData) Touch(t time.Time, size, allocSize uint64) {
	m.LastWrite = t
	m.LastStatusChange = t
	m.Size = size
	m.AllocationSize = allocSize
}

// TouchAccess updates LastAccess to reflect a read at t.
func (m *MetaData) TouchAccess(t time.Time) {
	m.LastAccess = t
}
