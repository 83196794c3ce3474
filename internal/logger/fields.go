package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the directory/file core.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Operation & Identity
	// ========================================================================
	KeyOperation = "operation" // Get, Add, Delete, Rename, Flush, ...
	KeyZone      = "zone"      // owner, group, world
	KeyUserID    = "user_id"   // unique_user_id, hex

	// ========================================================================
	// Path & Filesystem Objects
	// ========================================================================
	KeyPath         = "path"
	KeyOldPath      = "old_path"
	KeyNewPath      = "new_path"
	KeyName         = "name"
	KeyDirectoryID  = "directory_id"
	KeyParentID     = "parent_id"
	KeyFileType     = "file_type"
	KeySize         = "size"
	KeyAllocSize    = "allocation_size"
	KeyReclaimed    = "reclaimed_space"
	KeyVersion      = "version"
	KeyMaxVersions  = "max_versions"
	KeyChildCount   = "child_count"
	KeyWorldWritable = "world_writable"

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyChunkIndex   = "chunk_index"
	KeyChunkCount   = "chunk_count"

	// ========================================================================
	// Store Backend
	// ========================================================================
	KeyStoreKind = "store_kind" // owner_directory, group_directory, world_directory, chunk
	KeyStoreName = "store_name"
	KeyAttempt   = "attempt"
	KeyMaxRetry  = "max_retries"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// ----------------------------------------------------------------------------
// Field constructors
// ----------------------------------------------------------------------------

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }
func SpanID(id string) slog.Attr  { return slog.String(KeySpanID, id) }

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Zone(zone string) slog.Attr    { return slog.String(KeyZone, zone) }
func UserID(id string) slog.Attr    { return slog.String(KeyUserID, id) }

func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func OldPath(p string) slog.Attr     { return slog.String(KeyOldPath, p) }
func NewPath(p string) slog.Attr     { return slog.String(KeyNewPath, p) }
func Name(n string) slog.Attr        { return slog.String(KeyName, n) }
func DirectoryID(id string) slog.Attr { return slog.String(KeyDirectoryID, id) }
func ParentID(id string) slog.Attr   { return slog.String(KeyParentID, id) }
func FileType(t string) slog.Attr    { return slog.String(KeyFileType, t) }
func Size(s uint64) slog.Attr        { return slog.Uint64(KeySize, s) }
func AllocSize(s uint64) slog.Attr   { return slog.Uint64(KeyAllocSize, s) }
func Reclaimed(s uint64) slog.Attr   { return slog.Uint64(KeyReclaimed, s) }
func Version(v string) slog.Attr     { return slog.String(KeyVersion, v) }
func MaxVersions(n int) slog.Attr    { return slog.Int(KeyMaxVersions, n) }
func ChildCount(n int) slog.Attr     { return slog.Int(KeyChildCount, n) }
func WorldWritable(b bool) slog.Attr { return slog.Bool(KeyWorldWritable, b) }

func Offset(off uint64) slog.Attr       { return slog.Uint64(KeyOffset, off) }
func Count(c int) slog.Attr             { return slog.Int(KeyCount, c) }
func BytesRead(n int) slog.Attr         { return slog.Int(KeyBytesRead, n) }
func BytesWritten(n int) slog.Attr      { return slog.Int(KeyBytesWritten, n) }
func ChunkIndex(idx int) slog.Attr      { return slog.Int(KeyChunkIndex, idx) }
func ChunkCount(n int) slog.Attr        { return slog.Int(KeyChunkCount, n) }

func StoreKind(kind string) slog.Attr { return slog.String(KeyStoreKind, kind) }
func StoreName(name string) slog.Attr { return slog.String(KeyStoreName, name) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func MaxRetry(n int) slog.Attr        { return slog.Int(KeyMaxRetry, n) }

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

// Handle returns a slog.Attr for an opaque identity, formatted as hex.
func Handle(h []byte) slog.Attr {
	return slog.String(KeyDirectoryID, fmt.Sprintf("%x", h))
}
