package vfscore

import "encoding/hex"

// HashSize is the width of a content hash (SHA-256).
const HashSize = 32

// ContentHash is a SHA-256 digest used to address a chunk of encrypted
// content, both before encryption (PreHash, the convergence key material)
// and after (PostHash, the address under which the ciphertext is stored).
type ContentHash [HashSize]byte

// String returns the hex encoding of h.
func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash (uninitialised).
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// ChunkDescriptor is one entry in a DataMap: the pre-encryption hash used
// to derive the chunk's key, the post-encryption hash under which the
// ciphertext is addressed in the store, and the chunk's plaintext size.
type ChunkDescriptor struct {
	PreHash  ContentHash `json:"pre_hash"`
	PostHash ContentHash `json:"post_hash"`
	Size     uint32      `json:"size"`
}

// DataMap is the self-encryptor's manifest for one file's content: an
// ordered list of chunk descriptors, plus an optional inline tail for
// files small enough that a final partial chunk is carried verbatim
// instead of being encrypted and stored separately.
type DataMap struct {
	Chunks     []ChunkDescriptor `json:"chunks,omitempty"`
	InlineData []byte            `json:"inline_data,omitempty"`
}

// Size returns the total plaintext size the DataMap describes: the sum
// of every chunk's Size plus the length of any inline tail. Chunk sizes
// are summed individually rather than assumed uniform, since this
// self-encryptor does not guarantee equal-sized interior chunks.
func (dm *DataMap) Size() uint64 {
	if dm == nil {
		return 0
	}
	var total uint64
	for _, c := range dm.Chunks {
		total += uint64(c.Size)
	}
	total += uint64(len(dm.InlineData))
	return total
}

// ChunkCount returns the number of out-of-line chunks in the map.
func (dm *DataMap) ChunkCount() int {
	if dm == nil {
		return 0
	}
	return len(dm.Chunks)
}

// Empty reports whether the DataMap describes zero bytes of content.
func (dm *DataMap) Empty() bool {
	return dm == nil || (len(dm.Chunks) == 0 && len(dm.InlineData) == 0)
}
