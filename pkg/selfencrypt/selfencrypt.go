// Package selfencrypt implements the narrow self-encryptor contract the
// file handle drives: content goes in, a DataMap manifest of encrypted
// chunks comes out, addressed by convergent (content-derived) keys so
// identical content always produces identical ciphertext chunks.
package selfencrypt

import (
	"context"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

// DefaultChunkSize is the target size of an out-of-line chunk. Content
// is split into encrypted chunks of at most this size; which content
// and tails stay inline is governed by MinInlineThreshold.
const DefaultChunkSize = 1 << 20 // 1MiB

// MinInlineThreshold is the largest content size still eligible to be
// stored entirely inline rather than chunked (a smaller chunk size
// lowers that limit to the chunk size), and the largest tail left
// inline after the first chunk.
const MinInlineThreshold = 4 * 1024

// Encryptor is the contract the file handle needs from a self-encryptor:
// accept a full buffer of plaintext, produce the chunk ciphertexts plus
// the DataMap describing them, and the reverse for reads.
type Encryptor interface {
	// Encrypt splits plaintext into chunks (or keeps it inline if
	// small), encrypting each chunk convergently. It returns the
	// resulting DataMap and the set of chunk ciphertexts the caller
	// must persist under their PostHash identity before the DataMap
	// itself is considered durable.
	Encrypt(ctx context.Context, plaintext []byte) (*vfscore.DataMap, []ChunkPayload, error)

	// Decrypt reassembles plaintext from a DataMap, fetching any
	// out-of-line chunks through fetch.
	Decrypt(ctx context.Context, dm *vfscore.DataMap, fetch ChunkFetcher) ([]byte, error)
}

// ChunkPayload is one encrypted chunk produced by Encrypt, paired with
// the descriptor that addresses it.
type ChunkPayload struct {
	Descriptor vfscore.ChunkDescriptor
	Ciphertext []byte
}

// ChunkFetcher retrieves the ciphertext for a chunk by its PostHash
// address. Implementations typically wrap a store.ObjectStore Get call
// against store.Chunk.
type ChunkFetcher func(ctx context.Context, postHash vfscore.ContentHash) ([]byte, error)
