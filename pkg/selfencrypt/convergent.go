package selfencrypt

import (
	"context"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

const (
	hkdfKeyInfo   = "dittovfs-chunk-key"
	hkdfNonceInfo = "dittovfs-chunk-nonce"
)

// Convergent is a deterministic, convergent-encryption Encryptor: the
// key and nonce for a chunk are both derived from the chunk's plaintext
// hash, so identical plaintext always yields identical ciphertext and
// therefore a shared PostHash address in the store.
type Convergent struct {
	ChunkSize int
}

// NewConvergent constructs a Convergent encryptor using DefaultChunkSize.
func NewConvergent() *Convergent {
	return &Convergent{ChunkSize: DefaultChunkSize}
}

var _ Encryptor = (*Convergent)(nil)

func (c *Convergent) chunkSize() int {
	if c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

func preHashOf(plaintext []byte) vfscore.ContentHash {
	return sha256.Sum256(plaintext)
}

// deriveKeyNonce derives the AEAD key and nonce for a chunk from its
// pre-encryption hash, via two independent HKDF expansions of the same
// pseudorandom key so key and nonce are never bitwise related.
func deriveKeyNonce(preHash vfscore.ContentHash) (key, nonce []byte, err error) {
	key = make([]byte, chacha20poly1305.KeySize)
	if _, err = hkdfRead(preHash, hkdfKeyInfo, key); err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, chacha20poly1305.NonceSize)
	if _, err = hkdfRead(preHash, hkdfNonceInfo, nonce); err != nil {
		return nil, nil, err
	}
	return key, nonce, nil
}

func hkdfRead(preHash vfscore.ContentHash, info string, out []byte) (int, error) {
	r := hkdf.New(sha256.New, preHash[:], nil, []byte(info))
	return r.Read(out)
}

func encryptChunk(plaintext []byte) (vfscore.ChunkDescriptor, []byte, error) {
	preHash := preHashOf(plaintext)
	key, nonce, err := deriveKeyNonce(preHash)
	if err != nil {
		return vfscore.ChunkDescriptor{}, nil, vfscore.NewCryptoError("derive chunk key: " + err.Error())
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return vfscore.ChunkDescriptor{}, nil, vfscore.NewCryptoError("init aead: " + err.Error())
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	postHash := sha256.Sum256(ciphertext)
	desc := vfscore.ChunkDescriptor{
		PreHash:  preHash,
		PostHash: postHash,
		Size:     uint32(len(plaintext)),
	}
	return desc, ciphertext, nil
}

func decryptChunk(desc vfscore.ChunkDescriptor, ciphertext []byte) ([]byte, error) {
	key, nonce, err := deriveKeyNonce(desc.PreHash)
	if err != nil {
		return nil, vfscore.NewCryptoError("derive chunk key: " + err.Error())
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, vfscore.NewCryptoError("init aead: " + err.Error())
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vfscore.NewCryptoError("chunk authentication failed")
	}
	if preHashOf(plaintext) != desc.PreHash {
		return nil, vfscore.NewCryptoError("chunk content does not match pre-hash")
	}
	return plaintext, nil
}

// Encrypt implements Encryptor.
func (c *Convergent) Encrypt(_ context.Context, plaintext []byte) (*vfscore.DataMap, []ChunkPayload, error) {
	size := c.chunkSize()
	inlineLimit := MinInlineThreshold
	if size < inlineLimit {
		inlineLimit = size
	}
	if len(plaintext) <= inlineLimit {
		return &vfscore.DataMap{InlineData: append([]byte(nil), plaintext...)}, nil, nil
	}

	var chunks []ChunkPayload
	offset := 0
	for offset < len(plaintext) {
		remaining := len(plaintext) - offset
		if remaining <= MinInlineThreshold && offset > 0 {
			// Leave the small tail inline rather than encrypting a
			// tiny final chunk.
			break
		}
		n := size
		if remaining < n {
			n = remaining
		}
		desc, ciphertext, err := encryptChunk(plaintext[offset : offset+n])
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, ChunkPayload{Descriptor: desc, Ciphertext: ciphertext})
		offset += n
	}

	dm := &vfscore.DataMap{Chunks: make([]vfscore.ChunkDescriptor, len(chunks))}
	for i, cp := range chunks {
		dm.Chunks[i] = cp.Descriptor
	}
	if offset < len(plaintext) {
		dm.InlineData = append([]byte(nil), plaintext[offset:]...)
	}
	return dm, chunks, nil
}

// Decrypt implements Encryptor.
func (c *Convergent) Decrypt(ctx context.Context, dm *vfscore.DataMap, fetch ChunkFetcher) ([]byte, error) {
	if dm == nil {
		return nil, nil
	}
	out := make([]byte, 0, dm.Size())
	for _, desc := range dm.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ciphertext, err := fetch(ctx, desc.PostHash)
		if err != nil {
			return nil, err
		}
		plaintext, err := decryptChunk(desc, ciphertext)
		if err != nil {
			return nil, err
		}
		out = append(out, plaintext...)
	}
	out = append(out, dm.InlineData...)
	return out, nil
}
