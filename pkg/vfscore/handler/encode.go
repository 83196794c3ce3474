package handler

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

func marshalRecord(rec *encodedRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, vfscore.NewSerialisationError(err.Error())
	}
	return b, nil
}

func unmarshalRecord(data []byte) (*encodedRecord, error) {
	var rec encodedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, vfscore.NewParsingError(err.Error())
	}
	return &rec, nil
}

// encodedRecord is the on-disk envelope for an encrypted (Owner/Group)
// directory object: a random nonce, the AEAD ciphertext of the
// serialised directory, and an ed25519 signature over the ciphertext so
// a record's authenticity can be checked independently of whether the
// AEAD tag itself still verifies.
type encodedRecord struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Signature  []byte `json:"signature"`
}

// encodeOwner serialises a directory and encrypts it with the Handler's
// owner key (ChaCha20-Poly1305, random nonce) for storage under the
// Owner zone, signing the ciphertext with the Handler's signing
// identity. The serialised directory does not pass through the
// self-encryptor, and the parent and directory identities play no part
// in the encryption.
func (h *Handler) encodeOwner(d *vfscore.Directory) ([]byte, error) {
	return h.encodeEncrypted(d, h.ownerKey)
}

// encodeGroup serialises and encrypts a directory for storage under the
// Group zone as a Group record, signed the same way as Owner.
func (h *Handler) encodeGroup(d *vfscore.Directory) ([]byte, error) {
	return h.encodeEncrypted(d, h.groupKey)
}

// encodeWorld serialises a directory verbatim: no encryption, no
// signature.
func (h *Handler) encodeWorld(d *vfscore.Directory) ([]byte, error) {
	return d.MarshalBinary()
}

func (h *Handler) encodeEncrypted(d *vfscore.Directory, key []byte) ([]byte, error) {
	plain, err := d.MarshalBinary()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, vfscore.NewCryptoError("init directory aead: " + err.Error())
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, vfscore.NewCryptoError("generate nonce: " + err.Error())
	}
	ciphertext := aead.Seal(nil, nonce, plain, nil)

	rec := encodedRecord{Nonce: nonce, Ciphertext: ciphertext}
	if h.signingKey != nil {
		rec.Signature = ed25519.Sign(h.signingKey, ciphertext)
	}
	return marshalRecord(&rec)
}

// decodeOwner reverses encodeOwner, verifying the signature and
// decrypting.
func (h *Handler) decodeOwner(data []byte) (*vfscore.Directory, error) {
	return h.decodeEncrypted(data, h.ownerKey)
}

// decodeGroup reverses encodeGroup.
func (h *Handler) decodeGroup(data []byte) (*vfscore.Directory, error) {
	return h.decodeEncrypted(data, h.groupKey)
}

// decodeWorld reverses encodeWorld.
func (h *Handler) decodeWorld(data []byte) (*vfscore.Directory, error) {
	return vfscore.UnmarshalDirectory(data)
}

func (h *Handler) decodeEncrypted(data []byte, key []byte) (*vfscore.Directory, error) {
	rec, err := unmarshalRecord(data)
	if err != nil {
		return nil, err
	}
	if h.verifyKey != nil && len(rec.Signature) > 0 {
		if !ed25519.Verify(h.verifyKey, rec.Ciphertext, rec.Signature) {
			return nil, vfscore.NewCryptoError("directory record signature mismatch")
		}
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, vfscore.NewCryptoError("init directory aead: " + err.Error())
	}
	plain, err := aead.Open(nil, rec.Nonce, rec.Ciphertext, nil)
	if err != nil {
		return nil, vfscore.NewCryptoError("directory record authentication failed")
	}
	return vfscore.UnmarshalDirectory(plain)
}
