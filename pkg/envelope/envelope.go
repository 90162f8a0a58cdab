package envelope

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// Fixed sizes of the NaCl construction. The wrap blob layout depends on
// these being constant, so unwrap can slice without length prefixes.
const (
	KeySize       = 32
	NonceSize     = 24
	PublicKeySize = 32
	SecretKeySize = 32
	WrapOverhead  = box.Overhead

	// MinWrappedSize is the smallest blob UnwrapKey will even look at:
	// nonce, ephemeral public key, and at least one ciphertext byte.
	MinWrappedSize = NonceSize + PublicKeySize + 1
)

// ErrDecryptionFailed is returned for every authentication failure. The
// message is deliberately generic: callers must not be able to tell a wrong
// key from corrupted data.
var ErrDecryptionFailed = errors.New("decryption failed")

// GenerateContentKey returns a fresh random symmetric key. A content key is
// used for exactly one broadcast and must never be persisted or logged.
func GenerateContentKey() (*[KeySize]byte, error) {
	var key [KeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	return &key, nil
}

// GenerateKeypair returns a new long-term recipient keypair.
func GenerateKeypair() (pub *[PublicKeySize]byte, sec *[SecretKeySize]byte, err error) {
	return box.GenerateKey(rand.Reader)
}

// EncryptPayload seals plaintext with the content key under a fresh random
// nonce. The nonce is returned alongside the ciphertext and is never reused
// with the same key because every key is single-use.
func EncryptPayload(plaintext []byte, key *[KeySize]byte) (ciphertext, nonce []byte, err error) {
	var n [NonceSize]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, nil, err
	}
	ciphertext = secretbox.Seal(nil, plaintext, &n, key)
	return ciphertext, n[:], nil
}

// DecryptPayload opens a sealed payload. It fails closed: on any tag
// mismatch or malformed input the plaintext is nil and ErrDecryptionFailed
// is returned.
func DecryptPayload(ciphertext, nonce []byte, key *[KeySize]byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrDecryptionFailed
	}
	var n [NonceSize]byte
	copy(n[:], nonce)
	plaintext, ok := secretbox.Open(nil, ciphertext, &n, key)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// WrapKey encrypts the content key for one recipient using an ephemeral
// keypair generated for this single wrap. The sender has no long-term
// identity; compromise of one ephemeral secret exposes only this one wrap.
// Blob layout: nonce || ephemeral public key || box ciphertext.
func WrapKey(contentKey *[KeySize]byte, recipientPub *[PublicKeySize]byte) ([]byte, error) {
	ephemeralPub, ephemeralSec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	var n [NonceSize]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, err
	}
	blob := make([]byte, 0, NonceSize+PublicKeySize+KeySize+WrapOverhead)
	blob = append(blob, n[:]...)
	blob = append(blob, ephemeralPub[:]...)
	blob = box.Seal(blob, contentKey[:], &n, recipientPub, ephemeralSec)
	return blob, nil
}

// UnwrapKey recovers the content key from a wrapped blob using the
// recipient's long-term secret key. Blobs shorter than MinWrappedSize are
// rejected before any cryptographic work.
func UnwrapKey(wrapped []byte, recipientSec *[SecretKeySize]byte) (*[KeySize]byte, error) {
	if len(wrapped) < MinWrappedSize {
		return nil, ErrDecryptionFailed
	}
	var n [NonceSize]byte
	copy(n[:], wrapped[:NonceSize])
	var ephemeralPub [PublicKeySize]byte
	copy(ephemeralPub[:], wrapped[NonceSize:NonceSize+PublicKeySize])

	keyBytes, ok := box.Open(nil, wrapped[NonceSize+PublicKeySize:], &n, &ephemeralPub, recipientSec)
	if !ok || len(keyBytes) != KeySize {
		return nil, ErrDecryptionFailed
	}
	var key [KeySize]byte
	copy(key[:], keyBytes)
	return &key, nil
}
