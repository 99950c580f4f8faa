// Package enigma wraps ChaCha20-Poly1305 as the kernel's sole AEAD
// primitive (spec §4.1), plus a counter-bounded encryptor (spec §4.2) used
// by callers that want message-count limits enforced below the ratchet.
package enigma

import (
	"crypto/subtle"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

const (
	// KeySize is the only accepted AEAD key length.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the explicit nonce length drawn fresh per call.
	NonceSize = chacha20poly1305.NonceSize
)

// AEAD wraps a single ChaCha20-Poly1305 key. Encrypt draws the nonce;
// Decrypt expects it prefixed to the ciphertext.
type AEAD struct {
	key    [KeySize]byte
	cipher cipherAEAD
	random rand.Source
}

type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// New builds an AEAD instance from a 32-byte key and a random source for
// nonce generation, rejecting any other key length with InvalidKeyLength.
func New(key []byte, random rand.Source) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, kerr.New(kerr.InvalidKeyLength, "")
	}
	cipher, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, kerr.Wrap(kerr.InvalidKeyLength, err)
	}
	a := &AEAD{cipher: cipher, random: random}
	copy(a.key[:], key)
	return a, nil
}

// Encrypt draws a fresh nonce and returns nonce‖ciphertext‖tag, with
// additionalData authenticated but not encrypted.
func (a *AEAD) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := a.random.Read(nonce); err != nil {
		return nil, kerr.Wrap(kerr.RandomFailed, err)
	}
	return a.cipher.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt parses nonce‖ciphertext‖tag and authenticates/decrypts it against
// additionalData. Any failure — short input or MAC mismatch — surfaces
// uniformly as DecryptionFailed; callers cannot distinguish which check
// rejected the message.
func (a *AEAD) Decrypt(in, additionalData []byte) ([]byte, error) {
	if len(in) < NonceSize {
		return nil, kerr.New(kerr.DecryptionFailed, "")
	}
	nonce, ciphertext := in[:NonceSize], in[NonceSize:]
	plaintext, err := a.cipher.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, kerr.Wrap(kerr.DecryptionFailed, err)
	}
	return plaintext, nil
}

// Wipe zeroes the key material. The AEAD must not be used afterward.
func (a *AEAD) Wipe() {
	zero := make([]byte, KeySize)
	subtle.ConstantTimeCopy(1, a.key[:], zero)
}
