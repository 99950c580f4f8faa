package enigma

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// Encryptor wraps an AEAD key with an atomic message counter bounded by a
// configured maximum (spec §4.2). Each encrypt reserves the next counter
// value atomically; reaching the maximum fails closed without ever calling
// the underlying AEAD. The counter and a wall-clock second timestamp are
// appended, little-endian, to the caller-supplied associated data.
type Encryptor struct {
	aead    *AEAD
	counter atomic.Uint64
	max     uint64
}

// NewEncryptor builds a counter-bounded encryptor over key, capped at max
// messages.
func NewEncryptor(key []byte, max uint64, random rand.Source) (*Encryptor, error) {
	aead, err := New(key, random)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead, max: max}, nil
}

// Encrypt reserves the next counter value and encrypts plaintext, with
// associatedData ‖ counter(u64 LE) ‖ unixSeconds(u64 LE) as AEAD AD.
func (e *Encryptor) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	var n uint64
	for {
		n = e.counter.Load()
		if n >= e.max {
			return nil, kerr.New(kerr.EncryptionFailed, "message counter exhausted")
		}
		if e.counter.CompareAndSwap(n, n+1) {
			break
		}
	}

	ad := make([]byte, len(associatedData)+16)
	copy(ad, associatedData)
	binary.LittleEndian.PutUint64(ad[len(associatedData):], n)
	binary.LittleEndian.PutUint64(ad[len(associatedData)+8:], uint64(time.Now().Unix()))

	return e.aead.Encrypt(plaintext, ad)
}

// Decrypt performs no counter check — the peer decides message ordering —
// and simply authenticates/decrypts against associatedData.
func (e *Encryptor) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	return e.aead.Decrypt(ciphertext, associatedData)
}

// Count returns the number of messages encrypted so far.
func (e *Encryptor) Count() uint64 { return e.counter.Load() }
