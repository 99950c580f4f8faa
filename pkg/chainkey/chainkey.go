// Package chainkey implements the symmetric-key ratchet: the HMAC-SHA256
// ladder that derives a fresh message key from a chain key and advances the
// chain key itself, used by pkg/ratchet for both the sending and receiving
// sides of a session (spec §4.7).
package chainkey

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/cascadecrypto/cascade/pkg/kerr"
)

const (
	messageKeySeed = 0x01
	chainKeySeed   = 0x02

	// Size is the length in bytes of a chain key or derived message key.
	Size = 32
)

// Key is one link of a chain-key ladder. Advance derives the next message
// key and mutates Key in place to the next chain key, mirroring the
// teacher's "clone-then-replace" construction without the clone: both HMAC
// outputs are computed from the same key before it is overwritten.
type Key struct {
	key   [Size]byte
	index uint64
}

// New wraps seed as the root of a chain-key ladder at index 0.
func New(seed []byte) (*Key, error) {
	if len(seed) != Size {
		return nil, kerr.New(kerr.InvalidKeyLength, "chain key seed")
	}
	k := &Key{}
	copy(k.key[:], seed)
	return k, nil
}

// Advance derives this step's message key, advances the chain key to the
// next link, and returns the message key plus the index it was derived at.
func (k *Key) Advance() (messageKey [Size]byte, index uint64) {
	messageKey = k.hmac(messageKeySeed)
	next := k.hmac(chainKeySeed)
	index = k.index

	k.key = next
	k.index++
	return messageKey, index
}

// Index reports the next index Advance will assign.
func (k *Key) Index() uint64 { return k.index }

// Bytes exposes the raw current chain key, for state serialization.
func (k *Key) Bytes() [Size]byte { return k.key }

// Clone returns an independent copy of k at its current position.
func (k *Key) Clone() *Key {
	c := &Key{key: k.key, index: k.index}
	return c
}

// Restore rebuilds a Key at a specific key/index pair, as read back from
// persisted state.
func Restore(key [Size]byte, index uint64) *Key {
	return &Key{key: key, index: index}
}

// Wipe zeroes the chain key in place. The Key must not be used afterward.
func (k *Key) Wipe() {
	for i := range k.key {
		k.key[i] = 0
	}
}

func (k *Key) hmac(domain byte) [Size]byte {
	mac := hmac.New(sha256.New, k.key[:])
	mac.Write([]byte{domain})
	sum := mac.Sum(nil)
	var out [Size]byte
	copy(out[:], sum)
	return out
}
