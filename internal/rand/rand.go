// Package rand implements the kernel's seeded, reseeding random source.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"lukechampine.com/blake3"
)

// reseedInterval is how many Read calls pass between automatic reseeds.
const reseedInterval = 1024

// Source produces uniformly random bytes. It is the interface the rest of
// the kernel consumes; Default is the concrete reseeding CSPRNG described
// by the spec, but callers needing a different source (tests, determinism)
// may supply their own.
type Source interface {
	Read(p []byte) (int, error)
}

// Default is a seeded, periodically-reseeding CSPRNG. It mixes OS entropy
// with a wall-clock nanosecond timestamp at creation, and every
// reseedInterval draws hashes 32 fresh OS bytes together with the previous
// mix using BLAKE3, installing the digest as both the new seed and the next
// mix.
type Default struct {
	mu      sync.Mutex
	inner   *rand.ChaCha8
	lastMix [32]byte
	draws   uint64
}

// NewDefault constructs a Default source, seeding it from the OS entropy
// source plus an 8-byte wall-clock nanosecond mix.
func NewDefault() (*Default, error) {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:24]); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(seed[24:32], uint64(time.Now().UnixNano()))

	d := &Default{inner: rand.NewChaCha8(seed), lastMix: seed}
	return d, nil
}

// Read fills p with random bytes, satisfying io.Reader. It never returns an
// error and always fills p completely.
func (d *Default) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.draws%reseedInterval == 0 {
		if err := d.reseedLocked(); err != nil {
			return 0, err
		}
	}
	d.draws++

	n, err := d.inner.Read(p)
	return n, err
}

// reseedLocked hashes fresh OS entropy together with the previous mix using
// BLAKE3 and installs the 32-byte digest as both the next PRNG seed and the
// next mix. Caller must hold d.mu.
func (d *Default) reseedLocked() error {
	var fresh [32]byte
	if _, err := cryptorand.Read(fresh[:]); err != nil {
		return err
	}

	h := blake3.New(32, nil)
	h.Write(fresh[:])
	h.Write(d.lastMix[:])
	sum := h.Sum(nil)

	var seed [32]byte
	copy(seed[:], sum)
	d.inner = rand.NewChaCha8(seed)
	copy(d.lastMix[:], sum)
	return nil
}

// Wipe zeroes the secret mixing state. Callers that retire a Default source
// should call this before letting it be garbage collected.
func (d *Default) Wipe() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.lastMix {
		d.lastMix[i] = 0
	}
}
