// Package exchange wraps X25519 Diffie-Hellman for the ratchet's DH step
// (spec §4.4), using raw 32-byte scalar/point encodings rather than the
// PKIX wrapping a general-purpose transport layer would want.
package exchange

import (
	"crypto/ecdh"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// KeySize is the length of both a raw X25519 private scalar and public
// point.
const KeySize = 32

// KeyPair is a Curve25519 keypair used for one DH ratchet step.
type KeyPair struct {
	private *ecdh.PrivateKey
	public  *ecdh.PublicKey
}

// Generate draws a fresh keypair from random.
func Generate(random rand.Source) (*KeyPair, error) {
	var seed [KeySize]byte
	if _, err := random.Read(seed[:]); err != nil {
		return nil, kerr.Wrap(kerr.RandomFailed, err)
	}
	return FromSeed(seed[:])
}

// FromSeed reconstructs a keypair from a raw 32-byte private scalar, as
// read back from persisted state.
func FromSeed(seed []byte) (*KeyPair, error) {
	priv, err := ecdh.X25519().NewPrivateKey(seed)
	if err != nil {
		return nil, kerr.Wrap(kerr.KeyDerivationFailed, err)
	}
	return &KeyPair{private: priv, public: priv.PublicKey()}, nil
}

// PublicKey parses a raw 32-byte point as seen from a peer.
func PublicKey(raw []byte) (*ecdh.PublicKey, error) {
	pub, err := ecdh.X25519().NewPublicKey(raw)
	if err != nil {
		return nil, kerr.Wrap(kerr.InvalidKeyLength, err)
	}
	return pub, nil
}

// Public returns the raw 32-byte public point.
func (k *KeyPair) Public() []byte {
	return k.public.Bytes()
}

// Private returns the raw 32-byte private scalar, for state serialization.
func (k *KeyPair) Private() []byte {
	return k.private.Bytes()
}

// ECDHPublic returns the underlying stdlib public key, for direct use with
// ExchangeKey.
func (k *KeyPair) ECDHPublic() *ecdh.PublicKey { return k.public }

// Exchange performs the DH computation against a peer's raw public point.
func (k *KeyPair) Exchange(peerPublic []byte) ([]byte, error) {
	pub, err := PublicKey(peerPublic)
	if err != nil {
		return nil, err
	}
	return k.ExchangeKey(pub)
}

// ExchangeKey performs the DH computation against an already-parsed peer
// public key.
func (k *KeyPair) ExchangeKey(peer *ecdh.PublicKey) ([]byte, error) {
	secret, err := k.private.ECDH(peer)
	if err != nil {
		return nil, kerr.Wrap(kerr.KeyDerivationFailed, err)
	}
	return secret, nil
}
