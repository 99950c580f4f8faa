package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/attest"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

const identityKey = "identity"

func prekeyKey(id uint32) []byte       { return []byte(fmt.Sprintf("prekey:%d", id)) }
func signedPrekeyKey(id uint32) []byte { return []byte(fmt.Sprintf("signed_prekey:%d", id)) }

// Identity is the long-lived Curve25519 identity key pair (spec §3).
type Identity struct {
	KeyPair *exchange.KeyPair
}

type wireIdentity struct {
	Seed [exchange.KeySize]byte `json:"seed"`
}

// PreKey is a one-time Curve25519 key pair, consumed once by a remote peer
// initiating a handshake (spec §3).
type PreKey struct {
	ID      uint32
	KeyPair *exchange.KeyPair
}

type wirePreKey struct {
	Seed [exchange.KeySize]byte `json:"seed"`
}

// SignedPreKey is a PreKey additionally bound by a signature from the
// identity key, under the scheme the signature was produced with.
type SignedPreKey struct {
	ID        uint32
	KeyPair   *exchange.KeyPair
	Scheme    attest.Scheme
	Signature []byte
}

type wireSignedPreKey struct {
	Seed      [exchange.KeySize]byte `json:"seed"`
	Scheme    string                 `json:"scheme"`
	Signature []byte                 `json:"signature"`
}

// LoadOrCreateIdentity returns the store's identity key pair, generating and
// persisting one on first open. Exactly one identity ever exists per store.
func (s *Store) LoadOrCreateIdentity(random rand.Source) (*Identity, error) {
	var identity *Identity
	err := s.db.Update(func(tx *bolt.Tx) error {
		q := s.readBucket(tx, keystoreBucket)
		raw, err := q.getEncrypted([]byte(identityKey))
		if err == nil {
			identity, err = decodeIdentity(raw)
			return err
		}
		if kerr.Of(err) != kerr.KeyNotFound {
			return err
		}

		kp, err := exchange.Generate(random)
		if err != nil {
			return err
		}
		w := wireIdentity{Seed: seedArray(kp.Private())}
		raw, err = json.Marshal(w)
		if err != nil {
			return kerr.Wrap(kerr.InternalError, err)
		}
		if err := s.writeBucket(tx, keystoreBucket).putEncrypted([]byte(identityKey), raw); err != nil {
			return err
		}
		identity = &Identity{KeyPair: kp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// SetIdentity overwrites the store's identity key pair with one supplied by
// the caller (e.g. imported from another device), replacing any existing or
// auto-generated identity.
func (s *Store) SetIdentity(identity *Identity) error {
	w := wireIdentity{Seed: seedArray(identity.KeyPair.Private())}
	raw, err := json.Marshal(w)
	if err != nil {
		return kerr.Wrap(kerr.InternalError, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, keystoreBucket).putEncrypted([]byte(identityKey), raw)
	})
}

// Identity returns the store's identity key pair, failing KeyNotFound if
// none has been created yet.
func (s *Store) Identity() (*Identity, error) {
	var identity *Identity
	err := s.db.View(func(tx *bolt.Tx) error {
		raw, err := s.readBucket(tx, keystoreBucket).getEncrypted([]byte(identityKey))
		if err != nil {
			return err
		}
		identity, err = decodeIdentity(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func decodeIdentity(raw []byte) (*Identity, error) {
	var w wireIdentity
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, kerr.Wrap(kerr.InternalError, err)
	}
	kp, err := exchange.FromSeed(w.Seed[:])
	if err != nil {
		return nil, err
	}
	return &Identity{KeyPair: kp}, nil
}

// SavePrekey persists a one-time prekey under its 32-bit id, overwriting any
// existing entry at that id.
func (s *Store) SavePrekey(pk *PreKey) error {
	w := wirePreKey{Seed: seedArray(pk.KeyPair.Private())}
	raw, err := json.Marshal(w)
	if err != nil {
		return kerr.Wrap(kerr.InternalError, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, keystoreBucket).putEncrypted(prekeyKey(pk.ID), raw)
	})
}

// GetPrekey retrieves the prekey stored at id, failing KeyNotFound if absent.
func (s *Store) GetPrekey(id uint32) (*PreKey, error) {
	var pk *PreKey
	err := s.db.View(func(tx *bolt.Tx) error {
		raw, err := s.readBucket(tx, keystoreBucket).getEncrypted(prekeyKey(id))
		if err != nil {
			return err
		}
		var w wirePreKey
		if err := json.Unmarshal(raw, &w); err != nil {
			return kerr.Wrap(kerr.InternalError, err)
		}
		kp, err := exchange.FromSeed(w.Seed[:])
		if err != nil {
			return err
		}
		pk = &PreKey{ID: id, KeyPair: kp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pk, nil
}

// RemovePrekey deletes the prekey at id. Removing an absent id succeeds
// (spec §4.10 idempotence).
func (s *Store) RemovePrekey(id uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, keystoreBucket).delete(prekeyKey(id))
	})
}

// SaveSignedPrekey persists a signed prekey under its id.
func (s *Store) SaveSignedPrekey(spk *SignedPreKey) error {
	w := wireSignedPreKey{
		Seed:      seedArray(spk.KeyPair.Private()),
		Scheme:    spk.Scheme.String(),
		Signature: spk.Signature,
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return kerr.Wrap(kerr.InternalError, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, keystoreBucket).putEncrypted(signedPrekeyKey(spk.ID), raw)
	})
}

// GetSignedPrekey retrieves the signed prekey at id, failing KeyNotFound if
// absent.
func (s *Store) GetSignedPrekey(id uint32) (*SignedPreKey, error) {
	var spk *SignedPreKey
	err := s.db.View(func(tx *bolt.Tx) error {
		raw, err := s.readBucket(tx, keystoreBucket).getEncrypted(signedPrekeyKey(id))
		if err != nil {
			return err
		}
		var w wireSignedPreKey
		if err := json.Unmarshal(raw, &w); err != nil {
			return kerr.Wrap(kerr.InternalError, err)
		}
		kp, err := exchange.FromSeed(w.Seed[:])
		if err != nil {
			return err
		}
		scheme, err := attest.ParseScheme(w.Scheme)
		if err != nil {
			return kerr.Wrap(kerr.InternalError, err)
		}
		spk = &SignedPreKey{ID: id, KeyPair: kp, Scheme: scheme, Signature: w.Signature}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return spk, nil
}

func seedArray(seed []byte) [exchange.KeySize]byte {
	var out [exchange.KeySize]byte
	copy(out[:], seed)
	return out
}
