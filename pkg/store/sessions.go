package store

import (
	bolt "go.etcd.io/bbolt"

	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// SaveSessionState persists the serialized ratchet state for peerID,
// overwriting any previous entry, and returns only once the write has been
// flushed to disk. bbolt's Update commits fsync before returning by default,
// which is what makes this the durability point the session manager's
// save_session contract relies on (spec §4.11).
func (s *Store) SaveSessionState(peerID, state []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, sessionsBucket).putEncrypted(peerID, state)
	})
}

// LoadSessionState returns the serialized ratchet state for peerID, failing
// KeyNotFound if no session has been persisted under that identifier.
func (s *Store) LoadSessionState(peerID []byte) ([]byte, error) {
	var state []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw, err := s.readBucket(tx, sessionsBucket).getEncrypted(peerID)
		if err != nil {
			return err
		}
		state = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteSessionState removes the persisted state for peerID. Removing an
// absent peer is a no-op success.
func (s *Store) DeleteSessionState(peerID []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeBucket(tx, sessionsBucket).delete(peerID)
	})
}

// ListSessionPeers returns every peer identifier with a persisted session,
// in bbolt's stored (byte-sorted) key order. Used by the session manager's
// List/Stats helpers; not part of the per-session hot path.
func (s *Store) ListSessionPeers() ([][]byte, error) {
	var peers [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionsBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			peers = append(peers, append([]byte(nil), k...))
			return nil
		})
	})
	if err != nil {
		return nil, kerr.Wrap(kerr.InternalError, err)
	}
	return peers, nil
}
