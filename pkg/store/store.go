// Package store implements the embedded key-value database backing the key
// store and session manager (spec §4.10-§4.11): a single bbolt file holding
// two namespaces, `keystore` and `sessions`. Values are encrypted at rest
// under a key derived from a caller-supplied passphrase; bucket keys stay
// plaintext so lookups need no decryption round trip.
package store

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cascadecrypto/cascade/internal/enigma"
	"github.com/cascadecrypto/cascade/internal/kdf"
	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

const (
	keystoreBucket = "keystore"
	sessionsBucket = "sessions"

	saltMetaKey = "__salt__"
	infoStoreDEK = "store_dek"
)

// Store owns the bbolt handle and the at-rest cipher derived from the
// store's passphrase.
type Store struct {
	db     *bolt.DB
	cipher *enigma.AEAD
}

// Open opens (or creates) the database at path, deriving the at-rest key
// from passphrase and a per-store salt generated on first open.
func Open(path string, passphrase []byte, random rand.Source) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, kerr.Wrap(kerr.InternalError, err)
	}

	var salt []byte
	err = db.Update(func(tx *bolt.Tx) error {
		ks, err := tx.CreateBucketIfNotExists([]byte(keystoreBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket)); err != nil {
			return err
		}

		if existing := ks.Get([]byte(saltMetaKey)); existing != nil {
			salt = append([]byte(nil), existing...)
			return nil
		}
		fresh := make([]byte, 32)
		if _, err := random.Read(fresh); err != nil {
			return kerr.Wrap(kerr.RandomFailed, err)
		}
		if err := ks.Put([]byte(saltMetaKey), fresh); err != nil {
			return err
		}
		salt = fresh
		return nil
	})
	if err != nil {
		db.Close()
		return nil, kerr.Wrap(kerr.InternalError, err)
	}

	dek, err := kdf.ExtractAndExpand(salt, passphrase, []byte(infoStoreDEK), enigma.KeySize)
	if err != nil {
		db.Close()
		return nil, kerr.Wrap(kerr.InternalError, err)
	}
	cipher, err := enigma.New(dek, random)
	for i := range dek {
		dek[i] = 0
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cipher: cipher}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.cipher.Wipe()
	return s.db.Close()
}
