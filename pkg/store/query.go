package store

import (
	bolt "go.etcd.io/bbolt"

	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// query wraps a read transaction against one named bucket.
type query struct {
	tx     *bolt.Tx
	store  *Store
	bucket string
}

func (s *Store) readBucket(tx *bolt.Tx, bucket string) *query {
	return &query{tx: tx, store: s, bucket: bucket}
}

func (q *query) getPlain(key []byte) ([]byte, error) {
	bucket := q.tx.Bucket([]byte(q.bucket))
	if bucket == nil {
		return nil, kerr.New(kerr.KeyNotFound, "")
	}
	value := bucket.Get(key)
	if value == nil {
		return nil, kerr.New(kerr.KeyNotFound, "")
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (q *query) getEncrypted(key []byte) ([]byte, error) {
	ciphertext, err := q.getPlain(key)
	if err != nil {
		return nil, err
	}
	return q.store.cipher.Decrypt(ciphertext, key)
}
