package store

import (
	bolt "go.etcd.io/bbolt"

	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// command wraps a write transaction against one named bucket.
type command struct {
	tx     *bolt.Tx
	store  *Store
	bucket string
}

func (s *Store) writeBucket(tx *bolt.Tx, bucket string) *command {
	return &command{tx: tx, store: s, bucket: bucket}
}

func (c *command) putPlain(key, value []byte) error {
	bucket := c.tx.Bucket([]byte(c.bucket))
	if bucket == nil {
		return kerr.New(kerr.InternalError, "missing bucket "+c.bucket)
	}
	return bucket.Put(key, value)
}

func (c *command) putEncrypted(key, value []byte) error {
	ciphertext, err := c.store.cipher.Encrypt(value, key)
	if err != nil {
		return err
	}
	return c.putPlain(key, ciphertext)
}

// delete removes key if present; an absent key is a no-op success, matching
// remove_prekey's idempotence requirement (spec §4.10).
func (c *command) delete(key []byte) error {
	bucket := c.tx.Bucket([]byte(c.bucket))
	if bucket == nil {
		return kerr.New(kerr.InternalError, "missing bucket "+c.bucket)
	}
	return bucket.Delete(key)
}
