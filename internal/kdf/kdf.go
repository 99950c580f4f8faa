// Package kdf provides HKDF-SHA256 extract/expand helpers used throughout
// the ratchet for deriving root keys, chain keys, and message keys.
package kdf

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Extract runs the HKDF extract step, producing a pseudorandom key from
// input keying material and an optional salt.
func Extract(salt, ikm []byte) []byte {
	return hkdf.Extract(sha256.New, ikm, salt)
}

// Expand runs the HKDF expand step, producing length bytes of output keying
// material from a pseudorandom key and context info.
func Expand(prk, info []byte, length int) ([]byte, error) {
	r := hkdf.Expand(sha256.New, prk, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractAndExpand is a convenience for the common case of doing both
// steps in one call.
func ExtractAndExpand(salt, ikm, info []byte, length int) ([]byte, error) {
	return Expand(Extract(salt, ikm), info, length)
}
