// Package bridge implements the foreign-call surface described in spec §6:
// opaque handles standing in for Context and session objects across a
// language boundary, a fixed u8 error enumeration, and a panic-recovering
// call wrapper so a defect on this side never unwinds into a C caller.
package bridge

import (
	"sync"

	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// FFIError is the u8 status code returned across the foreign-call boundary.
type FFIError uint8

const (
	Success         FFIError = 0
	NullPointer     FFIError = 1
	InvalidArgument FFIError = 2
	EncryptionFailed FFIError = 3
	DecryptionFailed FFIError = 4
	SessionNotFound  FFIError = 5
	OutOfMemory      FFIError = 6
	UnknownError     FFIError = 255
)

func (e FFIError) String() string {
	switch e {
	case Success:
		return "Success"
	case NullPointer:
		return "NullPointer"
	case InvalidArgument:
		return "InvalidArgument"
	case EncryptionFailed:
		return "EncryptionFailed"
	case DecryptionFailed:
		return "DecryptionFailed"
	case SessionNotFound:
		return "SessionNotFound"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return "UnknownError"
	}
}

// FromError maps a core error to its foreign-call status code. A nil error
// maps to Success; an error of unrecognized kind maps to UnknownError.
func FromError(err error) FFIError {
	if err == nil {
		return Success
	}
	switch kerr.Of(err) {
	case kerr.EncryptionFailed:
		return EncryptionFailed
	case kerr.DecryptionFailed, kerr.AuthenticationFailed, kerr.InvalidCiphertext, kerr.InvalidMessage:
		return DecryptionFailed
	case kerr.SessionNotFound:
		return SessionNotFound
	case kerr.OutOfMemory:
		return OutOfMemory
	case kerr.InvalidState, kerr.InvalidKeyLength, kerr.InvalidNonce, kerr.InvalidNonceLength,
		kerr.InvalidSignature, kerr.KeyDerivationFailed, kerr.KeyNotFound, kerr.HandshakeFailed:
		return InvalidArgument
	default:
		return UnknownError
	}
}

// Handle is an opaque reference a foreign caller holds instead of a Go
// pointer. The zero Handle is never issued and stands in for "null".
type Handle uint64

// Registry hands out Handles for arbitrary Go values (a Context, a
// session) and resolves them back. It is the only thing a cgo-style
// wrapper needs to keep Go objects alive across the boundary.
type Registry struct {
	mu    sync.Mutex
	items map[Handle]any
	next  Handle
}

// NewRegistry builds an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[Handle]any)}
}

// Register assigns a fresh Handle to v and returns it.
func (r *Registry) Register(v any) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.items[h] = v
	return h
}

// Lookup resolves h back to the value Register returned it for.
func (r *Registry) Lookup(h Handle) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	return v, ok
}

// Release forgets h. Using it afterward reports NullPointer at the call
// site, the same as an unrecognized handle.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, h)
}

// Guard runs fn and converts any panic into UnknownError, per spec §6's
// "every entry point catches and converts panics". Every exported bridge
// entry point should be a thin wrapper calling Guard around its body.
func Guard(fn func() FFIError) (result FFIError) {
	defer func() {
		if r := recover(); r != nil {
			result = UnknownError
		}
	}()
	return fn()
}
