// Package kerr defines the unified error taxonomy shared by every layer of
// the kernel, from the AEAD primitive up through the context façade.
//
// Callers match on Kind with errors.Is against the exported sentinel values,
// or with errors.As against *Error to recover the Kind and any wrapped
// detail. Cryptographic failures never leak which primitive rejected a
// message — a MAC mismatch and a malformed ciphertext both surface as
// DecryptionFailed.
package kerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the caller-visible failure categories from spec §7.
type Kind int

const (
	Unknown Kind = iota
	InvalidKeyLength
	InvalidNonce
	InvalidNonceLength
	EncryptionFailed
	DecryptionFailed
	AuthenticationFailed
	KeyDerivationFailed
	InvalidMessage
	InvalidSignature
	HandshakeFailed
	InvalidCiphertext
	InvalidState
	SessionNotFound
	KeyNotFound
	RandomFailed
	OutOfMemory
	InternalError
)

func (k Kind) String() string {
	switch k {
	case InvalidKeyLength:
		return "InvalidKeyLength"
	case InvalidNonce:
		return "InvalidNonce"
	case InvalidNonceLength:
		return "InvalidNonceLength"
	case EncryptionFailed:
		return "EncryptionFailed"
	case DecryptionFailed:
		return "DecryptionFailed"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case KeyDerivationFailed:
		return "KeyDerivationFailed"
	case InvalidMessage:
		return "InvalidMessage"
	case InvalidSignature:
		return "InvalidSignature"
	case HandshakeFailed:
		return "HandshakeFailed"
	case InvalidCiphertext:
		return "InvalidCiphertext"
	case InvalidState:
		return "InvalidState"
	case SessionNotFound:
		return "SessionNotFound"
	case KeyNotFound:
		return "KeyNotFound"
	case RandomFailed:
		return "RandomFailed"
	case OutOfMemory:
		return "OutOfMemory"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried across every layer. Detail is an
// optional short description (used by InternalError); it is never a wrapped
// primitive error, so that callers cannot learn which low-level check
// rejected a message.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, kerr.ErrSessionNotFound) style matching: any
// *Error target, such as the sentinel vars below, matches on Kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an Error of the given kind with an optional detail string.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap builds an Error of the given kind that remembers cause for Unwrap,
// without exposing cause's text in Error() — keeping the propagation policy
// from leaking primitive-level detail to callers.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Sentinels for errors.Is matching against a specific kind without
// constructing an *Error by hand.
var (
	ErrInvalidKeyLength     = &Error{Kind: InvalidKeyLength}
	ErrInvalidNonce         = &Error{Kind: InvalidNonce}
	ErrInvalidNonceLength   = &Error{Kind: InvalidNonceLength}
	ErrEncryptionFailed     = &Error{Kind: EncryptionFailed}
	ErrDecryptionFailed     = &Error{Kind: DecryptionFailed}
	ErrAuthenticationFailed = &Error{Kind: AuthenticationFailed}
	ErrKeyDerivationFailed  = &Error{Kind: KeyDerivationFailed}
	ErrInvalidMessage       = &Error{Kind: InvalidMessage}
	ErrInvalidSignature     = &Error{Kind: InvalidSignature}
	ErrHandshakeFailed      = &Error{Kind: HandshakeFailed}
	ErrInvalidCiphertext    = &Error{Kind: InvalidCiphertext}
	ErrInvalidState         = &Error{Kind: InvalidState}
	ErrSessionNotFound      = &Error{Kind: SessionNotFound}
	ErrKeyNotFound          = &Error{Kind: KeyNotFound}
	ErrRandomFailed         = &Error{Kind: RandomFailed}
	ErrOutOfMemory          = &Error{Kind: OutOfMemory}
)

// Of reports the Kind of err, or Unknown if err is not a *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
