// Package attest implements the signature scheme used to authenticate a
// signed prekey: the identity key signs the prekey's public point, and Verify
// checks that signature (spec §3 "Signed prekey"). pkg/store keeps the
// signature beside the prekey; neither it nor the session manager calls
// Verify.
//
// Two schemes are supported, selected by Scheme: Ed25519 (the default) and
// ML-DSA (a post-quantum alternative). Both satisfy the same Attester
// interface so callers never branch on which one a peer's identity uses.
package attest

import (
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"golang.org/x/crypto/ed25519"
)

// Scheme identifies which signature algorithm a key pair or signature uses.
type Scheme int

const (
	invalidScheme Scheme = iota
	Ed25519
	MLDSA
)

func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "ed25519"
	case MLDSA:
		return "mldsa"
	default:
		return "invalid"
	}
}

// Verify checks sig over msg against pub, dispatching on the concrete
// PublicKey implementation rather than s — s is mainly useful for storage
// tagging, since a PublicKey already knows how to verify itself.
func (s Scheme) Verify(pub PublicKey, msg, sig []byte) bool {
	return Verify(pub, msg, sig)
}

// New generates a fresh key pair for the given scheme.
func (s Scheme) New() (Attester, error) {
	switch s {
	case Ed25519:
		return newEd25519DSA()
	case MLDSA:
		return newMLDSA()
	default:
		return nil, fmt.Errorf("attest: unknown scheme %d", s)
	}
}

// ParseScheme parses the on-disk/wire string form produced by Scheme.String.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "ed25519":
		return Ed25519, nil
	case "mldsa":
		return MLDSA, nil
	default:
		return invalidScheme, fmt.Errorf("attest: unknown scheme %q", s)
	}
}

// Attester signs messages under a scheme-specific private key and exposes
// the matching public key.
type Attester interface {
	PublicKey() PublicKey
	Sign(msg []byte) ([]byte, error)
	Scheme() Scheme
}

// PublicKey is a scheme-agnostic signature verification key.
type PublicKey interface {
	Marshal() []byte
	Base64Encoding() string
	Equal(PublicKey) bool
}

// Verify reports whether sig is a valid signature over msg under pub,
// dispatching on pub's concrete scheme. An unrecognized PublicKey
// implementation is never valid.
func Verify(publicKey PublicKey, msg, sig []byte) bool {
	switch p := publicKey.(type) {
	case *mldsaPublicKey:
		return mldsa65.Verify(p.key, msg, nil, sig)
	case *ed25519PublicKey:
		return ed25519.Verify(p.key, msg, sig)
	default:
		return false
	}
}
