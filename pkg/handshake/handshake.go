// Package handshake defines the external collaborator that produces a
// session's initial keying material. The core does not prescribe how a root
// secret and the two ratchet public keys are negotiated — spec §1 names a
// Noise-style handshake as one acceptable producer — it only consumes the
// Result a Provider returns.
package handshake

import (
	"context"

	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// Result is what a completed handshake hands back to the context façade:
// enough to call ratchet.InitSender or ratchet.InitReceiver, plus whatever
// bytes still need to go out over the transport.
type Result struct {
	RootSecret    [32]byte
	LocalKeyPair  *exchange.KeyPair
	PeerPublicKey []byte
	Message       []byte
}

// Provider negotiates a session's initial root secret and ratchet key pair
// with a peer. Initiator and responder call the same method with the role
// flag set accordingly; peerPublicKey is the responder's known public key
// when initiator is true (e.g. from a signed prekey bundle), and prologue is
// transcript material both sides authenticate but never encrypt.
type Provider interface {
	Perform(ctx context.Context, initiator bool, peerPublicKey, prologue []byte) (*Result, error)
}

// Static is a deterministic Provider double for tests and local
// demonstrations: it derives a fixed keypair from a caller-supplied seed and
// hands back a caller-supplied root secret instead of running a real
// handshake protocol.
type Static struct {
	RootSecret [32]byte
	LocalSeed  [32]byte
}

// Perform returns a Result built directly from the configured fields,
// ignoring peerPublicKey's handshake semantics beyond echoing it back as the
// negotiated peer key. prologue is accepted but unused, matching the
// interface a real handshake would authenticate against.
func (s *Static) Perform(_ context.Context, _ bool, peerPublicKey, _ []byte) (*Result, error) {
	local, err := exchange.FromSeed(s.LocalSeed[:])
	if err != nil {
		return nil, kerr.Wrap(kerr.HandshakeFailed, err)
	}
	return &Result{
		RootSecret:    s.RootSecret,
		LocalKeyPair:  local,
		PeerPublicKey: peerPublicKey,
		Message:       local.Public(),
	}, nil
}
