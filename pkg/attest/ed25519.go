package attest

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// ed25519Attester is the default signed-prekey signing scheme.
type ed25519Attester struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

func newEd25519DSA() (*ed25519Attester, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519Attester{privateKey: private, publicKey: public}, nil
}

func (e *ed25519Attester) PublicKey() PublicKey {
	return &ed25519PublicKey{e.publicKey}
}

func (e *ed25519Attester) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(e.privateKey, msg), nil
}

func (e *ed25519Attester) Scheme() Scheme { return Ed25519 }

type ed25519PublicKey struct {
	key ed25519.PublicKey
}

func (p *ed25519PublicKey) Marshal() []byte {
	b, err := x509.MarshalPKIXPublicKey(p.key)
	if err != nil {
		panic(fmt.Errorf("marshalling public key: %w", err))
	}
	return b
}

func (p *ed25519PublicKey) Base64Encoding() string {
	return base64.RawStdEncoding.EncodeToString(p.Marshal())
}

func (p *ed25519PublicKey) Equal(x PublicKey) bool {
	pk, ok := x.(*ed25519PublicKey)
	if !ok {
		return false
	}
	return p.key.Equal(pk.key)
}
