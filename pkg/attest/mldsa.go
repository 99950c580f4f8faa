package attest

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

type mlDSA struct {
	publicKey  *mldsa65.PublicKey
	privateKey *mldsa65.PrivateKey
}

func newMLDSA() (*mlDSA, error) {
	public, private, err := mldsa65.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &mlDSA{publicKey: public, privateKey: private}, nil
}

func (m *mlDSA) PublicKey() PublicKey {
	return &mldsaPublicKey{m.publicKey}
}

func (m *mlDSA) Sign(msg []byte) ([]byte, error) {
	sig := make([]byte, mldsa65.SignatureSize)
	err := mldsa65.SignTo(m.privateKey, msg, nil, true, sig)
	return sig, err
}

func (m *mlDSA) Scheme() Scheme { return MLDSA }

type mldsaPublicKey struct {
	key *mldsa65.PublicKey
}

func (m *mldsaPublicKey) Marshal() []byte {
	b, err := m.key.MarshalBinary()
	if err != nil {
		panic(fmt.Errorf("marshalling mlDSA public key: %v", err))
	}
	return b
}

func (m *mldsaPublicKey) Base64Encoding() string {
	return base64.RawStdEncoding.EncodeToString(m.Marshal())
}

func (m *mldsaPublicKey) Equal(key PublicKey) bool {
	pk, ok := key.(*mldsaPublicKey)
	if !ok {
		return false
	}
	return m.key.Equal(pk.key)
}
