package handshake_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadecrypto/cascade/pkg/handshake"
)

func TestStatic_PerformReturnsConfiguredMaterial(t *testing.T) {
	a := assert.New(t)
	s := &handshake.Static{
		RootSecret: [32]byte{1, 2, 3},
		LocalSeed:  [32]byte{4, 5, 6},
	}

	result, err := s.Perform(context.Background(), true, []byte("peer-public-key-32-bytes-long!!!"), []byte("prologue"))
	require.NoError(t, err)

	a.Equal(s.RootSecret, result.RootSecret)
	a.Equal([]byte("peer-public-key-32-bytes-long!!!"), result.PeerPublicKey)
	a.NotEmpty(result.Message)
	a.NotEmpty(result.LocalKeyPair.Public())
}
