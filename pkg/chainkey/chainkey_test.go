package chainkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadecrypto/cascade/pkg/chainkey"
)

func TestAdvance_Deterministic(t *testing.T) {
	a := assert.New(t)
	seed := make([]byte, chainkey.Size)
	for i := range seed {
		seed[i] = byte(i)
	}

	k1, err := chainkey.New(seed)
	require.NoError(t, err)
	k2, err := chainkey.New(seed)
	require.NoError(t, err)

	mk1, idx1 := k1.Advance()
	mk2, idx2 := k2.Advance()

	a.Equal(mk1, mk2)
	a.Equal(idx1, idx2)
	a.Equal(uint64(0), idx1)
	a.Equal(k1.Bytes(), k2.Bytes())
}

func TestAdvance_StepsAreDistinct(t *testing.T) {
	a := assert.New(t)
	seed := make([]byte, chainkey.Size)
	k, err := chainkey.New(seed)
	require.NoError(t, err)

	mk0, idx0 := k.Advance()
	mk1, idx1 := k.Advance()

	a.NotEqual(mk0, mk1)
	a.Equal(uint64(0), idx0)
	a.Equal(uint64(1), idx1)
	a.EqualValues(2, k.Index())
}

func TestNew_RejectsWrongSeedLength(t *testing.T) {
	a := assert.New(t)
	_, err := chainkey.New(make([]byte, 16))
	a.Error(err)
}

func TestCloneIsIndependent(t *testing.T) {
	a := assert.New(t)
	seed := make([]byte, chainkey.Size)
	k, err := chainkey.New(seed)
	require.NoError(t, err)

	clone := k.Clone()
	k.Advance()

	a.NotEqual(k.Bytes(), clone.Bytes())
	a.EqualValues(0, clone.Index())
}

func TestRestoreMatchesOriginalPosition(t *testing.T) {
	a := assert.New(t)
	seed := make([]byte, chainkey.Size)
	k, err := chainkey.New(seed)
	require.NoError(t, err)

	k.Advance()
	k.Advance()

	restored := chainkey.Restore(k.Bytes(), k.Index())

	mkOriginal, idxOriginal := k.Advance()
	mkRestored, idxRestored := restored.Advance()

	a.Equal(mkOriginal, mkRestored)
	a.Equal(idxOriginal, idxRestored)
}
