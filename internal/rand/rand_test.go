package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_FillsBuffer(t *testing.T) {
	a := assert.New(t)

	src, err := NewDefault()
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := src.Read(buf)
	a.NoError(err)
	a.Equal(64, n)
	a.NotEqual(make([]byte, 64), buf, "buffer should not stay all-zero")
}

func TestDefault_ReseedsAcrossBoundary(t *testing.T) {
	a := assert.New(t)

	src, err := NewDefault()
	require.NoError(t, err)

	buf := make([]byte, 16)
	for i := 0; i < reseedInterval+2; i++ {
		_, err := src.Read(buf)
		a.NoError(err)
	}
	a.Equal(uint64(reseedInterval+2), src.draws)
}

func TestDefault_Wipe(t *testing.T) {
	a := assert.New(t)

	src, err := NewDefault()
	require.NoError(t, err)

	buf := make([]byte, 8)
	_, _ = src.Read(buf)
	src.Wipe()
	a.Equal([32]byte{}, src.lastMix)
}
