package kdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_Deterministic(t *testing.T) {
	a := assert.New(t)

	prk := Extract([]byte("salt"), []byte("input keying material"))
	a.Len(prk, 32)

	out1, err := Expand(prk, []byte("root_key"), 32)
	require.NoError(t, err)
	out2, err := Expand(prk, []byte("root_key"), 32)
	require.NoError(t, err)
	a.Equal(out1, out2)

	other, err := Expand(prk, []byte("sending_chain"), 32)
	require.NoError(t, err)
	a.NotEqual(out1, other)
}

func TestExtractAndExpand(t *testing.T) {
	a := assert.New(t)

	out, err := ExtractAndExpand(nil, []byte("shared secret"), []byte("root_key"), 32)
	require.NoError(t, err)
	a.Len(out, 32)
}
