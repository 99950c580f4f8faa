package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cascadecrypto/cascade/pkg/bridge"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

func TestFromError_MapsKinds(t *testing.T) {
	a := assert.New(t)

	a.Equal(bridge.Success, bridge.FromError(nil))
	a.Equal(bridge.DecryptionFailed, bridge.FromError(kerr.New(kerr.DecryptionFailed, "")))
	a.Equal(bridge.DecryptionFailed, bridge.FromError(kerr.New(kerr.InvalidMessage, "")))
	a.Equal(bridge.EncryptionFailed, bridge.FromError(kerr.New(kerr.EncryptionFailed, "")))
	a.Equal(bridge.SessionNotFound, bridge.FromError(kerr.New(kerr.SessionNotFound, "")))
	a.Equal(bridge.InvalidArgument, bridge.FromError(kerr.New(kerr.InvalidKeyLength, "")))
	a.Equal(bridge.UnknownError, bridge.FromError(kerr.New(kerr.InternalError, "")))
}

func TestRegistry_RegisterLookupRelease(t *testing.T) {
	a := assert.New(t)
	r := bridge.NewRegistry()

	h := r.Register("hello")
	v, ok := r.Lookup(h)
	a.True(ok)
	a.Equal("hello", v)

	r.Release(h)
	_, ok = r.Lookup(h)
	a.False(ok)
}

func TestRegistry_HandlesAreDistinct(t *testing.T) {
	a := assert.New(t)
	r := bridge.NewRegistry()

	h1 := r.Register("one")
	h2 := r.Register("two")
	a.NotEqual(h1, h2)
}

func TestGuard_RecoversPanic(t *testing.T) {
	a := assert.New(t)

	result := bridge.Guard(func() bridge.FFIError {
		panic("boom")
	})
	a.Equal(bridge.UnknownError, result)
}

func TestGuard_PassesThroughResult(t *testing.T) {
	a := assert.New(t)

	result := bridge.Guard(func() bridge.FFIError {
		return bridge.SessionNotFound
	})
	a.Equal(bridge.SessionNotFound, result)
}
