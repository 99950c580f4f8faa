package cascade_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cascade "github.com/cascadecrypto/cascade"
	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/handshake"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

func newRandom(t *testing.T) rand.Source {
	t.Helper()
	src, err := rand.NewDefault()
	require.NoError(t, err)
	return src
}

func newContext(t *testing.T, provider handshake.Provider) *cascade.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.db")
	ctx, err := cascade.CreateContext(
		cascade.WithDBPath(path),
		cascade.WithPassphrase([]byte("passphrase")),
		cascade.WithHandshakeProvider(provider),
	)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// pairedContexts negotiates a session between two in-process contexts
// sharing a pre-agreed root secret, as a real handshake collaborator would
// hand back after a successful Noise-style exchange.
func pairedContexts(t *testing.T) (alice, bob *cascade.Context) {
	t.Helper()
	random := newRandom(t)

	var rootSecret [32]byte
	_, err := random.Read(rootSecret[:])
	require.NoError(t, err)

	var aliceSeed, bobSeed [32]byte
	_, err = random.Read(aliceSeed[:])
	require.NoError(t, err)
	_, err = random.Read(bobSeed[:])
	require.NoError(t, err)

	aliceKP, err := exchange.FromSeed(aliceSeed[:])
	require.NoError(t, err)
	bobKP, err := exchange.FromSeed(bobSeed[:])
	require.NoError(t, err)

	alice = newContext(t, &handshake.Static{RootSecret: rootSecret, LocalSeed: aliceSeed})
	bob = newContext(t, &handshake.Static{RootSecret: rootSecret, LocalSeed: bobSeed})

	_, err = alice.PerformHandshake(context.Background(), []byte("bob"), true, bobKP.Public(), nil)
	require.NoError(t, err)
	_, err = bob.PerformHandshake(context.Background(), []byte("alice"), false, aliceKP.Public(), nil)
	require.NoError(t, err)

	return alice, bob
}

func TestContext_EchoScenario(t *testing.T) {
	a := assert.New(t)
	alice, bob := pairedContexts(t)

	ct, err := alice.EncryptMessage([]byte("bob"), []byte("hi"), nil)
	require.NoError(t, err)

	pt, err := bob.DecryptMessage([]byte("alice"), ct, nil)
	require.NoError(t, err)
	a.Equal([]byte("hi"), pt)
}

func TestContext_ReverseDirectionScenario(t *testing.T) {
	a := assert.New(t)
	alice, bob := pairedContexts(t)

	ct, err := alice.EncryptMessage([]byte("bob"), []byte("hi"), nil)
	require.NoError(t, err)
	_, err = bob.DecryptMessage([]byte("alice"), ct, nil)
	require.NoError(t, err)

	reply, err := bob.EncryptMessage([]byte("alice"), []byte("yo"), nil)
	require.NoError(t, err)
	pt, err := alice.DecryptMessage([]byte("bob"), reply, nil)
	require.NoError(t, err)
	a.Equal([]byte("yo"), pt)
}

func TestContext_EncryptMissingSessionFails(t *testing.T) {
	a := assert.New(t)
	alice := newContext(t, nil)

	_, err := alice.EncryptMessage([]byte("nobody"), []byte("hi"), nil)
	a.Equal(kerr.SessionNotFound, kerr.Of(err))
}

func TestContext_PerformHandshakeWithoutProviderFails(t *testing.T) {
	a := assert.New(t)
	alice := newContext(t, nil)

	_, err := alice.PerformHandshake(context.Background(), []byte("bob"), true, nil, nil)
	a.Equal(kerr.HandshakeFailed, kerr.Of(err))
}

func TestContext_LoadIdentityRejectsMismatchedKeyPair(t *testing.T) {
	a := assert.New(t)
	alice := newContext(t, nil)
	random := newRandom(t)

	kp, err := exchange.Generate(random)
	require.NoError(t, err)
	other, err := exchange.Generate(random)
	require.NoError(t, err)

	var public, private [32]byte
	copy(public[:], other.Public())
	copy(private[:], kp.Private())

	err = alice.LoadIdentity(public, private)
	a.Equal(kerr.InvalidKeyLength, kerr.Of(err))
}

func TestContext_LoadIdentityAcceptsMatchingKeyPair(t *testing.T) {
	a := assert.New(t)
	alice := newContext(t, nil)
	random := newRandom(t)

	kp, err := exchange.Generate(random)
	require.NoError(t, err)

	var public, private [32]byte
	copy(public[:], kp.Public())
	copy(private[:], kp.Private())

	require.NoError(t, alice.LoadIdentity(public, private))
	a.Equal(kp.Public(), alice.IdentityPublicKey())
}

func TestContext_SessionStatsReflectsPersistedSessions(t *testing.T) {
	a := assert.New(t)
	alice, bob := pairedContexts(t)

	stats, err := alice.SessionStats()
	require.NoError(t, err)
	a.Equal(1, stats.TotalSessions)
	a.Equal(1, stats.CachedSessions)

	peers, err := bob.ListSessions()
	require.NoError(t, err)
	a.Equal([][]byte{[]byte("alice")}, peers)
}

func TestContext_RestartScenario(t *testing.T) {
	a := assert.New(t)
	path := filepath.Join(t.TempDir(), "cascade.db")
	random := newRandom(t)

	var rootSecret [32]byte
	_, err := random.Read(rootSecret[:])
	require.NoError(t, err)
	var aliceSeed, bobSeed [32]byte
	_, err = random.Read(aliceSeed[:])
	require.NoError(t, err)
	_, err = random.Read(bobSeed[:])
	require.NoError(t, err)

	aliceKP, err := exchange.FromSeed(aliceSeed[:])
	require.NoError(t, err)
	bobKP, err := exchange.FromSeed(bobSeed[:])
	require.NoError(t, err)

	alice, err := cascade.CreateContext(
		cascade.WithDBPath(path),
		cascade.WithPassphrase([]byte("passphrase")),
		cascade.WithHandshakeProvider(&handshake.Static{RootSecret: rootSecret, LocalSeed: aliceSeed}),
	)
	require.NoError(t, err)
	bob := newContext(t, &handshake.Static{RootSecret: rootSecret, LocalSeed: bobSeed})

	_, err = alice.PerformHandshake(context.Background(), []byte("bob"), true, bobKP.Public(), nil)
	require.NoError(t, err)
	_, err = bob.PerformHandshake(context.Background(), []byte("alice"), false, aliceKP.Public(), nil)
	require.NoError(t, err)

	m0, err := alice.EncryptMessage([]byte("bob"), []byte("m0"), nil)
	require.NoError(t, err)
	require.NoError(t, alice.Close())

	// Process restarts: a fresh Context opens the same store.
	alice, err = cascade.CreateContext(
		cascade.WithDBPath(path),
		cascade.WithPassphrase([]byte("passphrase")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { alice.Close() })

	m1, err := alice.EncryptMessage([]byte("bob"), []byte("m1"), nil)
	require.NoError(t, err)

	pt0, err := bob.DecryptMessage([]byte("alice"), m0, nil)
	require.NoError(t, err)
	pt1, err := bob.DecryptMessage([]byte("alice"), m1, nil)
	require.NoError(t, err)
	a.Equal([]byte("m0"), pt0)
	a.Equal([]byte("m1"), pt1)
}
