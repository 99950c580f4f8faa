package session_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
	"github.com/cascadecrypto/cascade/pkg/ratchet"
	"github.com/cascadecrypto/cascade/pkg/session"
	"github.com/cascadecrypto/cascade/pkg/store"
)

func newRandom(t *testing.T) rand.Source {
	t.Helper()
	src, err := rand.NewDefault()
	require.NoError(t, err)
	return src
}

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.db")
	db, err := store.Open(path, []byte("passphrase"), newRandom(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return session.NewManager(db, newRandom(t), 10)
}

func TestManager_GetSessionMissingFails(t *testing.T) {
	a := assert.New(t)
	m := newManager(t)

	_, err := m.GetSession([]byte("nobody"))
	a.Equal(kerr.SessionNotFound, kerr.Of(err))
}

func TestManager_CreateThenGetReturnsCachedHandle(t *testing.T) {
	a := assert.New(t)
	m := newManager(t)
	random := newRandom(t)

	local, err := exchange.Generate(random)
	require.NoError(t, err)
	created, err := m.CreateSession([]byte("peer"), local)
	require.NoError(t, err)

	fetched, err := m.GetSession([]byte("peer"))
	require.NoError(t, err)
	a.Same(created, fetched)
}

func TestManager_InitializeThenEncryptDecryptRoundTrips(t *testing.T) {
	a := assert.New(t)
	aliceMgr := newManager(t)
	bobMgr := newManager(t)
	random := newRandom(t)

	var rootSecret [32]byte
	_, err := random.Read(rootSecret[:])
	require.NoError(t, err)

	bobLocal, err := exchange.Generate(random)
	require.NoError(t, err)
	aliceLocal, err := exchange.Generate(random)
	require.NoError(t, err)

	aliceState, err := ratchet.InitSender(rootSecret, aliceLocal, bobLocal.Public(), 10)
	require.NoError(t, err)
	bobState := ratchet.InitReceiver(rootSecret, bobLocal, 10)

	alice, err := aliceMgr.Initialize([]byte("bob"), aliceState)
	require.NoError(t, err)
	bob, err := bobMgr.Initialize([]byte("alice"), bobState)
	require.NoError(t, err)

	ct, err := alice.Encrypt([]byte("hi"), nil)
	require.NoError(t, err)
	require.NoError(t, aliceMgr.SaveSession([]byte("bob"), alice))

	pt, err := bob.Decrypt(ct, nil)
	require.NoError(t, err)
	require.NoError(t, bobMgr.SaveSession([]byte("alice"), bob))
	a.Equal([]byte("hi"), pt)
}

func TestManager_SessionSurvivesCacheEviction(t *testing.T) {
	a := assert.New(t)
	path := filepath.Join(t.TempDir(), "cascade.db")
	random := newRandom(t)

	db, err := store.Open(path, []byte("passphrase"), random)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var rootSecret [32]byte
	_, err = random.Read(rootSecret[:])
	require.NoError(t, err)
	local, err := exchange.Generate(random)
	require.NoError(t, err)
	state := ratchet.InitReceiver(rootSecret, local, 10)

	m1 := session.NewManager(db, random, 10)
	sess, err := m1.Initialize([]byte("peer"), state)
	require.NoError(t, err)
	require.NoError(t, m1.SaveSession([]byte("peer"), sess))

	// A second manager over the same store has an empty cache; GetSession
	// must fall through to storage.
	m2 := session.NewManager(db, random, 10)
	reloaded, err := m2.GetSession([]byte("peer"))
	require.NoError(t, err)

	reloadedState, err := reloaded.State()
	require.NoError(t, err)
	originalState, err := sess.State()
	require.NoError(t, err)
	a.Equal(originalState.RootKey, reloadedState.RootKey)
}

func TestManager_ListAndStatsReflectPersistedSessions(t *testing.T) {
	a := assert.New(t)
	m := newManager(t)
	random := newRandom(t)

	localAlice, err := exchange.Generate(random)
	require.NoError(t, err)
	_, err = m.CreateSession([]byte("alice"), localAlice)
	require.NoError(t, err)

	localBob, err := exchange.Generate(random)
	require.NoError(t, err)
	_, err = m.CreateSession([]byte("bob"), localBob)
	require.NoError(t, err)

	peers, err := m.List()
	require.NoError(t, err)
	a.ElementsMatch([][]byte{[]byte("alice"), []byte("bob")}, peers)

	stats, err := m.Stats()
	require.NoError(t, err)
	a.Equal(2, stats.TotalSessions)
	a.Equal(2, stats.CachedSessions)
}

func TestManager_StatsCountsUncachedSessions(t *testing.T) {
	a := assert.New(t)
	path := filepath.Join(t.TempDir(), "cascade.db")
	random := newRandom(t)

	db, err := store.Open(path, []byte("passphrase"), random)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	local, err := exchange.Generate(random)
	require.NoError(t, err)
	state := ratchet.InitReceiver([32]byte{}, local, 10)

	m1 := session.NewManager(db, random, 10)
	sess, err := m1.Initialize([]byte("peer"), state)
	require.NoError(t, err)
	require.NoError(t, m1.SaveSession([]byte("peer"), sess))

	m2 := session.NewManager(db, random, 10)
	stats, err := m2.Stats()
	require.NoError(t, err)
	a.Equal(1, stats.TotalSessions)
	a.Equal(0, stats.CachedSessions, "a fresh manager's cache is empty until GetSession is called")
}

func TestManager_RemoveSessionEvictsCacheAndStorage(t *testing.T) {
	a := assert.New(t)
	m := newManager(t)
	random := newRandom(t)

	local, err := exchange.Generate(random)
	require.NoError(t, err)
	_, err = m.CreateSession([]byte("peer"), local)
	require.NoError(t, err)

	require.NoError(t, m.RemoveSession([]byte("peer")))

	_, err = m.GetSession([]byte("peer"))
	a.Equal(kerr.SessionNotFound, kerr.Of(err))
}
