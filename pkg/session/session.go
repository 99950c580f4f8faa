// Package session implements the session manager (spec §4.11): an
// in-memory cache of live ratchet.Session handles backed by pkg/store for
// durability, with per-peer lookup and the save-before-return contract that
// keeps a crash from ever reusing a nonce.
package session

import (
	"sync"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
	"github.com/cascadecrypto/cascade/pkg/ratchet"
	"github.com/cascadecrypto/cascade/pkg/store"
)

// Manager owns the live session cache and the durable store behind it.
// Lock order is always manager read-lock before any session-level lock
// inside ratchet.Session, and the manager write-lock is never held while a
// session operation runs (spec §5).
type Manager struct {
	mu      sync.RWMutex
	cache   map[string]*ratchet.Session
	store   *store.Store
	random  rand.Source
	maxSkip uint64
}

// NewManager builds a session manager over an already-open store.
func NewManager(db *store.Store, random rand.Source, maxSkip uint64) *Manager {
	return &Manager{
		cache:   make(map[string]*ratchet.Session),
		store:   db,
		random:  random,
		maxSkip: maxSkip,
	}
}

// CreateSession builds a fresh, not-yet-keyed ratchet state around local
// (the session's own ratchet key pair), persists its initial serialization,
// installs it in the cache, and returns the handle. The handshake
// collaborator finalizes real chain material by calling Initialize once it
// has negotiated a root secret with the peer.
func (m *Manager) CreateSession(peerID []byte, local *exchange.KeyPair) (*ratchet.Session, error) {
	state := ratchet.InitReceiver([32]byte{}, local, m.maxSkip)
	sess := ratchet.NewSession(state, m.random)
	if err := m.install(peerID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Initialize replaces peerID's session with one built from a handshake's
// negotiated state (initiator's InitSender or responder's InitReceiver
// output) and persists it.
func (m *Manager) Initialize(peerID []byte, state *ratchet.State) (*ratchet.Session, error) {
	sess := ratchet.NewSession(state, m.random)
	if err := m.install(peerID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) install(peerID []byte, sess *ratchet.Session) error {
	if err := m.persist(peerID, sess); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache[string(peerID)] = sess
	m.mu.Unlock()
	return nil
}

// GetSession returns the cached handle for peerID, loading and deserializing
// from storage on a cache miss. Absent from both fails SessionNotFound.
func (m *Manager) GetSession(peerID []byte) (*ratchet.Session, error) {
	key := string(peerID)

	m.mu.RLock()
	sess, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	raw, err := m.store.LoadSessionState(peerID)
	if err != nil {
		if kerr.Of(err) == kerr.KeyNotFound {
			return nil, kerr.New(kerr.SessionNotFound, "")
		}
		return nil, err
	}
	state, err := ratchet.Deserialize(raw)
	if err != nil {
		return nil, err
	}
	sess = ratchet.NewSession(state, m.random)

	m.mu.Lock()
	if existing, ok := m.cache[key]; ok {
		// Another goroutine populated the cache first; use its handle.
		sess = existing
	} else {
		m.cache[key] = sess
	}
	m.mu.Unlock()

	return sess, nil
}

// SaveSession serializes sess's current state and flushes it to storage
// under peerID. Every successful Encrypt/Decrypt in the caller must be
// followed by this completing before the result is handed back (spec
// §4.11's durability contract).
func (m *Manager) SaveSession(peerID []byte, sess *ratchet.Session) error {
	return m.persist(peerID, sess)
}

func (m *Manager) persist(peerID []byte, sess *ratchet.Session) error {
	state, err := sess.State()
	if err != nil {
		return err
	}
	defer state.Wipe()

	blob, err := state.Serialize()
	if err != nil {
		return err
	}
	if err := m.store.SaveSessionState(peerID, blob); err != nil {
		return kerr.Wrap(kerr.InternalError, err)
	}
	return nil
}

// RemoveSession evicts peerID from both the cache and storage.
func (m *Manager) RemoveSession(peerID []byte) error {
	m.mu.Lock()
	delete(m.cache, string(peerID))
	m.mu.Unlock()

	return m.store.DeleteSessionState(peerID)
}

// Stats summarizes the sessions a Manager knows about: how many are
// persisted in storage, and how many of those are currently warm in the
// in-memory cache.
type Stats struct {
	TotalSessions  int
	CachedSessions int
}

// List returns every peer identifier with a persisted session. Grounded on
// the teacher's SessionManager.ListActiveSessions, trimmed of handshake-phase
// and expiry tracking — this manager's sessions have no expiry, only
// presence in storage.
func (m *Manager) List() ([][]byte, error) {
	return m.store.ListSessionPeers()
}

// Stats reports how many sessions are persisted and how many of those are
// currently cached in memory, mirroring the teacher's SessionManager.Stats
// but scoped to this manager's simpler (no phase, no expiry) lifecycle.
func (m *Manager) Stats() (Stats, error) {
	peers, err := m.store.ListSessionPeers()
	if err != nil {
		return Stats{}, err
	}

	m.mu.RLock()
	cached := 0
	for _, peer := range peers {
		if _, ok := m.cache[string(peer)]; ok {
			cached++
		}
	}
	m.mu.RUnlock()

	return Stats{TotalSessions: len(peers), CachedSessions: cached}, nil
}
