// Package cascade provides an end-to-end secure messaging kernel: per-peer
// encrypted channels with forward secrecy and post-compromise security,
// backed by a Double Ratchet session engine and a durable embedded store.
package cascade

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/handshake"
	"github.com/cascadecrypto/cascade/pkg/kerr"
	"github.com/cascadecrypto/cascade/pkg/ratchet"
	"github.com/cascadecrypto/cascade/pkg/session"
	"github.com/cascadecrypto/cascade/pkg/store"
)

// Config holds the options recognized by CreateContext, with the defaults
// named in spec §6.
type Config struct {
	DBPath     string
	Passphrase []byte

	EnableForwardSecrecy         bool
	EnablePostCompromiseSecurity bool
	MaxSkippedMessages           uint64
	KeyRotationInterval          time.Duration
	HandshakeTimeout             time.Duration
	MessageBufferSize            int

	Handshake handshake.Provider
	Logger    *slog.Logger
}

// DefaultConfig returns a Config populated with spec §6's defaults. DBPath
// and Passphrase are left empty; CreateContext refuses to open a store until
// DBPath is set (directly or via Option), and accepts an empty Passphrase.
func DefaultConfig() Config {
	return Config{
		EnableForwardSecrecy:         true,
		EnablePostCompromiseSecurity: true,
		MaxSkippedMessages:           2000,
		KeyRotationInterval:          24 * time.Hour,
		HandshakeTimeout:             30 * time.Second,
		MessageBufferSize:            1024,
	}
}

// Option mutates a Config during CreateContext.
type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

func WithPassphrase(passphrase []byte) Option {
	return func(c *Config) { c.Passphrase = passphrase }
}

func WithMaxSkippedMessages(n uint64) Option {
	return func(c *Config) { c.MaxSkippedMessages = n }
}

func WithKeyRotationInterval(d time.Duration) Option {
	return func(c *Config) { c.KeyRotationInterval = d }
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

func WithMessageBufferSize(n int) Option {
	return func(c *Config) { c.MessageBufferSize = n }
}

func WithForwardSecrecy(enabled bool) Option {
	return func(c *Config) { c.EnableForwardSecrecy = enabled }
}

func WithPostCompromiseSecurity(enabled bool) Option {
	return func(c *Config) { c.EnablePostCompromiseSecurity = enabled }
}

// WithHandshakeProvider sets the external collaborator PerformHandshake
// delegates to. Required before PerformHandshake can be called.
func WithHandshakeProvider(p handshake.Provider) Option {
	return func(c *Config) { c.Handshake = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Context is the top-level object composing the key store, session manager,
// random source, and configuration (spec §4.12).
type Context struct {
	mu sync.RWMutex

	config    Config
	store     *store.Store
	sessions  *session.Manager
	random    rand.Source
	handshake handshake.Provider
	identity  *store.Identity
	logger    *slog.Logger
}

// CreateContext opens the configured store, loads or generates the identity
// key pair, and returns a ready-to-use Context.
func CreateContext(opts ...Option) (*Context, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DBPath == "" {
		return nil, kerr.New(kerr.InvalidState, "DBPath is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	random, err := rand.NewDefault()
	if err != nil {
		return nil, kerr.Wrap(kerr.RandomFailed, err)
	}

	db, err := store.Open(cfg.DBPath, cfg.Passphrase, random)
	if err != nil {
		return nil, err
	}

	identity, err := db.LoadOrCreateIdentity(random)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("context opened", slog.String("db_path", cfg.DBPath))

	return &Context{
		config:    cfg,
		store:     db,
		sessions:  session.NewManager(db, random, cfg.MaxSkippedMessages),
		random:    random,
		handshake: cfg.Handshake,
		identity:  identity,
		logger:    logger,
	}, nil
}

// Close releases the underlying store handle.
func (c *Context) Close() error {
	return c.store.Close()
}

// IdentityPublicKey returns the context's identity public key.
func (c *Context) IdentityPublicKey() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.KeyPair.Public()
}

// LoadIdentity replaces the context's identity key pair with one supplied
// by the caller, verifying private matches public before committing it.
func (c *Context) LoadIdentity(public, private [32]byte) error {
	kp, err := exchange.FromSeed(private[:])
	if err != nil {
		return err
	}
	if !bytes.Equal(kp.Public(), public[:]) {
		return kerr.New(kerr.InvalidKeyLength, "public key does not match private key")
	}
	if err := c.store.SetIdentity(&store.Identity{KeyPair: kp}); err != nil {
		return err
	}

	c.mu.Lock()
	c.identity = &store.Identity{KeyPair: kp}
	c.mu.Unlock()
	return nil
}

// CreateSession builds a fresh, not-yet-keyed session for peerID. Call
// PerformHandshake (or ImportSessionState) afterward to populate real chain
// material before encrypting or decrypting.
func (c *Context) CreateSession(peerID []byte) error {
	local, err := exchange.Generate(c.random)
	if err != nil {
		return err
	}
	_, err = c.sessions.CreateSession(peerID, local)
	return err
}

// PerformHandshake negotiates a root secret and ratchet key pair with peerID
// via the configured handshake collaborator, then initializes peerID's
// session from the result. It returns whatever bytes the handshake still
// needs to send over the transport.
func (c *Context) PerformHandshake(
	ctx context.Context, peerID []byte, initiator bool, peerPublicKey, prologue []byte,
) ([]byte, error) {
	c.mu.RLock()
	provider := c.handshake
	timeout := c.config.HandshakeTimeout
	c.mu.RUnlock()
	if provider == nil {
		return nil, kerr.New(kerr.HandshakeFailed, "no handshake provider configured")
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := provider.Perform(hctx, initiator, peerPublicKey, prologue)
	if err != nil {
		return nil, err
	}

	var state *ratchet.State
	if initiator {
		state, err = ratchet.InitSender(
			result.RootSecret, result.LocalKeyPair, result.PeerPublicKey, c.config.MaxSkippedMessages,
		)
		if err != nil {
			return nil, err
		}
	} else {
		state = ratchet.InitReceiver(result.RootSecret, result.LocalKeyPair, c.config.MaxSkippedMessages)
	}

	if _, err := c.sessions.Initialize(peerID, state); err != nil {
		return nil, err
	}

	c.logger.Info("handshake complete", slog.Bool("initiator", initiator))
	return result.Message, nil
}

// EncryptMessage advances peerID's sending chain, producing one ratchet
// message, and flushes the new state to storage before returning it.
func (c *Context) EncryptMessage(peerID, plaintext, associatedData []byte) ([]byte, error) {
	sess, err := c.sessions.GetSession(peerID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := sess.Encrypt(plaintext, associatedData)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.SaveSession(peerID, sess); err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// DecryptMessage decrypts one ratchet message for peerID, possibly
// triggering a DH ratchet step, and flushes the new state to storage before
// returning the plaintext.
func (c *Context) DecryptMessage(peerID, ciphertext, associatedData []byte) ([]byte, error) {
	sess, err := c.sessions.GetSession(peerID)
	if err != nil {
		return nil, err
	}

	plaintext, err := sess.Decrypt(ciphertext, associatedData)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.SaveSession(peerID, sess); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// ImportSessionState replaces peerID's session with one deserialized from
// stateBytes, e.g. material carried over from another device or process.
func (c *Context) ImportSessionState(peerID, stateBytes []byte) error {
	state, err := ratchet.Deserialize(stateBytes)
	if err != nil {
		return err
	}
	_, err = c.sessions.Initialize(peerID, state)
	return err
}

// ListSessions returns every peer identifier with a persisted session.
func (c *Context) ListSessions() ([][]byte, error) {
	return c.sessions.List()
}

// SessionStats reports how many sessions are persisted and how many are
// currently warm in the in-memory cache.
func (c *Context) SessionStats() (session.Stats, error) {
	return c.sessions.Stats()
}
