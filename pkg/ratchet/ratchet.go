// Package ratchet implements the Double Ratchet session engine: the
// encrypt/decrypt pair that advances symmetric chains per message, performs
// a Diffie-Hellman ratchet step on direction changes, and caches skipped
// message keys so that reordered or lost messages can still be decrypted
// later (spec §4.6-§4.9).
package ratchet

import (
	"sync"

	"github.com/cascadecrypto/cascade/internal/enigma"
	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/chainkey"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// Session pairs one peer's ratchet State with the lock that serializes
// concurrent encrypt/decrypt calls against it (spec §3 "Session handle",
// §5 "operations on the same session are serialized").
type Session struct {
	mu     sync.RWMutex
	state  *State
	random rand.Source
}

// NewSession wraps an already-initialized State (built via InitSender,
// InitReceiver, or Deserialize) in a lock-protected Session.
func NewSession(state *State, random rand.Source) *Session {
	return &Session{state: state, random: random}
}

// State returns a deep copy of the current ratchet state, safe to persist
// or inspect without racing with concurrent Encrypt/Decrypt calls.
func (s *Session) State() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Encrypt advances the sending chain and produces one ratchet message:
// the 48-byte header followed by the AEAD output (spec §4.7). The caller
// is responsible for persisting the session's new state before the
// ciphertext is handed to the transport — that durability contract is
// implemented by pkg/session, one layer up.
func (s *Session) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.SendingChain == nil || s.state.DHLocal == nil {
		return nil, kerr.New(kerr.InvalidState, "no sending chain")
	}

	msgKey, index := s.state.SendingChain.Advance()
	defer wipeKey(&msgKey)

	var dhPublic [exchange.KeySize]byte
	copy(dhPublic[:], s.state.DHLocal.Public())
	h := header{dhPublic: dhPublic, index: index, previous: s.state.PreviousCounter}
	headerBytes := h.encode()

	ad := append(append([]byte{}, associatedData...), headerBytes...)

	aead, err := enigma.New(msgKey[:], s.random)
	if err != nil {
		return nil, err
	}
	body, err := aead.Encrypt(plaintext, ad)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(headerBytes)+len(body))
	out = append(out, headerBytes...)
	out = append(out, body...)
	return out, nil
}

// Decrypt parses a ratchet message and returns its plaintext (spec §4.8).
// It may trigger a DH ratchet step and populate the skipped-key cache. Any
// failure leaves the session's keys and chains as they were before the call —
// mutations happen on a scratch clone that is only swapped in on success. A
// cached skipped key whose decryption fails goes back into the cache as its
// newest entry; its earlier place in the eviction order is not kept.
func (s *Session) Decrypt(in, associatedData []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := decodeHeader(in)
	if err != nil {
		return nil, err
	}
	body := in[HeaderSize:]
	ad := append(append([]byte{}, associatedData...), in[:HeaderSize]...)

	if key, ok := s.state.takeSkipped(h.dhPublic, h.index); ok {
		plaintext, derr := s.aeadDecrypt(key, body, ad)
		if derr != nil {
			// This attempt never happened: put the entry back.
			s.state.insertSkipped(h.dhPublic, h.index, key)
			return nil, derr
		}
		wipeKey(&key)
		return plaintext, nil
	}

	clone, err := s.state.Clone()
	if err != nil {
		return nil, kerr.Wrap(kerr.InternalError, err)
	}

	sameChain := clone.dhRemote != nil && publicKeyEqual(clone.dhRemote.Bytes(), h.dhPublic[:])
	if !sameChain {
		var oldPeer [exchange.KeySize]byte
		if clone.dhRemote != nil {
			copy(oldPeer[:], clone.dhRemote.Bytes())
		}
		if clone.ReceivingChain != nil {
			if err := skipUntil(clone, oldPeer, clone.ReceivingChain, h.previous); err != nil {
				return nil, err
			}
		}
		if err := dhRatchetStep(clone, h.dhPublic[:], s.random); err != nil {
			clone.Wipe()
			return nil, err
		}
	}

	msgKey, err := advanceReceivingTo(clone, h.dhPublic, h.index)
	if err != nil {
		clone.Wipe()
		return nil, err
	}

	plaintext, err := s.aeadDecrypt(msgKey, body, ad)
	wipeKey(&msgKey)
	if err != nil {
		clone.Wipe()
		return nil, kerr.New(kerr.DecryptionFailed, "")
	}

	s.state.Wipe()
	s.state = clone
	return plaintext, nil
}

func (s *Session) aeadDecrypt(key [32]byte, body, ad []byte) ([]byte, error) {
	aead, err := enigma.New(key[:], s.random)
	if err != nil {
		return nil, err
	}
	return aead.Decrypt(body, ad)
}

// dhRatchetStep performs the DH-ratchet half of spec §4.8 step 4b: derive a
// new root key and receiving chain from the peer's new ratchet public key,
// then roll this side's own ratchet key and derive a fresh sending chain.
func dhRatchetStep(clone *State, peerPublic []byte, random rand.Source) error {
	remote, err := exchange.PublicKey(peerPublic)
	if err != nil {
		return kerr.Wrap(kerr.InvalidMessage, err)
	}

	dhRecv, err := clone.DHLocal.ExchangeKey(remote)
	if err != nil {
		return err
	}
	newRoot, recvChain, err := deriveRootAndChain(clone.RootKey, dhRecv, infoChainKey)
	if err != nil {
		return err
	}
	clone.RootKey = newRoot
	clone.ReceivingChain = recvChain
	clone.dhRemote = remote

	oldSendIndex := uint64(0)
	if clone.SendingChain != nil {
		oldSendIndex = clone.SendingChain.Index()
	}

	newLocal, err := exchange.Generate(random)
	if err != nil {
		return err
	}
	dhSend, err := newLocal.ExchangeKey(remote)
	if err != nil {
		return err
	}
	newRoot2, sendChain, err := deriveRootAndChain(clone.RootKey, dhSend, infoChainKey)
	if err != nil {
		return err
	}
	clone.RootKey = newRoot2
	clone.SendingChain = sendChain
	clone.DHLocal = newLocal
	clone.PreviousCounter = oldSendIndex
	return nil
}

// skipUntil advances chain from its current index up to (not including)
// upTo, caching every derived key as skipped under peer. Used when a DH
// step is about to retire the chain the sender was using (spec §4.8 4a).
func skipUntil(clone *State, peer [exchange.KeySize]byte, chain *chainkey.Key, upTo uint64) error {
	if upTo <= chain.Index() {
		return nil
	}
	if upTo-chain.Index() > clone.MaxSkip {
		return kerr.New(kerr.InvalidMessage, "skip deficit exceeds max_skip")
	}
	for chain.Index() < upTo {
		key, index := chain.Advance()
		clone.insertSkipped(peer, index, key)
	}
	return nil
}

// advanceReceivingTo advances the current receiving chain up to and
// including messageIndex, caching every key strictly before messageIndex as
// skipped and returning the key at messageIndex for immediate use (spec
// §4.8 step 5).
func advanceReceivingTo(clone *State, peer [exchange.KeySize]byte, messageIndex uint64) ([32]byte, error) {
	if clone.ReceivingChain == nil {
		return [32]byte{}, kerr.New(kerr.InvalidMessage, "no receiving chain")
	}
	if messageIndex < clone.ReceivingChain.Index() {
		return [32]byte{}, kerr.New(kerr.InvalidMessage, "message index already consumed")
	}
	if messageIndex-clone.ReceivingChain.Index() > clone.MaxSkip {
		return [32]byte{}, kerr.New(kerr.InvalidMessage, "skip deficit exceeds max_skip")
	}
	for clone.ReceivingChain.Index() < messageIndex {
		key, index := clone.ReceivingChain.Advance()
		clone.insertSkipped(peer, index, key)
	}
	key, _ := clone.ReceivingChain.Advance()
	return key, nil
}

func publicKeyEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
