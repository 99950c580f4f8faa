package ratchet

import (
	"crypto/ecdh"
	"crypto/subtle"
	"encoding/json"

	"github.com/cascadecrypto/cascade/pkg/chainkey"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// skipKey identifies one cached skipped-message key: a peer ratchet public
// key paired with the message index it belongs to (spec §3).
type skipKey struct {
	Peer  [exchange.KeySize]byte
	Index uint64
}

// State is the in-memory representation of one peer's ratchet (spec §3,
// §4.6-§4.9). Encrypt and decrypt mutate it under the owning Session's lock.
type State struct {
	RootKey [32]byte

	SendingChain   *chainkey.Key
	ReceivingChain *chainkey.Key

	DHLocal  *exchange.KeyPair
	dhRemote *ecdh.PublicKey // nil before the first message from the peer

	Skipped   map[skipKey][32]byte
	skipOrder []skipKey
	MaxSkip   uint64

	// PreviousCounter is the sending-chain index reported in the header at
	// the moment of the last DH ratchet step.
	PreviousCounter uint64
}

func newState(rootKey [32]byte, local *exchange.KeyPair, maxSkip uint64) *State {
	return &State{
		RootKey: rootKey,
		DHLocal: local,
		Skipped: make(map[skipKey][32]byte),
		MaxSkip: maxSkip,
	}
}

// InitSender builds the ratchet state for the side that already knows the
// peer's ratchet public key (an X3DH-style initiator talking to a
// responder's signed prekey). The sending chain is derived immediately;
// the receiving chain is populated on the first DH ratchet step triggered
// by an incoming message.
func InitSender(rootKey [32]byte, local *exchange.KeyPair, peerPublic []byte, maxSkip uint64) (*State, error) {
	s := newState(rootKey, local, maxSkip)

	remote, err := exchange.PublicKey(peerPublic)
	if err != nil {
		return nil, err
	}
	s.dhRemote = remote

	shared, err := local.ExchangeKey(remote)
	if err != nil {
		return nil, err
	}

	newRoot, sendChain, err := deriveRootAndChain(s.RootKey, shared, infoChainKey)
	if err != nil {
		return nil, err
	}
	s.RootKey = newRoot
	s.SendingChain = sendChain
	return s, nil
}

// InitReceiver builds the ratchet state for the side waiting on the first
// message; neither chain exists yet. The first call to decrypt performs the
// DH ratchet step that populates both.
func InitReceiver(rootKey [32]byte, local *exchange.KeyPair, maxSkip uint64) *State {
	return newState(rootKey, local, maxSkip)
}

func (s *State) insertSkipped(peer [exchange.KeySize]byte, index uint64, key [32]byte) {
	k := skipKey{Peer: peer, Index: index}
	if _, exists := s.Skipped[k]; exists {
		return
	}
	if s.MaxSkip > 0 && uint64(len(s.Skipped)) >= s.MaxSkip {
		s.evictOldest()
	}
	s.Skipped[k] = key
	s.skipOrder = append(s.skipOrder, k)
}

func (s *State) evictOldest() {
	for len(s.skipOrder) > 0 {
		oldest := s.skipOrder[0]
		s.skipOrder = s.skipOrder[1:]
		if stored, ok := s.Skipped[oldest]; ok {
			wipeKey(&stored)
			delete(s.Skipped, oldest)
			return
		}
	}
}

func (s *State) takeSkipped(peer [exchange.KeySize]byte, index uint64) ([32]byte, bool) {
	k := skipKey{Peer: peer, Index: index}
	key, ok := s.Skipped[k]
	if !ok {
		return [32]byte{}, false
	}
	delete(s.Skipped, k)
	for i, candidate := range s.skipOrder {
		if candidate == k {
			s.skipOrder = append(s.skipOrder[:i], s.skipOrder[i+1:]...)
			break
		}
	}
	return key, true
}

func wipeKey(k *[32]byte) {
	zero := make([]byte, 32)
	subtle.ConstantTimeCopy(1, k[:], zero)
}

// Wipe zeroes every secret the state owns. The State must not be used
// afterward.
func (s *State) Wipe() {
	for i := range s.RootKey {
		s.RootKey[i] = 0
	}
	if s.SendingChain != nil {
		s.SendingChain.Wipe()
	}
	if s.ReceivingChain != nil {
		s.ReceivingChain.Wipe()
	}
	for k, v := range s.Skipped {
		wipeKey(&v)
		delete(s.Skipped, k)
	}
	s.skipOrder = nil
}

// Clone returns a deep, independent copy of the state.
func (s *State) Clone() (*State, error) {
	c := &State{
		RootKey:         s.RootKey,
		MaxSkip:         s.MaxSkip,
		PreviousCounter: s.PreviousCounter,
		Skipped:         make(map[skipKey][32]byte, len(s.Skipped)),
		skipOrder:       append([]skipKey(nil), s.skipOrder...),
	}
	for k, v := range s.Skipped {
		c.Skipped[k] = v
	}
	if s.SendingChain != nil {
		c.SendingChain = s.SendingChain.Clone()
	}
	if s.ReceivingChain != nil {
		c.ReceivingChain = s.ReceivingChain.Clone()
	}
	local, err := exchange.FromSeed(s.DHLocal.Private())
	if err != nil {
		return nil, err
	}
	c.DHLocal = local
	c.dhRemote = s.dhRemote
	return c, nil
}

// wireState is the deterministic, self-describing encoding of State used by
// Serialize/Deserialize (spec §4.9). Field order is fixed so that two equal
// states produce byte-identical encodings.
type wireState struct {
	RootKey         [32]byte        `json:"root_key"`
	SendingChain    *wireChain      `json:"sending_chain,omitempty"`
	ReceivingChain  *wireChain      `json:"receiving_chain,omitempty"`
	DHLocalSeed     [32]byte        `json:"dh_local_seed"`
	DHRemote        []byte          `json:"dh_remote,omitempty"`
	Skipped         []wireSkipEntry `json:"skipped,omitempty"`
	MaxSkip         uint64          `json:"max_skip"`
	PreviousCounter uint64          `json:"previous_counter"`
}

type wireChain struct {
	Key   [32]byte `json:"key"`
	Index uint64   `json:"index"`
}

type wireSkipEntry struct {
	Peer  [32]byte `json:"peer"`
	Index uint64   `json:"index"`
	Key   [32]byte `json:"key"`
}

// Serialize encodes the state deterministically: fixed field order, and
// skipped-key entries walked in stable insertion order.
func (s *State) Serialize() ([]byte, error) {
	w := wireState{
		RootKey:         s.RootKey,
		DHLocalSeed:     seedArray(s.DHLocal.Private()),
		MaxSkip:         s.MaxSkip,
		PreviousCounter: s.PreviousCounter,
	}
	if s.SendingChain != nil {
		key := s.SendingChain.Bytes()
		w.SendingChain = &wireChain{Key: key, Index: s.SendingChain.Index()}
	}
	if s.ReceivingChain != nil {
		key := s.ReceivingChain.Bytes()
		w.ReceivingChain = &wireChain{Key: key, Index: s.ReceivingChain.Index()}
	}
	if s.dhRemote != nil {
		w.DHRemote = s.dhRemote.Bytes()
	}
	for _, k := range s.skipOrder {
		w.Skipped = append(w.Skipped, wireSkipEntry{Peer: k.Peer, Index: k.Index, Key: s.Skipped[k]})
	}

	out, err := json.Marshal(w)
	if err != nil {
		return nil, kerr.Wrap(kerr.InternalError, err)
	}
	return out, nil
}

// Deserialize restores a State from bytes produced by Serialize, rebuilding
// chain-key HMAC state and the DH keypair from its raw seed.
func Deserialize(data []byte) (*State, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, kerr.Wrap(kerr.InvalidMessage, err)
	}

	local, err := exchange.FromSeed(w.DHLocalSeed[:])
	if err != nil {
		return nil, kerr.Wrap(kerr.InvalidMessage, err)
	}

	s := &State{
		RootKey:         w.RootKey,
		DHLocal:         local,
		MaxSkip:         w.MaxSkip,
		PreviousCounter: w.PreviousCounter,
		Skipped:         make(map[skipKey][32]byte, len(w.Skipped)),
	}

	if w.SendingChain != nil {
		s.SendingChain = chainkey.Restore(w.SendingChain.Key, w.SendingChain.Index)
	}
	if w.ReceivingChain != nil {
		s.ReceivingChain = chainkey.Restore(w.ReceivingChain.Key, w.ReceivingChain.Index)
	}
	if len(w.DHRemote) > 0 {
		remote, err := exchange.PublicKey(w.DHRemote)
		if err != nil {
			return nil, kerr.Wrap(kerr.InvalidMessage, err)
		}
		s.dhRemote = remote
	}
	for _, entry := range w.Skipped {
		k := skipKey{Peer: entry.Peer, Index: entry.Index}
		s.Skipped[k] = entry.Key
		s.skipOrder = append(s.skipOrder, k)
	}

	return s, nil
}

func seedArray(seed []byte) [32]byte {
	var out [32]byte
	copy(out[:], seed)
	return out
}
