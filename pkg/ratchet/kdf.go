package ratchet

import (
	"github.com/cascadecrypto/cascade/internal/kdf"
	"github.com/cascadecrypto/cascade/pkg/chainkey"
)

const (
	infoRootKey = "root_key"
	// infoChainKey labels every chain-key derivation, regardless of which
	// local field (SendingChain or ReceivingChain) the result lands in. Two
	// peers deriving from the same root key and DH output must agree on the
	// HKDF info string to land on the same chain key, and which side calls
	// the result "sending" vs "receiving" is purely local bookkeeping.
	infoChainKey = "chain_key"
)

// deriveRootAndChain runs one HKDF-SHA256 extract-then-expand over dhOutput
// salted with the current root key, yielding a replacement root key and one
// new chain key, per spec §4.3/§4.8.
func deriveRootAndChain(rootKey [32]byte, dhOutput []byte, chainInfo string) (newRoot [32]byte, chain *chainkey.Key, err error) {
	prk := kdf.Extract(rootKey[:], dhOutput)

	rk, err := kdf.Expand(prk, []byte(infoRootKey), 32)
	if err != nil {
		return newRoot, nil, err
	}
	copy(newRoot[:], rk)

	ck, err := kdf.Expand(prk, []byte(chainInfo), 32)
	if err != nil {
		return newRoot, nil, err
	}
	chain, err = chainkey.New(ck)
	if err != nil {
		return newRoot, nil, err
	}
	return newRoot, chain, nil
}
