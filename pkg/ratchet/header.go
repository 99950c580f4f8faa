package ratchet

import (
	"encoding/binary"

	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/kerr"
)

// HeaderSize is the fixed on-wire header length (spec §4.6).
const HeaderSize = exchange.KeySize + 8 + 8

// header is the per-message ratchet header: the sender's current ratchet
// public key, the message's index within its sending chain, and the length
// of the sending chain at the moment of the sender's last DH step.
type header struct {
	dhPublic [exchange.KeySize]byte
	index    uint64
	previous uint64
}

func (h header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:32], h.dhPublic[:])
	binary.LittleEndian.PutUint64(buf[32:40], h.index)
	binary.LittleEndian.PutUint64(buf[40:48], h.previous)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, kerr.New(kerr.InvalidMessage, "short header")
	}
	var h header
	copy(h.dhPublic[:], buf[0:32])
	h.index = binary.LittleEndian.Uint64(buf[32:40])
	h.previous = binary.LittleEndian.Uint64(buf[40:48])
	return h, nil
}
