// Package fingerprint renders a peer's identity public key into forms a
// human can compare out of band: hex, emoji, a two-word pseudonym, a QR
// code, and compact base64. None of these are secret; they exist so two
// endpoints of a ratchet session can confirm they agree on which public key
// they are trusting before exchanging messages (the "safety number" step
// a Double Ratchet deployment layers on top of the handshake itself).
package fingerprint

// Fingerprint is every rendering of one identity public key, bound together
// so a caller doesn't have to thread the raw key through each renderer.
type Fingerprint struct {
	key []byte
}

// New derives a Fingerprint from a peer's raw identity public key.
func New(publicKey []byte) Fingerprint {
	return Fingerprint{key: append([]byte(nil), publicKey...)}
}

// Hex renders the key as colon-separated uppercase hex pairs.
func (f Fingerprint) Hex() string { return Hex(f.key) }

// Emoji renders the key as eight emoji drawn from its SHA-256 digest.
func (f Fingerprint) Emoji() []string { return Emoji(f.key) }

// Pseudonym renders the key as a stable two-word label.
func (f Fingerprint) Pseudonym() string { return Pseudonym(f.key) }

// Base64 renders the key as unpadded URL-safe base64.
func (f Fingerprint) Base64() string { return Base64(f.key) }

// QR renders the key's base64 form as a terminal QR code.
func (f Fingerprint) QR() ([]byte, error) { return QrCode([]byte(f.Base64())) }
