package fingerprint

import (
	"bytes"

	"github.com/mdp/qrterminal/v3"
)

// QrCode renders b as a QR code drawn with terminal block characters.
// Callers pass a base64-safe encoding of a key rather than its raw bytes,
// since a QR payload must be valid text.
func QrCode(b []byte) ([]byte, error) {
	var buffer bytes.Buffer
	qrterminal.Generate(string(b), qrterminal.L, &buffer)
	return buffer.Bytes(), nil
}
