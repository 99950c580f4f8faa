package fingerprint

import "encoding/base64"

// Base64 renders b using unpadded URL-safe base64, the compact form used
// when a fingerprint needs to travel inside a URL or QR payload alongside
// the emoji/hex/pseudonym renderings.
func Base64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
