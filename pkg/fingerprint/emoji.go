package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
)

var emojiList = []string{
	"ğŸ˜", "ğŸ‘»", "ğŸ‘", "ğŸ‘‘", "ğŸƒ", "ğŸ˜", "ğŸ˜", "ğŸ˜‚",
	"ğŸ¶", "ğŸ±", "ğŸ¦", "ğŸ¹", "ğŸ°", "ğŸ¦Š", "ğŸ»", "ğŸ¼",
	"ğŸŒ¸", "ğŸŒ¼", "ğŸª·", "ğŸŒ¹", "ğŸŒº", "ğŸ", "ğŸŒ³", "ğŸŒµ",
	"ğŸ", "ğŸŒ", "ğŸ‡", "ğŸ“", "ğŸ’", "ğŸ•", "ğŸ”", "ğŸŸ",
	"â˜•ï¸", "ğŸ¦", "ğŸ¥•", "â˜€ï¸", "ğŸŒ™", "â„ï¸", "â˜ï¸", "ğŸ§‚",
	"ğŸ’¡", "ğŸ¹", "ğŸ’", "ğŸ“·", "ğŸ€", "ğŸ®", "ğŸ²", "ğŸ©",
	"â¤ï¸", "ğŸ", "â°", "ğŸ’", "ğŸ§²", "ğŸ”‘", "ğŸš—ï¸", "ğŸš€",
	"âœ¨", "ğŸ”¥", "ğŸŒˆ", "ğŸ‰", "ğŸ¶", "ğŸ”’", "ğŸ“Œ", "âœ…",
}

// Emoji renders key as eight emoji: the SHA-256 digest of key is split into
// eight 4-byte groups, each indexing into emojiList. Two parties holding the
// same public key always land on the same eight emoji in the same order.
func Emoji(key []byte) []string {
	hash := sha256.Sum256(key)
	offset := 0
	l := uint32(len(emojiList))
	emojis := make([]string, 8)
	for i := range 8 {
		offset = i * 4
		num := binary.BigEndian.Uint32(hash[offset : offset+4])
		emojis[i] = emojiList[num%l]
	}
	return emojis
}
