package fingerprint

const hex = "0123456789ABCDEF"

// Hex renders b as colon-separated uppercase hex pairs, the form most
// readable when printed next to a peer's name in a terminal.
func Hex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := make([]byte, len(b)*3-1)
	for i, v := range b {
		pos := i * 3
		s[pos] = hex[v>>4]
		s[pos+1] = hex[v&0x0F]
		if i != len(b)-1 {
			s[pos+2] = ':'
		}
	}
	return string(s)
}
