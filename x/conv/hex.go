package conv

const hexd = "0123456789ABCDEF"

// AddrHex writes a bus address as 0x-prefixed uppercase hex into buf and
// returns the used slice. Seven-bit addresses get two digits, anything
// wider gets four. buf should be length >= 6.
func AddrHex(buf []byte, a uint16) []byte {
	digits := 2
	if a > 0xFF {
		digits = 4
	}
	if len(buf) < digits+2 {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[a&0xF]
		a >>= 4
	}
	i -= 2
	buf[i], buf[i+1] = '0', 'x'
	return buf[i:]
}

// Addr is AddrHex into a fresh string.
func Addr(a uint16) string {
	var b [6]byte
	return string(AddrHex(b[:], a))
}
