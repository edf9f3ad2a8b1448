package descriptor

import "fmt"

// FourCC renders a 32-bit pixel format code as four characters, low byte
// first. Bytes outside printable ASCII become '?'.
func FourCC(code uint32) string {
	var b [4]byte
	for i := range b {
		c := byte(code >> (8 * i))
		if c < 32 || c > 126 {
			c = '?'
		}
		b[i] = c
	}
	return string(b[:])
}

// ParseFourCC packs a four-character code into its 32-bit value, low byte
// first.
func ParseFourCC(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("descriptor: fourcc %q must be 4 bytes", s)
	}
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24, nil
}

// FourCCBigEndian packs a high-byte-first code (CoreMedia's media subtype
// convention) into the canonical low-byte-first order used everywhere else.
func FourCCBigEndian(code uint32) uint32 {
	return code>>24 | (code>>8)&0xff00 | (code<<8)&0xff0000 | code<<24
}
