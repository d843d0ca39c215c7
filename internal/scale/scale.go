// Package scale holds the minimal SCALE codec primitives shared by the
// resolver and collatorstate readers: both decode compact-length-prefixed
// sequences of fixed-width entries and need the same compact-integer
// decoder. Full SCALE/metadata decoding stays out of scope; this package
// covers only what those two readers need.
package scale

import "encoding/binary"

// DecodeCompactLen decodes a SCALE compact-encoded integer used as a
// sequence length prefix, returning the value and the number of bytes it
// occupied.
func DecodeCompactLen(raw []byte) (n int, offset int, ok bool) {
	if len(raw) == 0 {
		return 0, 0, false
	}
	mode := raw[0] & 0b11
	switch mode {
	case 0b00:
		return int(raw[0] >> 2), 1, true
	case 0b01:
		if len(raw) < 2 {
			return 0, 0, false
		}
		v := binary.LittleEndian.Uint16(raw[:2])
		return int(v >> 2), 2, true
	case 0b10:
		if len(raw) < 4 {
			return 0, 0, false
		}
		v := binary.LittleEndian.Uint32(raw[:4])
		return int(v >> 2), 4, true
	default:
		return 0, 0, false // big-integer mode: not expected for a length prefix here
	}
}
