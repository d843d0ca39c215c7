package scale

import "testing"

func TestDecodeCompactLen(t *testing.T) {
	cases := []struct {
		name    string
		raw     []byte
		wantN   int
		wantOff int
		wantOK  bool
	}{
		{"single-byte-zero", []byte{0b00000000}, 0, 1, true},
		{"single-byte-four", []byte{0b00010000}, 4, 1, true}, // 4<<2
		{"empty", nil, 0, 0, false},
		{"two-byte-mode-truncated", []byte{0b00000001}, 0, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, off, ok := DecodeCompactLen(c.raw)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if !ok {
				return
			}
			if n != c.wantN || off != c.wantOff {
				t.Fatalf("got (n=%d,off=%d), want (n=%d,off=%d)", n, off, c.wantN, c.wantOff)
			}
		})
	}
}
