package ss58

import (
	"testing"

	"github.com/paritytech/collator-sentinel/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var addr types.Address
	for i := range addr {
		addr[i] = byte(i)
	}
	encoded := Encode(addr, 0)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != addr {
		t.Fatalf("round trip mismatch: got %s, want %s", decoded, addr)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	var addr types.Address
	encoded := Encode(addr, 0)
	tampered := []byte(encoded)
	// flip the last character, which lives inside the checksum region
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}
	if _, err := Decode(string(tampered)); err == nil {
		t.Fatal("expected checksum mismatch to be rejected")
	}
}
