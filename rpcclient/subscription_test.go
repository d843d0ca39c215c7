package rpcclient

import (
	"testing"

	"github.com/paritytech/collator-sentinel/types"
)

func TestBigEndianUint32(t *testing.T) {
	cases := []struct {
		raw  []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x01, 0x00}, 256},
		{[]byte{0x00, 0x00, 0x01, 0x2c}, 300},
	}
	for _, c := range cases {
		if got := bigEndianUint32(c.raw); got != c.want {
			t.Fatalf("bigEndianUint32(%x) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestDecodeHeaderParsesNumberAndParentHash(t *testing.T) {
	parent := make([]byte, 32)
	parent[0] = 0xAB
	blk, err := decodeHeader("0x00000064", hexEncode(parent), nil)
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}
	if blk.Number != 100 {
		t.Fatalf("got number %d, want 100", blk.Number)
	}
	var want types.Hash
	copy(want[:], parent)
	if blk.ParentHash != want {
		t.Fatalf("got parent hash %s, want %s", blk.ParentHash, want)
	}
}

func TestDecodeHeaderExtractsPreRuntimeDigest(t *testing.T) {
	// variant 6 (PreRuntime), engine id "aura", then an 8-byte slot payload.
	logEntry := append([]byte{6}, []byte("aura")...)
	logEntry = append(logEntry, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08)
	blk, err := decodeHeader("0x01", hexEncode(make([]byte, 32)), []string{hexEncode(logEntry)})
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}
	if len(blk.Digest) != 1 {
		t.Fatalf("expected 1 digest item, got %d", len(blk.Digest))
	}
	if string(blk.Digest[0].EngineID[:]) != "aura" {
		t.Fatalf("got engine id %q, want aura", blk.Digest[0].EngineID)
	}
}

func TestDecodeHeaderSkipsNonPreRuntimeDigest(t *testing.T) {
	// variant 4 (Consensus), not PreRuntime: must be ignored, not errored.
	logEntry := append([]byte{4}, []byte("BABE")...)
	blk, err := decodeHeader("0x01", hexEncode(make([]byte, 32)), []string{hexEncode(logEntry)})
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}
	if len(blk.Digest) != 0 {
		t.Fatalf("expected non-PreRuntime digest to be skipped, got %d items", len(blk.Digest))
	}
}
