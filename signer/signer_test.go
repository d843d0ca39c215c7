package signer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paritytech/collator-sentinel/types"
)

func TestParseHexSeedEd25519(t *testing.T) {
	seed := "0x" + strings.Repeat("ab", 32)
	sg, err := Parse(seed, types.Ed25519)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sg.Algorithm() != types.Ed25519 {
		t.Fatalf("got algorithm %v, want Ed25519", sg.Algorithm())
	}
	if sg.Address().IsZero() {
		t.Fatal("expected a non-zero derived address")
	}
}

func TestParseHexSeedSr25519(t *testing.T) {
	seed := "0x" + strings.Repeat("11", 32)
	sg, err := Parse(seed, types.Sr25519)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sg.Algorithm() != types.Sr25519 {
		t.Fatalf("got algorithm %v, want Sr25519", sg.Algorithm())
	}
}

func TestParseHexSeedWrongLengthRejected(t *testing.T) {
	if _, err := Parse("0xabcd", types.Ed25519); err == nil {
		t.Fatal("expected a too-short hex seed to be rejected")
	}
}

func TestParseRejectsUnrecognizedSeedForm(t *testing.T) {
	if _, err := Parse("not-a-seed-form", types.Ed25519); err == nil {
		t.Fatal("expected an unrecognized seed form to be rejected")
	}
}

func TestParseMnemonicRejectsInvalidPhrase(t *testing.T) {
	if _, err := Parse("this is not a valid bip39 mnemonic phrase at all", types.Sr25519); err == nil {
		t.Fatal("expected an invalid mnemonic to be rejected")
	}
}

func TestParseDerivationURI(t *testing.T) {
	sg, err := Parse("/my-derivation-path", types.Ed25519)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sg.Address().IsZero() {
		t.Fatal("expected a non-zero derived address")
	}
}

func TestSameSeedDerivesSameAddress(t *testing.T) {
	seed := "0x" + strings.Repeat("42", 32)
	a, err := Parse(seed, types.Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(seed, types.Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	if a.Address() != b.Address() {
		t.Fatal("expected identical seeds to derive identical addresses")
	}
}

func TestEd25519SignExtrinsicVerifiable(t *testing.T) {
	seed := "0x" + strings.Repeat("07", 32)
	sg, err := Parse(seed, types.Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	call := []byte{0x01, 0x02, 0x03}
	sig, err := sg.SignExtrinsic(call)
	if err != nil {
		t.Fatalf("SignExtrinsic failed: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("got signature length %d, want 64", len(sig))
	}
}

func TestSr25519SignExtrinsicProducesSignature(t *testing.T) {
	seed := "0x" + strings.Repeat("09", 32)
	sg, err := Parse(seed, types.Sr25519)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := sg.SignExtrinsic([]byte{0x01})
	if err != nil {
		t.Fatalf("SignExtrinsic failed: %v", err)
	}
	if len(sig) == 0 {
		t.Fatal("expected a non-empty signature")
	}
}

func TestDelegatedInvokeWireShape(t *testing.T) {
	target := types.Address{0x01, 0x02}
	inner := []byte{0xDE, 0xAD}
	out := DelegatedInvoke(target, inner)

	if out[0] != 0x1e || out[1] != 0x00 {
		t.Fatalf("got call index %x %x, want 1e 00", out[0], out[1])
	}
	if !bytes.Equal(out[2:34], target[:]) {
		t.Fatal("expected target account to be embedded at offset 2")
	}
	if out[34] != 0x01 {
		t.Fatalf("got proxy-type variant %x, want 01 (NonTransfer)", out[34])
	}
	if !bytes.Equal(out[35:], inner) {
		t.Fatal("expected inner call bytes appended last")
	}
}

func TestRedactShortAndLongStrings(t *testing.T) {
	if redact("abc") != "***" {
		t.Fatal("expected a short string to redact fully")
	}
	got := redact("abcdefghij")
	if !strings.HasPrefix(got, "abc") || !strings.HasSuffix(got, "hij") {
		t.Fatalf("got %q, expected a partially-redacted middle", got)
	}
}
