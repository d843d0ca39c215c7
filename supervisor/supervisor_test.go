package supervisor

import (
	"strings"
	"testing"

	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/types"
)

func TestResolverKeysForBuildsNonEmptyKeys(t *testing.T) {
	keys := resolverKeysFor(chain.NetworkA, chain.AssetHub)
	if len(keys.CurrentSlot) == 0 || len(keys.Authorities) == 0 || len(keys.KeyOwnerPrefix) == 0 {
		t.Fatalf("expected every resolver storage key to be non-empty, got %+v", keys)
	}
	if len(keys.CurrentSlot) != 32 || len(keys.Authorities) != 32 {
		t.Fatalf("expected 32-byte twox128(pallet)++twox128(item) prefixes, got %d/%d",
			len(keys.CurrentSlot), len(keys.Authorities))
	}
}

func TestReaderKeysForBuildsNonEmptyKeys(t *testing.T) {
	keys := readerKeysFor(chain.NetworkB, chain.Coretime)
	if len(keys.Invulnerables) != 32 || len(keys.CandidateList) != 32 ||
		len(keys.CandidacyBond) != 32 || len(keys.DesiredCandidates) != 32 ||
		len(keys.SystemAccountPrefix) != 32 {
		t.Fatalf("expected every reader storage key prefix to be 32 bytes, got %+v", keys)
	}
}

func TestResolverKeysForDistinctPerItem(t *testing.T) {
	keys := resolverKeysFor(chain.NetworkA, chain.AssetHub)
	if string(keys.CurrentSlot) == string(keys.Authorities) {
		t.Fatal("expected distinct storage keys for distinct pallet items")
	}
}

func TestParseCollatorAddressHex(t *testing.T) {
	hex := "0x" + strings.Repeat("ab", 32)
	addr, err := parseCollatorAddress(hex)
	if err != nil {
		t.Fatalf("parseCollatorAddress failed: %v", err)
	}
	if addr.IsZero() {
		t.Fatal("expected a non-zero address")
	}
}

func TestParseCollatorAddressRejectsGarbage(t *testing.T) {
	if _, err := parseCollatorAddress("not-an-address"); err == nil {
		t.Fatal("expected garbage input to be rejected")
	}
}

func TestDescribeStatusInvulnerable(t *testing.T) {
	got := describeStatus(types.CollatorStatus{Kind: types.Invulnerable}, chain.NetworkA)
	if got != "invulnerable" {
		t.Fatalf("got %q", got)
	}
}

func TestDescribeStatusCandidateIncludesFormattedDeposit(t *testing.T) {
	got := describeStatus(types.CollatorStatus{Kind: types.Candidate, Deposit: 5_000_000_000}, chain.NetworkA)
	if !strings.Contains(got, "DOT") || !strings.Contains(got, "candidate") {
		t.Fatalf("got %q, expected it to mention candidate status and the network symbol", got)
	}
}

func TestDescribeStatusNotCollator(t *testing.T) {
	got := describeStatus(types.CollatorStatus{Kind: types.NotCollator}, chain.NetworkB)
	if got != "not a collator" {
		t.Fatalf("got %q", got)
	}
}
