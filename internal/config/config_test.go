package config

import (
	"strings"
	"testing"

	"github.com/paritytech/collator-sentinel/chain"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"COLLATOR_ADDRESS_A", "COLLATOR_ADDRESS_B", "SIGNER_SEED",
		"ALERT_WEBHOOK_URL", "ALERT_BOT_TOKEN", "ALERT_CHANNEL",
		"ALERT_USER_IDS_ONCHAIN", "ALERT_USER_IDS_OPS",
		"CHECK_INTERVAL_S", "SUMMARY_INTERVAL_S", "COLLATOR_SENTINEL_CONFIG",
	} {
		t.Setenv(k, "")
	}
	// Point at a config file path that does not exist, so Load doesn't pick
	// up a real config.toml sitting in the test's working directory.
	t.Setenv("COLLATOR_SENTINEL_CONFIG", "/nonexistent/collator-sentinel-config.toml")
}

func baseValidEnv(t *testing.T) {
	t.Helper()
	clearConfigEnv(t)
	t.Setenv("COLLATOR_ADDRESS_A", "0x"+strings.Repeat("11", 32))
	t.Setenv("COLLATOR_ADDRESS_B", "0x"+strings.Repeat("22", 32))
	t.Setenv("SIGNER_SEED", "0x"+strings.Repeat("55", 32))
	t.Setenv("ALERT_WEBHOOK_URL", "https://example.invalid/webhook")
}

func TestLoadRequiresBothCollatorAddressesIndependently(t *testing.T) {
	baseValidEnv(t)
	t.Setenv("COLLATOR_ADDRESS_A", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing COLLATOR_ADDRESS_A to fail even with COLLATOR_ADDRESS_B set")
	}

	baseValidEnv(t)
	t.Setenv("COLLATOR_ADDRESS_B", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing COLLATOR_ADDRESS_B to fail even with COLLATOR_ADDRESS_A set")
	}
}

func TestLoadRequiresSignerSeed(t *testing.T) {
	baseValidEnv(t)
	t.Setenv("SIGNER_SEED", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing SIGNER_SEED to fail")
	}
}

func TestLoadRequiresAnAlertTransport(t *testing.T) {
	baseValidEnv(t)
	t.Setenv("ALERT_WEBHOOK_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected neither webhook nor bot token to fail")
	}
}

func TestLoadBotTokenRequiresChannel(t *testing.T) {
	baseValidEnv(t)
	t.Setenv("ALERT_WEBHOOK_URL", "")
	t.Setenv("ALERT_BOT_TOKEN", "xoxb-test")
	if _, err := Load(); err == nil {
		t.Fatal("expected bot-token mode without ALERT_CHANNEL to fail")
	}
	t.Setenv("ALERT_CHANNEL", "C123")
	if _, err := Load(); err != nil {
		t.Fatalf("expected success once ALERT_CHANNEL is set: %v", err)
	}
}

func TestLoadAppliesDefaultIntervals(t *testing.T) {
	baseValidEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CheckIntervalSecs != DefaultCheckIntervalSecs || cfg.SummaryIntervalSecs != DefaultSummaryIntervalSecs {
		t.Fatalf("got intervals %d/%d, want defaults", cfg.CheckIntervalSecs, cfg.SummaryIntervalSecs)
	}
}

func TestLoadParsesCustomIntervals(t *testing.T) {
	baseValidEnv(t)
	t.Setenv("CHECK_INTERVAL_S", "42")
	t.Setenv("SUMMARY_INTERVAL_S", "99")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CheckIntervalSecs != 42 || cfg.SummaryIntervalSecs != 99 {
		t.Fatalf("got %d/%d, want 42/99", cfg.CheckIntervalSecs, cfg.SummaryIntervalSecs)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" U1 , U2,, U3 ")
	want := []string{"U1", "U2", "U3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEnabledDefaultsTrueWithoutOverride(t *testing.T) {
	cfg := &AppConfig{Chains: map[string]ChainOverride{}}
	if !cfg.Enabled(chain.NetworkA, chain.AssetHub) {
		t.Fatal("expected enabled by default")
	}
}

func TestEnabledRespectsExplicitFalse(t *testing.T) {
	disabled := false
	cfg := &AppConfig{Chains: map[string]ChainOverride{
		Key(chain.NetworkA, chain.AssetHub): {Enabled: &disabled},
	}}
	if cfg.Enabled(chain.NetworkA, chain.AssetHub) {
		t.Fatal("expected override to disable the chain")
	}
}

func TestCollatorAddressPerNetwork(t *testing.T) {
	cfg := &AppConfig{CollatorAddressA: "addrA", CollatorAddressB: "addrB"}
	if cfg.CollatorAddress(chain.NetworkA) != "addrA" {
		t.Fatal("wrong address for network A")
	}
	if cfg.CollatorAddress(chain.NetworkB) != "addrB" {
		t.Fatal("wrong address for network B")
	}
}
