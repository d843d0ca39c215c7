// Package config loads collator-sentinel's configuration from environment
// variables plus an optional TOML overlay, grounded on
// _examples/original_source/src/config.rs's AppConfig/ChainConfig shape.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/naoina/toml"
	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleConfig)

const (
	DefaultCheckIntervalSecs   = 3600
	DefaultSummaryIntervalSecs = 21600
)

// ChainOverride is one entry of the config file's [chains."<network>_<chain>"]
// table.
type ChainOverride struct {
	Endpoints []string `toml:"endpoints"`
	Enabled   *bool    `toml:"enabled"`
}

// fileConfig is the shape of the optional TOML overlay.
type fileConfig struct {
	Chains map[string]ChainOverride `toml:"chains"`
}

// AppConfig is fully resolved process configuration: environment variables
// merged with the optional TOML file's chain overrides.
type AppConfig struct {
	CollatorAddressA string // SS58 string, network A
	CollatorAddressB string // SS58 string, network B
	SignerSeed       string

	AlertWebhookURL string
	AlertBotToken   string
	AlertChannel    string

	AlertUserIDsOnChain []string
	AlertUserIDsOps     []string

	CheckIntervalSecs   int
	SummaryIntervalSecs int

	Chains map[string]ChainOverride // key "<network>_<chain>"
}

// Load reads environment variables and an optional config.toml, applying
// documented defaults. A malformed config aborts with
// errs.KindInvalidConfig, which main treats as a fatal startup error.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		CheckIntervalSecs:   DefaultCheckIntervalSecs,
		SummaryIntervalSecs: DefaultSummaryIntervalSecs,
		Chains:              map[string]ChainOverride{},
	}

	// Both addresses are independently mandatory, not a choice of at least
	// one: the original source requires COLLATOR_POLKADOT_COLLATOR_ADDRESS
	// and COLLATOR_KUSAMA_COLLATOR_ADDRESS separately, with no fallback
	// between them.
	cfg.CollatorAddressA = os.Getenv("COLLATOR_ADDRESS_A")
	if cfg.CollatorAddressA == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("COLLATOR_ADDRESS_A is required"))
	}
	cfg.CollatorAddressB = os.Getenv("COLLATOR_ADDRESS_B")
	if cfg.CollatorAddressB == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("COLLATOR_ADDRESS_B is required"))
	}

	cfg.SignerSeed = os.Getenv("SIGNER_SEED")
	if cfg.SignerSeed == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("SIGNER_SEED is required"))
	}

	cfg.AlertWebhookURL = os.Getenv("ALERT_WEBHOOK_URL")
	cfg.AlertBotToken = os.Getenv("ALERT_BOT_TOKEN")
	cfg.AlertChannel = os.Getenv("ALERT_CHANNEL")
	if cfg.AlertWebhookURL == "" && cfg.AlertBotToken == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load",
			fmt.Errorf("one of ALERT_WEBHOOK_URL or ALERT_BOT_TOKEN must be set"))
	}
	if cfg.AlertBotToken != "" && cfg.AlertChannel == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("ALERT_CHANNEL is required in bot-token mode"))
	}

	cfg.AlertUserIDsOnChain = splitAndTrim(os.Getenv("ALERT_USER_IDS_ONCHAIN"))
	cfg.AlertUserIDsOps = splitAndTrim(os.Getenv("ALERT_USER_IDS_OPS"))

	if v := os.Getenv("CHECK_INTERVAL_S"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("CHECK_INTERVAL_S: %w", err))
		}
		cfg.CheckIntervalSecs = n
	}
	if v := os.Getenv("SUMMARY_INTERVAL_S"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("SUMMARY_INTERVAL_S: %w", err))
		}
		cfg.SummaryIntervalSecs = n
	}

	path := os.Getenv("COLLATOR_SENTINEL_CONFIG")
	if path == "" {
		path = "config.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("parsing %s: %w", path, err))
		}
		cfg.Chains = fc.Chains
		logger.Info("loaded chain overrides from config file", "path", path, "count", len(fc.Chains))
	} else if !os.IsNotExist(err) {
		return nil, errs.New(errs.KindInvalidConfig, "config.Load", fmt.Errorf("reading %s: %w", path, err))
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Key renders the "<network>_<chain>" override-table key.
func Key(n chain.Network, c chain.Chain) string {
	return fmt.Sprintf("%s_%s", n, strings.ToLower(c.String()))
}

// Override looks up a chain's configured endpoints/enabled flag, if any.
func (cfg *AppConfig) Override(n chain.Network, c chain.Chain) (ChainOverride, bool) {
	ov, ok := cfg.Chains[Key(n, c)]
	return ov, ok
}

// Enabled reports whether (network, chain) is enabled — true unless the
// override explicitly disables it, matching
// _examples/original_source/src/config.rs's `ChainConfig.enabled` default.
func (cfg *AppConfig) Enabled(n chain.Network, c chain.Chain) bool {
	ov, ok := cfg.Override(n, c)
	if !ok || ov.Enabled == nil {
		return true
	}
	return *ov.Enabled
}

// CollatorAddress returns the configured SS58 address string for a
// network, or "" if unset (a chain on that network is then skipped).
func (cfg *AppConfig) CollatorAddress(n chain.Network) string {
	switch n {
	case chain.NetworkA:
		return cfg.CollatorAddressA
	case chain.NetworkB:
		return cfg.CollatorAddressB
	default:
		return ""
	}
}
