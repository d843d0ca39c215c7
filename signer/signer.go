// Package signer is the seed-parsing and delegated-signing capability:
// parsing a hex seed, BIP-39 mnemonic, or derivation URI into keyed
// material, and wrapping every call through the Proxy pallet's
// non-transfer scope so the daemon's key can never move funds.
package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ChainSafe/go-schnorrkel"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/types"
)

// Signer is an opaque signing capability: collator-sentinel never
// constructs extrinsic encodings beyond call-index + SCALE args, so the
// interface stays narrow.
type Signer interface {
	Address() types.Address
	Algorithm() types.KeyAlgorithm
	SignExtrinsic(callBytes []byte) ([]byte, error)
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	addr types.Address
}

func (s *ed25519Signer) Address() types.Address          { return s.addr }
func (s *ed25519Signer) Algorithm() types.KeyAlgorithm    { return types.Ed25519 }
func (s *ed25519Signer) SignExtrinsic(call []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, call), nil
}

type sr25519Signer struct {
	priv *schnorrkel.MiniSecretKey
	addr types.Address
}

func (s *sr25519Signer) Address() types.Address       { return s.addr }
func (s *sr25519Signer) Algorithm() types.KeyAlgorithm { return types.Sr25519 }

func (s *sr25519Signer) SignExtrinsic(call []byte) ([]byte, error) {
	kp := s.priv.ExpandEd25519()
	transcript := schnorrkel.NewSigningContext([]byte("substrate"), call)
	sig, err := kp.Sign(transcript)
	if err != nil {
		return nil, errs.New(errs.KindSubmitFailed, "signer.SignExtrinsic", err)
	}
	out := sig.Encode()
	return out[:], nil
}

// Parse handles three seed forms: a 0x-prefixed 32-byte hex seed, a
// whitespace-separated BIP-39 mnemonic, or a /-prefixed single-level
// derivation URI, grounded on
// _examples/original_source/src/monitor.rs::parse_seed.
func Parse(seed string, algo types.KeyAlgorithm) (Signer, error) {
	trimmed := strings.TrimSpace(seed)
	switch {
	case strings.HasPrefix(trimmed, "0x"):
		return parseHexSeed(trimmed, algo)
	case strings.ContainsAny(trimmed, " \t\n"):
		return parseMnemonic(trimmed, algo)
	case strings.HasPrefix(trimmed, "/"):
		return parseDerivationURI(trimmed, algo)
	default:
		return nil, errs.New(errs.KindInvalidConfig, "signer.Parse",
			fmt.Errorf("seed %q is neither 0x-hex, a mnemonic, nor a /-prefixed derivation URI", redact(trimmed)))
	}
}

func parseHexSeed(s string, algo types.KeyAlgorithm) (Signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseHexSeed", err)
	}
	if len(raw) != 32 {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseHexSeed",
			fmt.Errorf("hex seed must decode to exactly 32 bytes, got %d", len(raw)))
	}
	return fromSeed(raw, algo)
}

func parseMnemonic(phrase string, algo types.KeyAlgorithm) (Signer, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseMnemonic", fmt.Errorf("invalid BIP-39 mnemonic"))
	}
	entropy, err := bip39.EntropyFromMnemonic(phrase)
	if err != nil {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseMnemonic", err)
	}
	seed := bip39.NewSeed(phrase, "")
	_ = entropy
	if len(seed) < 32 {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseMnemonic", fmt.Errorf("derived seed too short"))
	}
	return fromSeed(seed[:32], algo)
}

// parseDerivationURI takes the first path segment after the leading slash
// and uses its bytes, zero-padded (or cut) to 32, directly as the seed. No
// key derivation is applied to any base seed, and later segments are
// ignored; multi-segment derivation chains (as subxt_signer::SecretUri
// supports) are not implemented.
func parseDerivationURI(uri string, algo types.KeyAlgorithm) (Signer, error) {
	parts := strings.SplitN(strings.TrimPrefix(uri, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return nil, errs.New(errs.KindInvalidConfig, "signer.parseDerivationURI", fmt.Errorf("empty derivation path"))
	}
	junction := []byte(parts[0])
	seed := make([]byte, 32)
	copy(seed, junction)
	return fromSeed(seed, algo)
}

func fromSeed(seed []byte, algo types.KeyAlgorithm) (Signer, error) {
	switch algo {
	case types.Ed25519:
		priv := ed25519.NewKeyFromSeed(seed)
		pub := priv.Public().(ed25519.PublicKey)
		var addr types.Address
		copy(addr[:], pub)
		return &ed25519Signer{priv: priv, addr: addr}, nil
	case types.Sr25519:
		var seed32 [32]byte
		copy(seed32[:], seed)
		msk, err := schnorrkel.NewMiniSecretKeyFromRaw(seed32)
		if err != nil {
			return nil, errs.New(errs.KindInvalidConfig, "signer.fromSeed", err)
		}
		pub := msk.Public()
		encoded := pub.Encode()
		var addr types.Address
		copy(addr[:], encoded[:])
		return &sr25519Signer{priv: msk, addr: addr}, nil
	default:
		return nil, errs.New(errs.KindInvalidConfig, "signer.fromSeed", fmt.Errorf("unknown key algorithm %v", algo))
	}
}

// DelegatedInvoke wraps an inner call in the Proxy pallet's "proxy" call
// shape, scoped to the NonTransfer proxy type, so the daemon's key can only
// ever act through a proxy grant that excludes balance transfers: a
// compromised signer seed cannot move the collator's funds. The wire
// format is [call-index(2)][target account(32)][proxy-type variant(1)]
// [inner call bytes].
func DelegatedInvoke(target types.Address, inner []byte) []byte {
	const proxyCallIndex0, proxyCallIndex1 = 0x1e, 0x00 // Proxy.proxy, pallet-index placeholder
	const nonTransferVariant = 0x01

	out := make([]byte, 0, 2+32+1+1+len(inner))
	out = append(out, proxyCallIndex0, proxyCallIndex1)
	out = append(out, target[:]...)
	out = append(out, nonTransferVariant)
	out = append(out, inner...)
	return out
}

func redact(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}
