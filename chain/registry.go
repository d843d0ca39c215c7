// Package chain is the Chain Registry: the static, read-only catalogue
// mapping (Network, Chain) pairs to their key algorithm, default endpoints,
// capability flags, and display metadata.
package chain

import (
	"fmt"

	"github.com/paritytech/collator-sentinel/types"
)

// Network is one of the two tagged variants this daemon understands, with
// constants grounded on _examples/original_source/src/config.rs.
type Network int

const (
	NetworkA Network = iota // "Polkadot" in the original source
	NetworkB                // "Kusama" in the original source
)

func (n Network) String() string {
	switch n {
	case NetworkA:
		return "polkadot"
	case NetworkB:
		return "kusama"
	default:
		return fmt.Sprintf("Network(%d)", int(n))
	}
}

func ParseNetwork(s string) (Network, bool) {
	switch s {
	case "polkadot":
		return NetworkA, true
	case "kusama":
		return NetworkB, true
	default:
		return 0, false
	}
}

// Decimals is the number of base-unit digits for the network's token.
func (n Network) Decimals() uint32 {
	switch n {
	case NetworkA:
		return 10
	case NetworkB:
		return 12
	default:
		return 0
	}
}

func (n Network) Symbol() string {
	switch n {
	case NetworkA:
		return "DOT"
	case NetworkB:
		return "KSM"
	default:
		return "?"
	}
}

// Reserve is the portion of free balance never counted toward available
// bonding capacity, kept as existential-deposit-style headroom above
// whatever the chain itself requires: one whole token (10^decimals) on
// network A and one tenth of a token (10^(decimals-1)) on network B.
func (n Network) Reserve() uint64 {
	switch n {
	case NetworkA:
		return pow10(n.Decimals())
	case NetworkB:
		return pow10(n.Decimals() - 1)
	default:
		return 0
	}
}

// MinBondIncrease is the minimum available-for-bond amount that justifies
// submitting an update_bond transaction for an existing candidate.
func (n Network) MinBondIncrease() uint64 {
	switch n {
	case NetworkA:
		return pow10(9) // 0.1 DOT
	case NetworkB:
		return pow10(10) // 0.01 KSM
	default:
		return 0
	}
}

func pow10(n uint32) uint64 {
	v := uint64(1)
	for i := uint32(0); i < n; i++ {
		v *= 10
	}
	return v
}

// Chain is the tagged variant over the fixed set of system chains this
// daemon watches.
type Chain int

const (
	AssetHub Chain = iota
	BridgeHub
	Collectives
	Coretime
	People
	Encointer
)

func (c Chain) String() string {
	switch c {
	case AssetHub:
		return "AssetHub"
	case BridgeHub:
		return "BridgeHub"
	case Collectives:
		return "Collectives"
	case Coretime:
		return "Coretime"
	case People:
		return "People"
	case Encointer:
		return "Encointer"
	default:
		return fmt.Sprintf("Chain(%d)", int(c))
	}
}

func ParseChain(s string) (Chain, bool) {
	for _, c := range AllChains {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

var AllChains = []Chain{AssetHub, BridgeHub, Collectives, Coretime, People, Encointer}

// descriptor is the registry's per-chain static metadata.
type descriptor struct {
	validNetworks        map[Network]bool
	supportsDelegation   bool
	keyAlgorithm         map[Network]types.KeyAlgorithm // usually uniform, AssetHub differs by network
	defaultEndpoints     map[Network][]string
	subscanBase          map[Network]string
}

// registry holds every descriptor, built once at init and never mutated.
var registry = map[Chain]descriptor{
	AssetHub: {
		validNetworks:      map[Network]bool{NetworkA: true, NetworkB: true},
		supportsDelegation: true,
		// The original source's per-chain generated modules show AssetHub on
		// network A as the sole Ed25519 outlier; every other (network,
		// chain) combination, including AssetHub on network B, uses Sr25519.
		keyAlgorithm: map[Network]types.KeyAlgorithm{NetworkA: types.Ed25519, NetworkB: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkA: {"wss://asset-hub-polkadot-rpc.dwellir.com"},
			NetworkB: {"wss://asset-hub-kusama-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkA: "https://assethub-polkadot.subscan.io",
			NetworkB: "https://assethub-kusama.subscan.io",
		},
	},
	BridgeHub: {
		validNetworks: map[Network]bool{NetworkA: true, NetworkB: true},
		// BridgeHub has no proxy-type granting CollatorSelection access on
		// either network; the registry marks it read-only everywhere.
		supportsDelegation: false,
		keyAlgorithm:       map[Network]types.KeyAlgorithm{NetworkA: types.Sr25519, NetworkB: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkA: {"wss://bridge-hub-polkadot-rpc.dwellir.com"},
			NetworkB: {"wss://bridge-hub-kusama-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkA: "https://bridgehub-polkadot.subscan.io",
			NetworkB: "https://bridgehub-kusama.subscan.io",
		},
	},
	Collectives: {
		validNetworks:      map[Network]bool{NetworkA: true},
		supportsDelegation: true,
		keyAlgorithm:       map[Network]types.KeyAlgorithm{NetworkA: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkA: {"wss://collectives-polkadot-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkA: "https://collectives-polkadot.subscan.io",
		},
	},
	Coretime: {
		validNetworks:      map[Network]bool{NetworkA: true, NetworkB: true},
		supportsDelegation: true,
		keyAlgorithm:       map[Network]types.KeyAlgorithm{NetworkA: types.Sr25519, NetworkB: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkA: {"wss://coretime-polkadot-rpc.dwellir.com"},
			NetworkB: {"wss://coretime-kusama-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkA: "https://coretime-polkadot.subscan.io",
			NetworkB: "https://coretime-kusama.subscan.io",
		},
	},
	People: {
		validNetworks:      map[Network]bool{NetworkA: true, NetworkB: true},
		supportsDelegation: true,
		keyAlgorithm:       map[Network]types.KeyAlgorithm{NetworkA: types.Sr25519, NetworkB: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkA: {"wss://people-polkadot-rpc.dwellir.com"},
			NetworkB: {"wss://people-kusama-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkA: "https://people-polkadot.subscan.io",
			NetworkB: "https://people-kusama.subscan.io",
		},
	},
	Encointer: {
		validNetworks:      map[Network]bool{NetworkB: true},
		supportsDelegation: true,
		keyAlgorithm:       map[Network]types.KeyAlgorithm{NetworkB: types.Sr25519},
		defaultEndpoints: map[Network][]string{
			NetworkB: {"wss://kusama-encointer-rpc.dwellir.com"},
		},
		subscanBase: map[Network]string{
			NetworkB: "https://encointer-kusama.subscan.io",
		},
	},
}

// ErrInvalidPair is returned at registry-build time (via Validate) when
// configuration names a (network, chain) pair the registry does not carry.
type ErrInvalidPair struct {
	Network Network
	Chain   Chain
}

func (e ErrInvalidPair) Error() string {
	return fmt.Sprintf("%s is not valid on %s", e.Chain, e.Network)
}

// ValidNetworks reports which networks a chain is deployed on.
func ValidNetworks(c Chain) []Network {
	d, ok := registry[c]
	if !ok {
		return nil
	}
	var out []Network
	for _, n := range []Network{NetworkA, NetworkB} {
		if d.validNetworks[n] {
			out = append(out, n)
		}
	}
	return out
}

// Valid reports whether (network, chain) is a real deployment.
func Valid(n Network, c Chain) bool {
	d, ok := registry[c]
	return ok && d.validNetworks[n]
}

func SupportsDelegatedSigning(c Chain) bool {
	return registry[c].supportsDelegation
}

func KeyAlgorithmFor(n Network, c Chain) (types.KeyAlgorithm, error) {
	d, ok := registry[c]
	if !ok || !d.validNetworks[n] {
		return 0, ErrInvalidPair{n, c}
	}
	return d.keyAlgorithm[n], nil
}

func DefaultEndpoints(n Network, c Chain) ([]string, error) {
	d, ok := registry[c]
	if !ok || !d.validNetworks[n] {
		return nil, ErrInvalidPair{n, c}
	}
	eps := d.defaultEndpoints[n]
	out := make([]string, len(eps))
	copy(out, eps)
	return out, nil
}

func SubscanBlockURL(n Network, c Chain, blockNumber uint32) string {
	base := registry[c].subscanBase[n]
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/block/%d", base, blockNumber)
}

func DisplayName(n Network, c Chain) string {
	return fmt.Sprintf("%s %s", titleNetwork(n), c)
}

func titleNetwork(n Network) string {
	switch n {
	case NetworkA:
		return "Polkadot"
	case NetworkB:
		return "Kusama"
	default:
		return n.String()
	}
}

// MergeEndpoints applies the endpoint-override rule: a non-empty
// configured list fully replaces the defaults; an empty one leaves the
// defaults standing. Either way the result is deduplicated while
// preserving first-seen order.
func MergeEndpoints(defaults, configured []string) []string {
	src := defaults
	if len(configured) > 0 {
		src = configured
	}
	seen := make(map[string]bool, len(src))
	out := make([]string, 0, len(src))
	for _, u := range src {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
