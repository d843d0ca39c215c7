// Package ss58 is a minimal SS58 address codec: base58 with a network
// prefix and a blake2b-derived checksum. No third-party SS58/base58
// library is available, so this is deliberately the one stdlib-heavy
// package in the tree, scoped narrowly to the codec boundary.
package ss58

import (
	"fmt"
	"math/big"

	"github.com/paritytech/collator-sentinel/types"
	"golang.org/x/crypto/blake2b"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var ss58Prefix = []byte("SS58PRE")

// Decode parses an SS58-encoded string into a 32-byte account id,
// verifying its checksum. The network prefix byte only enters the checksum
// and is not returned — this daemon treats every chain's addresses
// uniformly once decoded to raw bytes.
func Decode(s string) (types.Address, error) {
	raw, err := base58Decode(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("ss58: %w", err)
	}
	if len(raw) != 1+32+2 {
		return types.Address{}, fmt.Errorf("ss58: decoded length %d, want 35 (1 prefix + 32 account + 2 checksum)", len(raw))
	}
	body := raw[:33]
	checksum := raw[33:35]
	want := checksumOf(body)
	if checksum[0] != want[0] || checksum[1] != want[1] {
		return types.Address{}, fmt.Errorf("ss58: checksum mismatch")
	}
	var addr types.Address
	copy(addr[:], raw[1:33])
	return addr, nil
}

// Encode renders a 32-byte account id under the given network prefix.
func Encode(addr types.Address, prefix byte) string {
	body := append([]byte{prefix}, addr[:]...)
	checksum := checksumOf(body)
	full := append(body, checksum[0], checksum[1])
	return base58Encode(full)
}

func checksumOf(body []byte) [2]byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Prefix)
	h.Write(body)
	sum := h.Sum(nil)
	var out [2]byte
	copy(out[:], sum[:2])
	return out
}

func base58Encode(input []byte) string {
	x := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	zero := big.NewInt(0)
	mod := new(big.Int)
	var out []byte
	for x.Cmp(zero) > 0 {
		x.DivMod(x, base, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for _, b := range input {
		if b != 0 {
			break
		}
		out = append(out, alphabet[0])
	}
	reverse(out)
	return string(out)
}

func base58Decode(s string) ([]byte, error) {
	x := big.NewInt(0)
	base := big.NewInt(58)
	for _, r := range s {
		idx := indexOf(alphabet, byte(r))
		if idx < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", r)
		}
		x.Mul(x, base)
		x.Add(x, big.NewInt(int64(idx)))
	}
	decoded := x.Bytes()
	leadingZeros := 0
	for _, r := range s {
		if r != rune(alphabet[0]) {
			break
		}
		leadingZeros++
	}
	out := make([]byte, leadingZeros+len(decoded))
	copy(out[leadingZeros:], decoded)
	return out, nil
}

func indexOf(alphabet string, b byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == b {
			return i
		}
	}
	return -1
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
