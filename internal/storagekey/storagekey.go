// Package storagekey builds the fixed storage-key prefixes the resolver and
// collatorstate readers need: twox128(pallet) ++ twox128(item), the same
// two-pass xxHash64 scheme every Substrate runtime uses for its top-level
// storage map. Per-account map-key suffixes (which additionally hash the
// account id itself) stay out of scope, matching resolver.StorageKeys and
// collatorstate.StorageKeys' documented boundary.
package storagekey

import "encoding/binary"

const (
	prime64_1 = 0x9E3779B185EBCA87
	prime64_2 = 0xC2B2AE3D27D4EB4F
	prime64_3 = 0x165667B19E3779F9
	prime64_4 = 0x85EBCA77C2B2AE63
	prime64_5 = 0x27D4EB2F165667C5
)

// xxhash64 computes the canonical 64-bit xxHash of data with the given
// seed, the primitive twox128 runs twice (seed 0 and seed 1) and
// concatenates.
func xxhash64(data []byte, seed uint64) uint64 {
	var h64 uint64
	n := len(data)
	p := 0

	if n >= 32 {
		v1 := seed + prime64_1 + prime64_2
		v2 := seed + prime64_2
		v3 := seed
		v4 := seed - prime64_1

		for ; p+32 <= n; p += 32 {
			v1 = round64(v1, binary.LittleEndian.Uint64(data[p:]))
			v2 = round64(v2, binary.LittleEndian.Uint64(data[p+8:]))
			v3 = round64(v3, binary.LittleEndian.Uint64(data[p+16:]))
			v4 = round64(v4, binary.LittleEndian.Uint64(data[p+24:]))
		}

		h64 = rotl64(v1, 1) + rotl64(v2, 7) + rotl64(v3, 12) + rotl64(v4, 18)
		h64 = mergeRound64(h64, v1)
		h64 = mergeRound64(h64, v2)
		h64 = mergeRound64(h64, v3)
		h64 = mergeRound64(h64, v4)
	} else {
		h64 = seed + prime64_5
	}

	h64 += uint64(n)

	for ; p+8 <= n; p += 8 {
		k1 := round64(0, binary.LittleEndian.Uint64(data[p:]))
		h64 ^= k1
		h64 = rotl64(h64, 27)*prime64_1 + prime64_4
	}
	if p+4 <= n {
		h64 ^= uint64(binary.LittleEndian.Uint32(data[p:])) * prime64_1
		h64 = rotl64(h64, 23)*prime64_2 + prime64_3
		p += 4
	}
	for ; p < n; p++ {
		h64 ^= uint64(data[p]) * prime64_5
		h64 = rotl64(h64, 11) * prime64_1
	}

	h64 ^= h64 >> 33
	h64 *= prime64_2
	h64 ^= h64 >> 29
	h64 *= prime64_3
	h64 ^= h64 >> 32
	return h64
}

func round64(acc, input uint64) uint64 {
	acc += input * prime64_2
	acc = rotl64(acc, 31)
	acc *= prime64_1
	return acc
}

func mergeRound64(acc, val uint64) uint64 {
	val = round64(0, val)
	acc ^= val
	acc = acc*prime64_1 + prime64_4
	return acc
}

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

// Twox128 is Substrate's twox_128: two xxHash64 passes over data, seeded 0
// and 1, each written little-endian and concatenated into 16 bytes.
func Twox128(data []byte) [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], xxhash64(data, 0))
	binary.LittleEndian.PutUint64(out[8:16], xxhash64(data, 1))
	return out
}

// Prefix builds a pallet storage map's fixed 32-byte key prefix:
// twox128(pallet) ++ twox128(item). This is everything ReadStorageAt needs
// for a plain value item (CandidacyBond, DesiredCandidates, ...); map items
// (System.Account, Session.KeyOwner) additionally need a hashed map-key
// suffix appended by the caller.
func Prefix(pallet, item string) []byte {
	ph := Twox128([]byte(pallet))
	ih := Twox128([]byte(item))
	out := make([]byte, 0, 32)
	out = append(out, ph[:]...)
	out = append(out, ih[:]...)
	return out
}
