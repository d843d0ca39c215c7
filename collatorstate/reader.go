// Package collatorstate is the Collator State Reader: reads invulnerables,
// the candidate list, the minimum candidacy bond, desired-candidate count,
// and free balance for a chain's CollatorSelection/System pallets.
package collatorstate

import (
	"context"
	"encoding/binary"
	"sort"

	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/internal/scale"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleCollator)

// StorageKeys are the opaque storage-key byte strings for the
// CollatorSelection/System pallet items this reader consumes. The reader
// does not build them itself; the caller supplies the twox128 prefixes
// (supervisor.readerKeysFor computes them with internal/storagekey).
type StorageKeys struct {
	Invulnerables    []byte
	CandidateList    []byte
	CandidacyBond    []byte
	DesiredCandidates []byte
	// SystemAccountPrefix is concatenated with the raw 32-byte account id
	// to form the key FreeBalance reads; the blake2-128-concat hash that
	// System.Account's map key carries on chain is not applied.
	SystemAccountPrefix []byte
}

// StorageReader is the single capability this reader needs from the
// Endpoint Client; *rpcclient.Client satisfies it, and tests can supply a
// fake without opening a real connection.
type StorageReader interface {
	ReadStorageAt(ctx context.Context, blockHash types.Hash, key []byte) ([]byte, error)
}

type Reader struct {
	client StorageReader
	keys   StorageKeys
}

func New(client StorageReader, keys StorageKeys) *Reader {
	return &Reader{client: client, keys: keys}
}

func (r *Reader) Invulnerables(ctx context.Context, blockHash types.Hash) ([]types.Address, error) {
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.Invulnerables)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeAccountSequence(raw)
}

func (r *Reader) Candidates(ctx context.Context, blockHash types.Hash) ([]types.Candidate, error) {
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.CandidateList)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeCandidateSequence(raw)
}

func (r *Reader) CandidacyBond(ctx context.Context, blockHash types.Hash) (uint64, error) {
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.CandidacyBond)
	if err != nil {
		return 0, err
	}
	return decodeU128Lossy(raw), nil
}

func (r *Reader) DesiredCandidates(ctx context.Context, blockHash types.Hash) (uint32, error) {
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.DesiredCandidates)
	if err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(raw[:4]), nil
}

// FreeBalance returns 0 if the account record is absent rather than
// erroring: an unregistered collator simply has no System.Account entry.
func (r *Reader) FreeBalance(ctx context.Context, blockHash types.Hash, who types.Address) (uint64, error) {
	key := append(append([]byte(nil), r.keys.SystemAccountPrefix...), who[:]...)
	raw, err := r.client.ReadStorageAt(ctx, blockHash, key)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	// AccountInfo{nonce:u32, consumers:u32, providers:u32, sufficients:u32,
	// data:{free:u128, reserved:u128, ...}} — free balance starts 16 bytes
	// into the fixed-width prefix.
	const freeOffset = 16
	if len(raw) < freeOffset+16 {
		return 0, nil
	}
	return decodeU128Lossy(raw[freeOffset : freeOffset+16]), nil
}

// CollatorStatus composes Invulnerables and Candidates into a tagged
// status: invulnerable takes priority, then candidate, then NotCollator.
func (r *Reader) CollatorStatus(ctx context.Context, blockHash types.Hash, who types.Address) (types.CollatorStatus, error) {
	invulnerables, err := r.Invulnerables(ctx, blockHash)
	if err != nil {
		return types.CollatorStatus{}, err
	}
	for _, a := range invulnerables {
		if a == who {
			return types.CollatorStatus{Kind: types.Invulnerable}, nil
		}
	}

	candidates, err := r.Candidates(ctx, blockHash)
	if err != nil {
		return types.CollatorStatus{}, err
	}
	for _, c := range candidates {
		if c.Who == who {
			return types.CollatorStatus{Kind: types.Candidate, Deposit: c.Deposit}, nil
		}
	}

	return types.CollatorStatus{Kind: types.NotCollator}, nil
}

// Position returns who's 1-based rank among candidates sorted by deposit
// descending, filtering out zero-deposit entries.
func Position(candidates []types.Candidate, who types.Address) (pos int, ok bool) {
	ranked := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Deposit > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Deposit > ranked[j].Deposit })
	for i, c := range ranked {
		if c.Who == who {
			return i + 1, true
		}
	}
	return 0, false
}

// LowestCandidateBond returns the smallest positive deposit among
// candidates, used by the Reconciler's CannotCompete branch.
func LowestCandidateBond(candidates []types.Candidate) (lowest uint64, ok bool) {
	for _, c := range candidates {
		if c.Deposit == 0 {
			continue
		}
		if !ok || c.Deposit < lowest {
			lowest = c.Deposit
			ok = true
		}
	}
	return lowest, ok
}

func decodeAccountSequence(raw []byte) ([]types.Address, error) {
	n, offset, ok := scale.DecodeCompactLen(raw)
	if !ok {
		return nil, errShortBuffer
	}
	need := offset + n*32
	if need > len(raw) {
		return nil, errShortBuffer
	}
	out := make([]types.Address, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], raw[offset+i*32:offset+(i+1)*32])
	}
	return out, nil
}

// decodeCandidateSequence decodes a sequence of struct{who: account,
// deposit: u128} entries.
func decodeCandidateSequence(raw []byte) ([]types.Candidate, error) {
	n, offset, ok := scale.DecodeCompactLen(raw)
	if !ok {
		return nil, errShortBuffer
	}
	const entrySize = 32 + 16
	need := offset + n*entrySize
	if need > len(raw) {
		return nil, errShortBuffer
	}
	out := make([]types.Candidate, n)
	for i := 0; i < n; i++ {
		base := offset + i*entrySize
		copy(out[i].Who[:], raw[base:base+32])
		out[i].Deposit = decodeU128Lossy(raw[base+32 : base+48])
	}
	return out, nil
}

// decodeU128Lossy truncates a little-endian u128 to a uint64, sufficient
// for every real balance/bond this daemon deals with; values beyond 2^64
// base units (far more than any system chain's native token supply) would
// overflow, which is an acceptable limitation given no chain here issues
// balances anywhere near that scale.
func decodeU128Lossy(raw []byte) uint64 {
	if len(raw) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(raw[:8])
}

type bufferErr string

func (e bufferErr) Error() string { return string(e) }

const errShortBuffer = bufferErr("storage value shorter than its length prefix claims")
