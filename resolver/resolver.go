// Package resolver implements the Typed Author Resolver: a single generic
// resolver parameterized by key algorithm, replacing the N near-identical
// per-chain generated modules the original source carried.
package resolver

import (
	"context"
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/internal/scale"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleResolver)

// storage keys. These are fixed twox128("Aura")++twox128("CurrentSlot")
// style keys in a real runtime; this resolver treats them as opaque byte
// strings supplied by the chain registry glue rather than deriving them
// from on-chain metadata.
type StorageKeys struct {
	CurrentSlot []byte
	Authorities []byte
	// KeyOwnerPrefix is concatenated with the 32-byte key to form the
	// Session.KeyOwner(("aura", key)) storage key.
	KeyOwnerPrefix []byte
}

// StorageReader is the single capability Resolve needs from the Endpoint
// Client; *rpcclient.Client satisfies it, and tests can supply a fake
// without opening a real connection.
type StorageReader interface {
	ReadStorageAt(ctx context.Context, blockHash types.Hash, key []byte) ([]byte, error)
}

// Resolver resolves a block's author account, generic over the chain's key
// algorithm (fixed-size keys either way: 32 bytes for both Ed25519 and
// Sr25519).
type Resolver struct {
	client StorageReader
	keys   StorageKeys
	algo   types.KeyAlgorithm

	authorityCache *lru.Cache // block hash -> [][32]byte
	keyOwnerCache  *lru.Cache // (algo,key) -> types.Address
}

func New(client StorageReader, keys StorageKeys, algo types.KeyAlgorithm) *Resolver {
	authCache, _ := lru.New(64)
	ownerCache, _ := lru.New(4096)
	return &Resolver{
		client:         client,
		keys:           keys,
		algo:           algo,
		authorityCache: authCache,
		keyOwnerCache:  ownerCache,
	}
}

// Resolve reads slot and authorities at the same block hash, computes
// index = slot mod len(authorities), and looks up the owning account via
// the key-ownership table. Failure at any step yields (Address{}, false)
// rather than an error: a resolution miss on one block should never stop
// the tracker loop.
func (r *Resolver) Resolve(ctx context.Context, blockHash types.Hash) (types.Address, bool) {
	slot, ok := r.readSlot(ctx, blockHash)
	if !ok {
		logger.Debug("no slot at block", "hash", blockHash)
		return types.Address{}, false
	}

	authorities, ok := r.readAuthorities(ctx, blockHash)
	if !ok || len(authorities) == 0 {
		logger.Debug("no authorities at block", "hash", blockHash)
		return types.Address{}, false
	}

	idx := int(slot % uint64(len(authorities)))
	authorKey := authorities[idx]

	owner, ok := r.keyOwner(ctx, blockHash, authorKey)
	if !ok {
		logger.Debug("unresolved key owner", "key", authorKey)
		return types.Address{}, false
	}
	return owner, true
}

func (r *Resolver) readSlot(ctx context.Context, blockHash types.Hash) (uint64, bool) {
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.CurrentSlot)
	if err != nil || raw == nil {
		return 0, false
	}
	return decodeU64(raw)
}

func (r *Resolver) readAuthorities(ctx context.Context, blockHash types.Hash) ([][32]byte, bool) {
	if cached, ok := r.authorityCache.Get(blockHash); ok {
		return cached.([][32]byte), true
	}
	raw, err := r.client.ReadStorageAt(ctx, blockHash, r.keys.Authorities)
	if err != nil || raw == nil {
		return nil, false
	}
	authorities, ok := decodeAuthoritySequence(raw)
	if !ok {
		return nil, false
	}
	r.authorityCache.Add(blockHash, authorities)
	return authorities, true
}

type ownerKey struct {
	algo types.KeyAlgorithm
	key  [32]byte
}

func (r *Resolver) keyOwner(ctx context.Context, blockHash types.Hash, key [32]byte) (types.Address, bool) {
	ck := ownerKey{algo: r.algo, key: key}
	if cached, ok := r.keyOwnerCache.Get(ck); ok {
		return cached.(types.Address), true
	}
	storageKey := append(append([]byte(nil), r.keys.KeyOwnerPrefix...), key[:]...)
	raw, err := r.client.ReadStorageAt(ctx, blockHash, storageKey)
	if err != nil || raw == nil || len(raw) < 32 {
		return types.Address{}, false
	}
	var addr types.Address
	copy(addr[:], raw[:32])
	r.keyOwnerCache.Add(ck, addr)
	return addr, true
}

func decodeU64(raw []byte) (uint64, bool) {
	if len(raw) < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(raw[:8]), true
}

// decodeAuthoritySequence decodes a SCALE-compact-length-prefixed sequence
// of fixed-32-byte keys. Anything that doesn't fit that shape is rejected
// rather than silently parsed as empty.
func decodeAuthoritySequence(raw []byte) ([][32]byte, bool) {
	n, offset, ok := scale.DecodeCompactLen(raw)
	if !ok {
		return nil, false
	}
	need := offset + n*32
	if need > len(raw) {
		return nil, false
	}
	out := make([][32]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], raw[offset+i*32:offset+(i+1)*32])
	}
	return out, true
}
