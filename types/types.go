// Package types holds the value types shared across collator-sentinel's
// packages: account/block identifiers and the small set of tagged variants
// that describe a collator's on-chain standing.
package types

import (
	"encoding/hex"
	"fmt"
)

// Address is a 32-byte Substrate account id (the public-key form, not the
// SS58-encoded string form).
type Address [32]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Hash is a 32-byte block or storage hash.
type Hash [32]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// KeyAlgorithm is the signature scheme a chain's consensus authorities sign
// with. It is a property of the (network, chain) pair: the same chain can
// use a different algorithm on each network.
type KeyAlgorithm int

const (
	Ed25519 KeyAlgorithm = iota
	Sr25519
)

func (k KeyAlgorithm) String() string {
	switch k {
	case Ed25519:
		return "ed25519"
	case Sr25519:
		return "sr25519"
	default:
		return fmt.Sprintf("KeyAlgorithm(%d)", int(k))
	}
}

// CollatorStatus is the on-chain standing of a single account, as read
// directly from storage.
type CollatorStatus struct {
	Kind    CollatorStatusKind
	Deposit uint64 // valid only when Kind == Candidate; base units
}

type CollatorStatusKind int

const (
	Invulnerable CollatorStatusKind = iota
	Candidate
	NotCollator
)

func (s CollatorStatus) String() string {
	switch s.Kind {
	case Invulnerable:
		return "Invulnerable"
	case Candidate:
		return fmt.Sprintf("Candidate{deposit=%d}", s.Deposit)
	case NotCollator:
		return "NotCollator"
	default:
		return "Unknown"
	}
}

// TrackedStatus mirrors CollatorStatus but adds the Unknown arm used as the
// initial value before a Block Tracker has made its first observation.
// Transitions out of Unknown must never raise a status-change alert.
type TrackedStatus struct {
	Kind    TrackedStatusKind
	Deposit uint64
}

type TrackedStatusKind int

const (
	StatusUnknown TrackedStatusKind = iota
	StatusInvulnerable
	StatusCandidate
	StatusNotCollator
)

func FromCollatorStatus(s CollatorStatus) TrackedStatus {
	switch s.Kind {
	case Invulnerable:
		return TrackedStatus{Kind: StatusInvulnerable}
	case Candidate:
		return TrackedStatus{Kind: StatusCandidate, Deposit: s.Deposit}
	default:
		return TrackedStatus{Kind: StatusNotCollator}
	}
}

func (s TrackedStatus) String() string {
	switch s.Kind {
	case StatusInvulnerable:
		return "Invulnerable"
	case StatusCandidate:
		return fmt.Sprintf("Candidate{deposit=%d}", s.Deposit)
	case StatusNotCollator:
		return "NotCollator"
	default:
		return "Unknown"
	}
}

// Candidate is one entry of the on-chain candidate list.
type Candidate struct {
	Who     Address
	Deposit uint64
}

// DigestItem is one pre-runtime digest log entry carried by a block header.
type DigestItem struct {
	EngineID [4]byte
	Payload  []byte
}

// Block is the shape the Endpoint Client hands to callers for every
// finalized block delivered over a subscription.
type Block struct {
	Number     uint32
	Hash       Hash
	ParentHash Hash
	Digest     []DigestItem
}

// SubmitResult is returned once a submitted extrinsic is observed included
// in a finalized block.
type SubmitResult struct {
	TxHash      Hash
	BlockHash   Hash
	BlockNumber uint32
	Success     bool
}
