// Package reconcile implements the Reconciler: a periodic, on-demand
// decision engine that reads each chain's collator state and submits
// corrective transactions through the delegated-signing path. Grounded on
// _examples/original_source/src/monitor.rs::monitor_chain_internal.
package reconcile

import (
	"context"
	"fmt"

	"github.com/paritytech/collator-sentinel/alert"
	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/collatorstate"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/signer"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleReconciler)

type OutcomeKind int

const (
	Skipped OutcomeKind = iota
	AlreadyCollator
	UpdatedBond
	RegisteredAsCandidate
	InsufficientFunds
	CannotCompete
	ManualActionRequired
	Error
)

func (k OutcomeKind) String() string {
	switch k {
	case Skipped:
		return "Skipped"
	case AlreadyCollator:
		return "AlreadyCollator"
	case UpdatedBond:
		return "UpdatedBond"
	case RegisteredAsCandidate:
		return "RegisteredAsCandidate"
	case InsufficientFunds:
		return "InsufficientFunds"
	case CannotCompete:
		return "CannotCompete"
	case ManualActionRequired:
		return "ManualActionRequired"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Outcome is the result of reconciling one chain.
type Outcome struct {
	Chain       string
	Kind        OutcomeKind
	Status      types.CollatorStatus
	OldBond     uint64
	NewBond     uint64
	Available   uint64
	Required    uint64
	Lowest      uint64
	Needed      uint64
	TxHash      types.Hash
	Err         error
}

// StateReader is the subset of collatorstate.Reader the Reconciler reads
// from; *collatorstate.Reader satisfies it, and tests can supply a fake
// with no real storage behind it.
type StateReader interface {
	CollatorStatus(ctx context.Context, blockHash types.Hash, who types.Address) (types.CollatorStatus, error)
	FreeBalance(ctx context.Context, blockHash types.Hash, who types.Address) (uint64, error)
	CandidacyBond(ctx context.Context, blockHash types.Hash) (uint64, error)
	Candidates(ctx context.Context, blockHash types.Hash) ([]types.Candidate, error)
}

// Submitter is the subset of the Endpoint Client the Reconciler submits
// extrinsics through; *rpcclient.Client satisfies it.
type Submitter interface {
	SubmitAndWaitFinalized(ctx context.Context, signedExtrinsic []byte) (types.SubmitResult, error)
}

// ChainTarget bundles everything the Reconciler needs to reconcile one
// (network, chain): a live client at the block it should read state from
// (always latest — the Reconciler does not follow the Block Tracker's
// per-block observed hash), its registry facts, and its signer.
type ChainTarget struct {
	Network      chain.Network
	Chain        chain.Chain
	Client       Submitter
	Reader       StateReader
	CollatorAddr types.Address
	Signer       signer.Signer
	ReadOnly     bool // !SupportsDelegatedSigning || config-disabled
	Alerts       *alert.Tracker
	Mentions     []string
	LatestHash   types.Hash
}

// Reconcile decides and, unless the chain is read-only, executes the
// single corrective action (if any) a chain's current collator status
// calls for.
func Reconcile(ctx context.Context, t ChainTarget) Outcome {
	display := chain.DisplayName(t.Network, t.Chain)

	if !chain.Valid(t.Network, t.Chain) {
		return Outcome{Chain: display, Kind: Skipped}
	}

	status, err := t.Reader.CollatorStatus(ctx, t.LatestHash, t.CollatorAddr)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}

	if status.Kind == types.Invulnerable {
		t.Alerts.Resolve(display, alert.ErrorKind, "resolved")
		return Outcome{Chain: display, Kind: AlreadyCollator, Status: status}
	}

	freeBalance, err := t.Reader.FreeBalance(ctx, t.LatestHash, t.CollatorAddr)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}
	reserve := t.Network.Reserve()
	var availableForBond uint64
	if freeBalance > reserve {
		availableForBond = freeBalance - reserve
	}

	candidacyBond, err := t.Reader.CandidacyBond(ctx, t.LatestHash)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}
	candidates, err := t.Reader.Candidates(ctx, t.LatestHash)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}

	symbol, decimals := t.Network.Symbol(), t.Network.Decimals()

	switch status.Kind {
	case types.Candidate:
		return reconcileCandidate(ctx, t, display, status, availableForBond, symbol, decimals)
	default: // NotCollator
		return reconcileNotCollator(ctx, t, display, availableForBond, candidacyBond, candidates, symbol, decimals)
	}
}

func reconcileCandidate(ctx context.Context, t ChainTarget, display string, status types.CollatorStatus, availableForBond uint64, symbol string, decimals uint32) Outcome {
	current := status.Deposit
	newTotal := current + availableForBond

	if availableForBond < t.Network.MinBondIncrease() {
		t.Alerts.Resolve(display, alert.ErrorKind, "resolved")
		return Outcome{Chain: display, Kind: AlreadyCollator, Status: status}
	}

	if t.ReadOnly {
		callData := fmt.Sprintf("update_bond(%d)", newTotal)
		t.Alerts.OpenOrUpdate(display, alert.ManualAction, alert.ManualActionBody(display, callData, t.Mentions))
		return Outcome{Chain: display, Kind: ManualActionRequired, OldBond: current, NewBond: newTotal}
	}

	call := EncodeUpdateBond(newTotal)
	wrapped := signer.DelegatedInvoke(t.CollatorAddr, call)
	signed, err := t.Signer.SignExtrinsic(wrapped)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}
	result, err := t.Client.SubmitAndWaitFinalized(ctx, signed)
	if err != nil || !result.Success {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}

	t.Alerts.PostTerminal(alert.BondUpdateBody(display, current, newTotal, symbol, decimals, result.TxHash.String(), t.Mentions))
	t.Alerts.Resolve(display, alert.ManualAction, "resolved")
	t.Alerts.Resolve(display, alert.ErrorKind, "resolved")
	return Outcome{Chain: display, Kind: UpdatedBond, OldBond: current, NewBond: newTotal, TxHash: result.TxHash}
}

func reconcileNotCollator(ctx context.Context, t ChainTarget, display string, availableForBond, candidacyBond uint64, candidates []types.Candidate, symbol string, decimals uint32) Outcome {
	if availableForBond < candidacyBond {
		t.Alerts.OpenOrUpdate(display, alert.InsufficientFunds, alert.InsufficientFundsBody(display, availableForBond, candidacyBond, symbol, decimals, t.Mentions))
		return Outcome{Chain: display, Kind: InsufficientFunds, Available: availableForBond, Required: candidacyBond}
	}

	lowest, hasLowest := collatorstate.LowestCandidateBond(candidates)
	if hasLowest && availableForBond <= lowest {
		needed := lowest - availableForBond + 1
		t.Alerts.OpenOrUpdate(display, alert.CannotCompete, alert.CannotCompeteBody(display, availableForBond, lowest, needed, symbol, decimals, t.Mentions))
		return Outcome{Chain: display, Kind: CannotCompete, Available: availableForBond, Lowest: lowest, Needed: needed}
	}

	if t.ReadOnly {
		callData := fmt.Sprintf("1. register_as_candidate()\n2. update_bond(%d)", availableForBond)
		t.Alerts.OpenOrUpdate(display, alert.ManualAction, alert.ManualActionBody(display, callData, t.Mentions))
		return Outcome{Chain: display, Kind: ManualActionRequired}
	}

	registerCall := EncodeRegisterAsCandidate()
	wrapped := signer.DelegatedInvoke(t.CollatorAddr, registerCall)
	signed, err := t.Signer.SignExtrinsic(wrapped)
	if err != nil {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}
	result, err := t.Client.SubmitAndWaitFinalized(ctx, signed)
	if err != nil || !result.Success {
		t.Alerts.OpenOrUpdate(display, alert.ErrorKind, alert.ReconciliationErrorBody(display, err, t.Mentions))
		return Outcome{Chain: display, Kind: Error, Err: err}
	}

	// Best-effort bond raise: failure here does not fail the step.
	bondCall := EncodeUpdateBond(availableForBond)
	bondWrapped := signer.DelegatedInvoke(t.CollatorAddr, bondCall)
	if bondSigned, err := t.Signer.SignExtrinsic(bondWrapped); err == nil {
		if _, err := t.Client.SubmitAndWaitFinalized(ctx, bondSigned); err != nil {
			logger.Warn("post-registration bond raise failed, continuing", "chain", display, "err", err)
		}
	}

	t.Alerts.PostTerminal(alert.RegistrationSuccessBody(display, availableForBond, symbol, decimals, result.TxHash.String(), t.Mentions))
	t.Alerts.Resolve(display, alert.InsufficientFunds, "resolved")
	t.Alerts.Resolve(display, alert.CannotCompete, "resolved")
	t.Alerts.Resolve(display, alert.ManualAction, "resolved")
	t.Alerts.Resolve(display, alert.ErrorKind, "resolved")
	return Outcome{Chain: display, Kind: RegisteredAsCandidate, NewBond: availableForBond, TxHash: result.TxHash}
}
