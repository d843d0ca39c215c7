// Package tracker implements the Block Tracker: one long-lived task per
// valid (network, chain), owning the reconnection state machine, finalized
// block consumption, and the Status-Change Detector. Grounded on
// _examples/original_source/src/block_tracker.rs.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/paritytech/collator-sentinel/alert"
	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/collatorstate"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/resolver"
	"github.com/paritytech/collator-sentinel/rpcclient"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleTracker)

const (
	connectFailBackoff = 30 * time.Second
	streamBreakBackoff = 5 * time.Second
	blockGapThreshold  = 30 * time.Minute
	blockGapCheckEvery = 30 * time.Minute
)

// LastBlockInfo is the per-chain tracking record. It is owned exclusively
// by the tracker task that created it; other tasks read it through the
// RWMutex-guarded accessor below.
type LastBlockInfo struct {
	LastAuthored  *time.Time
	TrackingSince time.Time
	IsConnected   bool
	LastError     string
}

// Deps bundles the per-chain collaborators a Tracker needs, assembled by
// the Supervisor at startup from the Chain Registry.
type Deps struct {
	Network       chain.Network
	Chain         chain.Chain
	Endpoints     []string
	CollatorAddr  types.Address
	ResolverKeys  resolver.StorageKeys
	ReaderKeys    collatorstate.StorageKeys
	KeyAlgorithm  types.KeyAlgorithm
	Alerts        *alert.Tracker
	Symbol        string
	Decimals      uint32
}

// Tracker is one (network, chain)'s Block Tracker.
type Tracker struct {
	deps Deps

	mu       sync.RWMutex
	info     LastBlockInfo
	tracked  types.TrackedStatus

	shutdown *int32 // shared with Supervisor; 0 = running, 1 = shutting down
}

func New(deps Deps, shutdown *int32) *Tracker {
	return &Tracker{
		deps:     deps,
		tracked:  types.TrackedStatus{Kind: types.StatusUnknown},
		shutdown: shutdown,
	}
}

func (t *Tracker) chainDisplay() string {
	return chain.DisplayName(t.deps.Network, t.deps.Chain)
}

// Info returns a copy of the tracker's current LastBlockInfo, safe for
// concurrent reads by the Supervisor (summary) and Reconciler.
func (t *Tracker) Info() LastBlockInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info
}

func (t *Tracker) TrackedStatus() types.TrackedStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracked
}

func (t *Tracker) isShutdown() bool {
	return loadFlag(t.shutdown)
}

// Run is the outer reconnection state machine: Connecting -> Streaming ->
// Broken -> Connecting, exiting only when the shared shutdown flag is set.
func (t *Tracker) Run(ctx context.Context) {
	t.mu.Lock()
	t.info.TrackingSince = time.Now()
	t.mu.Unlock()

	for !t.isShutdown() {
		client, fallbackIdx, err := t.connectAny(ctx)
		if err != nil {
			t.markDisconnected(err.Error())
			t.deps.Alerts.OpenOrUpdate(t.chainDisplay(), alert.Disconnected, alert.DisconnectedBody(t.chainDisplay()))
			sleepOrShutdown(connectFailBackoff, t.shutdown)
			continue
		}
		if fallbackIdx > 0 {
			logger.Info("connected to fallback endpoint", "chain", t.chainDisplay(), "index", fallbackIdx)
		}

		sub, err := client.SubscribeFinalizedHeads(ctx)
		if err != nil {
			client.Close()
			logger.Warn("subscribe failed", "chain", t.chainDisplay(), "err", err)
			sleepOrShutdown(streamBreakBackoff, t.shutdown)
			continue
		}

		t.stream(ctx, client, sub)
		client.Close()
		if t.isShutdown() {
			return
		}
		sleepOrShutdown(streamBreakBackoff, t.shutdown)
	}
}

func (t *Tracker) connectAny(ctx context.Context) (*rpcclient.Client, int, error) {
	var lastErr error
	for i, url := range t.deps.Endpoints {
		client, err := rpcclient.Connect(ctx, url)
		if err == nil {
			return client, i, nil
		}
		lastErr = err
		logger.Debug("endpoint connect failed", "chain", t.chainDisplay(), "url", url, "err", err)
	}
	return nil, 0, lastErr
}

func (t *Tracker) markDisconnected(lastErr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.info.IsConnected = false
	t.info.LastError = lastErr
}

func (t *Tracker) markConnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasConnected := t.info.IsConnected
	t.info.IsConnected = true
	t.info.LastError = ""
	_ = wasConnected
}

// stream runs the Streaming state: for each block, record connectivity,
// resolve the author, evaluate block-gap policy every 30 minutes, and run
// the status-change detector. It returns when the subscription ends
// (error or clean close) or the shutdown flag is observed.
func (t *Tracker) stream(ctx context.Context, client *rpcclient.Client, sub *rpcclient.Subscription) {
	res := resolver.New(client, t.deps.ResolverKeys, t.deps.KeyAlgorithm)
	reader := collatorstate.New(client, t.deps.ReaderKeys)

	firstBlock := true
	var lastGapCheck time.Time

	for item := range sub.C(ctx) {
		if t.isShutdown() {
			return
		}
		if item.Err != nil {
			logger.Warn("stream item error", "chain", t.chainDisplay(), "err", item.Err)
			return // Broken: caller sleeps 5s and re-walks the endpoint list
		}

		blk := item.Block
		wasOpen := t.deps.Alerts.HasOpen(t.chainDisplay(), alert.Disconnected)
		t.markConnected()
		if wasOpen {
			t.deps.Alerts.Resolve(t.chainDisplay(), alert.Disconnected, alert.ReconnectedBody(t.chainDisplay(), 0))
		}

		if author, ok := res.Resolve(ctx, blk.Hash); ok && author == t.deps.CollatorAddr {
			now := time.Now()
			t.mu.Lock()
			t.info.LastAuthored = &now
			t.mu.Unlock()
			t.deps.Alerts.Resolve(t.chainDisplay(), alert.BlockGap, alert.BlockGapResolvedBody(t.chainDisplay()))
		}

		if firstBlock {
			lastGapCheck = time.Now()
			firstBlock = false
		}
		if time.Since(lastGapCheck) >= blockGapCheckEvery {
			lastGapCheck = time.Now()
			t.checkBlockGap()
		}

		t.checkStatusChange(ctx, reader, blk)
	}
}

func (t *Tracker) checkBlockGap() {
	info := t.Info()
	var gap time.Duration
	var stale bool
	if info.LastAuthored != nil {
		gap = time.Since(*info.LastAuthored)
		stale = gap >= blockGapThreshold
	} else {
		gap = time.Since(info.TrackingSince)
		stale = gap >= blockGapThreshold
	}
	if stale {
		t.deps.Alerts.OpenOrUpdate(t.chainDisplay(), alert.BlockGap, alert.BlockGapBody(t.chainDisplay(), gap))
	}
}

// checkStatusChange implements the Status-Change Detector, reading status
// at the block's own hash rather than "latest" so a rapid double-transition
// never gets collapsed into a single observation.
func (t *Tracker) checkStatusChange(ctx context.Context, reader *collatorstate.Reader, blk types.Block) {
	status, err := reader.CollatorStatus(ctx, blk.Hash, t.deps.CollatorAddr)
	if err != nil {
		logger.Debug("status read failed", "chain", t.chainDisplay(), "err", err)
		return
	}
	next := types.FromCollatorStatus(status)

	t.mu.Lock()
	prev := t.tracked
	t.tracked = next
	t.mu.Unlock()

	if prev.Kind == types.StatusUnknown {
		return // silent: first observation
	}
	if prev.Kind == next.Kind && prev.Deposit == next.Deposit {
		return
	}

	switch {
	case (prev.Kind == types.StatusInvulnerable || prev.Kind == types.StatusCandidate) && next.Kind == types.StatusNotCollator:
		url := chain.SubscanBlockURL(t.deps.Network, t.deps.Chain, blk.Number)
		body := alert.StatusChangeBody(t.chainDisplay(), prev.String(), next.String(), blk.Number, url)
		t.deps.Alerts.PostTerminal(body)
		logger.Error("collator removed", "chain", t.chainDisplay(), "block", blk.Number)
	case prev.Kind == types.StatusInvulnerable && next.Kind == types.StatusCandidate:
		t.deps.Alerts.PostTerminal(alert.DemotedBody(t.chainDisplay(), next.Deposit, t.deps.Symbol, t.deps.Decimals))
		logger.Warn("demoted from invulnerable to candidate", "chain", t.chainDisplay())
	case prev.Kind == types.StatusNotCollator && (next.Kind == types.StatusCandidate || next.Kind == types.StatusInvulnerable):
		logger.Info("collator registered", "chain", t.chainDisplay(), "status", next.String())
	default:
		logger.Debug("status change", "chain", t.chainDisplay(), "from", prev.String(), "to", next.String())
	}
}

func sleepOrShutdown(d time.Duration, shutdown *int32) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if loadFlag(shutdown) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
