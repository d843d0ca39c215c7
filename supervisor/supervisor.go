// Package supervisor wires together the Chain Registry, Alert Tracker,
// one Block Tracker per valid (network, chain), and the periodic
// Reconciler loop, and owns graceful shutdown. Grounded on
// _examples/jeongkyun-oh-klaytn/cmd/utils/cmd.go's StartNode signal
// handling, generalized from a single node process to a fleet of
// per-chain tasks sharing one shutdown flag.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paritytech/collator-sentinel/alert"
	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/collatorstate"
	"github.com/paritytech/collator-sentinel/internal/config"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/internal/storagekey"
	"github.com/paritytech/collator-sentinel/reconcile"
	"github.com/paritytech/collator-sentinel/resolver"
	"github.com/paritytech/collator-sentinel/rpcclient"
	"github.com/paritytech/collator-sentinel/signer"
	"github.com/paritytech/collator-sentinel/tracker"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleSupervisor)

// startupGrace is how long freshly spawned Block Trackers get to reach
// Streaming before the initial summary is posted.
const startupGrace = 10 * time.Second

// botAPIBaseURL is the bot-token transport's API root; overriding it is
// not exposed via config since every deployment to date targets Slack.
const botAPIBaseURL = "https://slack.com/api"

// chainEntry is everything the Supervisor tracks per valid, enabled
// (network, chain): its display name, its tracker, whether it is read-only
// (cannot accept delegated signing), and who its issue alerts mention.
type chainEntry struct {
	network  chain.Network
	chain    chain.Chain
	display  string
	tracker  *tracker.Tracker
	readOnly bool
	mentions []string
}

// Supervisor is the top-level daemon process.
type Supervisor struct {
	cfg    *config.AppConfig
	alerts *alert.Tracker

	// signers holds one signer per key algorithm, both derived from the
	// single configured seed: a chain's required algorithm (per the Chain
	// Registry) picks which one reconciliation uses.
	signers map[types.KeyAlgorithm]signer.Signer

	entries  []*chainEntry
	shutdown int32

	wg sync.WaitGroup
}

// New builds a Supervisor from configuration: constructs the alert
// transport, parses the signing seed once per key algorithm (Ed25519 and
// Sr25519, both always), and builds one chainEntry (with its own Tracker) per valid
// (network, chain) pair that isn't explicitly disabled.
func New(cfg *config.AppConfig) (*Supervisor, error) {
	var transport alert.Transport
	if cfg.AlertWebhookURL != "" {
		transport = alert.NewWebhookTransport(cfg.AlertWebhookURL)
	} else {
		transport = alert.NewBotTransport(botAPIBaseURL, cfg.AlertBotToken)
	}
	alerts := alert.New(transport, cfg.AlertChannel)

	s := &Supervisor{cfg: cfg, alerts: alerts}

	for _, network := range []chain.Network{chain.NetworkA, chain.NetworkB} {
		addrStr := cfg.CollatorAddress(network)
		if addrStr == "" {
			logger.Info("network has no configured collator address, skipping", "network", network)
			continue
		}
		collatorAddr, err := parseCollatorAddress(addrStr)
		if err != nil {
			return nil, err
		}

		for _, c := range chain.AllChains {
			if !chain.Valid(network, c) {
				continue
			}
			if !cfg.Enabled(network, c) {
				logger.Info("chain disabled by config", "network", network, "chain", c)
				continue
			}

			ov, _ := cfg.Override(network, c)
			defaults, _ := chain.DefaultEndpoints(network, c)
			endpoints := chain.MergeEndpoints(defaults, ov.Endpoints)
			algo, _ := chain.KeyAlgorithmFor(network, c)

			entry := &chainEntry{
				network:  network,
				chain:    c,
				display:  chain.DisplayName(network, c),
				readOnly: !chain.SupportsDelegatedSigning(c),
				mentions: cfg.AlertUserIDsOps,
			}

			deps := tracker.Deps{
				Network:      network,
				Chain:        c,
				Endpoints:    endpoints,
				CollatorAddr: collatorAddr,
				ResolverKeys: resolverKeysFor(network, c),
				ReaderKeys:   readerKeysFor(network, c),
				KeyAlgorithm: algo,
				Alerts:       alerts,
				Symbol:       network.Symbol(),
				Decimals:     network.Decimals(),
			}
			entry.tracker = tracker.New(deps, &s.shutdown)
			s.entries = append(s.entries, entry)
		}
	}

	s.signers = make(map[types.KeyAlgorithm]signer.Signer, 2)
	for _, algo := range []types.KeyAlgorithm{types.Ed25519, types.Sr25519} {
		sg, err := signer.Parse(cfg.SignerSeed, algo)
		if err != nil {
			return nil, err
		}
		s.signers[algo] = sg
	}

	return s, nil
}

func parseCollatorAddress(s string) (types.Address, error) {
	return ss58DecodeOrHex(s)
}

// Run starts every chain's Block Tracker, waits the startup grace period,
// posts an initial summary, then loops: sleep check_interval, reconcile
// every chain, periodically post a fresh summary. It blocks until
// shutdown is requested (via Shutdown or an OS signal caught by main) and
// every Tracker goroutine has exited.
func (s *Supervisor) Run(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go func(e *chainEntry) {
			defer s.wg.Done()
			e.tracker.Run(ctx)
		}(e)
	}

	time.Sleep(startupGrace)
	s.postSummary(ctx)

	checkInterval := time.Duration(s.cfg.CheckIntervalSecs) * time.Second
	summaryInterval := time.Duration(s.cfg.SummaryIntervalSecs) * time.Second
	lastSummary := time.Now()

	for !s.isShutdown() {
		s.sleepOrShutdown(checkInterval)
		if s.isShutdown() {
			break
		}
		s.reconcileAll(ctx)
		if time.Since(lastSummary) >= summaryInterval {
			s.postSummary(ctx)
			lastSummary = time.Now()
		}
	}

	s.wg.Wait()
}

// RunOnce runs a single reconciliation pass over every configured chain
// and returns an error if any chain's outcome was reconcile.Error, so the
// CLI's check subcommand can exit non-zero on a real failure.
func (s *Supervisor) RunOnce(ctx context.Context) error {
	var failed []string
	for _, e := range s.entries {
		outcome := s.reconcileOne(ctx, e)
		logger.Info("reconcile", "chain", e.display, "outcome", outcome.Kind.String())
		if outcome.Kind == reconcile.Error {
			failed = append(failed, fmt.Sprintf("%s: %v", e.display, outcome.Err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d chain(s) failed to reconcile: %v", len(failed), failed)
	}
	return nil
}

// PrintStatus connects to every configured chain once, reads its current
// collator status, and writes a human-readable line per chain.
func (s *Supervisor) PrintStatus(ctx context.Context, w io.Writer) error {
	for _, e := range s.entries {
		client, _, err := connectAny(ctx, e)
		if err != nil {
			fmt.Fprintf(w, "%s: connect failed: %v\n", e.display, err)
			continue
		}
		latest, err := client.GetFinalizedHead(ctx)
		if err != nil {
			fmt.Fprintf(w, "%s: read failed: %v\n", e.display, err)
			client.Close()
			continue
		}
		who, err := parseCollatorAddress(s.cfg.CollatorAddress(e.network))
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", e.display, err)
			client.Close()
			continue
		}
		reader := collatorstate.New(client, readerKeysFor(e.network, e.chain))
		status, err := reader.CollatorStatus(ctx, latest, who)
		client.Close()
		if err != nil {
			fmt.Fprintf(w, "%s: status read failed: %v\n", e.display, err)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", e.display, describeStatus(status, e.network))
	}
	return nil
}

func describeStatus(status types.CollatorStatus, n chain.Network) string {
	switch status.Kind {
	case types.Invulnerable:
		return "invulnerable"
	case types.Candidate:
		return fmt.Sprintf("candidate, deposit %s %s", alert.FormatBalance(status.Deposit, n.Decimals()), n.Symbol())
	default:
		return "not a collator"
	}
}

// Shutdown requests a graceful stop; safe to call from a signal handler.
func (s *Supervisor) Shutdown() {
	atomic.StoreInt32(&s.shutdown, 1)
}

func (s *Supervisor) isShutdown() bool {
	return atomic.LoadInt32(&s.shutdown) != 0
}

func (s *Supervisor) sleepOrShutdown(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if s.isShutdown() {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// reconcileAll runs the Reconciler against every chain's latest state,
// each over its own short-lived connection (distinct from the Block
// Tracker's long-lived streaming connection).
func (s *Supervisor) reconcileAll(ctx context.Context) {
	for _, e := range s.entries {
		outcome := s.reconcileOne(ctx, e)
		logger.Info("reconcile", "chain", e.display, "outcome", outcome.Kind.String())
	}
}

func (s *Supervisor) reconcileOne(ctx context.Context, e *chainEntry) reconcile.Outcome {
	client, _, err := connectAny(ctx, e)
	if err != nil {
		s.alerts.OpenOrUpdate(e.display, alert.ErrorKind, alert.ReconciliationErrorBody(e.display, err, e.mentions))
		return reconcile.Outcome{Chain: e.display, Kind: reconcile.Error, Err: err}
	}
	defer client.Close()

	latest, err := client.GetFinalizedHead(ctx)
	if err != nil {
		s.alerts.OpenOrUpdate(e.display, alert.ErrorKind, alert.ReconciliationErrorBody(e.display, err, e.mentions))
		return reconcile.Outcome{Chain: e.display, Kind: reconcile.Error, Err: err}
	}

	algo, err := chain.KeyAlgorithmFor(e.network, e.chain)
	if err != nil {
		s.alerts.OpenOrUpdate(e.display, alert.ErrorKind, alert.ReconciliationErrorBody(e.display, err, e.mentions))
		return reconcile.Outcome{Chain: e.display, Kind: reconcile.Error, Err: err}
	}
	sg := s.signers[algo]
	collatorAddr, err := parseCollatorAddress(s.cfg.CollatorAddress(e.network))
	if err != nil {
		s.alerts.OpenOrUpdate(e.display, alert.ErrorKind, alert.ReconciliationErrorBody(e.display, err, e.mentions))
		return reconcile.Outcome{Chain: e.display, Kind: reconcile.Error, Err: err}
	}

	target := reconcile.ChainTarget{
		Network:      e.network,
		Chain:        e.chain,
		Client:       client,
		Reader:       collatorstate.New(client, readerKeysFor(e.network, e.chain)),
		CollatorAddr: collatorAddr,
		Signer:       sg,
		ReadOnly:     e.readOnly,
		Alerts:       s.alerts,
		Mentions:     e.mentions,
		LatestHash:   latest,
	}
	return reconcile.Reconcile(ctx, target)
}

func connectAny(ctx context.Context, e *chainEntry) (*rpcclient.Client, int, error) {
	defaults, err := chain.DefaultEndpoints(e.network, e.chain)
	if err != nil {
		return nil, 0, err
	}
	var lastErr error
	for i, url := range chain.MergeEndpoints(defaults, nil) {
		client, err := rpcclient.Connect(ctx, url)
		if err == nil {
			return client, i, nil
		}
		lastErr = err
	}
	return nil, 0, lastErr
}

// postSummary connects to every configured chain once, reads its live
// collator-selection state, and posts a terminal summary. Unlike the Block
// Tracker's in-memory TrackedStatus (which only knows invulnerable/
// candidate/not-collator and a deposit), the summary additionally needs the
// chain-wide candidate ranking, so it reads storage fresh per chain rather
// than reusing the tracker's cached observation.
func (s *Supervisor) postSummary(ctx context.Context) {
	infos := make([]alert.ChainSlotInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, s.chainSlotInfo(ctx, e))
	}
	s.alerts.PostTerminal(alert.RenderSummary(infos))
}

// chainSlotInfo builds one chain's alert.ChainSlotInfo. Grounded on
// _examples/original_source/src/monitor.rs::get_chain_slot_info: position is
// the 1-based rank among candidates sorted by deposit descending, and
// distance_from_last is your bond minus the lowest candidate bond, reported
// only when your bond already clears it.
func (s *Supervisor) chainSlotInfo(ctx context.Context, e *chainEntry) alert.ChainSlotInfo {
	slot := alert.ChainSlotInfo{
		ChainName: e.display,
		Symbol:    e.network.Symbol(),
		Decimals:  e.network.Decimals(),
	}
	if info := e.tracker.Info(); info.LastAuthored != nil {
		slot.HasLastBlock = true
		slot.LastBlockAgo = time.Since(*info.LastAuthored)
	}

	who, err := parseCollatorAddress(s.cfg.CollatorAddress(e.network))
	if err != nil {
		logger.Warn("summary: invalid collator address", "chain", e.display, "err", err)
		return slot
	}

	client, _, err := connectAny(ctx, e)
	if err != nil {
		logger.Warn("summary: connect failed", "chain", e.display, "err", err)
		return slot
	}
	defer client.Close()

	latest, err := client.GetFinalizedHead(ctx)
	if err != nil {
		logger.Warn("summary: read finalized head failed", "chain", e.display, "err", err)
		return slot
	}

	reader := collatorstate.New(client, readerKeysFor(e.network, e.chain))
	status, err := reader.CollatorStatus(ctx, latest, who)
	if err != nil {
		logger.Warn("summary: status read failed", "chain", e.display, "err", err)
		return slot
	}
	slot.IsInvulnerable = status.Kind == types.Invulnerable
	slot.IsCandidate = status.Kind == types.Candidate
	if slot.IsCandidate {
		slot.HasYourBond = true
		slot.YourBond = status.Deposit
	}

	candidates, err := reader.Candidates(ctx, latest)
	if err != nil {
		logger.Warn("summary: candidates read failed", "chain", e.display, "err", err)
		return slot
	}
	slot.TotalCandidates = len(candidates)
	if pos, ok := collatorstate.Position(candidates, who); ok {
		slot.HasPosition = true
		slot.Position1Based = pos
	}
	if lowest, ok := collatorstate.LowestCandidateBond(candidates); ok {
		slot.HasLowestBond = true
		slot.LowestBond = lowest
		if slot.HasYourBond && slot.YourBond > lowest {
			slot.HasDistance = true
			slot.DistanceFromLast = int64(slot.YourBond - lowest)
		}
	}

	if desired, err := reader.DesiredCandidates(ctx, latest); err != nil {
		logger.Warn("summary: desired-candidates read failed", "chain", e.display, "err", err)
	} else {
		slot.MaxActive = desired
	}

	return slot
}

// resolverKeysFor and readerKeysFor build the Typed Author Resolver's and
// Collator State Reader's storage keys for a chain. Every system chain here
// runs the same Aura/CollatorSelection/System pallets, so the keys are the
// same fixed twox128(pallet)++twox128(item) prefixes regardless of
// (network, chain); the parameters are kept so a future chain running
// differently named pallets has somewhere to branch. Map-key suffixes
// (Session.KeyOwner's key-type lookup, System.Account's account lookup)
// stay unresolved placeholders, matching resolver.StorageKeys' and
// collatorstate.StorageKeys' documented boundary: that is metadata-driven
// account-specific hashing, not a fixed pallet prefix.
func resolverKeysFor(chain.Network, chain.Chain) resolver.StorageKeys {
	return resolver.StorageKeys{
		CurrentSlot:    storagekey.Prefix("Aura", "CurrentSlot"),
		Authorities:    storagekey.Prefix("Aura", "Authorities"),
		KeyOwnerPrefix: storagekey.Prefix("Session", "KeyOwner"),
	}
}

func readerKeysFor(chain.Network, chain.Chain) collatorstate.StorageKeys {
	return collatorstate.StorageKeys{
		Invulnerables:       storagekey.Prefix("CollatorSelection", "Invulnerables"),
		CandidateList:       storagekey.Prefix("CollatorSelection", "CandidateList"),
		CandidacyBond:       storagekey.Prefix("CollatorSelection", "CandidacyBond"),
		DesiredCandidates:   storagekey.Prefix("CollatorSelection", "DesiredCandidates"),
		SystemAccountPrefix: storagekey.Prefix("System", "Account"),
	}
}
