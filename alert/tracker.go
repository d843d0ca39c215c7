// Package alert is the Alert Tracker: an in-process store of open alerts
// keyed by (chain, kind), with post/update/delete affordances and a
// 4-hour rate limiter driving the open/update/resolve lifecycle. Message
// copy is grounded on _examples/original_source/src/slack.rs, generalized
// from Slack-only webhook posting to a dual webhook/bot-token transport.
package alert

import (
	"sync"
	"time"

	"github.com/paritytech/collator-sentinel/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleAlert)

type Kind int

const (
	Disconnected Kind = iota
	BlockGap
	InsufficientFunds
	CannotCompete
	ManualAction
	ErrorKind
	StatusChange
	RegistrationSuccess
	BondUpdate
	StatusSummary
)

func (k Kind) String() string {
	switch k {
	case Disconnected:
		return "Disconnected"
	case BlockGap:
		return "BlockGap"
	case InsufficientFunds:
		return "InsufficientFunds"
	case CannotCompete:
		return "CannotCompete"
	case ManualAction:
		return "ManualAction"
	case ErrorKind:
		return "Error"
	case StatusChange:
		return "StatusChange"
	case RegistrationSuccess:
		return "RegistrationSuccess"
	case BondUpdate:
		return "BondUpdate"
	case StatusSummary:
		return "StatusSummary"
	default:
		return "Unknown"
	}
}

// rateLimited reports whether repeated emissions of this kind are subject
// to the 4h window.
func (k Kind) rateLimited() bool {
	switch k {
	case InsufficientFunds, CannotCompete, ManualAction, ErrorKind:
		return true
	default:
		return false
	}
}

func (k Kind) updatable() bool {
	switch k {
	case Disconnected, BlockGap:
		return true
	default:
		return false
	}
}

const RateLimitWindow = 4 * time.Hour
const deleteDelay = 60 * time.Second

type openAlertKey struct {
	chain string
	kind  Kind
}

// OpenAlert is a currently-open alert.
type OpenAlert struct {
	MessageRef *MessageHandle
	StartedAt  time.Time
	Kind       Kind
	Chain      string
}

// MessageHandle identifies a posted message for later edit/delete; nil
// under Webhook transport, where those operations degenerate to no-ops.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

// Transport is the outbound messaging capability, implemented by both
// WebhookTransport and BotTransport below.
type Transport interface {
	Post(channel, body string) (*MessageHandle, error)
	Edit(ref *MessageHandle, body string) error
	Delete(ref *MessageHandle) error
}

// Tracker is shared across every writer task (Block Trackers, Reconciler,
// Supervisor); its maps are guarded by mu with brief critical sections,
// never held across a transport call.
type Tracker struct {
	transport Transport
	channel   string

	mu        sync.Mutex
	open      map[openAlertKey]*OpenAlert
	rateStamp map[openAlertKey]time.Time

	now         func() time.Time
	deleteDelay time.Duration
}

func New(transport Transport, channel string) *Tracker {
	return &Tracker{
		transport:   transport,
		channel:     channel,
		open:        make(map[openAlertKey]*OpenAlert),
		rateStamp:   make(map[openAlertKey]time.Time),
		now:         time.Now,
		deleteDelay: deleteDelay,
	}
}

// TickRate returns true and stamps if now-last >= 4h, else false.
func (t *Tracker) TickRate(chainName string, kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickRateLocked(chainName, kind)
}

func (t *Tracker) tickRateLocked(chainName string, kind Kind) bool {
	key := openAlertKey{chainName, kind}
	last, ok := t.rateStamp[key]
	now := t.now()
	if ok && now.Sub(last) < RateLimitWindow {
		return false
	}
	t.rateStamp[key] = now
	return true
}

// OpenOrUpdate edits the existing message if one is open for (chain,kind);
// otherwise posts a new one, subject to rate limiting for rate-limited
// kinds. A suppressed attempt posts nothing and records nothing: the rate
// stamp keeps the time of the last actual post, and no open entry is
// created, so a later Resolve for that (chain,kind) has nothing to edit.
func (t *Tracker) OpenOrUpdate(chainName string, kind Kind, body string) {
	key := openAlertKey{chainName, kind}

	t.mu.Lock()
	existing, hasOpen := t.open[key]
	if hasOpen {
		t.mu.Unlock()
		elapsed := FormatDuration(t.now().Sub(existing.StartedAt))
		fullBody := body + " (open for " + elapsed + ")"
		if existing.MessageRef != nil {
			if err := t.transport.Edit(existing.MessageRef, fullBody); err != nil {
				logger.Warn("alert edit failed", "chain", chainName, "kind", kind, "err", err)
			}
		}
		return
	}

	if kind.rateLimited() {
		if !t.tickRateLocked(chainName, kind) {
			t.mu.Unlock()
			logger.Debug("alert suppressed by rate limit", "chain", chainName, "kind", kind)
			return
		}
	}
	startedAt := t.now()
	t.mu.Unlock()

	ref, err := t.transport.Post(t.channel, body)
	if err != nil {
		logger.Warn("alert post failed", "chain", chainName, "kind", kind, "err", err)
	}

	t.mu.Lock()
	t.open[key] = &OpenAlert{MessageRef: ref, StartedAt: startedAt, Kind: kind, Chain: chainName}
	t.mu.Unlock()
}

// Resolve edits the open message to its final body, schedules its
// deletion, and clears both the open entry and its rate-limit stamp, so a
// fresh future issue can alert immediately rather than waiting out a
// stale window.
func (t *Tracker) Resolve(chainName string, kind Kind, finalBody string) {
	key := openAlertKey{chainName, kind}

	t.mu.Lock()
	existing, ok := t.open[key]
	delete(t.open, key)
	delete(t.rateStamp, key)
	t.mu.Unlock()

	if !ok {
		return
	}
	if existing.MessageRef != nil {
		if err := t.transport.Edit(existing.MessageRef, finalBody); err != nil {
			logger.Warn("alert resolve-edit failed", "chain", chainName, "kind", kind, "err", err)
		}
		go func(ref *MessageHandle) {
			time.Sleep(t.deleteDelay)
			if err := t.transport.Delete(ref); err != nil {
				logger.Warn("alert delete failed", "chain", chainName, "kind", kind, "err", err)
			}
		}(existing.MessageRef)
	}
}

// PostTerminal is an unconditional one-shot post: success notices and
// summaries never dedupe or rate-limit.
func (t *Tracker) PostTerminal(body string) {
	if _, err := t.transport.Post(t.channel, body); err != nil {
		logger.Warn("terminal alert post failed", "err", err)
	}
}

// HasOpen reports whether (chain,kind) currently has an open alert —
// used by the Block Tracker to decide whether a received block resolves an
// open Disconnected alert.
func (t *Tracker) HasOpen(chainName string, kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.open[openAlertKey{chainName, kind}]
	return ok
}
