package rpcclient

import (
	"context"
	"encoding/json"

	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/types"
)

// extrinsicStatus mirrors the lifecycle frames author_submitAndWatchExtrinsic
// emits: ready, broadcast, inBlock, finalized, dropped, invalid, usurped.
type extrinsicStatus struct {
	Finalized string `json:"finalized"`
	InBlock   string `json:"inBlock"`
	Dropped   *struct{}
	Invalid   *string
	Usurped   *string
}

// SubmitAndWaitFinalized submits a signed extrinsic and blocks until it is
// observed included in a finalized block, or fails. It never returns a
// partial success: either a finalized SubmitResult or an error.
func (c *Client) SubmitAndWaitFinalized(ctx context.Context, signedExtrinsic []byte) (types.SubmitResult, error) {
	var subID string
	if err := c.CallContext(ctx, &subID, "author_submitAndWatchExtrinsic", hexEncode(signedExtrinsic)); err != nil {
		return types.SubmitResult{}, errs.New(errs.KindSubmitFailed, "rpcclient.SubmitAndWaitFinalized", err)
	}

	sub := newSubscription()
	c.mu.Lock()
	c.subs[subID] = sub
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.subs, subID)
		c.mu.Unlock()
	}()

	statusCh := make(chan extrinsicStatus, 4)
	go pumpStatusNotifications(sub, statusCh)

	for {
		select {
		case <-ctx.Done():
			return types.SubmitResult{}, ctx.Err()
		case st := <-statusCh:
			switch {
			case st.Finalized != "":
				var hash types.Hash
				raw, err := hexDecode(st.Finalized)
				if err == nil {
					copy(hash[:], raw)
				}
				return types.SubmitResult{TxHash: hash, BlockHash: hash, Success: true}, nil
			case st.Dropped != nil:
				return types.SubmitResult{}, errs.New(errs.KindSubmitFailed, "rpcclient.SubmitAndWaitFinalized", errDropped)
			case st.Invalid != nil:
				return types.SubmitResult{}, errs.New(errs.KindSubmitFailed, "rpcclient.SubmitAndWaitFinalized", errInvalid)
			case st.Usurped != nil:
				return types.SubmitResult{}, errs.New(errs.KindSubmitFailed, "rpcclient.SubmitAndWaitFinalized", errUsurped)
			}
		}
	}
}

var (
	errDropped = simpleErr("extrinsic dropped from the pool before finalization")
	errInvalid = simpleErr("extrinsic rejected as invalid")
	errUsurped = simpleErr("extrinsic usurped by a conflicting transaction")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// pumpStatusNotifications decodes a subscription's raw notification
// payloads as extrinsic status frames rather than block headers — the same
// socket multiplexing mechanism as Subscription.C, a different payload
// shape.
func pumpStatusNotifications(sub *Subscription, out chan<- extrinsicStatus) {
	for {
		select {
		case raw, ok := <-sub.notifications:
			if !ok {
				return
			}
			var st extrinsicStatus
			if err := json.Unmarshal(raw, &st); err == nil {
				out <- st
			}
		case <-sub.closech:
			return
		}
	}
}

var _ = context.Background
