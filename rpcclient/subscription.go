package rpcclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/types"
)

// Subscription is a lazy, infinite stream of raw notification payloads for
// one subscription id, demultiplexed off the Client's single socket by
// readPump/dispatchNotification. Two consumption shapes are layered on top
// of it: C(ctx) for chain_subscribeFinalizedHeads, and the extrinsic
// status pump in submit.go for author_submitAndWatchExtrinsic.
type Subscription struct {
	notifications chan json.RawMessage
	once          sync.Once
	closech       chan struct{}

	// client is set only for subscriptions consumed through C(): decoding a
	// block header requires a follow-up chain_getBlockHash call over the
	// same connection. Subscriptions consumed directly via notifications
	// (the extrinsic status pump in submit.go) leave this nil.
	client *Client
}

func newSubscription() *Subscription {
	return &Subscription{
		notifications: make(chan json.RawMessage, 16),
		closech:       make(chan struct{}),
	}
}

func (s *Subscription) deliver(raw json.RawMessage) {
	select {
	case s.notifications <- raw:
	case <-s.closech:
	}
}

func (s *Subscription) fail(err error) {
	logger.Warn("subscription failed", "err", err)
	s.closeChan()
}

func (s *Subscription) closeChan() {
	s.once.Do(func() { close(s.closech) })
}

// Item is either a successfully decoded Block or a per-item error: a
// subscription keeps streaming even when one notification fails to decode.
type Item struct {
	Block Block
	Err   error
}

// Block is the header-shaped payload this transport decodes out of a
// chain_subscribeFinalizedHeads notification.
type Block = types.Block

// C decodes this subscription's raw notifications as block headers. It is
// only meaningful for subscriptions returned by SubscribeFinalizedHeads. ctx
// bounds the chain_getBlockHash follow-up call decodeBlockItem issues for
// every header.
func (s *Subscription) C(ctx context.Context) <-chan Item {
	out := make(chan Item, 16)
	go func() {
		defer close(out)
		for {
			select {
			case raw, ok := <-s.notifications:
				if !ok {
					return
				}
				out <- decodeBlockItem(ctx, s.client, raw)
			case <-s.closech:
				return
			}
		}
	}()
	return out
}

func decodeBlockItem(ctx context.Context, client *Client, raw json.RawMessage) Item {
	var hdr struct {
		Number     string `json:"number"`
		ParentHash string `json:"parentHash"`
		Digest     struct {
			Logs []string `json:"logs"`
		} `json:"digest"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return Item{Err: errs.New(errs.KindStreamError, "subscription.decodeBlockItem", err)}
	}
	blk, err := decodeHeader(hdr.Number, hdr.ParentHash, hdr.Digest.Logs)
	if err != nil {
		return Item{Err: errs.New(errs.KindStreamError, "subscription.decodeBlockItem", err)}
	}
	// chain_subscribeFinalizedHeads notifications carry a header's parent
	// hash but never its own; look the block's own hash up by number so
	// callers can read state and resolve authorship at the block they just
	// observed rather than at the zero hash.
	hash, err := client.blockHashForNumber(ctx, hdr.Number)
	if err != nil {
		return Item{Err: errs.New(errs.KindStreamError, "subscription.decodeBlockItem", err)}
	}
	blk.Hash = hash
	return Item{Block: blk}
}

// SubscribeFinalizedHeads issues chain_subscribeFinalizedHeads and returns
// a Subscription fed by the client's read pump.
func (c *Client) SubscribeFinalizedHeads(ctx context.Context) (*Subscription, error) {
	var subID string
	if err := c.CallContext(ctx, &subID, "chain_subscribeFinalizedHeads"); err != nil {
		return nil, errs.New(errs.KindConnectFailed, "rpcclient.SubscribeFinalizedHeads", err)
	}
	sub := newSubscription()
	sub.client = c
	c.mu.Lock()
	c.subs[subID] = sub
	c.mu.Unlock()
	return sub, nil
}

func decodeHeader(numberHex, parentHashHex string, logHex []string) (Block, error) {
	var blk Block
	numBytes, err := hexDecode(numberHex)
	if err != nil {
		return blk, err
	}
	blk.Number = bigEndianUint32(numBytes)

	parentBytes, err := hexDecode(parentHashHex)
	if err != nil {
		return blk, err
	}
	copy(blk.ParentHash[:], parentBytes)

	for _, l := range logHex {
		raw, err := hexDecode(l)
		if err != nil {
			continue
		}
		// SCALE pre-runtime digest item: variant byte 6, then 4-byte
		// engine id, then the payload. Items too short to carry the variant
		// byte and engine id are skipped; every byte after the engine id is
		// kept as Payload as-is.
		if len(raw) < 1+4 {
			continue
		}
		if raw[0] != 6 { // DigestItem::PreRuntime variant index
			continue
		}
		var item types.DigestItem
		copy(item.EngineID[:], raw[1:5])
		item.Payload = append([]byte(nil), raw[5:]...)
		blk.Digest = append(blk.Digest, item)
	}
	return blk, nil
}

func bigEndianUint32(b []byte) uint32 {
	var v uint32
	for _, by := range b {
		v = v<<8 | uint32(by)
	}
	return v
}
