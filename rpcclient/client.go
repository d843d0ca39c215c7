// Package rpcclient is the Endpoint Client: a connection to a single chain
// node, exposing streaming finalized-block subscription, point-in-time
// storage reads, and signed-transaction submission. It follows the
// CallContext(ctx, &result, method, args...) wrapper idiom of
// client/bridge_client.go, generalized from an Ethereum-style JSON-RPC
// client to a Substrate-style one.
package rpcclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/clevergo/websocket"
	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/types"
)

var logger = log.NewModuleLogger(log.ModuleRPCClient)

// Client is a single connection to one chain node. It is exclusively owned
// by the task that opened it; it is never shared across tasks.
type Client struct {
	conn   *websocket.Conn
	nextID uint64

	mu      sync.Mutex
	pending map[uint64]chan rpcResponse
	subs    map[string]*Subscription // keyed by subscription id

	writeMu sync.Mutex
	closed  int32
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	// subscription notification shape
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Connect opens a streaming transport to a single node. It does not retry;
// callers handle fallback across endpoints (tracker package).
func Connect(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errs.New(errs.KindConnectFailed, "rpcclient.Connect", err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan rpcResponse),
		subs:    make(map[string]*Subscription),
	}
	go c.readPump()
	return c, nil
}

func (c *Client) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return c.conn.Close()
}

// readPump demultiplexes call responses (matched by id) from subscription
// notifications (matched by an in-band "params.subscription" id) on the
// same socket.
func (c *Client) readPump() {
	defer c.closeAllSubs()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}
			c.failAllPending(errs.New(errs.KindStreamError, "rpcclient.readPump", err))
			return
		}
		var resp rpcResponse
		if jsonErr := json.Unmarshal(raw, &resp); jsonErr != nil {
			logger.Warn("discarding unparseable frame", "err", jsonErr)
			continue
		}
		if resp.Method != "" {
			c.dispatchNotification(resp)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) dispatchNotification(resp rpcResponse) {
	var env struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Params, &env); err != nil {
		logger.Warn("malformed subscription notification", "err", err)
		return
	}
	c.mu.Lock()
	sub, ok := c.subs[env.Subscription]
	c.mu.Unlock()
	if !ok {
		return
	}
	sub.deliver(env.Result)
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcResponse{ID: id, Error: &rpcError{Message: err.Error()}}
		delete(c.pending, id)
	}
	for _, sub := range c.subs {
		sub.fail(err)
	}
}

func (c *Client) closeAllSubs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		sub.closeChan()
	}
}

// CallContext issues a single JSON-RPC request and decodes the result into
// result, the same calling convention as client/bridge_client.go.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: args}
	if req.Params == nil {
		req.Params = []interface{}{}
	}

	ch := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return errs.New(errs.KindStreamError, "rpcclient.CallContext", writeErr)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return errs.New(errs.KindStorageError, "rpcclient.CallContext:"+method, resp.Error)
		}
		if result == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	}
}

// ReadStorageAt performs a point-in-time storage read at blockHash.
func (c *Client) ReadStorageAt(ctx context.Context, blockHash types.Hash, key []byte) ([]byte, error) {
	var hexResult *string
	err := c.CallContext(ctx, &hexResult, "state_getStorageAt", hexEncode(key), blockHash.String())
	if err != nil {
		return nil, errs.New(errs.KindStorageError, "rpcclient.ReadStorageAt", err)
	}
	if hexResult == nil {
		return nil, nil
	}
	return hexDecode(*hexResult)
}

// GetFinalizedHead returns the current finalized block hash, used by the
// Reconciler (which reads state at "latest" rather than following a
// specific streamed block like the Block Tracker does).
func (c *Client) GetFinalizedHead(ctx context.Context) (types.Hash, error) {
	return c.callForHash(ctx, "chain_getFinalizedHead")
}

// blockHashForNumber resolves a block's own hash from its number, used to
// fill in the hash a chain_subscribeFinalizedHeads header never carries.
func (c *Client) blockHashForNumber(ctx context.Context, numberHex string) (types.Hash, error) {
	return c.callForHash(ctx, "chain_getBlockHash", numberHex)
}

// callForHash issues a hash-returning RPC and hex-decodes the result, the
// same decode shape ReadStorageAt uses for its storage value.
func (c *Client) callForHash(ctx context.Context, method string, args ...interface{}) (types.Hash, error) {
	var hexResult string
	if err := c.CallContext(ctx, &hexResult, method, args...); err != nil {
		return types.Hash{}, errs.New(errs.KindStorageError, "rpcclient."+method, err)
	}
	raw, err := hexDecode(hexResult)
	if err != nil || len(raw) != 32 {
		return types.Hash{}, errs.New(errs.KindStorageError, "rpcclient."+method, fmt.Errorf("malformed hash %q", hexResult))
	}
	var h types.Hash
	copy(h[:], raw)
	return h, nil
}

func hexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && s[1] == 'x' {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
