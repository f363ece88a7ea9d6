package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/metrics"
)

const (
	DefaultTimeout = 30 * time.Second

	metricsStructName = "relay.client"
)

type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client issues JSON-RPC calls through a Channel and matches responses to
// calls by request id, in whatever order they arrive.
type Client struct {
	log     *logrus.Entry
	ch      *Channel
	timeout time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient returns a Client that consumes responses from ch until Close.
func NewClient(ch *Channel, opts ...Option) *Client {
	c := &Client{
		log:     logrus.StandardLogger().WithField("type", "relay/client"),
		ch:      ch,
		timeout: DefaultTimeout,
		pending: make(map[uint64]chan Response),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}

	c.wg.Add(1)
	go c.receive()

	return c
}

// Call performs method with params and returns the raw JSON-RPC result.
//
// Failures are one of ErrTimeout, ErrClosed, *TransportError, *RPCError or
// the context's error. A timed out call may still have been executed.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Call")
	tracer.AddAttribute("method", method)
	defer tracer.End()

	result, err := c.call(ctx, method, params)
	tracer.OnError(err)
	return result, err
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	id := c.nextID
	result := make(chan Response, 1)
	c.pending[id] = result
	c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"request_id": id,
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-timer.C:
			cancel()
		case <-sendCtx.Done():
		}
	}()

	req := Request{
		RequestID: id,
		Payload: Payload{
			JSONRPC: jsonRPCVersion,
			ID:      id,
			Method:  method,
			Params:  params,
		},
	}
	if err := c.ch.SendRequest(sendCtx, req); err != nil {
		c.remove(id)
		if ctx.Err() == nil && sendCtx.Err() != nil {
			log.Debug("timed out dispatching request")
			return nil, ErrTimeout
		}
		return nil, err
	}

	select {
	case resp := <-result:
		return c.decode(log, resp)
	case <-sendCtx.Done():
	case <-c.done:
		return nil, ErrClosed
	}

	if c.remove(id) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug("timed out waiting for response")
		return nil, ErrTimeout
	}

	// The response was claimed concurrently with the timeout.
	select {
	case resp := <-result:
		return c.decode(log, resp)
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Client) decode(log *logrus.Entry, resp Response) (json.RawMessage, error) {
	if !resp.Success {
		log.WithField("error", resp.Error).Debug("relay reported transport failure")
		return nil, &TransportError{Message: resp.Error}
	}

	if resp.Data == nil {
		return nil, &TransportError{Message: "relay returned an empty response"}
	}

	if resp.Data.Error != nil {
		log.WithField("code", resp.Data.Error.Code).Debug("rpc returned error")
		return nil, resp.Data.Error
	}

	return resp.Data.Result, nil
}

// Deliver hands resp to the call waiting on its RequestID. Responses for
// unknown, completed or timed out requests are dropped and false is
// returned.
func (c *Client) Deliver(resp Response) bool {
	c.mu.Lock()
	result, ok := c.pending[resp.RequestID]
	if ok {
		delete(c.pending, resp.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.WithField("request_id", resp.RequestID).Debug("dropping response for unknown request")
		return false
	}

	result <- resp
	return true
}

// Pending returns the number of calls awaiting a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close rejects every pending call with ErrClosed and stops consuming
// responses. Later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	rejected := len(c.pending)
	c.pending = make(map[uint64]chan Response)
	close(c.done)
	c.mu.Unlock()

	if rejected > 0 {
		c.log.WithField("rejected", rejected).Debug("closed with pending calls")
	}

	c.wg.Wait()
	return nil
}

func (c *Client) receive() {
	defer c.wg.Done()

	for {
		select {
		case resp := <-c.ch.Responses():
			c.Deliver(resp)
		case <-c.ch.Done():
			go c.Close()
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) remove(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pending[id]
	delete(c.pending, id)
	return ok
}
