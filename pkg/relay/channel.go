package relay

import (
	"context"
	"sync"
)

// Channel is the typed, in-process boundary between a Client and a Worker.
type Channel struct {
	requests  chan Request
	responses chan Response

	closeOnce sync.Once
	done      chan struct{}
}

// NewChannel returns a Channel buffering up to buffer messages per direction.
func NewChannel(buffer int) *Channel {
	return &Channel{
		requests:  make(chan Request, buffer),
		responses: make(chan Response, buffer),
		done:      make(chan struct{}),
	}
}

// SendRequest posts req to the relay side.
func (c *Channel) SendRequest(ctx context.Context, req Request) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.requests <- req:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendResponse posts resp to the client side.
func (c *Channel) SendResponse(ctx context.Context, resp Response) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.responses <- resp:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) Requests() <-chan Request {
	return c.requests
}

func (c *Channel) Responses() <-chan Response {
	return c.responses
}

// Done is closed once the channel is closed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close shuts down both directions. It is safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
