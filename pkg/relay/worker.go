package relay

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/rate"
)

// Transport performs a JSON-RPC round trip on behalf of the relay.
type Transport interface {
	RoundTrip(ctx context.Context, payload Payload) (*Envelope, error)
}

// Worker is the privileged side of the relay. It serves each Request from the
// Channel concurrently, so responses may be posted out of order.
type Worker struct {
	log       *logrus.Entry
	ch        *Channel
	transport Transport
	limiter   rate.Limiter
}

// NewWorker returns a Worker. Outbound calls are throttled per RPC method by
// limiter.
func NewWorker(ch *Channel, transport Transport, limiter rate.Limiter) *Worker {
	if limiter == nil {
		limiter = rate.NoLimiter{}
	}

	return &Worker{
		log:       logrus.StandardLogger().WithField("type", "relay/worker"),
		ch:        ch,
		transport: transport,
		limiter:   limiter,
	}
}

// Run serves requests until ctx is done or the channel is closed, then waits
// for in-flight requests to finish.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case req := <-w.ch.Requests():
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.handle(ctx, req)
			}()
		case <-w.ch.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	log := w.log.WithFields(logrus.Fields{
		"method":     req.Payload.Method,
		"request_id": req.RequestID,
	})

	resp := Response{RequestID: req.RequestID}

	if err := w.limiter.Wait(ctx, req.Payload.Method); err != nil {
		resp.Error = err.Error()
	} else if envelope, err := w.transport.RoundTrip(ctx, req.Payload); err != nil {
		log.WithError(err).Warn("failure performing rpc round trip")
		resp.Error = err.Error()
	} else {
		resp.Success = true
		resp.Data = envelope
	}

	if err := w.ch.SendResponse(ctx, resp); err != nil {
		log.WithError(err).Debug("failed to post response")
	}
}
