package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/post-minter/pkg/retry"
	"github.com/code-payments/post-minter/pkg/retry/backoff"
)

const rateLimitedCode = http.StatusTooManyRequests

var errRateLimited = errors.New("rate limited")

type httpTransport struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// NewHTTPTransport returns a Transport that POSTs to endpoint. Rate limited
// calls are retried with backoff; nothing else is.
func NewHTTPTransport(endpoint string, timeout time.Duration) Transport {
	return &httpTransport{
		log: logrus.StandardLogger().WithField("type", "relay/transport"),
		client: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: timeout},
		}),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(500*time.Millisecond), 5*time.Second, 0.1),
		),
	}
}

func (t *httpTransport) RoundTrip(ctx context.Context, payload Payload) (*Envelope, error) {
	log := t.log.WithFields(logrus.Fields{
		"method":     payload.Method,
		"request_id": payload.ID,
	})

	var resp *jsonrpc.RPCResponse
	_, err := t.retrier.Retry(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		resp, err = t.client.CallRaw(&jsonrpc.RPCRequest{
			JSONRPC: payload.JSONRPC,
			ID:      int(payload.ID),
			Method:  payload.Method,
			Params:  payload.Params,
		})

		var httpErr *jsonrpc.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == rateLimitedCode {
			log.Warn("rate limited")
			return errRateLimited
		}
		if err != nil {
			return err
		}
		if resp.Error != nil && resp.Error.Code == rateLimitedCode {
			log.Warn("rate limited")
			return errRateLimited
		}
		return nil
	})

	// A rate limited JSON-RPC error is still a valid response to hand back.
	if errors.Is(err, errRateLimited) && resp != nil {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	return toEnvelope(resp)
}

func toEnvelope(resp *jsonrpc.RPCResponse) (*Envelope, error) {
	envelope := &Envelope{
		JSONRPC: resp.JSONRPC,
		ID:      uint64(resp.ID),
	}

	if resp.Error != nil {
		envelope.Error = &RPCError{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		}
		if resp.Error.Data != nil {
			data, err := json.Marshal(resp.Error.Data)
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode rpc error data")
			}
			envelope.Error.Data = data
		}
		return envelope, nil
	}

	result, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rpc result")
	}
	envelope.Result = result
	return envelope, nil
}
