package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/post-minter/pkg/rate"
)

type fakeTransport struct {
	mu    sync.Mutex
	seen  []Payload
	delay map[string]time.Duration
	fn    func(Payload) (*Envelope, error)
}

func (f *fakeTransport) RoundTrip(ctx context.Context, payload Payload) (*Envelope, error) {
	f.mu.Lock()
	f.seen = append(f.seen, payload)
	delay := f.delay[payload.Method]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return f.fn(payload)
}

func startWorker(t *testing.T, transport Transport, limiter rate.Limiter) (*Client, func()) {
	ch := NewChannel(16)
	worker := NewWorker(ch, transport, limiter)
	client := NewClient(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	return client, func() {
		require.NoError(t, client.Close())
		cancel()
		ch.Close()
		<-done
	}
}

func TestWorker_RoundTrip(t *testing.T) {
	transport := &fakeTransport{
		delay: map[string]time.Duration{"slow": 50 * time.Millisecond},
		fn: func(p Payload) (*Envelope, error) {
			result, _ := json.Marshal(p.Method)
			return &Envelope{JSONRPC: jsonRPCVersion, ID: p.ID, Result: result}, nil
		},
	}
	client, stop := startWorker(t, transport, nil)
	defer stop()

	var wg sync.WaitGroup
	for _, method := range []string{"slow", "fast"} {
		method := method
		wg.Add(1)
		go func() {
			defer wg.Done()

			result, err := client.Call(context.Background(), method)
			require.NoError(t, err)
			assert.JSONEq(t, `"`+method+`"`, string(result))
		}()
	}
	wg.Wait()
}

func TestWorker_TransportFailure(t *testing.T) {
	transport := &fakeTransport{
		fn: func(Payload) (*Envelope, error) {
			return nil, errors.New("Post \"https://api.devnet.solana.com\": dial tcp: i/o timeout")
		},
	}
	client, stop := startWorker(t, transport, nil)
	defer stop()

	result, err := client.Call(context.Background(), "getLatestBlockhash")
	assert.Nil(t, result)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "Post \"https://api.devnet.solana.com\": dial tcp: i/o timeout", transportErr.Message)
}

func TestWorker_RateLimited(t *testing.T) {
	transport := &fakeTransport{
		fn: func(p Payload) (*Envelope, error) {
			return &Envelope{JSONRPC: jsonRPCVersion, ID: p.ID, Result: json.RawMessage(`null`)}, nil
		},
	}
	client, stop := startWorker(t, transport, rate.NewLocalRateLimiter(xrate.Limit(10)))
	defer stop()

	start := time.Now()
	for i := 0; i < 12; i++ {
		_, err := client.Call(context.Background(), "getHealth")
		require.NoError(t, err)
	}

	// The burst covers the first 10 calls, the remaining two wait ~100ms each.
	assert.True(t, time.Since(start) >= 150*time.Millisecond)
}

func newRPCServer(t *testing.T, handler func(w http.ResponseWriter, req map[string]interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
}

func TestHTTPTransport_Result(t *testing.T) {
	server := newRPCServer(t, func(w http.ResponseWriter, req map[string]interface{}) {
		assert.Equal(t, "2.0", req["jsonrpc"])
		assert.Equal(t, "getLatestBlockhash", req["method"])
		assert.Equal(t, []interface{}{map[string]interface{}{"commitment": "finalized"}}, req["params"])

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":7,"result":{"context":{"slot":1},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}}`))
	})
	defer server.Close()

	transport := NewHTTPTransport(server.URL, time.Second)
	envelope, err := transport.RoundTrip(context.Background(), Payload{
		JSONRPC: jsonRPCVersion,
		ID:      7,
		Method:  "getLatestBlockhash",
		Params:  []interface{}{map[string]string{"commitment": "finalized"}},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 7, envelope.ID)
	assert.Nil(t, envelope.Error)
	assert.JSONEq(t, `{"context":{"slot":1},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}`, string(envelope.Result))
}

func TestHTTPTransport_RPCError(t *testing.T) {
	server := newRPCServer(t, func(w http.ResponseWriter, req map[string]interface{}) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.","data":{"err":"AccountNotFound","logs":[]}}}`))
	})
	defer server.Close()

	envelope, err := NewHTTPTransport(server.URL, time.Second).RoundTrip(context.Background(), Payload{
		JSONRPC: jsonRPCVersion,
		ID:      1,
		Method:  "sendTransaction",
		Params:  []interface{}{"AQID"},
	})
	require.NoError(t, err)
	require.NotNil(t, envelope.Error)

	assert.Equal(t, -32002, envelope.Error.Code)
	assert.Equal(t, "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.", envelope.Error.Message)
	assert.JSONEq(t, `{"err":"AccountNotFound","logs":[]}`, string(envelope.Error.Data))
	assert.Empty(t, envelope.Result)
}

func TestHTTPTransport_RetriesRateLimited(t *testing.T) {
	var calls int32
	server := newRPCServer(t, func(w http.ResponseWriter, req map[string]interface{}) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":429,"message":"Too many requests for a specific RPC call"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"ok"}`))
	})
	defer server.Close()

	envelope, err := NewHTTPTransport(server.URL, time.Second).RoundTrip(context.Background(), Payload{
		JSONRPC: jsonRPCVersion,
		ID:      1,
		Method:  "getHealth",
		Params:  []interface{}{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(envelope.Result))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestHTTPTransport_NoRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	_, err := NewHTTPTransport(server.URL, time.Second).RoundTrip(context.Background(), Payload{
		JSONRPC: jsonRPCVersion,
		ID:      1,
		Method:  "getHealth",
		Params:  []interface{}{},
	})
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPTransport(url, time.Second).RoundTrip(context.Background(), Payload{
		JSONRPC: jsonRPCVersion,
		ID:      1,
		Method:  "getHealth",
	})
	assert.Error(t, err)
}
