package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	params []interface{}
}

type fakeCaller struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(method string, params []interface{}) (json.RawMessage, error)
}

func (f *fakeCaller) Call(_ context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: method, params: params})
	f.mu.Unlock()

	return f.respond(method, params)
}

type fakeDataError struct {
	message string
	data    json.RawMessage
}

func (e *fakeDataError) Error() string              { return e.message }
func (e *fakeDataError) ErrorData() json.RawMessage { return e.data }

func TestClient_GetLatestBlockhash(t *testing.T) {
	expected := Blockhash{1, 2, 3}

	caller := &fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			return json.RawMessage(`{"context":{"slot":12},"value":{"blockhash":"` + expected.ToBase58() + `","lastValidBlockHeight":150}}`), nil
		},
	}
	client := NewClient(caller)

	for i := 0; i < 2; i++ {
		hash, err := client.GetLatestBlockhash(context.Background(), CommitmentFinalized)
		require.NoError(t, err)
		assert.Equal(t, expected, hash)
	}

	// Never cached.
	require.Len(t, caller.calls, 2)
	assert.Equal(t, "getLatestBlockhash", caller.calls[0].method)

	params, err := json.Marshal(caller.calls[0].params)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"commitment":"finalized"}]`, string(params))
}

func TestClient_GetLatestBlockhash_Invalid(t *testing.T) {
	for _, resp := range []string{
		`{"value":null}`,
		`{"value":{"blockhash":"0OIl"}}`,
		`{"value":{"blockhash":"3yZe7d"}}`,
		`[]`,
	} {
		client := NewClient(&fakeCaller{
			respond: func(string, []interface{}) (json.RawMessage, error) {
				return json.RawMessage(resp), nil
			},
		})

		_, err := client.GetLatestBlockhash(context.Background(), CommitmentFinalized)
		assert.Error(t, err, resp)
	}

	rpcErr := errors.New("node unhealthy")
	client := NewClient(&fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			return nil, rpcErr
		},
	})
	_, err := client.GetLatestBlockhash(context.Background(), CommitmentFinalized)
	assert.Equal(t, rpcErr, err)
}

func TestClient_SubmitTransaction(t *testing.T) {
	txn, payer, mint, _, _, _ := newTestTransaction(t)
	require.NoError(t, txn.Sign(mint, payer))

	caller := &fakeCaller{
		respond: func(_ string, params []interface{}) (json.RawMessage, error) {
			encoded := params[0].(string)
			raw, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return nil, err
			}

			var decoded Transaction
			if err := decoded.Unmarshal(raw); err != nil {
				return nil, err
			}
			return json.Marshal(decoded.Signature().ToBase58())
		},
	}
	client := NewClient(caller)

	sig, err := client.SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, txn.Signature(), sig)

	require.Len(t, caller.calls, 1)
	assert.Equal(t, "sendTransaction", caller.calls[0].method)
	require.Len(t, caller.calls[0].params, 2)
	assert.Equal(t, txn.ToBase64(), caller.calls[0].params[0])

	config, err := json.Marshal(caller.calls[0].params[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"encoding":"base64","skipPreflight":false,"preflightCommitment":"confirmed"}`, string(config))

	// The same envelope is never sent twice.
	_, err = client.SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	assert.Equal(t, ErrAlreadySubmitted, err)
	assert.Len(t, caller.calls, 1)
}

func TestClient_SubmitTransaction_NotFullySigned(t *testing.T) {
	txn, _, mint, _, _, _ := newTestTransaction(t)
	require.NoError(t, txn.Sign(mint))

	caller := &fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			t.Fatal("unexpected call")
			return nil, nil
		},
	}

	_, err := NewClient(caller).SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrNotFullySigned)
	assert.Empty(t, caller.calls)
}

func TestClient_SubmitTransaction_RPCError(t *testing.T) {
	txn, payer, mint, _, _, _ := newTestTransaction(t)
	require.NoError(t, txn.Sign(mint, payer))

	rpcErr := &fakeDataError{
		message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
		data:    json.RawMessage(`{"err":"AccountNotFound","logs":[]}`),
	}
	client := NewClient(&fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			return nil, rpcErr
		},
	})

	sig, err := client.SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	require.Error(t, err)
	assert.Equal(t, rpcErr.message, err.Error())
	assert.Equal(t, txn.Signature(), sig)

	// Failed submissions are not retried by the client either.
	_, err = client.SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	assert.Equal(t, ErrAlreadySubmitted, err)
}

func TestClient_SubmitTransaction_UnexpectedSignature(t *testing.T) {
	txn, payer, mint, _, _, _ := newTestTransaction(t)
	require.NoError(t, txn.Sign(mint, payer))

	other := Signature{9, 9, 9}
	client := NewClient(&fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			return json.Marshal(base58.Encode(other[:]))
		},
	})

	sig, err := client.SubmitTransaction(context.Background(), txn, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, other, sig)

	txn2, payer2, mint2, _, _, _ := newTestTransaction(t)
	require.NoError(t, txn2.Sign(mint2, payer2))
	client = NewClient(&fakeCaller{
		respond: func(string, []interface{}) (json.RawMessage, error) {
			return json.RawMessage(`"not-a-signature"`), nil
		},
	})
	_, err = client.SubmitTransaction(context.Background(), txn2, CommitmentConfirmed)
	assert.Error(t, err)
}
