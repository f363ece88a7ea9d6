package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/cache"
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"

	submittedSignatureBudget = 1024
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

var (
	ErrAlreadySubmitted = errors.New("transaction already submitted")
	ErrNotFullySigned   = errors.New("transaction is missing signatures")
	ErrTooLarge         = errors.Errorf("transaction exceeds %d bytes", MaxTransactionSize)
)

// Caller performs a single JSON-RPC call and returns the raw result.
type Caller interface {
	Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
}

// DataError is implemented by RPC errors that carry a data payload, such as
// preflight simulation results.
type DataError interface {
	error
	ErrorData() json.RawMessage
}

// Client provides the subset of the Solana JSON RPC API needed to submit
// transactions.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	// GetLatestBlockhash always queries the node. Blockhashes expire, so
	// callers fetch one immediately before building a transaction.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, error)

	// SubmitTransaction sends a fully signed transaction with preflight
	// enabled at the given commitment. A transaction is only ever sent once
	// per Client; resubmissions fail with ErrAlreadySubmitted.
	SubmitTransaction(ctx context.Context, txn Transaction, preflight Commitment) (Signature, error)
}

type client struct {
	log       *logrus.Entry
	caller    Caller
	submitted cache.Cache
}

// NewClient returns a Client issuing calls through caller.
func NewClient(caller Caller) Client {
	return &client{
		log:       logrus.StandardLogger().WithField("type", "solana/client"),
		caller:    caller,
		submitted: cache.New(submittedSignatureBudget),
	}
}

func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (hash Blockhash, err error) {
	// note: the commitment has to be wrapped in an object, a bare string is
	//       rejected by the RPC node.
	raw, err := c.caller.Call(ctx, "getLatestBlockhash", commitment)
	if err != nil {
		return hash, err
	}

	var resp struct {
		Value *struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return hash, errors.Wrap(err, "invalid getLatestBlockhash response")
	}
	if resp.Value == nil {
		return hash, errors.New("getLatestBlockhash response missing value")
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return hash, errors.Wrap(err, "invalid base58 encoded hash in response")
	}
	if len(hashBytes) != len(hash) {
		return hash, errors.Errorf("invalid blockhash length: %d", len(hashBytes))
	}

	copy(hash[:], hashBytes)
	return hash, nil
}

func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, preflight Commitment) (Signature, error) {
	sig := txn.Signature()
	log := c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.ToBase58(),
	})

	if !txn.IsFullySigned() {
		missing := make([]string, 0)
		for _, pub := range txn.MissingSigners() {
			missing = append(missing, base58.Encode(pub))
		}
		return sig, errors.Wrapf(ErrNotFullySigned, "missing %v", missing)
	}

	txnBytes := txn.Marshal()
	if len(txnBytes) > MaxTransactionSize {
		return sig, errors.Wrapf(ErrTooLarge, "size %d", len(txnBytes))
	}

	if err := c.submitted.Insert(sig.ToBase58(), time.Now(), 1); err == cache.ErrKeyExists {
		return sig, ErrAlreadySubmitted
	} else if err != nil {
		return sig, errors.Wrap(err, "failed to record submission")
	}

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		SkipPreflight:       false,
		PreflightCommitment: preflight.Commitment,
	}

	raw, err := c.caller.Call(ctx, "sendTransaction", txn.ToBase64(), config)
	if err != nil {
		var dataErr DataError
		if errors.As(err, &dataErr) {
			if simErr, parseErr := ParseSimulationError(dataErr.ErrorData()); parseErr != nil {
				log.WithError(parseErr).Debug("failed to parse simulation error")
			} else if simErr != nil {
				log.WithError(simErr).WithField("logs", simErr.Logs).Info("preflight simulation failed")
			}
		}
		return sig, err
	}

	var sigStr string
	if err := json.Unmarshal(raw, &sigStr); err != nil {
		return sig, errors.Wrap(err, "invalid sendTransaction response")
	}

	if sigStr != sig.ToBase58() {
		log.WithField("returned", sigStr).Warn("node returned unexpected signature")

		decoded, err := base58.Decode(sigStr)
		if err != nil || len(decoded) != ed25519.SignatureSize {
			return sig, errors.Errorf("invalid signature in sendTransaction response: %q", sigStr)
		}
		copy(sig[:], decoded)
	}

	return sig, nil
}
