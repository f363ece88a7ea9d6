package tokencreator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/post-minter/pkg/relay"
	"github.com/code-payments/post-minter/pkg/wallet"
)

var (
	ErrAlreadyInProgress     = errors.New("token creation already in progress")
	ErrWalletApprovalTimeout = errors.New("timed out waiting for wallet approval")

	ErrMissingProgram = errors.New("program id is required")
	ErrMissingName    = errors.New("token name is required")
	ErrMissingSymbol  = errors.New("token symbol is required")
	ErrMissingURI     = errors.New("metadata uri is required")
	ErrInvalidURI     = errors.New("metadata uri must be an absolute http(s) url")
	ErrNameTooLong    = errors.New("token name is too long")
	ErrSymbolTooLong  = errors.New("token symbol is too long")
	ErrURITooLong     = errors.New("metadata uri is too long")
)

// Step identifies a stage of token creation.
type Step string

const (
	StepValidate       Step = "validate"
	StepUploadMetadata Step = "upload_metadata"
	StepConnectWallet  Step = "connect_wallet"
	StepGenerateMint   Step = "generate_mint"
	StepDeriveAccounts Step = "derive_accounts"
	StepBuildPayload   Step = "build_payload"
	StepGetBlockhash   Step = "get_blockhash"
	StepAssemble       Step = "assemble"
	StepMintSign       Step = "mint_sign"
	StepWalletSign     Step = "wallet_sign"
	StepSubmit         Step = "submit"
)

// StepError is returned by Create for any failure. The message of Err, which
// for RPC failures is the node's message, is kept as is.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Err.Error())
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func newStepError(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

type ErrorCategory int

const (
	CategoryInternal ErrorCategory = iota
	CategoryValidation
	CategoryWallet
	CategoryTransport
	CategoryRPC

	// CategoryTimeout means no answer arrived in time. A submitted
	// transaction may still land.
	CategoryTimeout
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryWallet:
		return "wallet"
	case CategoryTransport:
		return "transport"
	case CategoryRPC:
		return "rpc"
	case CategoryTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Classify maps a Create failure onto an ErrorCategory.
func Classify(err error) ErrorCategory {
	var stepErr *StepError
	hasStep := errors.As(err, &stepErr)

	switch {
	case errors.Is(err, ErrAlreadyInProgress):
		return CategoryValidation
	case hasStep && stepErr.Step == StepValidate:
		return CategoryValidation
	case errors.Is(err, ErrWalletApprovalTimeout),
		errors.Is(err, wallet.ErrNoProvider),
		errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, wallet.ErrRejected),
		errors.Is(err, wallet.ErrInvalidPublicKey),
		hasStep && (stepErr.Step == StepConnectWallet || stepErr.Step == StepWalletSign):
		return CategoryWallet
	case errors.Is(err, relay.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	}

	var rpcErr *relay.RPCError
	if errors.As(err, &rpcErr) {
		return CategoryRPC
	}

	var transportErr *relay.TransportError
	if errors.As(err, &transportErr) || errors.Is(err, relay.ErrClosed) {
		return CategoryTransport
	}
	if hasStep && stepErr.Step == StepUploadMetadata {
		return CategoryTransport
	}

	return CategoryInternal
}
