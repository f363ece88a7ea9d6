// Package tokencreator assembles, signs and submits the transaction that
// creates a token sale.
package tokencreator

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/metadata"
	"github.com/code-payments/post-minter/pkg/metrics"
	"github.com/code-payments/post-minter/pkg/netutil"
	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/solana/metaplex"
	"github.com/code-payments/post-minter/pkg/solana/tokensale"
	"github.com/code-payments/post-minter/pkg/wallet"
)

const (
	DefaultWalletApprovalTimeout = 2 * time.Minute

	metricsStructName = "tokencreator.creator"
)

// MetadataUploader hosts token metadata and returns its URL.
type MetadataUploader interface {
	Upload(ctx context.Context, req *metadata.Request) (string, error)
}

type Config struct {
	// Program is the token sale factory program.
	Program ed25519.PublicKey

	// InitialPurchaseLamports is bought by the payer when the sale is created.
	InitialPurchaseLamports uint64

	// WalletApprovalTimeout bounds the wait for the wallet to sign. Zero
	// waits until the context is done.
	WalletApprovalTimeout time.Duration
}

// Request describes the token to create. When URI is empty, Metadata is
// uploaded first and the hosted document's URL is used instead.
type Request struct {
	Name     string
	Symbol   string
	URI      string
	Metadata *metadata.Request
}

type Result struct {
	Signature   solana.Signature
	Mint        ed25519.PublicKey
	MetadataURI string
}

func (r *Result) MintAddress() string {
	return base58.Encode(r.Mint)
}

type Creator struct {
	log      *logrus.Entry
	conf     Config
	client   solana.Client
	wallet   wallet.Provider
	uploader MetadataUploader

	inProgress atomic.Bool
}

// NewCreator returns a Creator. uploader may be nil when every Request
// carries a URI.
func NewCreator(conf Config, client solana.Client, provider wallet.Provider, uploader MetadataUploader) *Creator {
	return &Creator{
		log:      logrus.StandardLogger().WithField("type", "tokencreator/creator"),
		conf:     conf,
		client:   client,
		wallet:   provider,
		uploader: uploader,
	}
}

// Create runs a single token creation attempt. Only one attempt may run at a
// time per Creator; concurrent calls fail with ErrAlreadyInProgress.
//
// Failures are returned as a *StepError. A failure at StepSubmit classified
// as CategoryTimeout does not mean the transaction failed.
func (c *Creator) Create(ctx context.Context, req *Request) (result *Result, err error) {
	if !c.inProgress.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInProgress
	}
	defer c.inProgress.Store(false)

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Create")
	defer tracer.End()

	start := time.Now()
	attempt := uuid.New().String()
	log := c.log.WithFields(logrus.Fields{
		"method":  "Create",
		"attempt": attempt,
		"name":    req.Name,
		"symbol":  req.Symbol,
	})

	defer func() {
		metrics.RecordDuration(ctx, "tokencreator.create.duration", time.Since(start))
		if err != nil {
			tracer.OnError(err)
			log.WithError(err).WithField("category", Classify(err).String()).Warn("token creation failed")
			metrics.RecordCount(ctx, "tokencreator.create.failure", 1)
		} else {
			metrics.RecordCount(ctx, "tokencreator.create.success", 1)
		}
	}()

	if err := c.validate(req); err != nil {
		return nil, newStepError(StepValidate, err)
	}

	uri := req.URI
	if len(uri) == 0 {
		upload := *req.Metadata
		if len(upload.Name) == 0 {
			upload.Name = req.Name
		}
		if len(upload.Symbol) == 0 {
			upload.Symbol = req.Symbol
		}

		uri, err = c.uploader.Upload(ctx, &upload)
		if err != nil {
			return nil, newStepError(StepUploadMetadata, err)
		}
		if err := validateURI(uri); err != nil {
			return nil, newStepError(StepUploadMetadata, err)
		}
		log = log.WithField("uri", uri)
	}

	payer, err := c.connect(ctx)
	if err != nil {
		return nil, newStepError(StepConnectWallet, err)
	}
	log = log.WithField("payer", base58.Encode(payer))

	// The mint key signs once below and is never persisted.
	mint, mintKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, newStepError(StepGenerateMint, err)
	}
	log = log.WithField("mint", base58.Encode(mint))

	accounts, err := tokensale.DeriveCreateTokenSaleAccounts(c.conf.Program, payer, mint)
	if err != nil {
		return nil, newStepError(StepDeriveAccounts, err)
	}

	instruction := tokensale.NewCreateTokenSaleInstruction(
		c.conf.Program,
		accounts,
		&tokensale.CreateTokenSaleInstructionArgs{
			Name:                    req.Name,
			Symbol:                  req.Symbol,
			URI:                     uri,
			InitialPurchaseLamports: c.conf.InitialPurchaseLamports,
		},
	)
	log.WithField("step", StepBuildPayload).Tracef("instruction data: %x", instruction.Data)

	blockhash, err := c.client.GetLatestBlockhash(ctx, solana.CommitmentFinalized)
	if err != nil {
		return nil, newStepError(StepGetBlockhash, err)
	}

	txn := solana.NewTransaction(payer, instruction)
	txn.SetBlockhash(blockhash)
	if size := len(txn.Marshal()); size > solana.MaxTransactionSize {
		return nil, newStepError(StepAssemble, errors.Wrapf(solana.ErrTooLarge, "size %d", size))
	}

	if err := txn.Sign(mintKey); err != nil {
		return nil, newStepError(StepMintSign, err)
	}

	signed, err := c.sign(ctx, txn)
	if err != nil {
		return nil, newStepError(StepWalletSign, err)
	}
	if !signed.IsSignedBy(mint) || !bytes.Equal(signed.Message.Marshal(), txn.Message.Marshal()) {
		return nil, newStepError(StepWalletSign, errors.New("wallet returned a modified transaction"))
	}

	log = log.WithField("signature", signed.Signature().ToBase58())
	log.WithField("step", StepSubmit).Debug("submitting transaction")

	sig, err := c.client.SubmitTransaction(ctx, signed, solana.CommitmentConfirmed)
	if err != nil {
		return nil, newStepError(StepSubmit, err)
	}

	log.Info("token sale created")
	metrics.RecordEvent(ctx, "TokenSaleCreated", map[string]interface{}{
		"attempt":   attempt,
		"mint":      base58.Encode(mint),
		"signature": sig.ToBase58(),
	})
	return &Result{
		Signature:   sig,
		Mint:        mint,
		MetadataURI: uri,
	}, nil
}

func (c *Creator) validate(req *Request) error {
	if len(c.conf.Program) != ed25519.PublicKeySize {
		return ErrMissingProgram
	}

	switch {
	case len(strings.TrimSpace(req.Name)) == 0:
		return ErrMissingName
	case len(req.Name) > metaplex.MaxNameLength:
		return errors.Wrapf(ErrNameTooLong, "%d bytes exceeds %d", len(req.Name), metaplex.MaxNameLength)
	case len(strings.TrimSpace(req.Symbol)) == 0:
		return ErrMissingSymbol
	case len(req.Symbol) > metaplex.MaxSymbolLength:
		return errors.Wrapf(ErrSymbolTooLong, "%d bytes exceeds %d", len(req.Symbol), metaplex.MaxSymbolLength)
	}

	if len(req.URI) > 0 {
		return validateURI(req.URI)
	}
	if req.Metadata == nil || c.uploader == nil {
		return ErrMissingURI
	}
	return nil
}

func validateURI(uri string) error {
	if len(uri) > metaplex.MaxURILength {
		return errors.Wrapf(ErrURITooLong, "%d bytes exceeds %d", len(uri), metaplex.MaxURILength)
	}
	if err := netutil.ValidateHttpUrl(uri, false); err != nil {
		return errors.Wrap(ErrInvalidURI, err.Error())
	}
	return nil
}

func (c *Creator) connect(ctx context.Context) (ed25519.PublicKey, error) {
	if c.wallet == nil {
		return nil, wallet.ErrNoProvider
	}

	var pub ed25519.PublicKey
	if c.wallet.IsConnected() {
		pub = c.wallet.PublicKey()
	} else {
		var err error
		if pub, err = c.wallet.Connect(ctx); err != nil {
			return nil, err
		}
	}

	if err := wallet.ValidatePublicKey(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

func (c *Creator) sign(ctx context.Context, txn solana.Transaction) (solana.Transaction, error) {
	signCtx := ctx
	if c.conf.WalletApprovalTimeout > 0 {
		var cancel context.CancelFunc
		signCtx, cancel = context.WithTimeout(ctx, c.conf.WalletApprovalTimeout)
		defer cancel()
	}

	signed, err := c.wallet.SignTransaction(signCtx, txn)
	if err != nil && ctx.Err() == nil && errors.Is(signCtx.Err(), context.DeadlineExceeded) {
		return txn, ErrWalletApprovalTimeout
	}
	return signed, err
}
