// Package keypair implements wallet.Provider on top of a local ed25519 key,
// such as a Solana CLI keypair file.
package keypair

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/wallet"
)

// ApprovalFunc decides whether txn may be signed. Returning an error aborts
// signing; implementations should return wallet.ErrRejected on refusal.
type ApprovalFunc func(ctx context.Context, txn solana.Transaction) error

// AutoApprove approves every transaction.
func AutoApprove(context.Context, solana.Transaction) error { return nil }

type Option func(*provider)

// WithApproval sets the approval hook consulted before every signature.
func WithApproval(fn ApprovalFunc) Option {
	return func(p *provider) {
		p.approve = fn
	}
}

type provider struct {
	log     *logrus.Entry
	key     ed25519.PrivateKey
	approve ApprovalFunc

	mu        sync.RWMutex
	connected bool
}

// NewProvider returns a wallet.Provider signing with key. Transactions are
// auto approved unless WithApproval is provided.
func NewProvider(key ed25519.PrivateKey, opts ...Option) wallet.Provider {
	p := &provider{
		log:     logrus.StandardLogger().WithField("type", "wallet/keypair"),
		key:     key,
		approve: AutoApprove,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *provider) Connect(ctx context.Context) (ed25519.PublicKey, error) {
	if len(p.key) != ed25519.PrivateKeySize {
		return nil, wallet.ErrNoProvider
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	pub := p.key.Public().(ed25519.PublicKey)
	p.log.WithField("public_key", base58.Encode(pub)).Debug("wallet connected")
	return pub, nil
}

func (p *provider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *provider) PublicKey() ed25519.PublicKey {
	if !p.IsConnected() {
		return nil
	}
	return p.key.Public().(ed25519.PublicKey)
}

func (p *provider) SignTransaction(ctx context.Context, txn solana.Transaction) (solana.Transaction, error) {
	if !p.IsConnected() {
		return txn, wallet.ErrNotConnected
	}

	if err := p.approve(ctx, txn); err != nil {
		return txn, err
	}
	if err := ctx.Err(); err != nil {
		return txn, err
	}

	signed := txn.Clone()
	if err := signed.Sign(p.key); err != nil {
		return txn, errors.Wrap(err, "failed to sign transaction")
	}

	p.log.WithField("signature", signed.Signature().ToBase58()).Debug("transaction signed")
	return signed, nil
}

// LoadKeyFile reads a Solana CLI keypair file: a JSON array holding the 64
// byte private key.
func LoadKeyFile(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keypair file")
	}

	return ParseKey(data)
}

// ParseKey parses the JSON keypair encoding used by the Solana CLI.
func ParseKey(data []byte) (ed25519.PrivateKey, error) {
	var raw []byte
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "keypair must be a json array of bytes")
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must contain %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("keypair byte %d out of range: %d", i, v)
		}
		raw = append(raw, byte(v))
	}

	key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !key.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
		return nil, errors.New("keypair public key does not match private key")
	}

	return key, nil
}

// PromptApproval asks for confirmation on out and reads the answer from in.
// Anything other than "y" or "yes" rejects.
func PromptApproval(in io.Reader, out io.Writer) ApprovalFunc {
	reader := bufio.NewReader(in)

	return func(ctx context.Context, txn solana.Transaction) error {
		fmt.Fprintf(out, "Fee payer: %s\n", base58.Encode(txn.FeePayer()))
		fmt.Fprintf(out, "Accounts:  %d\n", len(txn.Message.Accounts))
		fmt.Fprintf(out, "Approve transaction? [y/N]: ")

		answer := make(chan string, 1)
		go func() {
			line, _ := reader.ReadString('\n')
			answer <- strings.ToLower(strings.TrimSpace(line))
		}()

		select {
		case a := <-answer:
			if a == "y" || a == "yes" {
				return nil
			}
			return wallet.ErrRejected
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
