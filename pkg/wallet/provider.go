// Package wallet defines the signing capability used to authorize token
// creation on behalf of a user.
package wallet

import (
	"context"
	"crypto/ed25519"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"github.com/code-payments/post-minter/pkg/solana"
)

var (
	// ErrNoProvider is returned when no wallet is available to connect to.
	ErrNoProvider = errors.New("no wallet provider available")

	// ErrNotConnected is returned when signing is requested before Connect.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrRejected indicates the user declined to approve the request.
	ErrRejected = errors.New("user rejected the request")

	// ErrInvalidPublicKey indicates the wallet returned a key that isn't a
	// valid ed25519 point.
	ErrInvalidPublicKey = errors.New("invalid wallet public key")
)

type Provider interface {
	// Connect requests access to the wallet and returns its public key.
	// Connecting an already connected wallet returns the same key.
	Connect(ctx context.Context) (ed25519.PublicKey, error)

	// IsConnected reports whether Connect has succeeded.
	IsConnected() bool

	// PublicKey returns the connected public key, or nil.
	PublicKey() ed25519.PublicKey

	// SignTransaction returns a copy of txn with the wallet's signature slot
	// filled. Existing signatures are preserved. Blocks until the user
	// approves, rejects or ctx is done.
	SignTransaction(ctx context.Context, txn solana.Transaction) (solana.Transaction, error)
}

// ValidatePublicKey checks that pub is a 32 byte encoding of a point on the
// ed25519 curve, i.e. a key that can actually produce signatures.
func ValidatePublicKey(pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return errors.Wrapf(ErrInvalidPublicKey, "length %d", len(pub))
	}

	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return errors.Wrap(ErrInvalidPublicKey, "not on curve")
	}

	return nil
}
