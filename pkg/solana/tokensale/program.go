// Package tokensale builds instructions for the token sale factory program.
package tokensale

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// DevnetProgramKey is the factory program deployed on devnet.
//
// Current key: CnfqUGYuKinSjAWU2abZBexMS3eHBG3vVKx9t5RR8mnu
var DevnetProgramKey ed25519.PublicKey

// DefaultInitialPurchaseLamports is the dev buy made when the sale is created.
const DefaultInitialPurchaseLamports uint64 = 100_000_000

func init() {
	var err error
	DevnetProgramKey, err = ParseProgramKey("CnfqUGYuKinSjAWU2abZBexMS3eHBG3vVKx9t5RR8mnu")
	if err != nil {
		panic(err)
	}
}

// ParseProgramKey decodes a base58 program id.
func ParseProgramKey(s string) (ed25519.PublicKey, error) {
	if len(s) == 0 {
		return nil, errors.New("program id is empty")
	}

	b, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "program id is not valid base58")
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Errorf("program id must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return b, nil
}
