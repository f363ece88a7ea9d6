// Package metaplex derives Token Metadata program accounts.
package metaplex

import (
	"crypto/ed25519"

	"github.com/code-payments/post-minter/pkg/solana"
)

// ProgramKey is the address of the token metadata program.
//
// Current key: metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s
var ProgramKey = ed25519.PublicKey{11, 112, 101, 177, 227, 209, 124, 69, 56, 157, 82, 127, 107, 4, 195, 205, 88, 184, 108, 115, 26, 160, 253, 181, 73, 182, 209, 188, 3, 248, 41, 70}

const (
	// Metaplex limits enforced by the metadata program on create.
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200

	metadataPrefix = "metadata"
	editionSuffix  = "edition"
)

// GetMetadataAddress returns the metadata account of mint.
func GetMetadataAddress(mint ed25519.PublicKey) (solana.DerivedAddress, error) {
	return solana.Derive(
		ProgramKey,
		[]byte(metadataPrefix),
		ProgramKey,
		mint,
	)
}

// GetMasterEditionAddress returns the master edition account of mint.
func GetMasterEditionAddress(mint ed25519.PublicKey) (solana.DerivedAddress, error) {
	return solana.Derive(
		ProgramKey,
		[]byte(metadataPrefix),
		ProgramKey,
		mint,
		[]byte(editionSuffix),
	)
}
