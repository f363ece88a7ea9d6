package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	programDerivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidPublicKey is returned by CreateProgramAddress when the hashed
	// seeds land on the ed25519 curve.
	ErrInvalidPublicKey = errors.New("invalid public key")

	ErrDerivationFailed = errors.New("no viable bump seed")
)

var (
	programHashCtor = sha256.New
)

// DerivedAddress is a program derived address along with the bump seed that
// pushed it off the ed25519 curve.
type DerivedAddress struct {
	Address ed25519.PublicKey
	Bump    uint8
}

func (d DerivedAddress) String() string {
	return fmt.Sprintf("%s (bump %d)", base58.Encode(d.Address), d.Bump)
}

// DerivationError reports a failed attempt to find a program derived address.
type DerivationError struct {
	Program ed25519.PublicKey
	Err     error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("failed to derive address for program %s: %v", base58.Encode(e.Program), e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

// CreateProgramAddress mirrors the implementation of the Solana SDK's CreateProgramAddress.
//
// ProgramAddresses are public keys that _do not_ lie on the ed25519 curve to ensure that
// there is no associated private key. In the event that the program and seed parameters
// result in a valid public key, ErrInvalidPublicKey is returned.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	h := programHashCtor()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}

		if _, err := h.Write(s); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	for _, v := range [][]byte{program, []byte(programDerivedAddressMarker)} {
		if _, err := h.Write(v); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	var pub [ed25519.PublicKeySize]byte
	copy(pub[:], h.Sum(nil))

	// A successful decompression means the point is on the curve, which would
	// give the address a private key. The x/crypto edwards25519 internals aren't
	// exported, hence the standalone package.
	//
	// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L182-L187
	var A edwards25519.ExtendedGroupElement
	if A.FromBytes(&pub) {
		return nil, ErrInvalidPublicKey
	}

	return pub[:], nil
}

// FindProgramAddressAndBump mirrors the Solana SDK's FindProgramAddress. Bump
// seeds are tried from 255 down to 0 and the first off-curve result wins.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	if len(program) != ed25519.PublicKeySize {
		return nil, 0, &DerivationError{Program: program, Err: errors.Errorf("program id must be %d bytes", ed25519.PublicKeySize)}
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := math.MaxUint8; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}

		pub, err := CreateProgramAddress(program, withBump...)
		if err == nil {
			return pub, uint8(bump), nil
		}
		if err != ErrInvalidPublicKey {
			return nil, 0, &DerivationError{Program: program, Err: err}
		}
	}

	return nil, 0, &DerivationError{Program: program, Err: ErrDerivationFailed}
}

// FindProgramAddress is FindProgramAddressAndBump without the bump.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	pub, _, err := FindProgramAddressAndBump(program, seeds...)
	return pub, err
}

// Derive returns the DerivedAddress for the ordered seeds under program.
func Derive(program ed25519.PublicKey, seeds ...[]byte) (DerivedAddress, error) {
	pub, bump, err := FindProgramAddressAndBump(program, seeds...)
	if err != nil {
		return DerivedAddress{}, err
	}
	return DerivedAddress{Address: pub, Bump: bump}, nil
}
