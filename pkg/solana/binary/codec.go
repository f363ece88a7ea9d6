// Package binary implements the little-endian, length-prefixed encodings used
// by Anchor program instruction data.
package binary

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

const (
	DiscriminatorSize = 8

	stringLengthSize = 4
	u64Size          = 8
)

var (
	ErrOutOfRange = errors.New("value out of range for u64")
)

// EncodeString returns u32_le(len(s)) followed by the UTF-8 bytes of s. The
// length is a byte count, so multi-byte characters count for their full width.
func EncodeString(s string) []byte {
	out := make([]byte, stringLengthSize+len(s))
	binary.LittleEndian.PutUint32(out, uint32(len(s)))
	copy(out[stringLengthSize:], s)
	return out
}

// PutString writes the encoded form of s into dst and advances offset.
func PutString(dst []byte, s string, offset *int) {
	binary.LittleEndian.PutUint32(dst, uint32(len(s)))
	copy(dst[stringLengthSize:], s)
	*offset += stringLengthSize + len(s)
}

// EncodedStringSize is the size of EncodeString(s).
func EncodedStringSize(s string) int {
	return stringLengthSize + len(s)
}

// EncodeU64LE returns n as 8 little-endian bytes.
func EncodeU64LE(n uint64) []byte {
	out := make([]byte, u64Size)
	binary.LittleEndian.PutUint64(out, n)
	return out
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += u64Size
}

// ParseU64 parses a base 10 amount. Negative values and values above
// 2^64-1 fail with ErrOutOfRange.
func ParseU64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return 0, ErrOutOfRange
		}
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrOutOfRange
	} else if err != nil {
		return 0, errors.Wrapf(err, "invalid u64 %q", s)
	}
	return v, nil
}

// Discriminator returns the first 8 bytes of sha256(preimage).
func Discriminator(preimage string) [DiscriminatorSize]byte {
	var out [DiscriminatorSize]byte
	h := sha256.Sum256([]byte(preimage))
	copy(out[:], h[:DiscriminatorSize])
	return out
}

// AnchorDiscriminator returns the discriminator for "namespace:name", the
// scheme Anchor uses for instructions ("global") and accounts ("account").
func AnchorDiscriminator(namespace, name string) [DiscriminatorSize]byte {
	return Discriminator(namespace + ":" + name)
}

// DecodeString reads a length-prefixed string from the start of b and returns
// it along with the number of bytes consumed.
func DecodeString(b []byte) (string, int, error) {
	dec := bin.NewBorshDecoder(b)

	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to read string length")
	}

	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to read %d string bytes", n)
	}

	return string(raw), stringLengthSize + int(n), nil
}

// DecodeU64LE reads an 8 byte little-endian integer from the start of b.
func DecodeU64LE(b []byte) (uint64, error) {
	var v uint64
	if err := bin.NewBorshDecoder(b).Decode(&v); err != nil {
		return 0, errors.Wrap(err, "failed to read u64")
	}
	return v, nil
}
