// Package shortvec implements the compact-u16 length prefix used throughout
// the Solana wire format.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

var ErrLenOverflow = errors.Errorf("len exceeds %d", math.MaxUint16)

// EncodeLen writes l as a compact-u16 and returns the number of bytes written.
func EncodeLen(w io.Writer, l int) (int, error) {
	if l < 0 || l > math.MaxUint16 {
		return 0, ErrLenOverflow
	}

	var buf [maxEncodedLen]byte
	n := 0
	for {
		buf[n] = byte(l & 0x7f)
		l >>= 7
		if l == 0 {
			n++
			break
		}
		buf[n] |= 0x80
		n++
	}

	return w.Write(buf[:n])
}

// DecodeLen reads a compact-u16 from r.
func DecodeLen(r io.Reader) (int, error) {
	var val int
	var b [1]byte

	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, ErrLenOverflow
			}
			return val, nil
		}
	}

	return 0, errors.Errorf("invalid size: more than %d bytes", maxEncodedLen)
}
