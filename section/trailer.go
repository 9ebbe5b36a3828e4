package section

import (
	"github.com/arloliu/lrz/endian"
	"github.com/arloliu/lrz/errs"
)

// Trailer follows the end marker. It records the number of bytes the rzip
// layer consumed and the digest of those bytes, so streams of unknown size
// can still be verified.
type Trailer struct {
	OriginalSize uint64           // byte offset 0-7
	Digest       [DigestSize]byte // byte offset 8-39
}

// Bytes serializes the trailer into a TrailerSize byte slice.
func (t Trailer) Bytes() []byte {
	b := make([]byte, 0, TrailerSize)
	b = endian.Container().AppendUint64(b, t.OriginalSize)

	return append(b, t.Digest[:]...)
}

// Parse decodes a trailer.
func (t *Trailer) Parse(data []byte) error {
	if len(data) != TrailerSize {
		return errs.ErrInvalidHeaderSize
	}

	t.OriginalSize = endian.Container().Uint64(data[0:8])
	copy(t.Digest[:], data[8:TrailerSize])

	return nil
}

// ParseTrailer parses a Trailer from the start of a byte slice.
func ParseTrailer(data []byte) (Trailer, error) {
	if len(data) < TrailerSize {
		return Trailer{}, errs.ErrTruncated
	}

	t := Trailer{}
	if err := t.Parse(data[:TrailerSize]); err != nil {
		return Trailer{}, err
	}

	return t, nil
}
