// Package hash provides the integrity checks of the lrz container: an
// xxHash64 per chunk and a BLAKE3 digest over the whole input.
package hash

import (
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// DigestSize is the length of a stream digest in bytes.
const DigestSize = 32

// Checksum computes the xxHash64 of a chunk's uncompressed bytes.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Digest accumulates the BLAKE3-256 digest of a stream.
type Digest struct {
	h *blake3.Hasher
}

// NewDigest creates an empty stream digest.
func NewDigest() *Digest {
	return &Digest{h: blake3.New()}
}

// Write adds p to the digest. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the digest of everything written so far.
func (d *Digest) Sum() [DigestSize]byte {
	var out [DigestSize]byte
	d.h.Sum(out[:0])

	return out
}

// Sum256 returns the BLAKE3-256 digest of data.
func Sum256(data []byte) [DigestSize]byte {
	return blake3.Sum256(data)
}
