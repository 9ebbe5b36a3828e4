package compress

import "github.com/arloliu/lrz/format"

// ZstdCompressor is the Huffman/FSE + LZ77 codec.
//
// The implementation is selected at build time: the pure Go encoder from
// klauspost/compress by default, or the cgo binding of libzstd when built with
// the "gozstd" tag. Both produce standard zstd frames and can read each
// other's output.
type ZstdCompressor struct {
	level int
}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor.
//
// Effort levels 1-9 map onto zstd levels 3-19.
//
// Example:
//
//	codec := NewZstdCompressor(7)
//	compressed, err := codec.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor(level int) ZstdCompressor {
	return ZstdCompressor{level: level}
}

func (c ZstdCompressor) Type() format.CompressionType {
	return format.CompressionZstd
}

// zstdLevel maps an effort level onto the native zstd level scale.
func zstdLevel(level int) int {
	return level*2 + 1
}
