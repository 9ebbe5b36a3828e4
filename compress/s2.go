package compress

import (
	"github.com/klauspost/compress/s2"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// S2Compressor is the Snappy-compatible S2 block codec. Levels 1-3 use the
// default encoder, 4-6 the "better" encoder and 7-9 the "best" encoder.
type S2Compressor struct {
	level int
}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor(level int) S2Compressor {
	return S2Compressor{level: level}
}

func (c S2Compressor) Type() format.CompressionType {
	return format.CompressionS2
}

// Compress compresses the input data using S2 compression.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, s2.MaxEncodedLen(len(data)))
	switch {
	case c.level >= 7:
		return s2.EncodeBest(dst, data), nil
	case c.level >= 4:
		return s2.EncodeBetter(dst, data), nil
	default:
		return s2.Encode(dst, data), nil
	}
}

// Decompress decompresses the input data using S2 decompression.
func (c S2Compressor) Decompress(data []byte, size int) ([]byte, error) {
	if size == 0 {
		return nil, checkSize(format.CompressionS2, len(data), 0)
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, errs.Codec(format.CompressionS2, err)
	}
	if err := checkSize(format.CompressionS2, n, size); err != nil {
		return nil, err
	}

	out, err := s2.Decode(make([]byte, size), data)
	if err != nil {
		return nil, errs.Codec(format.CompressionS2, err)
	}

	return out, nil
}
