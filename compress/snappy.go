package compress

import (
	"github.com/golang/snappy"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// SnappyCompressor is the Snappy block codec. It has no effort levels.
type SnappyCompressor struct{}

var _ Codec = (*SnappyCompressor)(nil)

// NewSnappyCompressor creates a new Snappy compressor.
func NewSnappyCompressor() SnappyCompressor {
	return SnappyCompressor{}
}

func (c SnappyCompressor) Type() format.CompressionType {
	return format.CompressionSnappy
}

// Compress compresses the input data as a single Snappy block.
func (c SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return snappy.Encode(nil, data), nil
}

// Decompress decompresses a Snappy block.
func (c SnappyCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if size == 0 {
		return nil, checkSize(format.CompressionSnappy, len(data), 0)
	}

	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, errs.Codec(format.CompressionSnappy, err)
	}
	if err := checkSize(format.CompressionSnappy, n, size); err != nil {
		return nil, err
	}

	out, err := snappy.Decode(make([]byte, size), data)
	if err != nil {
		return nil, errs.Codec(format.CompressionSnappy, err)
	}

	return out, nil
}
