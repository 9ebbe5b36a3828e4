//go:build cgo && gozstd

package compress

import (
	"github.com/valyala/gozstd"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// Compress compresses the input data using libzstd.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(make([]byte, 0, len(data)/2), data, zstdLevel(c.level)), nil
}

// Decompress decompresses Zstd-compressed data using libzstd.
func (c ZstdCompressor) Decompress(data []byte, size int) ([]byte, error) {
	decompressed, err := gozstd.Decompress(make([]byte, 0, size), data)
	if err != nil {
		return nil, errs.Codec(format.CompressionZstd, err)
	}
	if err := checkSize(format.CompressionZstd, len(decompressed), size); err != nil {
		return nil, err
	}

	return decompressed, nil
}
