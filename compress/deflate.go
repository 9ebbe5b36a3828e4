package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// flateWriterPools holds one writer pool per effort level; flate levels 1-9
// coincide with ours.
var flateWriterPools = func() [MaxLevel + 1]*sync.Pool {
	var pools [MaxLevel + 1]*sync.Pool
	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		pools[lvl] = &sync.Pool{
			New: func() any {
				w, err := flate.NewWriter(nil, lvl)
				if err != nil {
					panic(fmt.Sprintf("failed to create flate writer for pool: %v", err))
				}

				return w
			},
		}
	}

	return pools
}()

var flateReaderPool = sync.Pool{
	New: func() any {
		return flate.NewReader(bytes.NewReader(nil))
	},
}

// DeflateCompressor is the raw DEFLATE codec.
type DeflateCompressor struct {
	level int
}

var _ Codec = (*DeflateCompressor)(nil)

// NewDeflateCompressor creates a new DEFLATE compressor.
func NewDeflateCompressor(level int) DeflateCompressor {
	return DeflateCompressor{level: min(max(level, MinLevel), MaxLevel)}
}

func (c DeflateCompressor) Type() format.CompressionType {
	return format.CompressionDeflate
}

// Compress compresses the input data as a raw DEFLATE stream.
func (c DeflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	pool := flateWriterPools[c.level]
	w, _ := pool.Get().(*flate.Writer)
	defer pool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errs.Codec(format.CompressionDeflate, err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Codec(format.CompressionDeflate, err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses a raw DEFLATE stream of exactly size bytes.
func (c DeflateCompressor) Decompress(data []byte, size int) ([]byte, error) {
	r, _ := flateReaderPool.Get().(io.ReadCloser)
	defer flateReaderPool.Put(r)

	if err := r.(flate.Resetter).Reset(bytes.NewReader(data), nil); err != nil {
		return nil, errs.Codec(format.CompressionDeflate, err)
	}

	return readExactly(format.CompressionDeflate, r, size)
}
