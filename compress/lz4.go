package compress

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains internal state that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4HCLevels maps effort levels 4..9 onto the high-compression levels.
var lz4HCLevels = [...]lz4.CompressionLevel{
	4: lz4.Level4,
	5: lz4.Level5,
	6: lz4.Level6,
	7: lz4.Level7,
	8: lz4.Level8,
	9: lz4.Level9,
}

// LZ4Compressor is the fast LZ77-family codec. Levels 1-3 use the fast block
// compressor, higher levels the HC compressor.
type LZ4Compressor struct {
	level int
}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor(level int) LZ4Compressor {
	return LZ4Compressor{level: level}
}

func (c LZ4Compressor) Type() format.CompressionType {
	return format.CompressionLZ4
}

// Compress compresses the input data as a single LZ4 block.
//
// The destination is one byte shorter than data, so output that would not
// shrink is rejected by the block compressor itself and reported as
// errs.ErrIncompressible.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, len(data)-1)

	var (
		n   int
		err error
	)
	if c.level >= 4 && c.level < len(lz4HCLevels) {
		hc := lz4.CompressorHC{Level: lz4HCLevels[c.level]}
		n, err = hc.CompressBlock(data, dst)
	} else {
		lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
		n, err = lc.CompressBlock(data, dst)
		lz4CompressorPool.Put(lc)
	}
	if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) || (err == nil && n == 0) {
		return nil, errs.ErrIncompressible
	}
	if err != nil {
		return nil, errs.Codec(format.CompressionLZ4, err)
	}

	return dst[:n], nil
}

// Decompress decompresses an LZ4 block into a buffer of exactly size bytes.
func (c LZ4Compressor) Decompress(data []byte, size int) ([]byte, error) {
	if size == 0 {
		return nil, checkSize(format.CompressionLZ4, len(data), 0)
	}

	buf := make([]byte, size)
	n, err := lz4.UncompressBlock(data, buf)
	if err != nil {
		return nil, errs.Codec(format.CompressionLZ4, err)
	}
	if err := checkSize(format.CompressionLZ4, n, size); err != nil {
		return nil, err
	}

	return buf, nil
}
