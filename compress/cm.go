package compress

import (
	"bytes"
	"io"

	kio "github.com/flanglet/kanzi-go/v2/io"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// Block size limits of the kanzi bitstream.
const (
	cmMinBlockSize = 1024
	cmMaxBlockSize = 1 << 30
)

// CMCompressor is the context-mixing codec, backed by kanzi's CM and TPAQ
// entropy coders. Levels 1-6 use CM, 7-8 TPAQ and 9 TPAQX. It is the slowest
// and strongest back end.
type CMCompressor struct {
	level int
}

var _ Codec = (*CMCompressor)(nil)

// NewCMCompressor creates a new context-mixing compressor.
func NewCMCompressor(level int) CMCompressor {
	return CMCompressor{level: level}
}

func (c CMCompressor) Type() format.CompressionType {
	return format.CompressionCM
}

func (c CMCompressor) entropy() string {
	switch {
	case c.level >= 9:
		return "TPAQX"
	case c.level >= 7:
		return "TPAQ"
	default:
		return "CM"
	}
}

// cmBlockSize returns a kanzi block size covering n bytes in one block.
func cmBlockSize(n int) uint {
	size := max(n, cmMinBlockSize)
	size = (size + 15) &^ 15

	return uint(min(size, cmMaxBlockSize)) //nolint:gosec // bounded above
}

// nopWriteCloser lets the kanzi writer close its bitstream without closing
// the caller's buffer.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Compress compresses the input data as a single kanzi stream.
func (c CMCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	w, err := kio.NewWriter(nopWriteCloser{&buf}, "NONE", c.entropy(), cmBlockSize(len(data)), 1, false, int64(len(data)), false)
	if err != nil {
		return nil, errs.Codec(format.CompressionCM, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()

		return nil, errs.Codec(format.CompressionCM, err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Codec(format.CompressionCM, err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses a kanzi stream of exactly size bytes.
func (c CMCompressor) Decompress(data []byte, size int) ([]byte, error) {
	r, err := kio.NewReader(io.NopCloser(bytes.NewReader(data)), 1)
	if err != nil {
		return nil, errs.Codec(format.CompressionCM, err)
	}
	defer r.Close()

	return readExactly(format.CompressionCM, r, size)
}
