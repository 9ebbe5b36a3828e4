package compress

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// LZMACompressor is the high-ratio range coder and the default back end.
//
// Each chunk is an independent LZMA stream with the uncompressed size stored
// in its header. The dictionary grows with the level up to the chunk length.
type LZMACompressor struct {
	level int
}

var _ Codec = (*LZMACompressor)(nil)

// NewLZMACompressor creates a new LZMA compressor.
func NewLZMACompressor(level int) LZMACompressor {
	return LZMACompressor{level: level}
}

func (c LZMACompressor) Type() format.CompressionType {
	return format.CompressionLZMA
}

// lzmaDictCap returns the dictionary capacity for a chunk of n bytes:
// 1 MiB at level 1 doubling up to 256 MiB at level 9, never beyond n.
func lzmaDictCap(level, n int) int {
	dictCap := 1 << (19 + level)
	if n < dictCap {
		dictCap = n
	}

	return max(dictCap, lzma.MinDictCap)
}

// Compress compresses the input data as a single LZMA stream.
func (c LZMACompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	cfg := lzma.WriterConfig{
		DictCap:      lzmaDictCap(c.level, len(data)),
		SizeInHeader: true,
		Size:         int64(len(data)),
	}

	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, errs.Codec(format.CompressionLZMA, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.Codec(format.CompressionLZMA, err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Codec(format.CompressionLZMA, err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses an LZMA stream of exactly size bytes.
func (c LZMACompressor) Decompress(data []byte, size int) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Codec(format.CompressionLZMA, err)
	}

	return readExactly(format.CompressionLZMA, r, size)
}

// readExactly drains a streaming decoder that must yield exactly size bytes.
func readExactly(tag format.CompressionType, r io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errs.Codec(tag, err)
	}

	var probe [1]byte
	if n, _ := r.Read(probe[:]); n != 0 {
		return nil, checkSize(tag, size+n, size)
	}

	return out, nil
}
