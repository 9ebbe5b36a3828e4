package compress

import "github.com/arloliu/lrz/format"

// NoOpCompressor stores chunks verbatim. It is the fallback when no codec
// shrinks a chunk, which also makes re-compressing already compressed input
// a passthrough.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a new no-operation compressor.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

func (c NoOpCompressor) Type() format.CompressionType {
	return format.CompressionNone
}

// Compress returns the input slice as-is, without copying.
//
// Note: The returned slice shares the same underlying memory as the input.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input slice as-is after checking its length.
func (c NoOpCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if err := checkSize(format.CompressionNone, len(data), size); err != nil {
		return nil, err
	}

	return data, nil
}
