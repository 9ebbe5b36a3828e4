package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lrz/format"
)

func TestSentinelsWrapCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
	}{
		{"magic", ErrInvalidMagic, ErrCorruptStream},
		{"version", ErrUnsupportedVersion, ErrCorruptStream},
		{"checksum", ErrChunkChecksum, ErrCorruptStream},
		{"window", ErrOutOfWindow, ErrCorruptStream},
		{"op", ErrInvalidOp, ErrCorruptStream},
		{"too_large", ErrWindowTooLarge, ErrResource},
		{"mmap", ErrMmapUnsupported, ErrResource},
		{"unknown_codec", ErrUnknownCodec, ErrCodec},
		{"incompressible", ErrIncompressible, ErrCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.category)
		})
	}
}

func TestConstructors(t *testing.T) {
	err := IO("read input", io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Contains(t, err.Error(), "read input")
	require.NoError(t, IO("noop", nil))

	err = Corrupt("chunk %d too large", 7)
	require.ErrorIs(t, err, ErrCorruptStream)
	require.Contains(t, err.Error(), "chunk 7 too large")

	err = Resource("need %d bytes", 42)
	require.ErrorIs(t, err, ErrResource)

	cause := errors.New("boom")
	err = Codec(format.CompressionLZMA, cause)
	require.ErrorIs(t, err, ErrCodec)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "LZMA")
	require.Same(t, ErrIncompressible, Codec(format.CompressionLZ4, ErrIncompressible))

	require.ErrorIs(t, Config("threads must be positive"), ErrInvalidConfig)
}

func TestIsFatal(t *testing.T) {
	require.False(t, IsFatal(nil))
	require.False(t, IsFatal(ErrIncompressible))
	require.True(t, IsFatal(ErrChunkChecksum))
	require.True(t, IsFatal(ErrWindowTooLarge))
	require.True(t, IsFatal(IO("write", io.ErrShortWrite)))
	require.True(t, IsFatal(fmt.Errorf("%w: %w", ErrCorruptStream, ErrUnknownCodec)))
}
