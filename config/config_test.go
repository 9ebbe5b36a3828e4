package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	require.Equal(t, format.CompressionLZMA, cfg.Codec)
	require.Equal(t, 7, cfg.Level)
	require.Equal(t, int64(DefaultWindow), cfg.Window)
	require.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	require.True(t, cfg.AllowMmap)
	require.True(t, cfg.WindowFallback)
	require.Equal(t, int64(-1), cfg.SizeHint)
	require.Equal(t, []format.CompressionType{format.CompressionLZMA}, cfg.Tags())
	require.NotNil(t, cfg.Log())
}

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := New(
		WithCodec(format.CompressionZstd),
		WithLevel(9),
		WithThreads(8),
		WithWindow(1<<30),
		WithChunkSize(1<<20),
		WithMemoryCeiling(2<<30),
		WithMmap(false),
		WithWindowFallback(false),
		WithTempDir("/var/tmp"),
		WithSizeHint(12345),
		WithTestOnly(true),
		WithKeepPartial(true),
		WithStdio(true),
		WithVerbose(true),
		WithLogger(logger),
	)
	require.NoError(t, err)

	require.Equal(t, format.CompressionZstd, cfg.Codec)
	require.Equal(t, 9, cfg.Level)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, int64(1<<30), cfg.Window)
	require.Equal(t, 1<<20, cfg.ChunkSize)
	require.Equal(t, int64(2<<30), cfg.MemoryCeiling)
	require.False(t, cfg.AllowMmap)
	require.False(t, cfg.WindowFallback)
	require.Equal(t, "/var/tmp", cfg.TempDir)
	require.Equal(t, int64(12345), cfg.SizeHint)
	require.True(t, cfg.TestOnly)
	require.True(t, cfg.KeepPartial)
	require.True(t, cfg.Stdio)
	require.True(t, cfg.Verbose)
	require.Same(t, logger, cfg.Log())
}

func TestWithBestOf(t *testing.T) {
	cfg, err := New(WithBestOf(format.CompressionLZ4, format.CompressionLZMA))
	require.NoError(t, err)
	require.Equal(t, []format.CompressionType{format.CompressionLZ4, format.CompressionLZMA}, cfg.Tags())

	_, err = New(WithBestOf(format.CompressionLZ4))
	require.ErrorIs(t, err, errs.ErrInvalidConfig)

	_, err = New(WithBestOf(format.CompressionLZ4, format.CompressionLZ4))
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"level too low", WithLevel(0)},
		{"level too high", WithLevel(10)},
		{"no threads", WithThreads(0)},
		{"too many threads", WithThreads(MaxThreads + 1)},
		{"tiny window", WithWindow(MinWindow - 1)},
		{"tiny chunk", WithChunkSize(MinChunkSize - 1)},
		{"huge chunk", WithChunkSize(MaxChunkSize + 1)},
		{"no memory", WithMemoryCeiling(0)},
		{"unknown codec", WithCodec(format.CompressionType(0x42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}
}
