package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

func TestParse(t *testing.T) {
	data := []byte(`
codec: zstd
level: 9
threads: 4
window: 512MiB
chunk_size: 4MiB
memory_ceiling: 2GiB
mmap: false
window_fallback: false
temp_dir: /scratch
keep_partial: true
verbose: true
`)

	f, err := Parse(data)
	require.NoError(t, err)

	cfg, err := New(WithFile(f))
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, cfg.Codec)
	require.Equal(t, 9, cfg.Level)
	require.Equal(t, 4, cfg.Threads)
	require.Equal(t, int64(512<<20), cfg.Window)
	require.Equal(t, 4<<20, cfg.ChunkSize)
	require.Equal(t, int64(2<<30), cfg.MemoryCeiling)
	require.False(t, cfg.AllowMmap)
	require.False(t, cfg.WindowFallback)
	require.Equal(t, "/scratch", cfg.TempDir)
	require.True(t, cfg.KeepPartial)
	require.True(t, cfg.Verbose)
}

func TestParse_Partial(t *testing.T) {
	f, err := Parse([]byte("level: 3\n"))
	require.NoError(t, err)

	cfg, err := New(WithFile(f))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Level)
	require.Equal(t, Default().Codec, cfg.Codec)
	require.Equal(t, Default().Window, cfg.Window)
	require.True(t, cfg.AllowMmap)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)

	cfg, err := New(WithFile(f))
	require.NoError(t, err)
	require.Equal(t, Default().Level, cfg.Level)
}

func TestParse_BestOf(t *testing.T) {
	f, err := Parse([]byte("best_of: [lz4, LZMA, cm]\n"))
	require.NoError(t, err)

	cfg, err := New(WithFile(f))
	require.NoError(t, err)
	require.Equal(t, []format.CompressionType{
		format.CompressionLZ4, format.CompressionLZMA, format.CompressionCM,
	}, cfg.Tags())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "compression_method: lzma\n"},
		{"bad yaml", "level: [\n"},
		{"bad codec", "codec: bzip3\n"},
		{"bad size", "window: lots\n"},
		{"bad best_of", "best_of: [zstd, nope]\n"},
		{"invalid value", "level: 11\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data))
			if err == nil {
				_, err = New(WithFile(f))
			}
			require.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lrz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec: deflate\nlevel: 2\n"), 0o600))

	cfg, err := Load(path, WithLevel(5))
	require.NoError(t, err)
	require.Equal(t, format.CompressionDeflate, cfg.Codec)
	require.Equal(t, 5, cfg.Level, "explicit options override the file")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestWithConfigFile_OverridesEarlierOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 3\n"), 0o600))

	cfg, err := New(WithThreads(8), WithWindow(1<<20), WithConfigFile(path))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Threads, "file overrides defaults applied before it")
	require.Equal(t, int64(1<<20), cfg.Window, "unset keys keep earlier values")
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"64MiB", 64 << 20},
		{"1 GiB", 1 << 30},
		{"10k", 10000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSize("many")
	require.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "64 MiB", FormatSize(64<<20))
	require.Equal(t, "unknown", FormatSize(-1))
}
