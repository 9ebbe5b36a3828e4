package lrz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/lrz/config"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/section"
)

func randomBytes(seed uint64, n int) []byte {
	rng := rand.New(rand.NewPCG(seed, ^seed))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}

	return b
}

// wordSalad draws words from a small vocabulary: codecs shrink it well while
// 32-byte repeats stay rare.
func wordSalad(seed uint64, n int) []byte {
	words := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
		"india", "juliett", "kilo", "lima", "mike", "november", "oscar", "papa",
	}

	rng := rand.New(rand.NewPCG(seed, ^seed))
	b := make([]byte, 0, n+16)
	for len(b) < n {
		b = append(b, words[rng.IntN(len(words))]...)
		b = append(b, ' ')
	}

	return b[:n]
}

func testInputs() map[string][]byte {
	random := randomBytes(1, 96<<10)
	far := randomBytes(2, 32<<10)

	var longRange []byte
	longRange = append(longRange, far...)
	longRange = append(longRange, randomBytes(3, 160<<10)...)
	longRange = append(longRange, far...)

	return map[string][]byte{
		"empty":       {},
		"single byte": {0x7f},
		"repetitive":  bytes.Repeat([]byte("lrz long range zip "), 8000),
		"random":      random,
		"long range":  longRange,
	}
}

func testConfig(t *testing.T, opts ...config.Option) config.Config {
	t.Helper()

	base := []config.Option{
		config.WithWindow(1 << 20),
		config.WithChunkSize(16 << 10),
		config.WithMemoryCeiling(64 << 20),
		config.WithTempDir(t.TempDir()),
	}
	cfg, err := config.New(append(base, opts...)...)
	require.NoError(t, err)

	return cfg
}

func compressBytes(t *testing.T, data []byte, cfg config.Config) ([]byte, Result) {
	t.Helper()

	var out bytes.Buffer
	res, err := Compress(context.Background(), bytes.NewReader(data), &out, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), res.BytesIn)
	require.Equal(t, int64(out.Len()), res.BytesOut)

	return out.Bytes(), res
}

func decompressBytes(t *testing.T, file []byte, cfg config.Config) []byte {
	t.Helper()

	var out bytes.Buffer
	n, err := Decompress(context.Background(), bytes.NewReader(file), &out, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(out.Len()), n)

	return out.Bytes()
}

func TestRoundTrip(t *testing.T) {
	inputs := testInputs()

	for _, tag := range format.AllCompressionTypes() {
		for _, threads := range []int{1, 4} {
			for name, data := range inputs {
				t.Run(fmt.Sprintf("%s/threads%d/%s", tag, threads, name), func(t *testing.T) {
					cfg := testConfig(t,
						config.WithCodec(tag),
						config.WithLevel(5),
						config.WithThreads(threads),
					)

					file, _ := compressBytes(t, data, cfg)
					got := decompressBytes(t, file, cfg)
					require.True(t, bytes.Equal(data, got), "round trip mismatch")
				})
			}
		}
	}
}

func TestRoundTrip_Levels(t *testing.T) {
	data := testInputs()["long range"]

	for level := 1; level <= 9; level++ {
		t.Run(fmt.Sprintf("level%d", level), func(t *testing.T) {
			cfg := testConfig(t, config.WithCodec(format.CompressionZstd), config.WithLevel(level), config.WithThreads(2))

			file, res := compressBytes(t, data, cfg)
			require.Positive(t, res.Rzip.MatchBytes)
			require.Equal(t, data, decompressBytes(t, file, cfg))

			info, err := Inspect(bytes.NewReader(file))
			require.NoError(t, err)
			require.Equal(t, uint8(level), info.Header.Level)
		})
	}
}

func TestCompress_LongRangeBeatsCodecAlone(t *testing.T) {
	data := testInputs()["long range"]

	cfg := testConfig(t, config.WithCodec(format.CompressionLZ4))
	file, res := compressBytes(t, data, cfg)

	// the repeat lies 192 KiB back, out of reach of LZ4's 64 KiB window
	require.GreaterOrEqual(t, res.Rzip.MatchBytes, int64(32<<10-64))
	require.Less(t, len(file), len(data)-(30<<10))
}

func TestCompress_WindowLimitsMatches(t *testing.T) {
	data := testInputs()["long range"]

	cfg := testConfig(t, config.WithCodec(format.CompressionNone), config.WithWindow(64<<10))
	file, res := compressBytes(t, data, cfg)
	require.Equal(t, int64(64<<10), res.Window)
	require.Zero(t, res.Rzip.MatchBytes)

	require.Equal(t, data, decompressBytes(t, file, cfg))
}

func TestCompress_BestOf(t *testing.T) {
	data := wordSalad(6, 160<<10)

	cfg := testConfig(t,
		config.WithBestOf(format.CompressionSnappy, format.CompressionLZMA),
		config.WithThreads(2),
	)
	file, res := compressBytes(t, data, cfg)

	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)
	require.NotZero(t, info.Header.Flags&section.FlagBestOf)
	require.Equal(t, format.CompressionSnappy, info.Header.Codec)
	require.NotContains(t, info.Codecs, format.CompressionSnappy)
	require.Equal(t, res.Codecs[format.CompressionLZMA], info.Codecs[format.CompressionLZMA].Chunks)

	snappyOnly, _ := compressBytes(t, data, testConfig(t, config.WithCodec(format.CompressionSnappy)))
	require.Less(t, len(file), len(snappyOnly))

	require.Equal(t, data, decompressBytes(t, file, cfg))
}

func TestCompress_AlreadyCompressedPassesThrough(t *testing.T) {
	data := snappy.Encode(nil, randomBytes(4, 200<<10))

	cfg := testConfig(t, config.WithCodec(format.CompressionLZMA))
	file, _ := compressBytes(t, data, cfg)

	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)
	lits := info.Lanes[section.LaneLiteral]
	require.Equal(t, int64(len(data)), lits.Uncompressed)
	require.Positive(t, info.Codecs[format.CompressionNone].Chunks)
	require.Equal(t, lits.Uncompressed, lits.Compressed)

	require.Equal(t, data, decompressBytes(t, file, cfg))
}

func TestCompress_ResourceFallback(t *testing.T) {
	data := testInputs()["long range"]

	t.Run("steps down", func(t *testing.T) {
		var logs bytes.Buffer
		cfg := testConfig(t,
			config.WithWindow(64<<20),
			config.WithMemoryCeiling(8<<20),
			config.WithMmap(false),
			config.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		)

		file, res := compressBytes(t, data, cfg)
		require.Equal(t, int64(4<<20), res.Window)
		require.Contains(t, logs.String(), "window does not fit")

		info, err := Inspect(bytes.NewReader(file))
		require.NoError(t, err)
		require.Equal(t, uint64(4<<20), info.Header.Window)

		require.Equal(t, data, decompressBytes(t, file, cfg))
	})

	t.Run("fallback disabled", func(t *testing.T) {
		cfg := testConfig(t,
			config.WithWindow(64<<20),
			config.WithMemoryCeiling(8<<20),
			config.WithMmap(false),
			config.WithWindowFallback(false),
		)

		_, err := Compress(context.Background(), bytes.NewReader(data), io.Discard, cfg)
		require.ErrorIs(t, err, errs.ErrResource)
	})

	t.Run("minimum does not fit", func(t *testing.T) {
		cfg := testConfig(t, config.WithMemoryCeiling(32<<10))

		var out bytes.Buffer
		_, err := Compress(context.Background(), bytes.NewReader(data), &out, cfg)
		require.ErrorIs(t, err, errs.ErrWindowTooLarge)
		require.Zero(t, out.Len())
	})
}

func TestCompress_SizeHint(t *testing.T) {
	data := testInputs()["repetitive"]

	cfg := testConfig(t, config.WithSizeHint(int64(len(data))))
	file, _ := compressBytes(t, data, cfg)

	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)
	require.True(t, info.Header.SizeKnown())
	require.Equal(t, uint64(len(data)), info.Header.OriginalSize)

	cfg = testConfig(t, config.WithSizeHint(int64(len(data))+1))
	_, err = Compress(context.Background(), bytes.NewReader(data), io.Discard, cfg)
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestCompress_WindowClampedToSize(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int64
	}{
		{"single byte", []byte{0x7f}, config.MinWindow},
		{"empty", []byte{}, config.MinWindow},
		{"smaller than window", testInputs()["long range"], int64(len(testInputs()["long range"]))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.New(config.WithSizeHint(int64(len(tt.data))), config.WithTempDir(t.TempDir()))
			require.NoError(t, err)
			require.Equal(t, int64(config.DefaultWindow), cfg.Window)

			file, res := compressBytes(t, tt.data, cfg)
			require.Equal(t, tt.want, res.Window)

			info, err := Inspect(bytes.NewReader(file))
			require.NoError(t, err)
			require.Equal(t, uint64(tt.want), info.Header.Window)

			require.True(t, bytes.Equal(tt.data, decompressBytes(t, file, cfg)))
		})
	}

	t.Run("unknown size keeps the window", func(t *testing.T) {
		_, res := compressBytes(t, []byte{0x7f}, testConfig(t))
		require.Equal(t, int64(1<<20), res.Window)
	})

	t.Run("history follows the stream size", func(t *testing.T) {
		data := testInputs()["repetitive"]
		file, _ := compressBytes(t, data, testConfig(t, config.WithWindow(16<<20), config.WithMemoryCeiling(64<<20)))

		// a 16 MiB history would not fit, the stream itself does
		cfg := testConfig(t, config.WithMemoryCeiling(1<<20), config.WithMmap(false))
		require.Equal(t, data, decompressBytes(t, file, cfg))
	})
}

func TestDecompress_NonSeekableInput(t *testing.T) {
	data := testInputs()["long range"]
	cfg := testConfig(t, config.WithCodec(format.CompressionS2))
	file, _ := compressBytes(t, data, cfg)

	var out bytes.Buffer
	// MultiReader hides io.ReaderAt, forcing a spill file
	n, err := Decompress(context.Background(), io.MultiReader(bytes.NewReader(file)), &out, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Equal(t, data, out.Bytes())
}

func TestDecompress_TestOnly(t *testing.T) {
	data := testInputs()["repetitive"]
	file, _ := compressBytes(t, data, testConfig(t))

	var out bytes.Buffer
	n, err := Decompress(context.Background(), bytes.NewReader(file), &out, testConfig(t, config.WithTestOnly(true)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	require.Zero(t, out.Len())
}

func TestDecompress_Corruption(t *testing.T) {
	data := testInputs()["long range"]
	cfg := testConfig(t, config.WithCodec(format.CompressionNone))
	file, _ := compressBytes(t, data, cfg)

	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)

	corrupt := func(off int64) []byte {
		b := append([]byte(nil), file...)
		b[off] ^= 0x01

		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"digest", corrupt(int64(len(file)) - 1), errs.ErrDigestMismatch},
		{"payload", corrupt(info.Chunks[len(info.Chunks)/2].Offset + 3), errs.ErrChunkChecksum},
		{"trailer size", corrupt(int64(len(file)) - section.TrailerSize), errs.ErrSizeMismatch},
		{"truncated", file[:len(file)-1], errs.ErrTruncated},
		{"magic", corrupt(1), errs.ErrInvalidMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(context.Background(), bytes.NewReader(tt.data), io.Discard, cfg)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrCorruptStream)
			require.True(t, errs.IsFatal(err))
		})
	}
}

func TestDecompress_WindowTooLarge(t *testing.T) {
	// history is bounded by the stream size, so the stream must exceed the ceiling
	data := bytes.Repeat(testInputs()["repetitive"], 28)
	file, _ := compressBytes(t, data, testConfig(t, config.WithWindow(16<<20), config.WithMemoryCeiling(64<<20)))

	cfg := testConfig(t, config.WithMemoryCeiling(1<<20), config.WithMmap(false))
	_, err := Decompress(context.Background(), bytes.NewReader(file), io.Discard, cfg)
	require.ErrorIs(t, err, errs.ErrResource)
}

func TestCompress_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compress(ctx, bytes.NewReader(randomBytes(5, 1<<20)), io.Discard, testConfig(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestInspect(t *testing.T) {
	data := testInputs()["long range"]
	cfg := testConfig(t, config.WithCodec(format.CompressionZstd), config.WithLevel(9))
	file, res := compressBytes(t, data, cfg)

	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)

	require.Equal(t, format.CompressionZstd, info.Header.Codec)
	require.Equal(t, uint64(len(data)), info.Trailer.OriginalSize)
	require.Equal(t, int64(len(file)), info.FileSize)
	require.Len(t, info.Chunks, res.Chunks)
	require.InDelta(t, res.Ratio(), info.Ratio(), 0.0001)
	require.Equal(t, res.Rzip.LiteralBytes, info.Lanes[section.LaneLiteral].Uncompressed)

	var total int
	for _, tag := range info.CodecTypes() {
		total += info.Codecs[tag].Chunks
	}
	require.Equal(t, len(info.Chunks), total)

	for i := 1; i < len(info.Chunks); i++ {
		require.Greater(t, info.Chunks[i].Offset, info.Chunks[i-1].Offset)
	}
}
