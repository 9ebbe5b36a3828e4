// Package lrz compresses large files by finding repeats across a window of
// hundreds of megabytes or more, then compressing what remains with a regular
// codec.
//
// Compression runs in two stages. The rzip stage replaces long repeats within
// the window by copy operations and splits the input into a control lane of
// operations and a literal lane of unmatched bytes. The stream stage cuts both
// lanes into chunks, compresses the chunks in parallel with the configured
// codec (or the best of several), and writes them into a single file framed by
// a header and a trailer carrying the input size and its BLAKE3 digest.
//
// # Basic Usage
//
//	cfg, _ := config.New(
//	    config.WithCodec(format.CompressionZstd),
//	    config.WithThreads(runtime.NumCPU()),
//	    config.WithWindow(512<<20),
//	)
//
//	res, err := lrz.Compress(ctx, in, out, cfg)
//
// Decompression needs no configuration beyond resources; everything else is
// recorded in the file:
//
//	n, err := lrz.Decompress(ctx, in, out, config.Default())
//
// Inspect lists the chunks of a file without decompressing them.
package lrz

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/arloliu/lrz/compress"
	"github.com/arloliu/lrz/config"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/hash"
	"github.com/arloliu/lrz/internal/workerpool"
	"github.com/arloliu/lrz/rzip"
	"github.com/arloliu/lrz/section"
	"github.com/arloliu/lrz/stream"
	"github.com/arloliu/lrz/window"
)

const outBufSize = 1 << 20

// Result summarizes a compression run.
type Result struct {
	BytesIn  int64
	BytesOut int64
	Chunks   int
	// Window is the window actually used, after any fallback.
	Window int64
	// Mapped reports whether the window was paged through a spill file.
	Mapped bool
	Codecs map[format.CompressionType]int
	Rzip   rzip.Stats
}

// Ratio returns BytesIn / BytesOut.
func (r Result) Ratio() float64 {
	if r.BytesOut == 0 {
		return 0
	}

	return float64(r.BytesIn) / float64(r.BytesOut)
}

// Compress reads r to the end and writes its lrz encoding to w.
//
// A known cfg.SizeHint caps the window at the input size, and the header
// records the capped window. When the window does not fit the memory ceiling
// and cfg.WindowFallback is set, it is halved until it fits or drops below
// config.MinWindow.
func Compress(ctx context.Context, r io.Reader, w io.Writer, cfg config.Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	logger := cfg.Log()

	policy, err := compress.NewPolicy(nil, cfg.Level, cfg.Tags()...)
	if err != nil {
		return Result{}, err
	}

	m, err := openMatcher(cfg, clampWindow(cfg.Window, cfg.SizeHint), logger)
	if err != nil {
		return Result{}, err
	}
	defer m.Close()

	layout := m.Layout()

	pool := workerpool.New(cfg.Threads, logger)
	defer pool.Close()

	cw := &countWriter{Writer: w}
	bw := bufio.NewWriterSize(cw, outBufSize)

	fh := section.NewFileHeader(policy.Primary(), cfg.Level, layout.Window, cfg.ChunkSize)
	fh.SetOriginalSize(cfg.SizeHint)
	if policy.BestOf() {
		fh.Flags |= section.FlagBestOf
	}
	if _, err := bw.Write(fh.Bytes()); err != nil {
		return Result{}, errs.IO("write header", err)
	}

	sw, err := stream.NewWriter(ctx, bw, section.NumLanes, stream.WriterOptions{
		Policy:    policy,
		Pool:      pool,
		ChunkSize: cfg.ChunkSize,
		InFlight:  cfg.Threads,
		Logger:    logger,
	})
	if err != nil {
		return Result{}, err
	}

	stats, err := m.Compress(ctx, r, sw)
	if err != nil {
		sw.Abort()
		return Result{}, err
	}
	if cfg.SizeHint >= 0 && stats.Bytes != cfg.SizeHint {
		sw.Abort()
		return Result{}, errs.IO("read input", fmt.Errorf("read %d bytes, expected %d", stats.Bytes, cfg.SizeHint))
	}

	if err := sw.Close(); err != nil {
		return Result{}, err
	}

	trailer := section.Trailer{OriginalSize: uint64(stats.Bytes), Digest: stats.Digest} //nolint:gosec // non-negative
	if _, err := bw.Write(trailer.Bytes()); err != nil {
		return Result{}, errs.IO("write trailer", err)
	}
	if err := bw.Flush(); err != nil {
		return Result{}, errs.IO("write output", err)
	}

	ws := sw.Stats()
	res := Result{
		BytesIn:  stats.Bytes,
		BytesOut: cw.off,
		Chunks:   ws.Chunks,
		Window:   layout.Window,
		Mapped:   layout.Mapped,
		Codecs:   ws.Codecs,
		Rzip:     stats,
	}

	logger.Info("compressed",
		"in", config.FormatSize(res.BytesIn),
		"out", config.FormatSize(res.BytesOut),
		"ratio", fmt.Sprintf("%.3f", res.Ratio()),
		"window", config.FormatSize(res.Window),
		"mapped", res.Mapped,
		"chunks", res.Chunks,
		"matched", config.FormatSize(stats.MatchBytes))

	return res, nil
}

// clampWindow bounds win by the stream size when it is known. A window
// larger than the stream can never be reached by a copy.
func clampWindow(win, size int64) int64 {
	if size < 0 {
		return win
	}

	return min(win, max(size, config.MinWindow))
}

// openMatcher allocates the matcher, halving win on resource errors.
func openMatcher(cfg config.Config, win int64, logger *slog.Logger) (*rzip.Matcher, error) {
	for {
		m, err := rzip.NewMatcher(rzip.Options{
			Level:         cfg.Level,
			Window:        win,
			MemoryCeiling: cfg.MemoryCeiling,
			AllowMmap:     cfg.AllowMmap,
			TempDir:       cfg.TempDir,
			Logger:        logger,
		})
		if err == nil {
			return m, nil
		}

		next := win / 2
		if !errors.Is(err, errs.ErrResource) || !cfg.WindowFallback || next < config.MinWindow {
			return nil, err
		}

		logger.Warn("window does not fit, retrying with half",
			"window", config.FormatSize(win),
			"next", config.FormatSize(next),
			"error", err)
		win = next
	}
}

// Decompress reads an lrz file from r and writes the original bytes to w, or
// only verifies them when cfg.TestOnly is set. It returns the number of bytes
// reconstructed.
//
// The container is read out of order, so r is used through io.ReaderAt when
// it is a regular file or implements it; other readers are first copied to a
// temporary file in cfg.TempDir.
func Decompress(ctx context.Context, r io.Reader, w io.Writer, cfg config.Config) (int64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	logger := cfg.Log()

	src, cleanup, err := readerAt(r, cfg.TempDir)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	idx, err := stream.Scan(src)
	if err != nil {
		return 0, err
	}
	if idx.Header.Window > math.MaxInt64/2 || idx.Trailer.OriginalSize > math.MaxInt64 {
		return 0, fmt.Errorf("%w: window %d, size %d", errs.ErrInvalidFileHeader, idx.Header.Window, idx.Trailer.OriginalSize)
	}

	// decoders for every registered codec; the header tag is informational
	policy, err := compress.NewPolicy(nil, compress.DefaultLevel, format.CompressionNone)
	if err != nil {
		return 0, err
	}

	expected := int64(idx.Trailer.OriginalSize)
	win := clampWindow(int64(idx.Header.Window), expected)
	layout, err := rzip.HistoryLayout(win, cfg.MemoryCeiling, cfg.AllowMmap)
	if err != nil {
		return 0, err
	}
	hist, err := window.Open(layout, cfg.TempDir)
	if err != nil {
		return 0, err
	}
	defer hist.Close()

	pool := workerpool.New(cfg.Threads, logger)
	defer pool.Close()

	sr, err := stream.NewReader(ctx, src, idx, stream.ReaderOptions{
		Policy:   policy,
		Pool:     pool,
		Prefetch: cfg.Threads,
		Logger:   logger,
	})
	if err != nil {
		return 0, err
	}
	defer sr.Close()

	if cfg.TestOnly {
		w = io.Discard
	}
	digest := hash.NewDigest()

	n, err := rzip.Decompress(ctx, sr, io.MultiWriter(w, digest), hist, expected)
	if err != nil {
		return n, err
	}

	if idx.Header.HasDigest() {
		if sum := digest.Sum(); sum != idx.Trailer.Digest {
			return n, fmt.Errorf("%w: got %x, want %x", errs.ErrDigestMismatch, sum, idx.Trailer.Digest)
		}
	}

	logger.Info("decompressed",
		"in", config.FormatSize(idx.Size),
		"out", config.FormatSize(n),
		"window", config.FormatSize(layout.Window),
		"mapped", layout.Mapped,
		"chunks", idx.Chunks,
		"test_only", cfg.TestOnly)

	return n, nil
}

// readerAt returns random access to r, spilling it to a temporary file when
// r offers none.
func readerAt(r io.Reader, dir string) (io.ReaderAt, func(), error) {
	nop := func() {}

	if f, ok := r.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
			return f, nop, nil
		}
	} else if ra, ok := r.(io.ReaderAt); ok {
		return ra, nop, nil
	}

	tmp, err := os.CreateTemp(dir, "lrz-input-*")
	if err != nil {
		return nil, nop, errs.IO("create spill file", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return nil, nop, errs.IO("spill input", err)
	}

	return tmp, cleanup, nil
}

type countWriter struct {
	io.Writer
	off int64
}

func (cw *countWriter) Write(data []byte) (int, error) {
	n, err := cw.Writer.Write(data)
	cw.off += int64(n)

	return n, err
}
