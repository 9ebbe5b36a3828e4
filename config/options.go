package config

import (
	"log/slog"
	"slices"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/options"
)

func apply(cfg *Config, opts ...Option) error {
	return options.Apply(cfg, opts...)
}

// WithCodec selects the back-end codec.
func WithCodec(tag format.CompressionType) Option {
	return options.NoError(func(c *Config) {
		c.Codec = tag
	})
}

// WithBestOf enables best-of-N selection among tags. At least two distinct
// tags are required; pass a single codec with WithCodec instead.
func WithBestOf(tags ...format.CompressionType) Option {
	return options.New(func(c *Config) error {
		uniq := slices.Compact(slices.Sorted(slices.Values(tags)))
		if len(uniq) < 2 {
			return errs.Config("best-of needs at least two distinct codecs, got %d", len(uniq))
		}
		c.BestOf = slices.Clone(tags)

		return nil
	})
}

// WithLevel sets the compression effort (1..9).
func WithLevel(level int) Option {
	return options.NoError(func(c *Config) {
		c.Level = level
	})
}

// WithThreads sets the number of chunk workers.
func WithThreads(n int) Option {
	return options.NoError(func(c *Config) {
		c.Threads = n
	})
}

// WithWindow sets the maximum match distance in bytes.
func WithWindow(size int64) Option {
	return options.NoError(func(c *Config) {
		c.Window = size
	})
}

// WithChunkSize sets the maximum uncompressed chunk size in bytes.
func WithChunkSize(size int) Option {
	return options.NoError(func(c *Config) {
		c.ChunkSize = size
	})
}

// WithMemoryCeiling bounds the resident memory of the window and index.
func WithMemoryCeiling(size int64) Option {
	return options.NoError(func(c *Config) {
		c.MemoryCeiling = size
	})
}

// WithMmap allows or forbids paging the window through a mapped spill file.
func WithMmap(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.AllowMmap = enabled
	})
}

// WithWindowFallback enables halving the window on resource errors.
func WithWindowFallback(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.WindowFallback = enabled
	})
}

// WithTempDir sets the directory for spill files.
func WithTempDir(dir string) Option {
	return options.NoError(func(c *Config) {
		c.TempDir = dir
	})
}

// WithSizeHint records the input size when the caller knows it.
func WithSizeHint(size int64) Option {
	return options.NoError(func(c *Config) {
		c.SizeHint = size
	})
}

// WithTestOnly makes decompression verify without writing output.
func WithTestOnly(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.TestOnly = enabled
	})
}

// WithKeepPartial keeps partial output files on failure.
func WithKeepPartial(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.KeepPartial = enabled
	})
}

// WithStdio marks the invocation as reading stdin and writing stdout.
func WithStdio(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.Stdio = enabled
	})
}

// WithVerbose enables per-chunk logging.
func WithVerbose(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.Verbose = enabled
	})
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		c.Logger = logger
	})
}

// WithFile overlays the settings of a parsed configuration file.
func WithFile(f *File) Option {
	return options.New(func(c *Config) error {
		return f.applyTo(c)
	})
}
