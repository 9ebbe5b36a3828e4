// Package config holds the immutable configuration record of one compress or
// decompress invocation.
//
// A Config is built once, validated, and passed by value to every component
// constructor; nothing reads configuration from globals.
//
//	cfg, err := config.New(
//	    config.WithCodec(format.CompressionZstd),
//	    config.WithLevel(9),
//	    config.WithThreads(runtime.NumCPU()),
//	    config.WithWindow(256<<20),
//	)
package config

import (
	"log/slog"

	"github.com/arloliu/lrz/compress"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/options"
	"github.com/arloliu/lrz/section"
)

// Defaults and limits.
const (
	DefaultWindow        = 64 << 20 // 64 MiB
	MinWindow            = 4 << 10  // 4 KiB
	DefaultChunkSize     = 10 << 20 // 10 MiB per lane chunk
	DefaultMemoryCeiling = 1 << 30  // 1 GiB
	DefaultThreads       = 1
	MaxThreads           = 64

	MinChunkSize = section.MinChunkSize
	MaxChunkSize = section.MaxChunkSize
)

// Config is the configuration record consumed by the compression engine.
type Config struct {
	// Codec is the back-end codec of every chunk.
	Codec format.CompressionType
	// BestOf, when non-empty, replaces Codec: every chunk is compressed with
	// each listed codec and the smallest result is kept.
	BestOf []format.CompressionType
	// Level is the compression effort, 1..9. It drives both the back-end codec
	// and the sampling density of the rzip hash index.
	Level int
	// Threads is the number of chunk workers.
	Threads int

	// Window is the maximum distance of a long-range match.
	Window int64
	// ChunkSize is the maximum uncompressed size of one chunk of one lane.
	ChunkSize int
	// MemoryCeiling bounds the resident window plus hash index.
	MemoryCeiling int64
	// AllowMmap lets a window that exceeds MemoryCeiling page through a
	// memory-mapped spill file instead of failing.
	AllowMmap bool
	// WindowFallback halves the window and retries when it cannot be allocated.
	WindowFallback bool
	// TempDir holds mmap spill files and spooled non-seekable input.
	// Empty means os.TempDir().
	TempDir string
	// SizeHint is the input size when known up front, -1 otherwise.
	SizeHint int64

	TestOnly    bool // decompress and verify without writing output
	KeepPartial bool // leave partial output behind on failure
	Stdio       bool // input and output are stdin and stdout
	Verbose     bool

	Logger *slog.Logger
}

// Option configures a Config.
type Option = options.Option[*Config]

// Default returns the default configuration.
func Default() Config {
	return Config{
		Codec:          format.CompressionLZMA,
		Level:          compress.DefaultLevel,
		Threads:        DefaultThreads,
		Window:         DefaultWindow,
		ChunkSize:      DefaultChunkSize,
		MemoryCeiling:  DefaultMemoryCeiling,
		AllowMmap:      true,
		WindowFallback: true,
		SizeHint:       -1,
	}
}

// New returns Default with opts applied, validated.
func New(opts ...Option) (Config, error) {
	cfg := Default()
	if err := apply(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field against its limits.
func (c Config) Validate() error {
	if c.Level < compress.MinLevel || c.Level > compress.MaxLevel {
		return errs.Config("level %d outside [%d, %d]", c.Level, compress.MinLevel, compress.MaxLevel)
	}
	if c.Threads < 1 || c.Threads > MaxThreads {
		return errs.Config("threads %d outside [1, %d]", c.Threads, MaxThreads)
	}
	if c.Window < MinWindow {
		return errs.Config("window %d below minimum %d", c.Window, MinWindow)
	}
	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return errs.Config("chunk size %d outside [%d, %d]", c.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if c.MemoryCeiling <= 0 {
		return errs.Config("memory ceiling must be positive")
	}

	reg := compress.DefaultRegistry()
	for _, tag := range c.Tags() {
		if !reg.Has(tag) {
			return errs.Config("unknown codec %s", tag)
		}
	}

	return nil
}

// Tags returns the codec candidates for each chunk.
func (c Config) Tags() []format.CompressionType {
	if len(c.BestOf) > 0 {
		return c.BestOf
	}

	return []format.CompressionType{c.Codec}
}

// Log returns the configured logger, or one that discards everything.
func (c Config) Log() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}

	return c.Logger
}

var discardLogger = slog.New(slog.DiscardHandler)
