package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/arloliu/lrz/config"
	"github.com/arloliu/lrz/format"
)

type cliOptions struct {
	decompress bool
	test       bool
	info       bool
	keep       bool
	force      bool
	stdout     bool
	noMmap     bool
	help       bool
	version    bool
	verbose    int

	output     string
	suffix     string
	configPath string
	tmpDir     string

	level   int
	threads int
	window  string
	memory  string
	chunk   string
	codec   string
	bestOf  []string

	// codec shorthands
	none, lz4, deflate, cm, zstd, s2, snappy bool

	flags *pflag.FlagSet
	files []string
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := pflag.NewFlagSet("lrz", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.BoolVarP(&o.decompress, "decompress", "d", false, "decompress")
	fs.BoolVarP(&o.test, "test", "t", false, "test integrity of compressed files")
	fs.BoolVarP(&o.info, "info", "i", false, "show the layout of compressed files")
	fs.BoolVarP(&o.keep, "keep-broken", "k", false, "keep partial output on failure")
	fs.BoolVarP(&o.force, "force", "f", false, "overwrite output files, write to a terminal")
	fs.BoolVarP(&o.stdout, "stdout", "c", false, "write to standard output")
	fs.StringVarP(&o.output, "outfile", "o", "", "output file name")
	fs.StringVarP(&o.suffix, "suffix", "S", ".lrz", "compressed file suffix")

	fs.IntVarP(&o.level, "level", "L", 0, "compression level 1-9 (default 7)")
	fs.StringVarP(&o.window, "window", "w", "", "long-range window, e.g. 512MiB")
	fs.IntVarP(&o.threads, "threads", "p", 0, "worker threads (default: number of CPUs)")
	fs.StringVarP(&o.memory, "maxram", "M", "", "memory ceiling for window and index (default: 2/3 of RAM)")
	fs.StringVar(&o.chunk, "chunk-size", "", "maximum chunk size per lane")
	fs.BoolVarP(&o.noMmap, "no-mmap", "N", false, "never page the window through a spill file")
	fs.StringVar(&o.tmpDir, "tmpdir", "", "directory for spill files")

	fs.StringVar(&o.codec, "codec", "", "back-end codec by name")
	fs.BoolVarP(&o.none, "no-compress", "n", false, "rzip only, store chunks as-is")
	fs.BoolVarP(&o.lz4, "lz4", "l", false, "LZ4 back end (fastest)")
	fs.BoolVarP(&o.deflate, "gzip", "g", false, "Deflate back end")
	fs.BoolVarP(&o.cm, "zpaq", "z", false, "context-mixing back end (slowest, strongest)")
	fs.BoolVarP(&o.zstd, "zstd", "Z", false, "Zstandard back end")
	fs.BoolVarP(&o.s2, "s2", "b", false, "S2 back end")
	fs.BoolVarP(&o.snappy, "snappy", "s", false, "Snappy back end")
	fs.StringSliceVar(&o.bestOf, "best-of", nil, "compress every chunk with each codec and keep the smallest")

	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.CountVarP(&o.verbose, "verbose", "v", "increase verbosity")
	fs.BoolVarP(&o.version, "version", "V", false, "print version")
	fs.BoolVarP(&o.help, "help", "h", false, "show this help")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lrz [options] [file...]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			o.help = true
			return o, nil
		}

		return nil, err
	}
	if o.help {
		fs.Usage()
	}

	o.flags = fs
	o.files = fs.Args()

	return o, nil
}

// selectedCodec resolves the codec shorthands; at most one may be given.
func (o *cliOptions) selectedCodec() (format.CompressionType, bool, error) {
	shorthands := []struct {
		set bool
		tag format.CompressionType
	}{
		{o.none, format.CompressionNone},
		{o.lz4, format.CompressionLZ4},
		{o.deflate, format.CompressionDeflate},
		{o.cm, format.CompressionCM},
		{o.zstd, format.CompressionZstd},
		{o.s2, format.CompressionS2},
		{o.snappy, format.CompressionSnappy},
	}

	var (
		tag   format.CompressionType
		found int
	)
	for _, s := range shorthands {
		if s.set {
			tag = s.tag
			found++
		}
	}
	if o.codec != "" {
		t, err := format.ParseCompressionType(o.codec)
		if err != nil {
			return 0, false, err
		}
		tag = t
		found++
	}

	if found > 1 {
		return 0, false, errors.New("more than one codec selected")
	}

	return tag, found == 1, nil
}

// config builds the run configuration: machine defaults, then the
// configuration file, then explicit flags.
func (o *cliOptions) config(logger *slog.Logger) (config.Config, error) {
	opts := []config.Option{
		config.WithThreads(min(runtime.NumCPU(), config.MaxThreads)),
		config.WithMemoryCeiling(defaultMemoryCeiling()),
	}
	if o.configPath != "" {
		opts = append(opts, config.WithConfigFile(o.configPath))
	}

	changed := o.flags.Changed

	tag, ok, err := o.selectedCodec()
	if err != nil {
		return config.Config{}, err
	}
	if ok {
		opts = append(opts, config.WithCodec(tag))
	}

	if len(o.bestOf) > 0 {
		tags := make([]format.CompressionType, 0, len(o.bestOf))
		for _, name := range o.bestOf {
			t, err := format.ParseCompressionType(name)
			if err != nil {
				return config.Config{}, err
			}
			tags = append(tags, t)
		}
		opts = append(opts, config.WithBestOf(tags...))
	}

	if changed("level") {
		opts = append(opts, config.WithLevel(o.level))
	}
	if changed("threads") {
		opts = append(opts, config.WithThreads(o.threads))
	}
	for _, sz := range []struct {
		flag  string
		value string
		apply func(int64) config.Option
	}{
		{"window", o.window, config.WithWindow},
		{"maxram", o.memory, config.WithMemoryCeiling},
		{"chunk-size", o.chunk, func(n int64) config.Option { return config.WithChunkSize(int(n)) }},
	} {
		if !changed(sz.flag) {
			continue
		}
		n, err := config.ParseSize(sz.value)
		if err != nil {
			return config.Config{}, fmt.Errorf("--%s: %w", sz.flag, err)
		}
		opts = append(opts, sz.apply(n))
	}

	if changed("no-mmap") {
		opts = append(opts, config.WithMmap(!o.noMmap))
	}
	if changed("keep-broken") {
		opts = append(opts, config.WithKeepPartial(o.keep))
	}
	if o.tmpDir != "" {
		opts = append(opts, config.WithTempDir(o.tmpDir))
	}
	opts = append(opts,
		config.WithTestOnly(o.test),
		config.WithVerbose(o.verbose > 0),
		config.WithLogger(logger),
	)

	return config.New(opts...)
}
