package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/options"
)

// File is the on-disk YAML configuration.
// Every field is optional; unset fields keep the value they overlay.
//
//	codec: zstd
//	level: 9
//	threads: 8
//	window: 512MiB
//	memory_ceiling: 4GiB
//	temp_dir: /var/tmp
type File struct {
	Codec          string   `yaml:"codec"`
	BestOf         []string `yaml:"best_of"`
	Level          *int     `yaml:"level"`
	Threads        *int     `yaml:"threads"`
	Window         string   `yaml:"window"`
	ChunkSize      string   `yaml:"chunk_size"`
	MemoryCeiling  string   `yaml:"memory_ceiling"`
	Mmap           *bool    `yaml:"mmap"`
	WindowFallback *bool    `yaml:"window_fallback"`
	TempDir        string   `yaml:"temp_dir"`
	KeepPartial    *bool    `yaml:"keep_partial"`
	Verbose        *bool    `yaml:"verbose"`
}

// Parse decodes a configuration file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Config("parse config: %v", err)
	}

	return &f, nil
}

// Load reads and parses the configuration file at path and returns Default
// overlaid with it, then with opts.
func Load(path string, opts ...Option) (Config, error) {
	return New(append([]Option{WithConfigFile(path)}, opts...)...)
}

// WithConfigFile overlays the configuration file at path. Options applied
// before it act as defaults the file may override.
func WithConfigFile(path string) Option {
	return options.New(func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errs.IO("read config "+path, err)
		}

		f, err := Parse(data)
		if err != nil {
			return err
		}

		return f.applyTo(c)
	})
}

func (f *File) applyTo(c *Config) error {
	if f == nil {
		return nil
	}

	if f.Codec != "" {
		tag, err := format.ParseCompressionType(f.Codec)
		if err != nil {
			return errs.Config("codec: %v", err)
		}
		c.Codec = tag
	}
	if len(f.BestOf) > 0 {
		tags := make([]format.CompressionType, 0, len(f.BestOf))
		for _, name := range f.BestOf {
			tag, err := format.ParseCompressionType(name)
			if err != nil {
				return errs.Config("best_of: %v", err)
			}
			tags = append(tags, tag)
		}
		if err := apply(c, WithBestOf(tags...)); err != nil {
			return err
		}
	}
	if f.Level != nil {
		c.Level = *f.Level
	}
	if f.Threads != nil {
		c.Threads = *f.Threads
	}

	sizes := []struct {
		name  string
		value string
		set   func(int64)
	}{
		{"window", f.Window, func(n int64) { c.Window = n }},
		{"chunk_size", f.ChunkSize, func(n int64) { c.ChunkSize = int(n) }},
		{"memory_ceiling", f.MemoryCeiling, func(n int64) { c.MemoryCeiling = n }},
	}
	for _, s := range sizes {
		if s.value == "" {
			continue
		}
		n, err := ParseSize(s.value)
		if err != nil {
			return errs.Config("%s: %v", s.name, err)
		}
		s.set(n)
	}

	if f.Mmap != nil {
		c.AllowMmap = *f.Mmap
	}
	if f.WindowFallback != nil {
		c.WindowFallback = *f.WindowFallback
	}
	if f.TempDir != "" {
		c.TempDir = os.ExpandEnv(f.TempDir)
	}
	if f.KeepPartial != nil {
		c.KeepPartial = *f.KeepPartial
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}

	return nil
}

// ParseSize parses a byte size such as "4096", "64MiB" or "1.5 GB".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > 1<<62 {
		return 0, errs.Config("size %q too large", s)
	}

	return int64(n), nil
}

// FormatSize renders a byte count with binary units, for logs.
func FormatSize(n int64) string {
	if n < 0 {
		return "unknown"
	}

	return humanize.IBytes(uint64(n))
}
