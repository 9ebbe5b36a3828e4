package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/arloliu/lrz"
	"github.com/arloliu/lrz/config"
)

type app struct {
	opts   *cliOptions
	cfg    config.Config
	io     stdio
	logger *slog.Logger
}

func (a *app) process(ctx context.Context, name string) error {
	switch {
	case a.opts.info:
		return a.inspect(name)
	case a.opts.decompress || a.opts.test:
		return a.decompress(ctx, name)
	default:
		return a.compress(ctx, name)
	}
}

func (a *app) compress(ctx context.Context, name string) error {
	in, fi, closeIn, err := a.openInput(name)
	if err != nil {
		return err
	}
	defer closeIn()

	cfg := a.cfg
	if fi != nil && fi.Mode().IsRegular() {
		cfg.SizeHint = fi.Size()
	}

	toStdout := a.opts.stdout || name == "-"
	if toStdout && a.opts.output == "" && !a.opts.force && a.io.isTerminal(a.io.out) {
		return errors.New("compressed data not written to a terminal (use -f to force)")
	}

	outName := a.opts.output
	if outName == "" && !toStdout {
		outName = name + a.opts.suffix
	}

	return a.withOutput(outName, fi, func(w io.Writer) error {
		res, err := lrz.Compress(ctx, in, w, cfg)
		if err != nil {
			return err
		}

		a.logger.Info("file compressed",
			"file", displayName(name),
			"ratio", fmt.Sprintf("%.3f", res.Ratio()),
			"window", config.FormatSize(res.Window))

		return nil
	})
}

func (a *app) decompress(ctx context.Context, name string) error {
	in, fi, closeIn, err := a.openInput(name)
	if err != nil {
		return err
	}
	defer closeIn()

	if a.opts.test {
		_, err := lrz.Decompress(ctx, in, io.Discard, a.cfg)
		if err == nil {
			a.logger.Info("file ok", "file", displayName(name))
		}

		return err
	}

	outName := a.opts.output
	if outName == "" && !a.opts.stdout && name != "-" {
		if !strings.HasSuffix(name, a.opts.suffix) || len(name) == len(a.opts.suffix) {
			return fmt.Errorf("unknown suffix, expected %q", a.opts.suffix)
		}
		outName = strings.TrimSuffix(name, a.opts.suffix)
	}

	return a.withOutput(outName, fi, func(w io.Writer) error {
		_, err := lrz.Decompress(ctx, in, w, a.cfg)
		return err
	})
}

func (a *app) inspect(name string) error {
	if name == "-" {
		return errors.New("info mode needs a file")
	}

	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := lrz.Inspect(f)
	if err != nil {
		return err
	}

	return printInfo(a.io.out, name, info, a.opts.verbose > 0)
}

func (a *app) openInput(name string) (io.Reader, os.FileInfo, func(), error) {
	if name == "-" {
		return a.io.in, nil, func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, nil, nil, errors.New("is a directory")
	}

	return f, fi, func() { f.Close() }, nil
}

// withOutput runs fn against the named output file, or standard output when
// name is empty. A failed or interrupted run removes the file unless partial
// output is kept.
func (a *app) withOutput(name string, src os.FileInfo, fn func(io.Writer) error) error {
	if name == "" {
		return fn(a.io.out)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !a.opts.force {
		flags |= os.O_EXCL
	}

	out, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use -f to overwrite)", name)
		}

		return err
	}

	err = fn(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		if !a.cfg.KeepPartial {
			_ = os.Remove(name)
		}

		return err
	}

	if src != nil {
		_ = os.Chmod(name, src.Mode().Perm())
		_ = os.Chtimes(name, src.ModTime(), src.ModTime())
	}

	return nil
}
