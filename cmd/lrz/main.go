// Command lrz compresses and decompresses files with long-range matching.
//
//	lrz [options] file...        compress each file to file.lrz
//	lrz -d [options] file.lrz... decompress
//	lrz -t file.lrz...           verify without writing output
//	lrz -i file.lrz...           print the container layout
//
// With no file, or "-", lrz filters standard input to standard output.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

const version = "0.6.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	code := run(ctx, os.Args[1:], stdio{
		in:  os.Stdin,
		out: os.Stdout,
		err: os.Stderr,
		isTerminal: func(f any) bool {
			if fd, ok := f.(interface{ Fd() uintptr }); ok {
				return term.IsTerminal(int(fd.Fd())) //nolint:gosec // small descriptor
			}

			return false
		},
	})
	stop()
	os.Exit(code)
}

type stdio struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	isTerminal func(any) bool
}

// run executes one command line and returns the exit status.
func run(ctx context.Context, args []string, std stdio) int {
	opts, err := parseFlags(args, std.err)
	if err != nil {
		fmt.Fprintf(std.err, "lrz: %v\n", err)
		return 2
	}
	if opts.help || opts.version {
		if opts.version {
			fmt.Fprintf(std.out, "lrz %s\n", version)
		}

		return 0
	}

	logger := newLogger(std.err, opts.verbose)

	cfg, err := opts.config(logger)
	if err != nil {
		fmt.Fprintf(std.err, "lrz: %v\n", err)
		return 2
	}

	a := &app{opts: opts, cfg: cfg, io: std, logger: logger}

	files := opts.files
	if len(files) == 0 {
		files = []string{"-"}
	}
	if opts.output != "" && len(files) > 1 {
		fmt.Fprintln(std.err, "lrz: -o requires a single input file")
		return 2
	}

	status := 0
	for _, name := range files {
		if err := a.process(ctx, name); err != nil {
			fmt.Fprintf(std.err, "lrz: %s: %v\n", displayName(name), err)
			status = 1
		}
		if ctx.Err() != nil {
			return 130
		}
	}

	return status
}

func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func displayName(name string) string {
	if name == "-" {
		return "(stdin)"
	}

	return name
}
