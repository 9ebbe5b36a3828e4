package rzip

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/section"
	"github.com/arloliu/lrz/window"
)

const (
	copyBufSize   = 64 << 10
	outBufSize    = 1 << 20
	ctxCheckEvery = 1024
)

// Source provides the lanes written by a matcher, usually a stream.Reader.
type Source interface {
	Lane(i int) io.Reader
}

// Decompress replays the ops of src into out and returns the number of bytes
// produced.
//
// hist must be empty; its capacity is the largest distance a copy may reach
// back. When expected is non-negative, producing any other amount of output
// fails with errs.ErrSizeMismatch. Structural problems in the lanes wrap
// errs.ErrCorruptStream.
func Decompress(ctx context.Context, src Source, out io.Writer, hist *window.Ring, expected int64) (int64, error) {
	d := &reconstructor{
		ops:  bufio.NewReaderSize(src.Lane(section.LaneControl), copyBufSize),
		lits: src.Lane(section.LaneLiteral),
		out:  bufio.NewWriterSize(out, outBufSize),
		hist: hist,
		buf:  make([]byte, copyBufSize),
	}

	if err := d.run(ctx, expected); err != nil {
		return d.produced, err
	}

	return d.produced, nil
}

type reconstructor struct {
	ops      *bufio.Reader
	lits     io.Reader
	out      *bufio.Writer
	hist     *window.Ring
	buf      []byte
	produced int64
}

func (d *reconstructor) run(ctx context.Context, expected int64) error {
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		op, err := ReadOp(d.ops)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if expected >= 0 && op.Len > expected-d.produced {
			return fmt.Errorf("%w: %s overruns expected size %d at %d",
				errs.ErrSizeMismatch, op, expected, d.produced)
		}

		switch op.Kind {
		case format.OpLiteral:
			err = d.literal(op.Len)
		case format.OpCopy:
			err = d.copy(op.Len, op.Dist)
		}
		if err != nil {
			return err
		}
	}

	// every literal byte must have been claimed by an op
	var probe [1]byte
	if k, err := d.lits.Read(probe[:]); k > 0 {
		return errs.Corrupt("literal lane has bytes past the last operation")
	} else if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if err := d.out.Flush(); err != nil {
		return errs.IO("write output", err)
	}

	if expected >= 0 && d.produced != expected {
		return fmt.Errorf("%w: produced %d bytes, expected %d", errs.ErrSizeMismatch, d.produced, expected)
	}

	return nil
}

func (d *reconstructor) literal(n int64) error {
	for n > 0 {
		k := min(n, int64(len(d.buf)))
		if _, err := io.ReadFull(d.lits, d.buf[:k]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return errs.Corrupt("literal lane ended %d bytes early", n)
			}

			return err
		}
		if err := d.emit(d.buf[:k]); err != nil {
			return err
		}
		n -= k
	}

	return nil
}

// copy replays n bytes from dist back. Each step copies at most dist bytes, so
// an overlapping copy reads bytes it appended in the previous step.
func (d *reconstructor) copy(n, dist int64) error {
	if dist > d.produced || dist > d.hist.Capacity() {
		return fmt.Errorf("%w: distance %d at output offset %d (window %d)",
			errs.ErrOutOfWindow, dist, d.produced, d.hist.Capacity())
	}

	for n > 0 {
		k := min(n, dist, int64(len(d.buf)))
		if _, err := d.hist.ReadAt(d.buf[:k], d.produced-dist); err != nil {
			return err
		}
		if err := d.emit(d.buf[:k]); err != nil {
			return err
		}
		n -= k
	}

	return nil
}

func (d *reconstructor) emit(p []byte) error {
	if err := d.hist.Append(p); err != nil {
		return err
	}
	if _, err := d.out.Write(p); err != nil {
		return errs.IO("write output", err)
	}
	d.produced += int64(len(p))

	return nil
}

// HistoryLayout plans the history ring for a file with the given window.
// Decompression holds no index, so only the window counts against the ceiling.
func HistoryLayout(win, memoryCeiling int64, allowMmap bool) (window.Layout, error) {
	return window.Plan(window.Request{
		Window:        win,
		MemoryCeiling: memoryCeiling,
		AllowMmap:     allowMmap,
	})
}
