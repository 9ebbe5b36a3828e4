package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/lrz/compress"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/internal/hash"
	"github.com/arloliu/lrz/internal/workerpool"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Policy decodes chunks. Required.
	Policy *compress.Policy
	// Pool runs chunk decompression. Required.
	Pool *workerpool.Pool
	// Prefetch is the number of chunks per lane decoded ahead of the consumer.
	// Defaults to the pool size.
	Prefetch int
	Logger   *slog.Logger
}

// Reader is the input side of the stream multiplexer.
//
// Each lane may be consumed by its own goroutine; a single lane must not be
// read concurrently.
type Reader struct {
	ctx    context.Context
	src    io.ReaderAt
	idx    *Index
	opts   ReaderOptions
	lanes  []*inLane
	logger *slog.Logger
}

type inLane struct {
	num     int
	chunks  []ChunkInfo
	next    int // next chunk to submit
	pending []*inChunk
	cur     []byte
	err     error
}

type inChunk struct {
	info   ChunkInfo
	data   []byte
	future *workerpool.Future
}

// OpenReader scans src and returns a reader over its lanes.
func OpenReader(ctx context.Context, src io.ReaderAt, opts ReaderOptions) (*Reader, error) {
	idx, err := Scan(src)
	if err != nil {
		return nil, err
	}

	return NewReader(ctx, src, idx, opts)
}

// NewReader returns a reader over a file already scanned into idx.
func NewReader(ctx context.Context, src io.ReaderAt, idx *Index, opts ReaderOptions) (*Reader, error) {
	if opts.Policy == nil || opts.Pool == nil {
		return nil, errs.Config("stream reader needs a codec policy and a worker pool")
	}
	if opts.Prefetch < 1 {
		opts.Prefetch = opts.Pool.Size()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	r := &Reader{
		ctx:    ctx,
		src:    src,
		idx:    idx,
		opts:   opts,
		lanes:  make([]*inLane, len(idx.Lanes)),
		logger: opts.Logger,
	}
	for i, chunks := range idx.Lanes {
		r.lanes[i] = &inLane{num: i, chunks: chunks}
	}

	return r, nil
}

// Index returns the scanned layout of the file.
func (r *Reader) Index() *Index {
	return r.idx
}

// Read reads decompressed bytes of lane into p. It returns io.EOF once every
// chunk of the lane was consumed. Errors are sticky per lane.
func (r *Reader) Read(lane int, p []byte) (int, error) {
	if lane < 0 || lane >= len(r.lanes) {
		return 0, errs.Config("lane %d outside [0, %d)", lane, len(r.lanes))
	}

	l := r.lanes[lane]
	if l.err != nil {
		return 0, l.err
	}

	for len(l.cur) == 0 {
		if l.next == len(l.chunks) && len(l.pending) == 0 {
			return 0, io.EOF
		}

		if err := r.prefetch(l); err != nil {
			l.err = err
			return 0, err
		}

		c := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]

		if err := c.future.Wait(); err != nil {
			l.err = err
			return 0, err
		}
		l.cur = c.data
	}

	n := copy(p, l.cur)
	l.cur = l.cur[n:]

	return n, nil
}

// Lane returns an io.Reader over one lane.
func (r *Reader) Lane(lane int) io.Reader {
	return laneReader{r: r, lane: lane}
}

// Close waits for outstanding decode tasks and releases their buffers. The
// source is not closed.
func (r *Reader) Close() error {
	for _, l := range r.lanes {
		for _, c := range l.pending {
			_ = c.future.Wait()
		}
		l.pending = nil
		l.cur = nil
		l.next = len(l.chunks)
	}

	return nil
}

// prefetch keeps up to Prefetch chunks of l decoding.
func (r *Reader) prefetch(l *inLane) error {
	for l.next < len(l.chunks) && len(l.pending) < r.opts.Prefetch {
		c := &inChunk{info: l.chunks[l.next]}

		future, err := r.opts.Pool.Submit(r.ctx, func() error {
			data, err := r.decode(c.info)
			c.data = data

			return err
		})
		if err != nil {
			return err
		}

		c.future = future
		l.pending = append(l.pending, c)
		l.next++
	}

	return nil
}

// decode reads, decompresses and verifies one chunk.
func (r *Reader) decode(info ChunkInfo) ([]byte, error) {
	hdr := info.Header

	payload := make([]byte, hdr.CompressedSize)
	if err := readFullAt(r.src, payload, info.Offset); err != nil {
		return nil, fmt.Errorf("chunk lane %d seq %d: %w", hdr.Lane, hdr.Seq, err)
	}

	data, err := r.opts.Policy.Decompress(hdr.Codec, payload, int(hdr.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("chunk lane %d seq %d: %w", hdr.Lane, hdr.Seq, err)
	}

	if sum := hash.Checksum(data); sum != hdr.Checksum {
		return nil, fmt.Errorf("%w: lane %d seq %d: got %016x, want %016x",
			errs.ErrChunkChecksum, hdr.Lane, hdr.Seq, sum, hdr.Checksum)
	}

	r.logger.Debug("chunk decoded",
		"lane", hdr.Lane,
		"seq", hdr.Seq,
		"codec", hdr.Codec,
		"raw", hdr.UncompressedSize)

	return data, nil
}

type laneReader struct {
	r    *Reader
	lane int
}

func (lr laneReader) Read(p []byte) (int, error) {
	return lr.r.Read(lr.lane, p)
}
