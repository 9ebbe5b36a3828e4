package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/lrz/compress"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/hash"
	"github.com/arloliu/lrz/internal/pool"
	"github.com/arloliu/lrz/internal/workerpool"
	"github.com/arloliu/lrz/section"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Policy compresses each chunk. Required.
	Policy *compress.Policy
	// Pool runs chunk compression. Required.
	Pool *workerpool.Pool
	// ChunkSize is the maximum uncompressed size of a chunk.
	ChunkSize int
	// InFlight bounds the chunks of one lane that are compressing or waiting to
	// be written. Defaults to the pool size.
	InFlight int
	Logger   *slog.Logger
}

// WriterStats summarizes what a Writer emitted.
type WriterStats struct {
	Chunks          int
	LaneChunks      []int
	LaneBytes       []int64 // uncompressed bytes per lane
	CompressedBytes int64   // chunk headers and payloads, end marker included
	Codecs          map[format.CompressionType]int
	CodecFailures   int
}

// Writer is the output side of the stream multiplexer.
//
// Write, Flush and Close must be called from one goroutine.
type Writer struct {
	ctx    context.Context
	dst    io.Writer
	opts   WriterOptions
	bufs   *pool.ByteBufferPool
	lanes  []*outLane
	stats  WriterStats
	err    error
	closed bool
	logger *slog.Logger
	hdrBuf []byte
}

type outLane struct {
	idx      int
	buf      *pool.ByteBuffer
	seq      uint32
	inflight []*outChunk
}

// outChunk is owned by one worker between Submit and the completion of its
// future, then by the writer.
type outChunk struct {
	hdr     section.ChunkHeader
	raw     *pool.ByteBuffer
	payload []byte
	failed  []error
	future  *workerpool.Future
}

// NewWriter creates a writer emitting chunks of lanes lanes to dst. The file
// header must already be written.
func NewWriter(ctx context.Context, dst io.Writer, lanes int, opts WriterOptions) (*Writer, error) {
	if lanes < 1 || lanes > section.MaxLanes {
		return nil, errs.Config("lane count %d outside [1, %d]", lanes, section.MaxLanes)
	}
	if opts.Policy == nil || opts.Pool == nil {
		return nil, errs.Config("stream writer needs a codec policy and a worker pool")
	}
	if opts.ChunkSize < section.MinChunkSize || opts.ChunkSize > section.MaxChunkSize {
		return nil, errs.Config("chunk size %d outside [%d, %d]", opts.ChunkSize, section.MinChunkSize, section.MaxChunkSize)
	}
	if opts.InFlight < 1 {
		opts.InFlight = opts.Pool.Size()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	w := &Writer{
		ctx:    ctx,
		dst:    dst,
		opts:   opts,
		bufs:   pool.ChunkPool(opts.ChunkSize),
		lanes:  make([]*outLane, lanes),
		logger: opts.Logger,
		hdrBuf: make([]byte, 0, section.ChunkHeaderSize),
		stats: WriterStats{
			LaneChunks: make([]int, lanes),
			LaneBytes:  make([]int64, lanes),
			Codecs:     make(map[format.CompressionType]int),
		},
	}
	for i := range w.lanes {
		w.lanes[i] = &outLane{idx: i}
	}

	return w, nil
}

// Write appends p to lane. Full chunks are handed to the worker pool; Write
// blocks while the lane has too many chunks in flight.
func (w *Writer) Write(lane int, p []byte) error {
	if err := w.check(lane); err != nil {
		return err
	}

	l := w.lanes[lane]
	for len(p) > 0 {
		if l.buf == nil {
			l.buf = w.bufs.Get()
			l.buf.Grow(w.opts.ChunkSize)
		}

		n := min(len(p), w.opts.ChunkSize-l.buf.Len())
		_, _ = l.buf.Write(p[:n])
		p = p[n:]
		w.stats.LaneBytes[lane] += int64(n)

		if l.buf.Len() == w.opts.ChunkSize {
			if err := w.dispatch(l); err != nil {
				return w.fail(err)
			}
		}
	}

	return nil
}

// Flush turns the buffered bytes of lane into a chunk and waits until every
// chunk of the lane has been written.
func (w *Writer) Flush(lane int) error {
	if err := w.check(lane); err != nil {
		return err
	}

	return w.flush(w.lanes[lane])
}

func (w *Writer) flush(l *outLane) error {
	if l.buf != nil && l.buf.Len() > 0 {
		if err := w.dispatch(l); err != nil {
			return w.fail(err)
		}
	}

	if err := w.retire(l, 0); err != nil {
		return w.fail(err)
	}

	return nil
}

// Close flushes every lane, drains all in-flight chunks and writes the end
// marker. After an error, Close still waits for in-flight chunks and discards
// them.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	if w.err == nil {
		for _, l := range w.lanes {
			if err := w.flush(l); err != nil {
				break
			}
		}
	}

	if w.err != nil {
		w.discard()
		return w.err
	}

	end := section.NewEndMarker(uint32(w.stats.Chunks)) //nolint:gosec // bounded by file size
	if _, err := w.dst.Write(end.AppendTo(w.hdrBuf[:0])); err != nil {
		return w.fail(errs.IO("write end marker", err))
	}
	w.stats.CompressedBytes += section.ChunkHeaderSize

	w.logger.Debug("stream closed",
		"chunks", w.stats.Chunks,
		"bytes", w.stats.CompressedBytes,
		"lane_chunks", w.stats.LaneChunks)

	return nil
}

// Abort drops every buffered and in-flight chunk without writing the end
// marker. It is a no-op after Close.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.discard()
}

// Stats returns counters for everything written so far.
func (w *Writer) Stats() WriterStats {
	return w.stats
}

func (w *Writer) check(lane int) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errs.Config("stream writer is closed")
	}
	if lane < 0 || lane >= len(w.lanes) {
		return errs.Config("lane %d outside [0, %d)", lane, len(w.lanes))
	}

	return nil
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}

	return w.err
}

// dispatch submits the lane buffer as the lane's next chunk.
func (w *Writer) dispatch(l *outLane) error {
	// Keep at most InFlight chunks per lane: make room before adding one.
	if err := w.retire(l, w.opts.InFlight-1); err != nil {
		return err
	}

	c := &outChunk{
		hdr: section.ChunkHeader{
			Lane:             uint8(l.idx), //nolint:gosec // bounded by MaxLanes
			Seq:              l.seq,
			UncompressedSize: uint32(l.buf.Len()), //nolint:gosec // bounded by ChunkSize
		},
		raw: l.buf,
	}
	l.buf = nil
	l.seq++

	policy := w.opts.Policy
	future, err := w.opts.Pool.Submit(w.ctx, func() error {
		data := c.raw.Bytes()
		c.hdr.Checksum = hash.Checksum(data)

		var sel compress.Selection
		c.payload, sel = policy.Compress(data)
		c.hdr.Codec = sel.Tag
		c.hdr.CompressedSize = uint32(len(c.payload)) //nolint:gosec // never larger than the chunk
		c.failed = sel.Failed

		return nil
	})
	if err != nil {
		w.bufs.Put(c.raw)
		return err
	}

	c.future = future
	l.inflight = append(l.inflight, c)

	// Chunks that already finished are written right away.
	for len(l.inflight) > 0 && l.inflight[0].future.Ready() {
		if err := w.writeHead(l); err != nil {
			return err
		}
	}

	return nil
}

// retire writes the oldest chunks of l until at most keep remain in flight.
func (w *Writer) retire(l *outLane, keep int) error {
	for len(l.inflight) > max(keep, 0) {
		if err := w.writeHead(l); err != nil {
			return err
		}
	}

	return nil
}

// writeHead waits for the oldest in-flight chunk of l and writes it.
func (w *Writer) writeHead(l *outLane) error {
	c := l.inflight[0]
	l.inflight[0] = nil
	l.inflight = l.inflight[1:]
	defer w.bufs.Put(c.raw)

	if err := c.future.Wait(); err != nil {
		return fmt.Errorf("compress chunk lane %d seq %d: %w", c.hdr.Lane, c.hdr.Seq, err)
	}

	for _, err := range c.failed {
		w.stats.CodecFailures++
		w.logger.Warn("codec failed, chunk kept with another codec",
			"lane", c.hdr.Lane, "seq", c.hdr.Seq, "codec", c.hdr.Codec, "error", err)
	}

	if _, err := w.dst.Write(c.hdr.AppendTo(w.hdrBuf[:0])); err != nil {
		return errs.IO("write chunk header", err)
	}
	if _, err := w.dst.Write(c.payload); err != nil {
		return errs.IO("write chunk payload", err)
	}

	w.stats.Chunks++
	w.stats.LaneChunks[c.hdr.Lane]++
	w.stats.Codecs[c.hdr.Codec]++
	w.stats.CompressedBytes += section.ChunkHeaderSize + int64(len(c.payload))

	w.logger.Debug("chunk written",
		"lane", c.hdr.Lane,
		"seq", c.hdr.Seq,
		"codec", c.hdr.Codec,
		"raw", c.hdr.UncompressedSize,
		"compressed", c.hdr.CompressedSize)

	return nil
}

// discard waits for every in-flight chunk and drops it.
func (w *Writer) discard() {
	for _, l := range w.lanes {
		for _, c := range l.inflight {
			_ = c.future.Wait()
			w.bufs.Put(c.raw)
		}
		l.inflight = nil
		if l.buf != nil {
			w.bufs.Put(l.buf)
			l.buf = nil
		}
	}
}
