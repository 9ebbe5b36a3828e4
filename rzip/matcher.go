package rzip

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/internal/hash"
	"github.com/arloliu/lrz/section"
	"github.com/arloliu/lrz/window"
)

const (
	maxBlock        = 64 << 10
	minIndexEntries = 1 << 12
	opFlushSize     = 64 << 10
	slabSize        = 32 << 10
)

// Sink receives the two lanes produced by the matcher.
type Sink interface {
	Write(lane int, p []byte) error
}

// Options configures a Matcher.
type Options struct {
	// Level selects the index sampling density, 1..9.
	Level int
	// Window is the maximum copy distance.
	Window        int64
	MemoryCeiling int64
	AllowMmap     bool
	// TempDir holds the spill file of a mapped window.
	TempDir string
	// Eviction replaces entries of full index buckets. Nil means OldestWins.
	Eviction EvictionPolicy
	Logger   *slog.Logger
}

// Stats describes one matcher run.
type Stats struct {
	Bytes        int64
	LiteralBytes int64
	MatchBytes   int64
	Literals     int64 // literal ops
	Copies       int64 // copy ops
	Evictions    int64
	Digest       [hash.DigestSize]byte
}

// Matcher finds long-range matches within a window. A Matcher runs once.
type Matcher struct {
	opts   Options
	layout window.Layout
	ring   *window.Ring
	index  *Index
	block  int64
	logger *slog.Logger

	// input
	src    io.Reader
	eof    bool
	digest *hash.Digest
	inBuf  []byte

	// byte caches over the ring: scan head and match candidate
	head, cand slab

	sink   Sink
	opBuf  []byte
	litBuf []byte
	cands  []int64
	stats  Stats
}

// NewMatcher plans the window and allocates the ring and the index. It fails
// with an error wrapping errs.ErrResource when the window cannot be held even
// through a mapped spill file; no input has been consumed at that point.
func NewMatcher(opts Options) (*Matcher, error) {
	if opts.Window < MinMatch {
		return nil, errs.Config("window %d smaller than minimum match %d", opts.Window, MinMatch)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	block := min(int64(maxBlock), opts.Window)
	wanted := (opts.Window + 2*block) >> sampleBits(opts.Level)

	layout, err := window.Plan(window.Request{
		Window:          opts.Window,
		Lookahead:       2 * block,
		MemoryCeiling:   opts.MemoryCeiling,
		AllowMmap:       opts.AllowMmap,
		IndexEntrySize:  EntrySize,
		IndexEntries:    max(wanted, minIndexEntries),
		MinIndexEntries: minIndexEntries,
	})
	if err != nil {
		return nil, err
	}

	ring, err := window.Open(layout, opts.TempDir)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		opts:   opts,
		layout: layout,
		ring:   ring,
		index:  NewIndex(layout.IndexEntries, opts.Eviction),
		block:  block,
		logger: opts.Logger,
		digest: hash.NewDigest(),
		inBuf:  make([]byte, block),
		opBuf:  make([]byte, 0, opFlushSize+2*binaryMaxOp),
		litBuf: make([]byte, slabSize),
		cands:  make([]int64, 0, Ways),
	}
	m.head.ring = ring
	m.cand.ring = ring

	m.logger.Debug("matcher window planned",
		"window", layout.Window,
		"capacity", layout.Capacity,
		"mapped", layout.Mapped,
		"index_entries", layout.IndexEntries,
		"sample_bits", sampleBits(opts.Level))

	return m, nil
}

// binaryMaxOp bounds the encoding of one op.
const binaryMaxOp = 1 + 2*10

// Layout returns the planned window layout.
func (m *Matcher) Layout() window.Layout {
	return m.layout
}

// Close releases the window.
func (m *Matcher) Close() error {
	return m.ring.Close()
}

// Compress is a convenience wrapper running a fresh Matcher over r.
func Compress(ctx context.Context, r io.Reader, sink Sink, opts Options) (Stats, error) {
	m, err := NewMatcher(opts)
	if err != nil {
		return Stats{}, err
	}
	defer m.Close()

	return m.Compress(ctx, r, sink)
}

// Compress reads r to the end and writes its rzip encoding to sink.
func (m *Matcher) Compress(ctx context.Context, r io.Reader, sink Sink) (Stats, error) {
	m.src = r
	m.sink = sink

	if err := m.run(ctx); err != nil {
		return m.stats, err
	}
	if err := m.flushOps(); err != nil {
		return m.stats, err
	}

	m.stats.Evictions = m.index.Evictions()
	m.stats.Digest = m.digest.Sum()

	m.logger.Debug("matcher done",
		"bytes", m.stats.Bytes,
		"matched", m.stats.MatchBytes,
		"literal", m.stats.LiteralBytes,
		"copies", m.stats.Copies,
		"evictions", m.stats.Evictions)

	return m.stats, nil
}

func (m *Matcher) run(ctx context.Context) error {
	var (
		p        int64  // next byte to hash
		litStart int64  // first byte not yet emitted
		h        uint32 // gear hash of [p-hashed, p)
		hashed   int
	)

	sampleMask := uint32(1)<<sampleBits(m.opts.Level) - 1

	for {
		ok, err := m.ensure(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		b, err := m.head.at(p)
		if err != nil {
			return err
		}
		h = roll(h, b)
		p++
		if hashed < MinMatch {
			hashed++
		}

		// Bound the pending literal run, keeping the bytes under the hash so a
		// match found at p never starts before litStart.
		if p-litStart >= m.block+MinMatch {
			if err := m.emitLiterals(litStart, p-MinMatch); err != nil {
				return err
			}
			litStart = p - MinMatch
		}

		if hashed < MinMatch {
			continue
		}

		fp := mix(h)
		if fp&sampleMask != 0 {
			continue
		}

		s := p - MinMatch
		start, end, dist, err := m.findMatch(ctx, fp, s, litStart)
		if err != nil {
			return err
		}
		m.index.Insert(fp, s, p-m.opts.Window)

		if dist == 0 {
			continue
		}

		if err := m.emitLiterals(litStart, start); err != nil {
			return err
		}
		if end, err = m.extend(ctx, end, dist); err != nil {
			return err
		}
		m.emitOp(Op{Kind: format.OpCopy, Len: end - start, Dist: dist})
		m.stats.Copies++
		m.stats.MatchBytes += end - start
		if err := m.maybeFlushOps(); err != nil {
			return err
		}

		p, litStart = end, end
		h, hashed = 0, 0
	}

	return m.emitLiterals(litStart, p)
}

// findMatch looks up the string starting at s and returns the first candidate
// that verifies, extended backward down to litStart. The forward end is
// s+MinMatch; dist is zero when nothing matched.
func (m *Matcher) findMatch(ctx context.Context, fp uint32, s, litStart int64) (start, end, dist int64, err error) {
	m.cands = m.index.Lookup(m.cands[:0], fp)

	for _, c := range m.cands {
		d := s - c
		if d <= 0 || d > m.opts.Window || c < m.ring.Base() {
			continue
		}

		ok, err := m.equal(c, s, MinMatch)
		if err != nil {
			return 0, 0, 0, err
		}
		if !ok {
			continue
		}

		start = s
		for start > litStart && start-d > m.ring.Base() {
			x, err := m.head.at(start - 1)
			if err != nil {
				return 0, 0, 0, err
			}
			y, err := m.cand.at(start - 1 - d)
			if err != nil {
				return 0, 0, 0, err
			}
			if x != y {
				break
			}
			start--
		}

		return start, s + MinMatch, d, nil
	}

	return 0, 0, 0, nil
}

// equal compares [a, a+n) with [b, b+n).
func (m *Matcher) equal(a, b, n int64) (bool, error) {
	for i := range n {
		x, err := m.cand.at(a + i)
		if err != nil {
			return false, err
		}
		y, err := m.head.at(b + i)
		if err != nil {
			return false, err
		}
		if x != y {
			return false, nil
		}
	}

	return true, nil
}

// extend grows a match ending at end with distance dist as far as the input
// agrees, reading more input as needed.
func (m *Matcher) extend(ctx context.Context, end, dist int64) (int64, error) {
	for {
		ok, err := m.ensure(ctx, end)
		if err != nil || !ok {
			return end, err
		}

		x, err := m.head.at(end)
		if err != nil {
			return end, err
		}
		y, err := m.cand.at(end - dist)
		if err != nil {
			return end, err
		}
		if x != y {
			return end, nil
		}
		end++
	}
}

// ensure makes off resident, reading input one block at a time. It returns
// false at the end of input.
func (m *Matcher) ensure(ctx context.Context, off int64) (bool, error) {
	for off >= m.ring.End() {
		if m.eof {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		n, err := io.ReadFull(m.src, m.inBuf)
		switch {
		case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
			m.eof = true
		case err != nil:
			return false, errs.IO("read input", err)
		}
		if n == 0 {
			continue
		}

		if err := m.ring.Append(m.inBuf[:n]); err != nil {
			return false, err
		}
		_, _ = m.digest.Write(m.inBuf[:n])
		m.stats.Bytes += int64(n)
	}

	return true, nil
}

// emitLiterals writes [from, to) to the literal lane, split into runs of at
// most one block.
func (m *Matcher) emitLiterals(from, to int64) error {
	for from < to {
		n := min(to-from, m.block)
		m.emitOp(Op{Kind: format.OpLiteral, Len: n})
		m.stats.Literals++
		m.stats.LiteralBytes += n

		for n > 0 {
			k := min(n, int64(len(m.litBuf)))
			if _, err := m.ring.ReadAt(m.litBuf[:k], from); err != nil {
				return err
			}
			if err := m.sink.Write(section.LaneLiteral, m.litBuf[:k]); err != nil {
				return err
			}
			from += k
			n -= k
		}

		if err := m.maybeFlushOps(); err != nil {
			return err
		}
	}

	return nil
}

func (m *Matcher) emitOp(op Op) {
	m.opBuf = AppendOp(m.opBuf, op)
}

func (m *Matcher) maybeFlushOps() error {
	if len(m.opBuf) < opFlushSize {
		return nil
	}

	return m.flushOps()
}

func (m *Matcher) flushOps() error {
	if len(m.opBuf) == 0 {
		return nil
	}
	if err := m.sink.Write(section.LaneControl, m.opBuf); err != nil {
		return err
	}
	m.opBuf = m.opBuf[:0]

	return nil
}

// slab caches a span of the ring for byte-wise access.
type slab struct {
	ring  *window.Ring
	buf   []byte
	start int64
}

func (s *slab) at(off int64) (byte, error) {
	if i := off - s.start; i >= 0 && i < int64(len(s.buf)) {
		return s.buf[i], nil
	}

	if err := s.fill(off); err != nil {
		return 0, err
	}

	return s.buf[off-s.start], nil
}

// fill loads a span around off, biased forward since most access is.
func (s *slab) fill(off int64) error {
	if cap(s.buf) == 0 {
		s.buf = make([]byte, slabSize)
	}

	start := max(off-slabSize/4, s.ring.Base())
	end := min(start+slabSize, s.ring.End())
	if off < start || off >= end {
		_, err := s.ring.ReadAt(s.buf[:1], off)
		return err
	}

	s.buf = s.buf[:end-start]
	if _, err := s.ring.ReadAt(s.buf, start); err != nil {
		s.buf = s.buf[:0]
		return err
	}
	s.start = start

	return nil
}
