package window

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/lrz/errs"
)

// Request describes the memory needed by one pass over a stream.
type Request struct {
	// Window is the maximum match distance.
	Window int64
	// Lookahead is added to Window for bytes read ahead of the match cursor.
	Lookahead int64
	// MemoryCeiling bounds resident window plus index.
	MemoryCeiling int64
	// AllowMmap lets the window page through a spill file when it does not fit.
	AllowMmap bool

	// IndexEntrySize is the resident size of one hash index entry; zero when
	// no index is needed (decompression).
	IndexEntrySize int64
	// IndexEntries is the wanted number of index entries.
	IndexEntries int64
	// MinIndexEntries is the smallest index worth running with.
	MinIndexEntries int64
}

// Layout is the outcome of Plan.
type Layout struct {
	Window   int64
	Capacity int64 // ring size: Window + Lookahead
	Mapped   bool  // ring lives in a mapped spill file
	// IndexEntries is a power of two no larger than the request, or zero.
	IndexEntries int64
}

// ResidentBytes returns the memory the layout keeps resident.
func (l Layout) ResidentBytes(entrySize int64) int64 {
	n := l.IndexEntries * entrySize
	if !l.Mapped {
		n += l.Capacity
	}

	return n
}

// Plan decides where the window lives and how large the index may grow.
//
// The window stays resident when it fits next to the minimum index. Otherwise
// it is mapped when allowed, leaving the whole ceiling to the index. The index
// then shrinks to what fits. When neither arrangement fits, Plan returns an
// error wrapping errs.ErrWindowTooLarge.
func Plan(req Request) (Layout, error) {
	if req.Window <= 0 || req.Lookahead < 0 {
		return Layout{}, errs.Config("invalid window %d / lookahead %d", req.Window, req.Lookahead)
	}

	layout := Layout{Window: req.Window, Capacity: req.Window + req.Lookahead}
	minIndex := req.MinIndexEntries * req.IndexEntrySize

	var budget int64
	switch {
	case layout.Capacity+minIndex <= req.MemoryCeiling:
		budget = req.MemoryCeiling - layout.Capacity
	case req.AllowMmap && MmapSupported && minIndex <= req.MemoryCeiling:
		layout.Mapped = true
		budget = req.MemoryCeiling
	default:
		return Layout{}, fmt.Errorf("%w: window %d + index %d bytes > ceiling %d (mmap allowed: %t)",
			errs.ErrWindowTooLarge, layout.Capacity, minIndex, req.MemoryCeiling, req.AllowMmap && MmapSupported)
	}

	if req.IndexEntrySize > 0 {
		entries := min(req.IndexEntries, budget/req.IndexEntrySize)
		layout.IndexEntries = floorPow2(max(entries, req.MinIndexEntries))
	}

	return layout, nil
}

// Open builds the ring described by layout. Mapped rings create their spill
// file in dir.
func Open(layout Layout, dir string) (*Ring, error) {
	if !layout.Mapped {
		return NewRing(NewMemoryDevice(layout.Capacity), false), nil
	}

	dev, err := OpenMapped(dir, layout.Capacity)
	if err != nil {
		return nil, err
	}

	return NewRing(dev, true), nil
}

func floorPow2(n int64) int64 {
	if n <= 0 {
		return 0
	}

	return 1 << (63 - bits.LeadingZeros64(uint64(n)))
}
