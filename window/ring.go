package window

import (
	"fmt"

	"github.com/arloliu/lrz/errs"
)

// Ring is a circular buffer over a Device holding the most recent Capacity
// bytes of a stream. Bytes are addressed by absolute stream offset; the valid
// range is [Base, End). Appending beyond Capacity evicts the oldest bytes.
//
// A Ring is owned by a single goroutine and is not safe for concurrent use.
type Ring struct {
	dev      Device
	capacity int64
	base     int64
	end      int64
	mapped   bool
}

// NewRing creates an empty ring using the whole device.
func NewRing(dev Device, mapped bool) *Ring {
	return &Ring{dev: dev, capacity: dev.Size(), mapped: mapped}
}

// Append writes p at End, evicting the oldest bytes when the ring is full.
// p may be larger than the ring; only its tail is then retained.
func (r *Ring) Append(p []byte) error {
	if extra := int64(len(p)) - r.capacity; extra > 0 {
		r.end += extra
		p = p[extra:]
	}

	for len(p) > 0 {
		phys := r.end % r.capacity
		n := min(int64(len(p)), r.capacity-phys)
		if _, err := r.dev.WriteAt(p[:n], phys); err != nil {
			return errs.IO("append to window", err)
		}
		r.end += n
		p = p[n:]
	}

	r.base = max(r.base, r.end-r.capacity)

	return nil
}

// ReadAt reads len(p) bytes starting at absolute offset off.
//
// Returns errs.ErrOutOfWindow when any part of the range was evicted or has
// not been appended yet.
func (r *Ring) ReadAt(p []byte, off int64) (int, error) {
	if !r.Contains(off, int64(len(p))) {
		return 0, fmt.Errorf("%w: [%d, %d) not in [%d, %d)",
			errs.ErrOutOfWindow, off, off+int64(len(p)), r.base, r.end)
	}

	total := 0
	for len(p) > 0 {
		phys := off % r.capacity
		n := min(int64(len(p)), r.capacity-phys)
		if _, err := r.dev.ReadAt(p[:n], phys); err != nil {
			return total, errs.IO("read window", err)
		}
		total += int(n)
		off += n
		p = p[n:]
	}

	return total, nil
}

// Contains reports whether [off, off+n) is resident.
func (r *Ring) Contains(off, n int64) bool {
	return off >= r.base && n >= 0 && off+n <= r.end
}

// Base returns the oldest resident offset.
func (r *Ring) Base() int64 {
	return r.base
}

// End returns the offset one past the newest byte.
func (r *Ring) End() int64 {
	return r.end
}

// Capacity returns how many bytes the ring retains.
func (r *Ring) Capacity() int64 {
	return r.capacity
}

// Mapped reports whether the ring pages through a memory-mapped spill file.
func (r *Ring) Mapped() bool {
	return r.mapped
}

// Close releases the device.
func (r *Ring) Close() error {
	return r.dev.Close()
}
