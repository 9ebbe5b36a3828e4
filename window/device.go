// Package window provides the offset-addressed history window of the rzip
// layer.
//
// A Ring keeps the most recent Capacity bytes of a stream, addressed by their
// absolute stream offset. It sits on a Device: resident memory when the window
// fits the memory ceiling, or an unlinked spill file read through a memory
// mapping when it does not. Plan makes that choice; Open builds the ring.
//
//	layout, err := window.Plan(window.Request{
//	    Window:        cfg.Window,
//	    Lookahead:     2 * blockSize,
//	    MemoryCeiling: cfg.MemoryCeiling,
//	    AllowMmap:     cfg.AllowMmap,
//	})
//	ring, err := window.Open(layout, cfg.TempDir)
//	defer ring.Close()
package window

import "io"

// Device is fixed-size random-access storage backing a Ring.
type Device interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the device size in bytes.
	Size() int64

	// Close releases the storage.
	Close() error
}

// MemoryDevice is a Device over a resident byte slice.
type MemoryDevice struct {
	data []byte
}

var _ Device = (*MemoryDevice)(nil)

// NewMemoryDevice allocates a resident device of size bytes.
func NewMemoryDevice(size int64) *MemoryDevice {
	return &MemoryDevice{data: make([]byte, size)}
}

// ReadAt reads len(p) bytes starting at byte offset off.
func (d *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(d.data)) {
		return 0, io.EOF
	}

	n := copy(p, d.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt writes len(p) bytes starting at byte offset off.
func (d *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, io.ErrShortWrite
	}

	return copy(d.data[off:], p), nil
}

// Size returns the device size in bytes.
func (d *MemoryDevice) Size() int64 {
	return int64(len(d.data))
}

// Close drops the buffer.
func (d *MemoryDevice) Close() error {
	d.data = nil
	return nil
}
