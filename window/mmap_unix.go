//go:build darwin || linux

package window

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"golang.org/x/sys/unix"

	"github.com/arloliu/lrz/errs"
)

// MappedDevice is a fixed-size spill file used when the window does not fit
// in memory. Reads go through a read-only memory map; writes use pwrite to
// avoid read-before-write page faults. The file is unlinked as soon as it is
// created, so nothing is left behind if the process dies.
//
// ReadAt is safe for concurrent use; WriteAt calls must be serialized by the
// caller.
type MappedDevice struct {
	fd   int
	data []byte // mmap'd MAP_SHARED, PROT_READ
	size int64
}

var _ Device = (*MappedDevice)(nil)

// MmapSupported reports whether OpenMapped can succeed on this platform.
const MmapSupported = true

// OpenMapped creates an anonymous spill file of size bytes in dir and maps it.
// An empty dir means os.TempDir().
func OpenMapped(dir string, size int64) (Device, error) {
	if size <= 0 {
		return nil, errs.Resource("mapped window size must be positive, got %d", size)
	}

	f, err := os.CreateTemp(dir, "lrz-window-*")
	if err != nil {
		return nil, errs.IO("create window spill file", err)
	}
	path := f.Name()

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	_ = f.Close()
	_ = unix.Unlink(path)
	if err != nil {
		return nil, errs.IO("open window spill file", err)
	}

	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, errs.Resource("truncate window spill file to %d bytes: %v", size, err)
	}

	// Writes go through pwrite() and the kernel updates the shared mapping.
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, errs.Resource("map %d byte window: %v", size, err)
	}

	return &MappedDevice{fd: fd, data: data, size: size}, nil
}

// ReadAt reads len(p) bytes starting at byte offset off through the mapping.
func (d *MappedDevice) ReadAt(p []byte, off int64) (readCount int, err error) {
	if off < 0 || off >= d.size {
		return 0, io.EOF
	}

	// A failing disk under the spill file raises SIGBUS on access; turn it
	// into an error instead of a crash.
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = errs.IO("read mapped window", fmt.Errorf("page fault at offset %d: %v", off, r))
		}
	}()

	readCount = copy(p, d.data[off:])
	if readCount < len(p) {
		return readCount, io.EOF
	}

	return readCount, nil
}

// WriteAt writes len(p) bytes starting at byte offset off with pwrite.
func (d *MappedDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > d.size {
		return 0, io.ErrShortWrite
	}

	total := 0
	for len(p) > 0 {
		written, err := unix.Pwrite(d.fd, p, off)
		total += written
		if err != nil {
			return total, errs.IO("write mapped window", err)
		}
		p = p[written:]
		off += int64(written)
	}

	return total, nil
}

// Size returns the device size in bytes.
func (d *MappedDevice) Size() int64 {
	return d.size
}

// Close unmaps the memory region and closes the file descriptor, which
// releases the unlinked spill file.
func (d *MappedDevice) Close() error {
	if d.data == nil {
		return nil
	}

	var firstErr error
	if err := unix.Munmap(d.data); err != nil {
		firstErr = errs.IO("unmap window", err)
	}
	if err := unix.Close(d.fd); err != nil && firstErr == nil {
		firstErr = errs.IO("close window spill file", err)
	}
	d.data = nil
	d.fd = -1

	return firstErr
}
