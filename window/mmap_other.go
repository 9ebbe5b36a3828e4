//go:build !(darwin || linux)

package window

import "github.com/arloliu/lrz/errs"

// MmapSupported reports whether OpenMapped can succeed on this platform.
const MmapSupported = false

// OpenMapped always fails on this platform with errs.ErrMmapUnsupported, so
// the caller falls back to a smaller resident window.
func OpenMapped(string, int64) (Device, error) {
	return nil, errs.ErrMmapUnsupported
}
