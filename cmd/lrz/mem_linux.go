package main

import (
	"golang.org/x/sys/unix"

	"github.com/arloliu/lrz/config"
)

// defaultMemoryCeiling allows two thirds of physical memory.
func defaultMemoryCeiling() int64 {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return config.DefaultMemoryCeiling
	}

	total := uint64(si.Totalram) * uint64(si.Unit) //nolint:unconvert // field widths differ by arch
	if total == 0 || total > 1<<62 {
		return config.DefaultMemoryCeiling
	}

	return int64(total / 3 * 2)
}
