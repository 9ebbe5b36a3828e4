//go:build !linux

package main

import "github.com/arloliu/lrz/config"

func defaultMemoryCeiling() int64 {
	return config.DefaultMemoryCeiling
}
