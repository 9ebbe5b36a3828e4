// Package endian provides the byte-order engine used by the lrz container layout.
//
// EndianEngine combines binary.ByteOrder (fixed-offset Put/Get) with
// binary.AppendByteOrder (append-style encoding), so section types can either
// fill a fixed-size header in place or append fields to a growing buffer with
// the same value.
//
// The lrz container is always little-endian:
//
//	engine := endian.GetLittleEndianEngine()
//	engine.PutUint32(hdr[8:12], rawLen)
//	buf = engine.AppendUint64(buf, size)
//
// All engines are stateless and safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used by the container format.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Container returns the engine of the persisted lrz format.
func Container() EndianEngine {
	return binary.LittleEndian
}
