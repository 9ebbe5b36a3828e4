// Package section defines the byte-exact binary layout of the lrz container.
//
// # Container Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ File header (32 bytes, fixed)                           │
//	│  - magic "LRZI", major/minor version                    │
//	│  - primary codec tag, level, flags                      │
//	│  - original size, window size, chunk size, lane count   │
//	├─────────────────────────────────────────────────────────┤
//	│ Chunk header (24 bytes) + payload, repeated              │
//	│  - lane, codec tag, sequence within the lane            │
//	│  - uncompressed length, compressed length               │
//	│  - xxHash64 of the uncompressed bytes                   │
//	├─────────────────────────────────────────────────────────┤
//	│ End marker (24 bytes, lane 0xFF, seq = chunk count)     │
//	├─────────────────────────────────────────────────────────┤
//	│ Trailer (40 bytes)                                      │
//	│  - original size, BLAKE3-256 digest of the input        │
//	└─────────────────────────────────────────────────────────┘
//
// Chunks appear in the order they were retired by the writer. Within a lane
// the sequence numbers are strictly increasing from zero; lanes interleave
// freely. All multi-byte integers are little-endian.
//
// Each type here has a Bytes method producing its fixed-size encoding and a
// Parse method validating and decoding it. Validation failures wrap
// errs.ErrCorruptStream.
package section
