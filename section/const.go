package section

// Magic and format version of the container.
const (
	Magic = "LRZI"

	MajorVersion = 0
	MinorVersion = 6
)

// Fixed section sizes in bytes.
const (
	HeaderSize      = 32 // file header at offset 0
	ChunkHeaderSize = 24 // header preceding every chunk payload
	TrailerSize     = 40 // original size + BLAKE3-256 digest, after the end marker
	DigestSize      = 32
)

// Lane layout. The rzip layer always writes two lanes.
const (
	NumLanes = 2

	LaneControl = 0 // op kinds, lengths and distances
	LaneLiteral = 1 // raw literal bytes

	// EndMarkerLane marks the chunk header that terminates the chunk sequence.
	EndMarkerLane = 0xFF

	// MaxLanes bounds the lane index stored in a chunk header.
	MaxLanes = 16
)

// File header flag bits (byte 29).
const (
	FlagSizeKnown = 0x01 // OriginalSize is valid
	FlagDigest    = 0x02 // trailer carries a BLAKE3 digest
	FlagBestOf    = 0x04 // chunks may use different codec tags
	flagsMask     = FlagSizeKnown | FlagDigest | FlagBestOf
)

// Chunk size limits accepted by the container.
const (
	MinChunkSize = 1024
	MaxChunkSize = 1 << 30
)
