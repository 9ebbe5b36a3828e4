package section

import (
	"github.com/arloliu/lrz/endian"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// FileHeader is the fixed-size header at the start of every lrz file. It
// carries everything needed to decompress without external configuration.
type FileHeader struct {
	Major uint8 // byte offset 4
	Minor uint8 // byte offset 5
	// Codec is the primary codec tag chosen by the compressor. Individual
	// chunks may still record a different tag (best-of-N, incompressible data).
	Codec format.CompressionType // byte offset 6
	Level uint8                  // byte offset 7
	// OriginalSize is the uncompressed input size, valid when FlagSizeKnown is set.
	OriginalSize uint64 // byte offset 8-15
	// Window is the maximum copy distance used by the rzip layer.
	Window uint64 // byte offset 16-23
	// ChunkSize is the maximum uncompressed chunk length of any lane.
	ChunkSize uint32 // byte offset 24-27
	Lanes     uint8  // byte offset 28
	Flags     uint8  // byte offset 29
}

// NewFileHeader creates a header for the current format version.
func NewFileHeader(codec format.CompressionType, level int, window int64, chunkSize int) *FileHeader {
	return &FileHeader{
		Major:     MajorVersion,
		Minor:     MinorVersion,
		Codec:     codec,
		Level:     uint8(level), //nolint:gosec // level is validated by config
		Window:    uint64(window),
		ChunkSize: uint32(chunkSize), //nolint:gosec // bounded by MaxChunkSize
		Lanes:     NumLanes,
		Flags:     FlagDigest,
	}
}

// SetOriginalSize records the input size and marks it as known.
func (h *FileHeader) SetOriginalSize(size int64) {
	if size < 0 {
		h.OriginalSize = 0
		h.Flags &^= FlagSizeKnown

		return
	}
	h.OriginalSize = uint64(size)
	h.Flags |= FlagSizeKnown
}

// SizeKnown reports whether OriginalSize is valid.
func (h *FileHeader) SizeKnown() bool {
	return h.Flags&FlagSizeKnown != 0
}

// HasDigest reports whether the trailer carries a digest to verify.
func (h *FileHeader) HasDigest() bool {
	return h.Flags&FlagDigest != 0
}

// Bytes serializes the header into a HeaderSize byte slice.
func (h *FileHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.Container()

	copy(b[0:4], Magic)
	b[4] = h.Major
	b[5] = h.Minor
	b[6] = uint8(h.Codec)
	b[7] = h.Level
	engine.PutUint64(b[8:16], h.OriginalSize)
	engine.PutUint64(b[16:24], h.Window)
	engine.PutUint32(b[24:28], h.ChunkSize)
	b[28] = h.Lanes
	b[29] = h.Flags

	return b
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be exactly HeaderSize bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrInvalidMagic, ErrUnsupportedVersion or ErrInvalidFileHeader
func (h *FileHeader) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}
	if string(data[0:4]) != Magic {
		return errs.ErrInvalidMagic
	}

	engine := endian.Container()

	h.Major = data[4]
	h.Minor = data[5]
	h.Codec = format.CompressionType(data[6])
	h.Level = data[7]
	h.OriginalSize = engine.Uint64(data[8:16])
	h.Window = engine.Uint64(data[16:24])
	h.ChunkSize = engine.Uint32(data[24:28])
	h.Lanes = data[28]
	h.Flags = data[29]

	return h.Validate()
}

// Validate checks the header fields for consistency.
func (h *FileHeader) Validate() error {
	if h.Major != MajorVersion || h.Minor > MinorVersion {
		return errs.ErrUnsupportedVersion
	}
	if h.Lanes == 0 || h.Lanes > MaxLanes {
		return errs.ErrInvalidFileHeader
	}
	if h.ChunkSize < MinChunkSize || h.ChunkSize > MaxChunkSize {
		return errs.ErrInvalidFileHeader
	}
	if h.Window == 0 {
		return errs.ErrInvalidFileHeader
	}
	if h.Flags&^flagsMask != 0 {
		return errs.ErrInvalidFileHeader
	}

	return nil
}

// ParseFileHeader parses a FileHeader from the start of a byte slice.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < HeaderSize {
		return FileHeader{}, errs.ErrInvalidHeaderSize
	}

	h := FileHeader{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return FileHeader{}, err
	}

	return h, nil
}
