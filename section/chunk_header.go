package section

import (
	"github.com/arloliu/lrz/endian"
	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// ChunkHeader precedes each chunk payload in the container.
type ChunkHeader struct {
	Lane  uint8                  // byte offset 0, EndMarkerLane for the end marker
	Codec format.CompressionType // byte offset 1
	// Seq is the chunk's position within its lane. For the end marker it is the
	// total number of chunks in the file.
	Seq              uint32 // byte offset 4-7
	UncompressedSize uint32 // byte offset 8-11
	CompressedSize   uint32 // byte offset 12-15
	// Checksum is the xxHash64 of the uncompressed bytes.
	Checksum uint64 // byte offset 16-23
}

// NewEndMarker returns the header that terminates the chunk sequence.
func NewEndMarker(chunks uint32) ChunkHeader {
	return ChunkHeader{Lane: EndMarkerLane, Codec: format.CompressionNone, Seq: chunks}
}

// IsEndMarker reports whether the header terminates the chunk sequence.
func (h ChunkHeader) IsEndMarker() bool {
	return h.Lane == EndMarkerLane
}

// Bytes serializes the header into a ChunkHeaderSize byte slice.
func (h ChunkHeader) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, ChunkHeaderSize))
}

// AppendTo appends the encoded header to dst.
func (h ChunkHeader) AppendTo(dst []byte) []byte {
	engine := endian.Container()

	dst = append(dst, h.Lane, uint8(h.Codec), 0, 0)
	dst = engine.AppendUint32(dst, h.Seq)
	dst = engine.AppendUint32(dst, h.UncompressedSize)
	dst = engine.AppendUint32(dst, h.CompressedSize)
	dst = engine.AppendUint64(dst, h.Checksum)

	return dst
}

// Parse decodes a chunk header. It only validates the fixed layout; lane range
// and size limits depend on the file header and are checked by ValidateFor.
func (h *ChunkHeader) Parse(data []byte) error {
	if len(data) != ChunkHeaderSize {
		return errs.ErrInvalidHeaderSize
	}
	if data[2] != 0 || data[3] != 0 {
		return errs.ErrInvalidChunkHeader
	}

	engine := endian.Container()

	h.Lane = data[0]
	h.Codec = format.CompressionType(data[1])
	h.Seq = engine.Uint32(data[4:8])
	h.UncompressedSize = engine.Uint32(data[8:12])
	h.CompressedSize = engine.Uint32(data[12:16])
	h.Checksum = engine.Uint64(data[16:24])

	if h.IsEndMarker() && (h.UncompressedSize != 0 || h.CompressedSize != 0) {
		return errs.ErrInvalidChunkHeader
	}

	return nil
}

// ValidateFor checks the chunk header against the file header it belongs to.
func (h ChunkHeader) ValidateFor(fh *FileHeader) error {
	if h.IsEndMarker() {
		return nil
	}
	if h.Lane >= fh.Lanes {
		return errs.Corrupt("chunk lane %d outside %d lanes", h.Lane, fh.Lanes)
	}
	if h.UncompressedSize == 0 || h.UncompressedSize > fh.ChunkSize {
		return errs.Corrupt("chunk lane %d seq %d: uncompressed size %d outside (0, %d]",
			h.Lane, h.Seq, h.UncompressedSize, fh.ChunkSize)
	}
	if h.Codec == format.CompressionNone && h.CompressedSize != h.UncompressedSize {
		return errs.Corrupt("chunk lane %d seq %d: stored chunk length mismatch %d != %d",
			h.Lane, h.Seq, h.CompressedSize, h.UncompressedSize)
	}

	return nil
}

// ParseChunkHeader parses a ChunkHeader from the start of a byte slice.
func ParseChunkHeader(data []byte) (ChunkHeader, error) {
	if len(data) < ChunkHeaderSize {
		return ChunkHeader{}, errs.ErrInvalidHeaderSize
	}

	h := ChunkHeader{}
	if err := h.Parse(data[:ChunkHeaderSize]); err != nil {
		return ChunkHeader{}, err
	}

	return h, nil
}
