package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/section"
)

// ChunkInfo locates one chunk inside a file.
type ChunkInfo struct {
	// Offset is the position of the chunk payload, just past its header.
	Offset int64
	Header section.ChunkHeader
}

// Index is the result of walking a file's chunk headers.
type Index struct {
	Header  section.FileHeader
	Trailer section.Trailer
	// Lanes holds each lane's chunks in sequence order.
	Lanes [][]ChunkInfo
	// Chunks counts the data chunks of all lanes.
	Chunks int
	// Size is the length of the file up to and including the trailer.
	Size int64
}

// LaneBytes returns the uncompressed length of a lane.
func (idx *Index) LaneBytes(lane int) int64 {
	var n int64
	for _, c := range idx.Lanes[lane] {
		n += int64(c.Header.UncompressedSize)
	}

	return n
}

// Scan reads the file header, every chunk header and the trailer of src
// without touching chunk payloads.
//
// Chunk headers are validated against the file header, and each lane's
// sequence numbers must count up from zero. A file that ends before the
// trailer fails with errs.ErrTruncated.
func Scan(src io.ReaderAt) (*Index, error) {
	var buf [section.TrailerSize]byte

	if err := readFullAt(src, buf[:section.HeaderSize], 0); err != nil {
		return nil, err
	}

	fh, err := section.ParseFileHeader(buf[:section.HeaderSize])
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Header: fh,
		Lanes:  make([][]ChunkInfo, fh.Lanes),
	}

	off := int64(section.HeaderSize)
	for {
		hdrBuf := buf[:section.ChunkHeaderSize]
		if err := readFullAt(src, hdrBuf, off); err != nil {
			return nil, err
		}

		hdr, err := section.ParseChunkHeader(hdrBuf)
		if err != nil {
			return nil, fmt.Errorf("chunk header at offset %d: %w", off, err)
		}
		if err := hdr.ValidateFor(&idx.Header); err != nil {
			return nil, fmt.Errorf("chunk header at offset %d: %w", off, err)
		}
		off += section.ChunkHeaderSize

		if hdr.IsEndMarker() {
			if int(hdr.Seq) != idx.Chunks {
				return nil, errs.Corrupt("end marker counts %d chunks, found %d", hdr.Seq, idx.Chunks)
			}

			break
		}

		lane := idx.Lanes[hdr.Lane]
		if int(hdr.Seq) != len(lane) {
			return nil, fmt.Errorf("%w: lane %d expected seq %d, got %d",
				errs.ErrChunkSequence, hdr.Lane, len(lane), hdr.Seq)
		}

		idx.Lanes[hdr.Lane] = append(lane, ChunkInfo{Offset: off, Header: hdr})
		idx.Chunks++
		off += int64(hdr.CompressedSize)
	}

	trailerBuf := buf[:section.TrailerSize]
	if err := readFullAt(src, trailerBuf, off); err != nil {
		return nil, err
	}

	idx.Trailer, err = section.ParseTrailer(trailerBuf)
	if err != nil {
		return nil, err
	}
	idx.Size = off + section.TrailerSize

	if idx.Header.SizeKnown() && idx.Header.OriginalSize != idx.Trailer.OriginalSize {
		return nil, fmt.Errorf("%w: header records %d bytes, trailer %d",
			errs.ErrSizeMismatch, idx.Header.OriginalSize, idx.Trailer.OriginalSize)
	}

	return idx, nil
}

// readFullAt fills p from src at off. Running out of data is corruption, any
// other failure is an I/O error.
func readFullAt(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", errs.ErrTruncated, len(p), off, n)
	}

	return errs.IO("read", err)
}
