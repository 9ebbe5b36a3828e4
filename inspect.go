package lrz

import (
	"cmp"
	"io"
	"slices"

	"github.com/arloliu/lrz/format"
	"github.com/arloliu/lrz/section"
	"github.com/arloliu/lrz/stream"
)

// Totals aggregates a group of chunks.
type Totals struct {
	Chunks       int
	Uncompressed int64
	Compressed   int64
}

func (t *Totals) add(h section.ChunkHeader) {
	t.Chunks++
	t.Uncompressed += int64(h.UncompressedSize)
	t.Compressed += int64(h.CompressedSize)
}

// Info describes an lrz file.
type Info struct {
	Header  section.FileHeader
	Trailer section.Trailer
	// FileSize is the length of the container.
	FileSize int64
	// Chunks lists every data chunk in file order.
	Chunks []stream.ChunkInfo
	Lanes  []Totals
	Codecs map[format.CompressionType]*Totals
}

// Ratio returns the original size over the container size.
func (i *Info) Ratio() float64 {
	if i.FileSize == 0 {
		return 0
	}

	return float64(i.Trailer.OriginalSize) / float64(i.FileSize)
}

// CodecTypes returns the codec tags used by the chunks, in tag order.
func (i *Info) CodecTypes() []format.CompressionType {
	tags := make([]format.CompressionType, 0, len(i.Codecs))
	for tag := range i.Codecs {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	return tags
}

// Inspect walks the headers of an lrz file without decompressing anything.
func Inspect(r io.ReaderAt) (*Info, error) {
	idx, err := stream.Scan(r)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Header:   idx.Header,
		Trailer:  idx.Trailer,
		FileSize: idx.Size,
		Chunks:   make([]stream.ChunkInfo, 0, idx.Chunks),
		Lanes:    make([]Totals, len(idx.Lanes)),
		Codecs:   make(map[format.CompressionType]*Totals),
	}

	for lane, chunks := range idx.Lanes {
		for _, c := range chunks {
			info.Chunks = append(info.Chunks, c)
			info.Lanes[lane].add(c.Header)

			t, ok := info.Codecs[c.Header.Codec]
			if !ok {
				t = &Totals{}
				info.Codecs[c.Header.Codec] = t
			}
			t.add(c.Header)
		}
	}

	slices.SortFunc(info.Chunks, func(a, b stream.ChunkInfo) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	return info, nil
}
