package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arloliu/lrz"
	"github.com/arloliu/lrz/config"
	"github.com/arloliu/lrz/section"
)

var laneNames = map[int]string{
	section.LaneControl: "control",
	section.LaneLiteral: "literal",
}

func printInfo(w io.Writer, name string, info *lrz.Info, chunks bool) error {
	h := info.Header

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", name)
	fmt.Fprintf(tw, "  version\t%d.%d\n", h.Major, h.Minor)
	fmt.Fprintf(tw, "  codec\t%s (level %d, best-of %t)\n", h.Codec, h.Level, h.Flags&section.FlagBestOf != 0)
	fmt.Fprintf(tw, "  window\t%s\n", config.FormatSize(int64(h.Window))) //nolint:gosec // validated on read
	fmt.Fprintf(tw, "  chunk size\t%s\n", config.FormatSize(int64(h.ChunkSize)))
	fmt.Fprintf(tw, "  original\t%s\n", config.FormatSize(int64(info.Trailer.OriginalSize))) //nolint:gosec // validated on read
	fmt.Fprintf(tw, "  compressed\t%s\n", config.FormatSize(info.FileSize))
	fmt.Fprintf(tw, "  ratio\t%.3f\n", info.Ratio())
	if h.HasDigest() {
		fmt.Fprintf(tw, "  blake3\t%x\n", info.Trailer.Digest)
	}

	fmt.Fprintf(tw, "\n  lane\tchunks\traw\tcompressed\n")
	for lane, t := range info.Lanes {
		name, ok := laneNames[lane]
		if !ok {
			name = fmt.Sprint(lane)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", name, t.Chunks,
			config.FormatSize(t.Uncompressed), config.FormatSize(t.Compressed))
	}

	fmt.Fprintf(tw, "\n  codec\tchunks\traw\tcompressed\n")
	for _, tag := range info.CodecTypes() {
		t := info.Codecs[tag]
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", tag, t.Chunks,
			config.FormatSize(t.Uncompressed), config.FormatSize(t.Compressed))
	}

	if chunks {
		fmt.Fprintf(tw, "\n  offset\tlane\tseq\tcodec\traw\tcompressed\n")
		for _, c := range info.Chunks {
			ch := c.Header
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%d\t%d\n", c.Offset, ch.Lane, ch.Seq, ch.Codec,
				ch.UncompressedSize, ch.CompressedSize)
		}
	}

	return tw.Flush()
}
