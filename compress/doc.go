// Package compress provides the back-end codecs that compress each chunk of
// the lrz container, and the policy choosing among them.
//
// # Overview
//
// The rzip layer removes long-distance redundancy; what remains is split into
// chunks and handed to one of the codecs below. Each codec is identified by a
// format.CompressionType tag recorded in the chunk header:
//
//   - None: stored verbatim, the fallback for incompressible chunks
//   - LZ4: fast LZ77-family block codec (levels 4-9 use the HC compressor)
//   - Zstd: Huffman/FSE + LZ77, pure Go or libzstd with the "gozstd" build tag
//   - LZMA: high-ratio range coder, the default
//   - Deflate: raw DEFLATE
//   - CM: context mixing through kanzi's CM and TPAQ entropy coders
//   - S2, Snappy: very fast block codecs
//
// # Registry
//
// A Registry maps tags to factories. Adding a codec never touches the stream
// or worker code:
//
//	reg := compress.NewRegistry()
//	reg.Register(tag, func(level int) (compress.Codec, error) {
//	    return newMyCodec(level), nil
//	})
//
// # Policy
//
// A Policy wraps the registry for the stream layer. Given one tag it always
// uses that codec; given several it compresses every chunk with each and keeps
// the smallest output (best-of-N). A candidate that fails or does not shrink
// the chunk is ignored, and when no candidate shrinks it the chunk is stored
// with None:
//
//	policy, err := compress.NewPolicy(nil, 7, format.CompressionZstd, format.CompressionLZMA)
//	out, sel := policy.Compress(chunk)
//	// sel.Tag goes into the chunk header
//
// Decoding failures are reported as errs.ErrCorruptStream.
package compress
