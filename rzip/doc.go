// Package rzip implements the long-range matching layer of lrz.
//
// The matcher slides a 32-byte rolling fingerprint over the input and samples
// positions into a bucketed hash index. When a sampled fingerprint was seen
// before within the window, the candidate is verified byte by byte and
// extended in both directions. The result is a sequence of operations:
//
//	Literal(n)    copy the next n bytes of the literal lane
//	Copy(n, d)    replay n bytes starting d bytes back in the output
//
// Operations are written to the control lane and literal bytes to the literal
// lane of a Sink, usually a stream.Writer. Distances never exceed the
// configured window, which may be far larger than memory when the window is
// backed by a memory-mapped spill file.
//
// Decompress is the inverse: it replays the operations against a history ring
// holding the last window bytes of output. A copy may overlap its own output
// (distance smaller than length), which is how runs are encoded.
package rzip
