// Package stream multiplexes the rzip lanes onto a single lrz file.
//
// # Writing
//
// A Writer buffers each lane up to the chunk size. A full buffer becomes a
// chunk, tagged with its lane and per-lane sequence number, and is compressed
// on the worker pool through the codec policy. Chunks are retired in sequence
// order per lane: the writer waits on the oldest in-flight chunk of a lane
// before it lets that lane hold more than the configured number of chunks in
// flight, and only ever writes the oldest one. Lanes are independent, so
// chunks of different lanes interleave in the file.
//
//	w, err := stream.NewWriter(ctx, out, section.NumLanes, stream.WriterOptions{...})
//	w.Write(section.LaneControl, ops)
//	w.Write(section.LaneLiteral, literals)
//	err = w.Close() // drains every lane and writes the end marker
//
// # Reading
//
// Scan walks the chunk headers of a file once and builds a per-lane index, so
// a lane can be read without buffering the chunks of the other lane. A Reader
// then decompresses each lane's chunks on the worker pool, a few chunks ahead
// of the consumer, and releases chunk N's bytes only once chunk N-1 was fully
// read. A chunk that fails its checksum or its codec surfaces as
// errs.ErrCorruptStream when the reader reaches it.
package stream
