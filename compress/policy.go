package compress

import (
	"errors"
	"fmt"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// Policy decides how each chunk is encoded. With one tag it behaves as a fixed
// codec; with several it runs all of them and keeps the smallest result
// (best-of-N). Either way a result that does not shrink the chunk is replaced
// by the None codec, so compression itself never fails because of a codec.
//
// A Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	candidates []Codec
	decoders   map[format.CompressionType]Codec
}

// Selection reports the outcome of one Policy.Compress call.
type Selection struct {
	Tag format.CompressionType
	// Failed lists codecs whose Compress returned an error other than
	// errs.ErrIncompressible. Those failures are non-fatal.
	Failed []error
}

// NewPolicy builds a policy over the given tags at the given effort level.
// Tags are tried in order; on equal sizes the first listed wins.
//
// Every codec in reg is instantiated for decoding, so a policy can read chunks
// written with any registered tag regardless of its own candidates.
func NewPolicy(reg *Registry, level int, tags ...format.CompressionType) (*Policy, error) {
	if reg == nil {
		reg = defaultRegistry
	}
	if len(tags) == 0 {
		return nil, errs.Config("codec policy needs at least one codec")
	}

	p := &Policy{
		candidates: make([]Codec, 0, len(tags)),
		decoders:   make(map[format.CompressionType]Codec),
	}

	for _, tag := range tags {
		codec, err := reg.Codec(tag, level)
		if err != nil {
			return nil, err
		}
		if tag != format.CompressionNone {
			p.candidates = append(p.candidates, codec)
		}
	}

	for _, tag := range reg.Types() {
		codec, err := reg.Codec(tag, level)
		if err != nil {
			return nil, err
		}
		p.decoders[tag] = codec
	}
	if _, ok := p.decoders[format.CompressionNone]; !ok {
		p.decoders[format.CompressionNone] = NewNoOpCompressor()
	}

	return p, nil
}

// Primary returns the tag recorded in the file header: the first candidate, or
// None for a passthrough-only policy.
func (p *Policy) Primary() format.CompressionType {
	if len(p.candidates) == 0 {
		return format.CompressionNone
	}

	return p.candidates[0].Type()
}

// BestOf reports whether more than one candidate competes per chunk.
func (p *Policy) BestOf() bool {
	return len(p.candidates) > 1
}

// Compress encodes data with every candidate and returns the smallest result
// strictly shorter than data, or data itself tagged None.
func (p *Policy) Compress(data []byte) ([]byte, Selection) {
	var (
		best    []byte
		bestTag = format.CompressionNone
		sel     Selection
	)

	for _, codec := range p.candidates {
		out, err := codec.Compress(data)
		if err != nil {
			if !errors.Is(err, errs.ErrIncompressible) {
				sel.Failed = append(sel.Failed, errs.Codec(codec.Type(), err))
			}

			continue
		}
		if len(out) >= len(data) {
			continue
		}
		if best == nil || len(out) < len(best) {
			best, bestTag = out, codec.Type()
		}
	}

	sel.Tag = bestTag
	if best == nil {
		return data, sel
	}

	return best, sel
}

// Decompress decodes a chunk recorded with tag. Any failure, including an
// unknown tag, means the stream is corrupt.
func (p *Policy) Decompress(tag format.CompressionType, data []byte, size int) ([]byte, error) {
	codec, ok := p.decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: chunk codec %s: %w", errs.ErrCorruptStream, tag, errs.ErrUnknownCodec)
	}

	out, err := codec.Decompress(data, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptStream, err)
	}

	return out, nil
}
