package compress

import (
	"fmt"
	"slices"
	"sync"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// Effort levels accepted by every codec factory.
const (
	MinLevel     = 1
	MaxLevel     = 9
	DefaultLevel = 7
)

// Codec is a back-end compressor identified by a format.CompressionType tag.
//
// Codecs are stateless across calls apart from pooled scratch memory, so a
// single instance is safe for concurrent use by every worker of the pool.
type Codec interface {
	// Type returns the tag recorded in the chunk header of chunks this codec produced.
	Type() format.CompressionType

	// Compress compresses data and returns a newly allocated result.
	//
	// Codecs that cannot represent data more compactly may return
	// errs.ErrIncompressible; the selection policy treats that the same as
	// any other non-shrinking result.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data whose uncompressed length is size.
	//
	// The result must be exactly size bytes; anything else is an error.
	Decompress(data []byte, size int) ([]byte, error)
}

// Factory builds a codec at the given effort level (MinLevel..MaxLevel).
type Factory func(level int) (Codec, error)

// Registry maps codec tags to factories. Adding a codec is a single Register
// call; nothing downstream switches on tags.
type Registry struct {
	mu        sync.RWMutex
	factories map[format.CompressionType]Factory
}

// NewRegistry creates a registry holding every built-in codec.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[format.CompressionType]Factory)}
	r.Register(format.CompressionNone, func(int) (Codec, error) { return NewNoOpCompressor(), nil })
	r.Register(format.CompressionZstd, func(level int) (Codec, error) { return NewZstdCompressor(level), nil })
	r.Register(format.CompressionLZ4, func(level int) (Codec, error) { return NewLZ4Compressor(level), nil })
	r.Register(format.CompressionLZMA, func(level int) (Codec, error) { return NewLZMACompressor(level), nil })
	r.Register(format.CompressionDeflate, func(level int) (Codec, error) { return NewDeflateCompressor(level), nil })
	r.Register(format.CompressionCM, func(level int) (Codec, error) { return NewCMCompressor(level), nil })
	r.Register(format.CompressionS2, func(level int) (Codec, error) { return NewS2Compressor(level), nil })
	r.Register(format.CompressionSnappy, func(int) (Codec, error) { return NewSnappyCompressor(), nil })

	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry of built-in codecs.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds or replaces the factory for tag.
func (r *Registry) Register(tag format.CompressionType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[tag] = factory
}

// Codec builds the codec registered for tag at the given level.
//
// Returns:
//   - Codec: codec instance
//   - error: errs.ErrUnknownCodec if no factory is registered, or errs.ErrInvalidConfig for a bad level
func (r *Registry) Codec(tag format.CompressionType, level int) (Codec, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, errs.Config("compression level %d outside [%d, %d]", level, MinLevel, MaxLevel)
	}

	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownCodec, tag)
	}

	codec, err := factory(level)
	if err != nil {
		return nil, errs.Codec(tag, err)
	}

	return codec, nil
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag format.CompressionType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[tag]

	return ok
}

// Types returns the registered tags in ascending order.
func (r *Registry) Types() []format.CompressionType {
	r.mu.RLock()
	types := make([]format.CompressionType, 0, len(r.factories))
	for tag := range r.factories {
		types = append(types, tag)
	}
	r.mu.RUnlock()

	slices.Sort(types)

	return types
}

// checkSize verifies a decoded length against the length recorded in the chunk header.
func checkSize(tag format.CompressionType, got, want int) error {
	if got != want {
		return errs.Codec(tag, fmt.Errorf("decoded %d bytes, expected %d", got, want))
	}

	return nil
}
