// Package errs defines the error taxonomy shared by every lrz package.
//
// Errors fall into four categories:
//
//   - ErrIO: read, write or mmap failures on the underlying descriptors. Fatal.
//   - ErrCorruptStream: structural violations found while decompressing. Fatal for the invocation.
//   - ErrResource: the requested window or memory cannot be allocated. The caller may step the
//     window down and retry.
//   - ErrCodec: one back-end codec call failed. Non-fatal when another result exists.
//
// Every specific sentinel wraps its category, so callers can test either level:
//
//	if errors.Is(err, errs.ErrCorruptStream) { ... }
//	if errors.Is(err, errs.ErrOutOfWindow) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Categories.
var (
	ErrIO            = errors.New("lrz: i/o error")
	ErrCorruptStream = errors.New("lrz: corrupt stream")
	ErrResource      = errors.New("lrz: insufficient resources")
	ErrCodec         = errors.New("lrz: codec failure")
	ErrInvalidConfig = errors.New("lrz: invalid configuration")
)

// Container structure.
var (
	ErrInvalidMagic       = fmt.Errorf("%w: invalid magic number", ErrCorruptStream)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrCorruptStream)
	ErrInvalidHeaderSize  = fmt.Errorf("%w: invalid header size", ErrCorruptStream)
	ErrInvalidFileHeader  = fmt.Errorf("%w: invalid file header", ErrCorruptStream)
	ErrInvalidChunkHeader = fmt.Errorf("%w: invalid chunk header", ErrCorruptStream)
	ErrChunkChecksum      = fmt.Errorf("%w: chunk checksum mismatch", ErrCorruptStream)
	ErrChunkSequence      = fmt.Errorf("%w: chunk out of sequence", ErrCorruptStream)
	ErrTruncated          = fmt.Errorf("%w: truncated stream", ErrCorruptStream)
	ErrSizeMismatch       = fmt.Errorf("%w: size mismatch", ErrCorruptStream)
	ErrDigestMismatch     = fmt.Errorf("%w: digest mismatch", ErrCorruptStream)
)

// Rzip layer.
var (
	ErrOutOfWindow = fmt.Errorf("%w: copy distance outside window", ErrCorruptStream)
	ErrInvalidOp   = fmt.Errorf("%w: invalid rzip operation", ErrCorruptStream)
)

// Resources.
var (
	ErrWindowTooLarge  = fmt.Errorf("%w: window does not fit memory ceiling", ErrResource)
	ErrMmapUnsupported = fmt.Errorf("%w: memory mapping not supported on this platform", ErrResource)
)

// Codecs.
var (
	ErrUnknownCodec   = fmt.Errorf("%w: unknown codec", ErrCodec)
	ErrIncompressible = fmt.Errorf("%w: data is incompressible", ErrCodec)
)

// IO wraps err as an ErrIO, naming the failed operation.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// Corrupt returns a formatted ErrCorruptStream.
func Corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptStream, fmt.Sprintf(format, args...))
}

// Resource returns a formatted ErrResource.
func Resource(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResource, fmt.Sprintf(format, args...))
}

// Codec wraps a failure of the named codec as an ErrCodec.
func Codec(codec fmt.Stringer, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCodec) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrCodec, codec, err)
}

// Config returns a formatted ErrInvalidConfig.
func Config(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err must abort the invocation. Codec errors are the
// only recoverable category, unless they were raised while decoding and so
// also wrap ErrCorruptStream. Resource errors are fatal unless the caller
// implements a window step-down.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrCorruptStream) || !errors.Is(err, ErrCodec)
}
