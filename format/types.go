package format

import (
	"fmt"
	"strings"
)

type (
	CompressionType uint8
	OpType          uint8
)

// Codec tags persisted in the file header and in every chunk header. Values are
// part of the container format and must never be renumbered.
const (
	CompressionNone    CompressionType = 0x3 // CompressionNone stores the chunk as-is.
	CompressionZstd    CompressionType = 0x4 // CompressionZstd represents Zstandard (Huffman/FSE + LZ77).
	CompressionLZ4     CompressionType = 0x5 // CompressionLZ4 represents LZ4 block compression.
	CompressionLZMA    CompressionType = 0x6 // CompressionLZMA represents LZMA range coding.
	CompressionDeflate CompressionType = 0x7 // CompressionDeflate represents raw DEFLATE.
	CompressionCM      CompressionType = 0x8 // CompressionCM represents context-mixing (TPAQ/CM) coding.
	CompressionS2      CompressionType = 0x9 // CompressionS2 represents S2 compression.
	CompressionSnappy  CompressionType = 0xA // CompressionSnappy represents Snappy block compression.
)

// Rzip operation kinds written to the control lane.
const (
	OpLiteral OpType = 0x0 // OpLiteral copies the next N bytes of the literal lane.
	OpCopy    OpType = 0x1 // OpCopy replays N bytes from D bytes back in the output.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionLZ4:
		return "LZ4"
	case CompressionLZMA:
		return "LZMA"
	case CompressionDeflate:
		return "Deflate"
	case CompressionCM:
		return "CM"
	case CompressionS2:
		return "S2"
	case CompressionSnappy:
		return "Snappy"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompressionType parses a codec name as printed by String, case-insensitively.
func ParseCompressionType(name string) (CompressionType, error) {
	for _, c := range AllCompressionTypes() {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown compression type: %q", name)
}

// AllCompressionTypes returns every built-in codec tag in tag order.
func AllCompressionTypes() []CompressionType {
	return []CompressionType{
		CompressionNone,
		CompressionZstd,
		CompressionLZ4,
		CompressionLZMA,
		CompressionDeflate,
		CompressionCM,
		CompressionS2,
		CompressionSnappy,
	}
}

func (o OpType) String() string {
	switch o {
	case OpLiteral:
		return "Literal"
	case OpCopy:
		return "Copy"
	default:
		return "Unknown"
	}
}
