package rzip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/lrz/errs"
	"github.com/arloliu/lrz/format"
)

// Op is one rzip operation.
type Op struct {
	Kind format.OpType
	Len  int64
	// Dist is the copy distance; zero for literals.
	Dist int64
}

func (op Op) String() string {
	if op.Kind == format.OpCopy {
		return fmt.Sprintf("Copy(%d, %d)", op.Len, op.Dist)
	}

	return fmt.Sprintf("%s(%d)", op.Kind, op.Len)
}

// AppendOp appends the control lane encoding of op to dst: one kind byte, the
// length as a uvarint and, for copies, the distance as a uvarint.
func AppendOp(dst []byte, op Op) []byte {
	dst = append(dst, byte(op.Kind))
	dst = binary.AppendUvarint(dst, uint64(op.Len)) //nolint:gosec // lengths are positive
	if op.Kind == format.OpCopy {
		dst = binary.AppendUvarint(dst, uint64(op.Dist)) //nolint:gosec // distances are positive
	}

	return dst
}

// ReadOp decodes the next op from the control lane. It returns io.EOF when the
// lane ends cleanly between ops. Zero lengths or distances, unknown kinds and
// ops cut short wrap errs.ErrInvalidOp.
func ReadOp(r io.ByteReader) (Op, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return Op{}, err
	}

	op := Op{Kind: format.OpType(kind)}
	switch op.Kind {
	case format.OpLiteral, format.OpCopy:
	default:
		return Op{}, fmt.Errorf("%w: unknown kind 0x%02x", errs.ErrInvalidOp, kind)
	}

	if op.Len, err = readLength(r); err != nil {
		return Op{}, err
	}
	if op.Kind == format.OpCopy {
		if op.Dist, err = readLength(r); err != nil {
			return Op{}, err
		}
	}

	return op, nil
}

// readLength reads a positive uvarint that fits in an int64.
func readLength(r io.ByteReader) (int64, error) {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: truncated operation", errs.ErrInvalidOp)
			}

			return 0, err
		}

		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			if v == 0 || v > math.MaxInt64 {
				return 0, fmt.Errorf("%w: operand %d out of range", errs.ErrInvalidOp, v)
			}

			return int64(v), nil
		}
	}

	return 0, fmt.Errorf("%w: operand overflows 64 bits", errs.ErrInvalidOp)
}
