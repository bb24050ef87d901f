package table

import (
	"encoding/binary"
	"math"

	"github.com/intellect4all/storagecore/common"
)

// EncodeKey turns a single column value into a byte string whose
// bytes.Compare ordering matches the column's natural ordering, for use as
// a B+Tree key (clustered primary key, or one component of a secondary
// index key).
//
// String columns are zero-padded out to col.MaxLength. Without padding, a
// shorter string that's a prefix of a longer one (e.g. "ab" vs "abc") can
// sort incorrectly once a secondary index key concatenates the indexed
// value with a trailing row pointer: "ab"+pointer can compare less than
// "abc" for the wrong reason (the pointer bytes, not the value) once the
// comparison runs past the shared prefix. Fixed-width encoding removes the
// ambiguity: every value for a given column occupies exactly the same
// number of bytes.
func EncodeKey(v common.Value, col common.Column) ([]byte, error) {
	if v.Null {
		return nil, common.ErrInvalidArgument
	}
	switch col.Type {
	case common.TypeInt:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v.I32)^0x80000000)
		return buf, nil
	case common.TypeFloat:
		bits := math.Float64bits(v.F64)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return buf, nil
	case common.TypeString:
		if len(v.Str) > col.MaxLength {
			return nil, common.ErrInvalidArgument
		}
		buf := make([]byte, col.MaxLength)
		copy(buf, v.Str)
		return buf, nil
	default:
		return nil, common.ErrInvalidArgument
	}
}
