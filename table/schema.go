// Package table implements the row codec and the Table/Index facades that
// sit on top of btree.BPlusTree, translating typed rows and column values
// into the sortable byte keys and opaque byte values the tree itself never
// needs to understand.
package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/intellect4all/storagecore/common"
)

// EncodeRow serializes row according to schema: one null-flag byte per
// column, followed by that column's payload when not null.
//
//	int32:   4 bytes, little-endian
//	float64: 8 bytes, little-endian IEEE-754
//	string:  2-byte little-endian length prefix, then UTF-8 bytes
func EncodeRow(schema common.Schema, row common.Row) ([]byte, error) {
	if err := schema.Validate(row); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 16*len(row))
	for i, col := range schema {
		cell := row[i]
		if cell.Null {
			buf = append(buf, 1)
			continue
		}
		buf = append(buf, 0)

		switch col.Type {
		case common.TypeInt:
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(cell.I32))
			buf = append(buf, tmp[:]...)
		case common.TypeFloat:
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(cell.F64))
			buf = append(buf, tmp[:]...)
		case common.TypeString:
			if len(cell.Str) > col.MaxLength {
				return nil, fmt.Errorf("table: column %q exceeds max length %d: %w", col.Name, col.MaxLength, common.ErrInvalidArgument)
			}
			var tmp [2]byte
			binary.LittleEndian.PutUint16(tmp[:], uint16(len(cell.Str)))
			buf = append(buf, tmp[:]...)
			buf = append(buf, cell.Str...)
		default:
			return nil, common.ErrInvalidArgument
		}
	}
	return buf, nil
}

// DecodeRow is EncodeRow's inverse.
func DecodeRow(schema common.Schema, data []byte) (common.Row, error) {
	row := make(common.Row, len(schema))
	off := 0
	for i, col := range schema {
		if off >= len(data) {
			return nil, common.ErrCorruptPage
		}
		isNull := data[off] == 1
		off++
		if isNull {
			row[i] = common.NullValue(col.Type)
			continue
		}

		switch col.Type {
		case common.TypeInt:
			if off+4 > len(data) {
				return nil, common.ErrCorruptPage
			}
			row[i] = common.IntValue(int32(binary.LittleEndian.Uint32(data[off:])))
			off += 4
		case common.TypeFloat:
			if off+8 > len(data) {
				return nil, common.ErrCorruptPage
			}
			row[i] = common.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(data[off:])))
			off += 8
		case common.TypeString:
			if off+2 > len(data) {
				return nil, common.ErrCorruptPage
			}
			n := int(binary.LittleEndian.Uint16(data[off:]))
			off += 2
			if off+n > len(data) {
				return nil, common.ErrCorruptPage
			}
			row[i] = common.StringValue(string(data[off : off+n]))
			off += n
		default:
			return nil, common.ErrCorruptPage
		}
	}
	return row, nil
}
