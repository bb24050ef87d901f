package common

import "bytes"

// StorageEngine is the raw key-value contract a single B+Tree satisfies,
// independent of the table/schema layer built on top of it.
type StorageEngine interface {
	Put(key, value []byte) error

	// Get returns ErrKeyNotFound if key doesn't exist.
	Get(key []byte) ([]byte, error)

	Delete(key []byte) error

	Close() error

	// Sync ensures all data is persisted to disk.
	Sync() error

	Stats() Stats

	// Compact manually triggers compaction. A no-op for index structures
	// that update in place.
	Compact() error
}

// Stats reports engine-level counters surfaced for benchmarking and tests.
type Stats struct {
	NumKeys       int64
	NumPages      int
	TotalDiskSize int64

	WriteCount int64
	ReadCount  int64

	CacheHits   int64
	CacheMisses int64
	Evictions   int64

	WriteAmp float64
	SpaceAmp float64
}

// KV is one key-value pair returned by a range scan.
type KV struct {
	Key   []byte
	Value []byte
}

// Iterator drives a forward range scan over sorted key-value pairs.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// ValueType tags the scalar kind a Value holds.
type ValueType uint8

const (
	TypeInt ValueType = iota + 1
	TypeFloat
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "DOUBLE"
	case TypeString:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Value is a single scalar cell: a 32-bit signed integer, a 64-bit double,
// a bounded UTF-8 string, or the null marker. Only Type, and the field it
// selects, are meaningful; Null takes priority over all of them.
type Value struct {
	Type ValueType
	Null bool

	I32 int32
	F64 float64
	Str string
}

func IntValue(v int32) Value    { return Value{Type: TypeInt, I32: v} }
func FloatValue(v float64) Value { return Value{Type: TypeFloat, F64: v} }
func StringValue(v string) Value { return Value{Type: TypeString, Str: v} }
func NullValue(t ValueType) Value { return Value{Type: t, Null: true} }

// Compare orders two values of the same type. Integers compare numerically,
// strings compare byte-lexicographically. Comparing values of different
// types, or any null value, is an error — callers must filter nulls before
// reaching ordering code (§4.5 Null policy).
func Compare(a, b Value) (int, error) {
	if a.Type != b.Type {
		return 0, ErrInvalidArgument
	}
	if a.Null || b.Null {
		return 0, ErrInvalidArgument
	}
	switch a.Type {
	case TypeInt:
		switch {
		case a.I32 < b.I32:
			return -1, nil
		case a.I32 > b.I32:
			return 1, nil
		default:
			return 0, nil
		}
	case TypeFloat:
		switch {
		case a.F64 < b.F64:
			return -1, nil
		case a.F64 > b.F64:
			return 1, nil
		default:
			return 0, nil
		}
	case TypeString:
		return bytes.Compare([]byte(a.Str), []byte(b.Str)), nil
	default:
		return 0, ErrInvalidArgument
	}
}

// Column describes one position in a Schema. Positions are significant and
// stable for the table's lifetime.
type Column struct {
	Name      string
	Type      ValueType
	MaxLength int // only meaningful for TypeString
	Nullable  bool
}

// Schema is an ordered list of columns.
type Schema []Column

// IndexOf returns the ordinal of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row is an ordered vector of cells matching a Schema's length and types.
type Row []Value

// Validate checks row shape and type/nullability against the schema. It
// does not check string length bounds — the caller encodes and the codec
// enforces MaxLength there, to keep one source of truth for that limit.
func (s Schema) Validate(row Row) error {
	if len(row) != len(s) {
		return ErrInvalidArgument
	}
	for i, col := range s {
		cell := row[i]
		if cell.Null {
			if !col.Nullable {
				return ErrInvalidArgument
			}
			continue
		}
		if cell.Type != col.Type {
			return ErrInvalidArgument
		}
	}
	return nil
}
