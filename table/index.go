package table

import (
	"bytes"
	"errors"

	"github.com/intellect4all/storagecore/btree"
	"github.com/intellect4all/storagecore/common"
)

// Index is one secondary index over a table: an ordered map from an
// indexed column's value to the primary key(s) of the rows holding it.
// Non-unique indexes disambiguate duplicate values by appending the
// row's primary key to the tree key, so every (value, pk) pair gets its
// own slot; Unique indexes reject a second row under an existing value.
type Index struct {
	Name      string
	Column    common.Column
	PKColumn  common.Column
	Unique    bool
	tree      *btree.BPlusTree
}

// NewIndex wraps an already-opened tree as a named secondary index.
func NewIndex(name string, column, pkColumn common.Column, unique bool, tree *btree.BPlusTree) *Index {
	return &Index{Name: name, Column: column, PKColumn: pkColumn, Unique: unique, tree: tree}
}

func (ix *Index) compositeKey(value, pk common.Value) ([]byte, error) {
	vb, err := EncodeKey(value, ix.Column)
	if err != nil {
		return nil, err
	}
	if ix.Unique {
		return vb, nil
	}
	pb, err := EncodeKey(pk, ix.PKColumn)
	if err != nil {
		return nil, err
	}
	return append(vb, pb...), nil
}

// InsertEntry adds one (value, pk) pair. Null values are never indexed:
// callers are expected to skip them before calling.
func (ix *Index) InsertEntry(value, pk common.Value) error {
	key, err := ix.compositeKey(value, pk)
	if err != nil {
		return err
	}
	if ix.Unique {
		if _, err := ix.tree.Get(key); err == nil {
			return common.ErrDuplicateKey
		} else if !errors.Is(err, common.ErrKeyNotFound) {
			return err
		}
	}
	pkBytes, err := EncodeKey(pk, ix.PKColumn)
	if err != nil {
		return err
	}
	return ix.tree.Put(key, pkBytes)
}

// DeleteEntry removes the (value, pk) pair.
func (ix *Index) DeleteEntry(value, pk common.Value) error {
	key, err := ix.compositeKey(value, pk)
	if err != nil {
		return err
	}
	return ix.tree.Delete(key)
}

// FindPK returns the primary-key byte strings stored under value. A
// unique index returns at most one; a non-unique index returns every row
// that carries the value, by a Range scan over the composite keys whose
// prefix equals the encoded value.
func (ix *Index) FindPK(value common.Value) ([][]byte, error) {
	vb, err := EncodeKey(value, ix.Column)
	if err != nil {
		return nil, err
	}
	if ix.Unique {
		pk, err := ix.tree.Get(vb)
		if err != nil {
			if errors.Is(err, common.ErrKeyNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return [][]byte{pk}, nil
	}

	// Non-unique: every composite key sharing the value prefix. The upper
	// bound is vb incremented by one as a fixed-width big-endian integer,
	// the smallest key that sorts after every key prefixed by vb; when vb
	// is all 0xff there is no such bound, so the scan runs unbounded above
	// and relies on the prefix filter below.
	var hi []byte
	if inc, ok := incrementBytes(vb); ok {
		hi = inc
	}
	kvs, err := ix.tree.Range(vb, hi)
	if err != nil {
		return nil, err
	}
	pks := make([][]byte, 0, len(kvs))
	for _, kv := range kvs {
		if !bytes.HasPrefix(kv.Key, vb) {
			continue
		}
		pks = append(pks, kv.Value)
	}
	return pks, nil
}

// incrementBytes treats b as a fixed-width big-endian integer and returns
// b+1, or ok=false if b is already all 0xff.
func incrementBytes(b []byte) ([]byte, bool) {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out, true
		}
		out[i] = 0
	}
	return nil, false
}

// Close releases the index's underlying tree.
func (ix *Index) Close() error { return ix.tree.Close() }
