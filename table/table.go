package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/intellect4all/storagecore/btree"
	"github.com/intellect4all/storagecore/buffer"
	"github.com/intellect4all/storagecore/common"
)

// Table binds a schema to one clustered B+Tree (keyed by the first column,
// the primary key) and a set of named secondary indexes built over it.
type Table struct {
	Name    string
	ID      uint32
	Schema  common.Schema
	pkCol   common.Column

	mu        sync.RWMutex
	clustered *btree.BPlusTree
	indexes   map[string]*Index
}

// NewTable wires a clustered tree (already opened by the caller, typically
// an engine.Engine) to a schema whose first column is the primary key.
func NewTable(name string, id uint32, schema common.Schema, clustered *btree.BPlusTree) (*Table, error) {
	if len(schema) == 0 {
		return nil, common.ErrInvalidArgument
	}
	return &Table{
		Name:      name,
		ID:        id,
		Schema:    schema,
		pkCol:     schema[0],
		clustered: clustered,
		indexes:   make(map[string]*Index),
	}, nil
}

// AttachIndex registers an already-open secondary index under name.
func (t *Table) AttachIndex(name string, ix *Index) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexes[name] = ix
}

// Index returns the named secondary index, for a caller performing a
// cover-then-bookmark lookup: find_pk through the index, then
// SelectByPK through the clustered tree.
func (t *Table) Index(name string) (*Index, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ix, ok := t.indexes[name]
	return ix, ok
}

// DetachIndex removes and returns name's index, for the caller to Close.
func (t *Table) DetachIndex(name string) (*Index, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ix, ok := t.indexes[name]
	if ok {
		delete(t.indexes, name)
	}
	return ix, ok
}

// IndexNames lists every attached secondary index.
func (t *Table) IndexNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.indexes))
	for n := range t.indexes {
		names = append(names, n)
	}
	return names
}

// Insert validates row against the schema, writes it to the clustered
// tree keyed by its primary key, then adds an entry to every secondary
// index whose column isn't null in this row. A failure partway through
// the secondary indexes leaves the clustered row and any already-updated
// indexes in place — there is no multi-index transaction in this core.
func (t *Table) Insert(row common.Row) error {
	if err := t.Schema.Validate(row); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pk := row[0]
	pkKey, err := EncodeKey(pk, t.pkCol)
	if err != nil {
		return err
	}
	if _, err := t.clustered.Get(pkKey); err == nil {
		return common.ErrDuplicateKey
	} else if !errors.Is(err, common.ErrKeyNotFound) {
		return err
	}

	encoded, err := EncodeRow(t.Schema, row)
	if err != nil {
		return err
	}
	if err := t.clustered.Put(pkKey, encoded); err != nil {
		return err
	}

	for name, ix := range t.indexes {
		col := ix.Column
		idx := t.Schema.IndexOf(col.Name)
		if idx < 0 {
			return fmt.Errorf("table: index %q references unknown column %q", name, col.Name)
		}
		if row[idx].Null {
			continue
		}
		if err := ix.InsertEntry(row[idx], pk); err != nil {
			return err
		}
	}
	return nil
}

// SelectByPK returns the row stored under pk.
func (t *Table) SelectByPK(pk common.Value) (common.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	key, err := EncodeKey(pk, t.pkCol)
	if err != nil {
		return nil, err
	}
	data, err := t.clustered.Get(key)
	if err != nil {
		return nil, err
	}
	return DecodeRow(t.Schema, data)
}

// RangeSelect returns every row with primary key in [lo, hi]. A nil bound
// is unbounded on that side.
func (t *Table) RangeSelect(lo, hi *common.Value) ([]common.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var loKey, hiKey []byte
	if lo != nil {
		k, err := EncodeKey(*lo, t.pkCol)
		if err != nil {
			return nil, err
		}
		loKey = k
	}
	if hi != nil {
		k, err := EncodeKey(*hi, t.pkCol)
		if err != nil {
			return nil, err
		}
		hiKey = k
	}

	kvs, err := t.clustered.Range(loKey, hiKey)
	if err != nil {
		return nil, err
	}
	rows := make([]common.Row, 0, len(kvs))
	for _, kv := range kvs {
		row, err := DecodeRow(t.Schema, kv.Value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FullScan returns every row in primary-key order.
func (t *Table) FullScan() ([]common.Row, error) {
	return t.RangeSelect(nil, nil)
}

// Update replaces the row at pk with newRow, computing which indexed
// columns actually changed and touching only those secondary indexes.
func (t *Table) Update(pk common.Value, newRow common.Row) error {
	if err := t.Schema.Validate(newRow); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pkKey, err := EncodeKey(pk, t.pkCol)
	if err != nil {
		return err
	}
	oldData, err := t.clustered.Get(pkKey)
	if err != nil {
		return err
	}
	oldRow, err := DecodeRow(t.Schema, oldData)
	if err != nil {
		return err
	}

	newData, err := EncodeRow(t.Schema, newRow)
	if err != nil {
		return err
	}
	if err := t.clustered.Put(pkKey, newData); err != nil {
		return err
	}

	for name, ix := range t.indexes {
		idx := t.Schema.IndexOf(ix.Column.Name)
		if idx < 0 {
			return fmt.Errorf("table: index %q references unknown column %q", name, ix.Column.Name)
		}
		oldVal, newVal := oldRow[idx], newRow[idx]
		if valuesEqual(oldVal, newVal) {
			continue
		}
		if !oldVal.Null {
			if err := ix.DeleteEntry(oldVal, pk); err != nil {
				return err
			}
		}
		if !newVal.Null {
			if err := ix.InsertEntry(newVal, pk); err != nil {
				return err
			}
		}
	}
	return nil
}

func valuesEqual(a, b common.Value) bool {
	if a.Null != b.Null {
		return false
	}
	if a.Null {
		return true
	}
	c, err := common.Compare(a, b)
	return err == nil && c == 0
}

// Delete removes the row at pk from the clustered tree and every
// secondary index.
func (t *Table) Delete(pk common.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pkKey, err := EncodeKey(pk, t.pkCol)
	if err != nil {
		return err
	}
	data, err := t.clustered.Get(pkKey)
	if err != nil {
		return err
	}
	row, err := DecodeRow(t.Schema, data)
	if err != nil {
		return err
	}

	if err := t.clustered.Delete(pkKey); err != nil {
		return err
	}

	for _, ix := range t.indexes {
		idx := t.Schema.IndexOf(ix.Column.Name)
		if idx < 0 || row[idx].Null {
			continue
		}
		if err := ix.DeleteEntry(row[idx], pk); err != nil {
			return err
		}
	}
	return nil
}

// AddSecondaryIndex opens a new tree for column and back-fills it from
// every existing row via a full scan, then attaches it under name. Back-
// filling on creation (rather than leaving the index empty, as an
// append-only log of index operations would) keeps the index's contract
// simple: once AddSecondaryIndex returns, every existing and future row
// with a non-null value in column is findable through it.
func (t *Table) AddSecondaryIndex(name string, column common.Column, unique bool, pool *buffer.Pool, dataDir string, treeTableID uint32) error {
	t.mu.Lock()
	if _, exists := t.indexes[name]; exists {
		t.mu.Unlock()
		return common.ErrIndexExists
	}
	t.mu.Unlock()

	tr, err := btree.New(btree.Config{DataDir: dataDir, TableID: treeTableID, Pool: pool})
	if err != nil {
		return err
	}
	ix := NewIndex(name, column, t.pkCol, unique, tr)

	rows, err := t.FullScan()
	if err != nil {
		return err
	}
	colIdx := t.Schema.IndexOf(column.Name)
	if colIdx < 0 {
		return fmt.Errorf("table: unknown column %q: %w", column.Name, common.ErrColumnNotFound)
	}
	for _, row := range rows {
		if row[colIdx].Null {
			continue
		}
		if err := ix.InsertEntry(row[colIdx], row[0]); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.indexes[name] = ix
	t.mu.Unlock()
	return nil
}

// DropSecondaryIndex detaches and closes name's index.
func (t *Table) DropSecondaryIndex(name string) error {
	ix, ok := t.DetachIndex(name)
	if !ok {
		return common.ErrIndexNotFound
	}
	return ix.Close()
}

// Close releases the clustered tree and every secondary index.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ix := range t.indexes {
		if err := ix.Close(); err != nil {
			return err
		}
	}
	return t.clustered.Close()
}
