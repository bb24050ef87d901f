package btree

import (
	"bytes"

	"github.com/intellect4all/storagecore/common"
)

// treeIterator streams key-value pairs across the leaf linked list,
// pinning exactly one leaf page at a time so a long scan never holds more
// than one frame hostage from the buffer pool's eviction candidates.
type treeIterator struct {
	tree *BPlusTree
	hi   []byte

	pageID  uint32
	entries []common.KV
	pos     int
	done    bool
	err     error

	curKey, curValue []byte
}

// Scan returns a streaming iterator over [lo, hi]; either bound may be nil
// for unbounded. Unlike Range, Scan never materializes the whole result
// set: it holds one leaf's entries at a time.
func (t *BPlusTree) Scan(lo, hi []byte) (common.Iterator, error) {
	if t.closed.Load() {
		return nil, common.ErrClosed
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var path []uint32
	var err error
	if lo != nil {
		path, err = t.findLeafPath(lo)
	} else {
		path, err = t.leftmostLeafPath()
	}
	if err != nil {
		return nil, err
	}

	it := &treeIterator{tree: t, hi: hi, pageID: path[len(path)-1]}
	if err := it.loadPage(lo); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *treeIterator) loadPage(lo []byte) error {
	n, _, err := it.tree.loadNode(it.pageID)
	if err != nil {
		return err
	}
	if err := it.tree.pool.Unpin(it.tree.tableID, it.pageID, false); err != nil {
		return err
	}

	entries := make([]common.KV, 0, len(n.Entries))
	for _, e := range n.Entries {
		if lo != nil && bytes.Compare(e.Key, lo) < 0 {
			continue
		}
		entries = append(entries, common.KV{Key: e.Key, Value: e.Value})
	}
	it.entries = entries
	it.pos = 0
	it.pageID = n.NextLeafPageID
	return nil
}

// Next advances to the next pair, returning false at end of range or on
// error (check Error after a false return).
func (it *treeIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	for it.pos >= len(it.entries) {
		if it.pageID == 0 {
			it.done = true
			return false
		}
		nextPage := it.pageID
		n, _, err := it.tree.loadNode(nextPage)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		if err := it.tree.pool.Unpin(it.tree.tableID, nextPage, false); err != nil {
			it.err = err
			it.done = true
			return false
		}
		entries := make([]common.KV, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = common.KV{Key: e.Key, Value: e.Value}
		}
		it.entries = entries
		it.pos = 0
		it.pageID = n.NextLeafPageID
	}

	kv := it.entries[it.pos]
	if it.hi != nil && bytes.Compare(kv.Key, it.hi) > 0 {
		it.done = true
		return false
	}
	it.curKey, it.curValue = kv.Key, kv.Value
	it.pos++
	return true
}

func (it *treeIterator) Key() []byte   { return it.curKey }
func (it *treeIterator) Value() []byte { return it.curValue }
func (it *treeIterator) Error() error  { return it.err }
func (it *treeIterator) Close() error  { return nil }

var _ common.Iterator = (*treeIterator)(nil)
