package btree

import (
	"github.com/intellect4all/storagecore/page"
)

// splitResult is what a split at one level hands back to its caller: the
// separator key to insert into the parent, and the id of the new right
// sibling page.
type splitResult struct {
	splitKey  []byte
	newPageID uint32
}

// insertAndSplit recurses from pageID down to the right leaf, inserts
// (key, value), and propagates a split back up as needed. It returns a
// non-nil splitResult only when pageID itself split, signaling the caller
// (its parent, or Put for the root) to absorb a new separator.
func (t *BPlusTree) insertAndSplit(pageID uint32, key, value []byte) (*splitResult, error) {
	n, frame, err := t.loadNode(pageID)
	if err != nil {
		return nil, err
	}

	if n.IsLeaf {
		if idx := leafSearch(n, key); idx >= 0 {
			n.Entries[idx].Value = value
		} else {
			pos := leafInsertPos(n, key)
			entry := page.Entry{Key: key, Value: value}
			n.Entries = append(n.Entries, page.Entry{})
			copy(n.Entries[pos+1:], n.Entries[pos:])
			n.Entries[pos] = entry
			t.numKeys.Add(1)
		}

		if fitsInPage(n) {
			if err := t.saveNode(frame, n); err != nil {
				_ = t.pool.Unpin(t.tableID, pageID, false)
				return nil, err
			}
			return nil, t.pool.Unpin(t.tableID, pageID, true)
		}
		if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
			return nil, err
		}
		return t.splitLeaf(pageID, n)
	}

	childID := childFor(n, key)
	if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
		return nil, err
	}

	childSplit, err := t.insertAndSplit(childID, key, value)
	if err != nil {
		return nil, err
	}
	if childSplit == nil {
		return nil, nil
	}

	n, frame, err = t.loadNode(pageID)
	if err != nil {
		return nil, err
	}
	pos := leafInsertPos(n, childSplit.splitKey)
	entry := page.Entry{Key: childSplit.splitKey, Child: childSplit.newPageID}
	n.Entries = append(n.Entries, page.Entry{})
	copy(n.Entries[pos+1:], n.Entries[pos:])
	n.Entries[pos] = entry

	if fitsInPage(n) {
		if err := t.saveNode(frame, n); err != nil {
			_ = t.pool.Unpin(t.tableID, pageID, false)
			return nil, err
		}
		return nil, t.pool.Unpin(t.tableID, pageID, true)
	}
	if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
		return nil, err
	}
	return t.splitInternal(pageID, n)
}

// splitLeaf divides an overflowing leaf's entries evenly across the
// original page and a freshly allocated right sibling, linking them for
// range scans. The separator promoted to the parent is the new sibling's
// first key, matching the "separator >= child's minimum key" convention
// childFor relies on.
func (t *BPlusTree) splitLeaf(pageID uint32, n *page.Node) (*splitResult, error) {
	mid := len(n.Entries) / 2
	left := &page.Node{IsLeaf: true, Entries: n.Entries[:mid]}
	right := &page.Node{IsLeaf: true, Entries: n.Entries[mid:], NextLeafPageID: n.NextLeafPageID}

	newID := t.alloc.Allocate()
	if _, err := t.newNodePage(newID, right); err != nil {
		return nil, err
	}
	left.NextLeafPageID = newID

	f, err := t.pool.Get(t.tableID, pageID)
	if err != nil {
		return nil, err
	}
	if err := t.saveNode(f, left); err != nil {
		_ = t.pool.Unpin(t.tableID, pageID, false)
		return nil, err
	}
	if err := t.pool.Unpin(t.tableID, pageID, true); err != nil {
		return nil, err
	}
	if err := t.pool.Unpin(t.tableID, newID, true); err != nil {
		return nil, err
	}

	return &splitResult{splitKey: right.Entries[0].Key, newPageID: newID}, nil
}

// splitInternal divides an overflowing internal node's entries evenly. The
// middle entry's key is promoted to the parent; its child becomes the new
// right sibling's leftmost child, since that separator's invariant ("keys
// >= separator live under Entries[i].Child") is exactly LeftmostChild's
// meaning one level up.
func (t *BPlusTree) splitInternal(pageID uint32, n *page.Node) (*splitResult, error) {
	mid := len(n.Entries) / 2
	middle := n.Entries[mid]

	left := &page.Node{IsLeaf: false, Entries: n.Entries[:mid], LeftmostChild: n.LeftmostChild}
	right := &page.Node{IsLeaf: false, Entries: n.Entries[mid+1:], LeftmostChild: middle.Child}

	newID := t.alloc.Allocate()
	if _, err := t.newNodePage(newID, right); err != nil {
		return nil, err
	}

	f, err := t.pool.Get(t.tableID, pageID)
	if err != nil {
		return nil, err
	}
	if err := t.saveNode(f, left); err != nil {
		_ = t.pool.Unpin(t.tableID, pageID, false)
		return nil, err
	}
	if err := t.pool.Unpin(t.tableID, pageID, true); err != nil {
		return nil, err
	}
	if err := t.pool.Unpin(t.tableID, newID, true); err != nil {
		return nil, err
	}

	return &splitResult{splitKey: middle.Key, newPageID: newID}, nil
}

// handleRootSplit wraps a root-level split result in a brand new root page,
// growing the tree's height by one.
func (t *BPlusTree) handleRootSplit(sr *splitResult) error {
	newRootID := t.alloc.Allocate()
	newRoot := &page.Node{
		IsLeaf:        false,
		LeftmostChild: t.rootPageID,
		Entries:       []page.Entry{{Key: sr.splitKey, Child: sr.newPageID}},
	}
	if _, err := t.newNodePage(newRootID, newRoot); err != nil {
		return err
	}
	if err := t.pool.Unpin(t.tableID, newRootID, true); err != nil {
		return err
	}

	t.rootPageID = newRootID
	return persistRootPageID(t.dataDir, t.tableID, newRootID)
}
