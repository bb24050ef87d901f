package btree

import (
	"github.com/intellect4all/storagecore/buffer"
	"github.com/intellect4all/storagecore/page"
)

// A node below minOccupancy() triggers rebalancing against a sibling:
// borrowing an entry if the sibling can spare one while staying full
// enough itself, merging the two nodes otherwise. The root is exempt —
// it's allowed to run arbitrarily empty, down to a single child, at which
// point the tree's height collapses by one.
func needsRebalance(n *page.Node) bool {
	return n.EncodedSize() < minOccupancy()
}

// rebalance walks path bottom-up, fixing any underfull node it finds by
// borrowing from or merging with a sibling, and folding the resulting
// separator change into the parent before checking the parent's own
// occupancy in turn. After the walk it also collapses the root if it has
// been reduced to a single child.
func (t *BPlusTree) rebalance(path []uint32) error {
	for i := len(path) - 1; i > 0; i-- {
		pageID := path[i]
		parentID := path[i-1]

		n, _, err := t.loadNode(pageID)
		if err != nil {
			return err
		}
		if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
			return err
		}
		if !needsRebalance(n) {
			return nil
		}

		parent, parentFrame, err := t.loadNode(parentID)
		if err != nil {
			return err
		}
		idx := childIndex(parent, pageID)

		if leftID, ok := leftSibling(parent, idx); ok {
			left, leftFrame, err := t.loadNode(leftID)
			if err != nil {
				_ = t.pool.Unpin(t.tableID, parentID, false)
				return err
			}
			cur, curFrame, err := t.loadNode(pageID)
			if err != nil {
				_ = t.pool.Unpin(t.tableID, parentID, false)
				_ = t.pool.Unpin(t.tableID, leftID, false)
				return err
			}
			sepIdx := idx // parent entry separating left and cur (Entries[idx].Key is the separator directly left of pageID's slot)

			if canBorrowFrom(left, true) {
				borrowFromLeft(parent, sepIdx, left, cur)
				if err := t.saveAll(parentFrame, parent, parentID, leftFrame, left, leftID, curFrame, cur, pageID); err != nil {
					return err
				}
				continue
			}

			mergeInto(left, cur, parentEntryKey(parent, sepIdx))
			t.alloc.Free(pageID)
			removeChildEntry(parent, sepIdx)
			if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
				return err
			}
			if err := t.saveNode(leftFrame, left); err != nil {
				return err
			}
			if err := t.pool.Unpin(t.tableID, leftID, true); err != nil {
				return err
			}
			if err := t.saveNode(parentFrame, parent); err != nil {
				return err
			}
			if err := t.pool.Unpin(t.tableID, parentID, true); err != nil {
				return err
			}
			continue
		}

		if rightID, ok := rightSibling(parent, idx); ok {
			right, rightFrame, err := t.loadNode(rightID)
			if err != nil {
				_ = t.pool.Unpin(t.tableID, parentID, false)
				return err
			}
			cur, curFrame, err := t.loadNode(pageID)
			if err != nil {
				_ = t.pool.Unpin(t.tableID, parentID, false)
				_ = t.pool.Unpin(t.tableID, rightID, false)
				return err
			}
			sepIdx := idx + 1 // parent entry separating cur and right (Entries[idx+1].Key is the separator directly right of pageID's slot)

			if canBorrowFrom(right, false) {
				borrowFromRight(parent, sepIdx, cur, right)
				if err := t.saveAll(parentFrame, parent, parentID, curFrame, cur, pageID, rightFrame, right, rightID); err != nil {
					return err
				}
				continue
			}

			mergeInto(cur, right, parentEntryKey(parent, sepIdx))
			t.alloc.Free(rightID)
			removeChildEntry(parent, sepIdx)
			if err := t.pool.Unpin(t.tableID, rightID, false); err != nil {
				return err
			}
			if err := t.saveNode(curFrame, cur); err != nil {
				return err
			}
			if err := t.pool.Unpin(t.tableID, pageID, true); err != nil {
				return err
			}
			if err := t.saveNode(parentFrame, parent); err != nil {
				return err
			}
			if err := t.pool.Unpin(t.tableID, parentID, true); err != nil {
				return err
			}
			continue
		}

		// No sibling at all: pageID is the only child of the root. Nothing
		// to rebalance against; the root-collapse check below handles it.
		if err := t.pool.Unpin(t.tableID, parentID, false); err != nil {
			return err
		}
	}

	return t.collapseRootIfNeeded()
}

// saveAll persists up to three touched nodes and unpins them dirty. It
// exists only to keep the borrow branches above from repeating the same
// three-node save/unpin sequence twice.
func (t *BPlusTree) saveAll(
	f1 *buffer.Frame, n1 *page.Node, id1 uint32,
	f2 *buffer.Frame, n2 *page.Node, id2 uint32,
	f3 *buffer.Frame, n3 *page.Node, id3 uint32,
) error {
	for _, s := range []struct {
		f  *buffer.Frame
		n  *page.Node
		id uint32
	}{{f1, n1, id1}, {f2, n2, id2}, {f3, n3, id3}} {
		if err := t.saveNode(s.f, s.n); err != nil {
			return err
		}
		if err := t.pool.Unpin(t.tableID, s.id, true); err != nil {
			return err
		}
	}
	return nil
}

// collapseRootIfNeeded shrinks the tree's height by one when the root has
// been merged down to carrying no separators of its own, promoting its
// single remaining child to be the new root.
func (t *BPlusTree) collapseRootIfNeeded() error {
	n, _, err := t.loadNode(t.rootPageID)
	if err != nil {
		return err
	}
	if err := t.pool.Unpin(t.tableID, t.rootPageID, false); err != nil {
		return err
	}
	if n.IsLeaf || len(n.Entries) > 0 {
		return nil
	}

	oldRoot := t.rootPageID
	t.rootPageID = n.LeftmostChild
	if err := persistRootPageID(t.dataDir, t.tableID, t.rootPageID); err != nil {
		return err
	}
	t.alloc.Free(oldRoot)
	return nil
}

// childIndex returns parent's child-slot index for childID: -1 for
// LeftmostChild, otherwise the position in Entries.
func childIndex(parent *page.Node, childID uint32) int {
	if parent.LeftmostChild == childID {
		return -1
	}
	for i, e := range parent.Entries {
		if e.Child == childID {
			return i
		}
	}
	return -1
}

func leftSibling(parent *page.Node, idx int) (uint32, bool) {
	if idx == -1 {
		return 0, false
	}
	if idx == 0 {
		return parent.LeftmostChild, true
	}
	return parent.Entries[idx-1].Child, true
}

func rightSibling(parent *page.Node, idx int) (uint32, bool) {
	if idx == -1 {
		if len(parent.Entries) == 0 {
			return 0, false
		}
		return parent.Entries[0].Child, true
	}
	if idx+1 < len(parent.Entries) {
		return parent.Entries[idx+1].Child, true
	}
	return 0, false
}

func parentEntryKey(parent *page.Node, sepIdx int) []byte {
	return parent.Entries[sepIdx].Key
}

func removeChildEntry(parent *page.Node, sepIdx int) {
	parent.Entries = append(parent.Entries[:sepIdx], parent.Entries[sepIdx+1:]...)
}

// canBorrowFrom reports whether sibling can give up one entry (its last,
// if fromBack, else its first) while staying at or above minOccupancy
// itself.
func canBorrowFrom(sibling *page.Node, fromBack bool) bool {
	if len(sibling.Entries) <= 1 {
		return false
	}
	remaining := sibling.Entries[1:]
	if fromBack {
		remaining = sibling.Entries[:len(sibling.Entries)-1]
	}
	reduced := &page.Node{IsLeaf: sibling.IsLeaf, Entries: remaining, LeftmostChild: sibling.LeftmostChild, NextLeafPageID: sibling.NextLeafPageID}
	return !needsRebalance(reduced)
}

// borrowFromLeft moves left's last entry into cur's front, adjusting the
// parent separator between them.
func borrowFromLeft(parent *page.Node, sepIdx int, left, cur *page.Node) {
	last := left.Entries[len(left.Entries)-1]
	left.Entries = left.Entries[:len(left.Entries)-1]

	if cur.IsLeaf {
		cur.Entries = append([]page.Entry{last}, cur.Entries...)
		parent.Entries[sepIdx].Key = cur.Entries[0].Key
		return
	}

	pulled := page.Entry{Key: parent.Entries[sepIdx].Key, Child: cur.LeftmostChild}
	cur.Entries = append([]page.Entry{pulled}, cur.Entries...)
	cur.LeftmostChild = last.Child
	parent.Entries[sepIdx].Key = last.Key
}

// borrowFromRight moves right's first entry into cur's tail, adjusting the
// parent separator between them.
func borrowFromRight(parent *page.Node, sepIdx int, cur, right *page.Node) {
	first := right.Entries[0]
	right.Entries = right.Entries[1:]

	if cur.IsLeaf {
		cur.Entries = append(cur.Entries, first)
		parent.Entries[sepIdx].Key = right.Entries[0].Key
		return
	}

	pulled := page.Entry{Key: parent.Entries[sepIdx].Key, Child: right.LeftmostChild}
	cur.Entries = append(cur.Entries, pulled)
	right.LeftmostChild = first.Child
	parent.Entries[sepIdx].Key = first.Key
}

// mergeInto folds right's entries into left, consuming right entirely.
// separatorKey is the parent key that sat between them; internal merges
// pull it down as the new entry separating left's old subtree from
// right's leftmost child, the standard B+Tree internal-merge step the
// leaf case doesn't need since leaf keys are already self-describing.
func mergeInto(left, right *page.Node, separatorKey []byte) {
	if left.IsLeaf {
		left.Entries = append(left.Entries, right.Entries...)
		left.NextLeafPageID = right.NextLeafPageID
		return
	}
	pulled := page.Entry{Key: separatorKey, Child: right.LeftmostChild}
	left.Entries = append(left.Entries, pulled)
	left.Entries = append(left.Entries, right.Entries...)
}
