package page

import (
	"encoding/binary"

	"github.com/intellect4all/storagecore/common"
)

// Entry is one (key, payload) pair in a leaf, or one (separator key, child
// page id) pair in an internal node.
type Entry struct {
	Key   []byte
	Value []byte // leaf only
	Child uint32 // internal only
}

// Node is the in-memory representation of a B+Tree page: either a leaf
// holding (key, value) entries, or an internal node holding
// (separator key, child) entries plus a leftmost child for keys below the
// first separator. Leaves link to the next leaf page, forming the ordered
// singly linked list range scans walk; on disk that link occupies the same
// header slot an internal node uses for its leftmost child.
type Node struct {
	IsLeaf  bool
	Entries []Entry

	// LeftmostChild is the child containing keys below Entries[0].Key, for
	// internal nodes. NextLeafPageID is the next leaf in key order, for
	// leaves. 0 means "none" in both cases; the page allocator never hands
	// out page id 0, so no tree node lives there.
	LeftmostChild uint32
	NextLeafPageID uint32
}

// nodeHeaderSize is isLeaf(1) + numEntries(2) + sibling(4).
const nodeHeaderSize = 7

// EncodedSize returns the number of bytes Encode would produce.
func (n *Node) EncodedSize() int {
	size := nodeHeaderSize
	for _, e := range n.Entries {
		size += varintSize(uint64(len(e.Key))) + len(e.Key)
		if n.IsLeaf {
			size += varintSize(uint64(len(e.Value))) + len(e.Value)
		} else {
			size += 4
		}
	}
	return size
}

// Encode serializes the node into a buffer sized to the index page body
// (Size - indexHeaderSize). It returns common.ErrPageFull if the node
// doesn't fit.
func (n *Node) Encode(body []byte) error {
	needed := n.EncodedSize()
	if needed > len(body) {
		return common.ErrPageFull
	}

	if n.IsLeaf {
		body[0] = 1
	} else {
		body[0] = 0
	}
	binary.LittleEndian.PutUint16(body[1:3], uint16(len(n.Entries)))
	if n.IsLeaf {
		binary.LittleEndian.PutUint32(body[3:7], n.NextLeafPageID)
	} else {
		binary.LittleEndian.PutUint32(body[3:7], n.LeftmostChild)
	}

	off := nodeHeaderSize
	for _, e := range n.Entries {
		off += putUvarint(body[off:], uint64(len(e.Key)))
		copy(body[off:], e.Key)
		off += len(e.Key)
		if n.IsLeaf {
			off += putUvarint(body[off:], uint64(len(e.Value)))
			copy(body[off:], e.Value)
			off += len(e.Value)
		} else {
			binary.LittleEndian.PutUint32(body[off:], e.Child)
			off += 4
		}
	}

	for i := off; i < len(body); i++ {
		body[i] = 0
	}
	return nil
}

// Decode deserializes a node from a page body previously written by Encode.
func Decode(body []byte) (*Node, error) {
	if len(body) < nodeHeaderSize {
		return nil, common.ErrCorruptPage
	}
	n := &Node{
		IsLeaf: body[0] == 1,
	}
	count := binary.LittleEndian.Uint16(body[1:3])
	sibling := binary.LittleEndian.Uint32(body[3:7])
	if n.IsLeaf {
		n.NextLeafPageID = sibling
	} else {
		n.LeftmostChild = sibling
	}

	off := nodeHeaderSize
	n.Entries = make([]Entry, 0, count)
	for i := uint16(0); i < count; i++ {
		keyLen, adv := uvarint(body[off:])
		if adv <= 0 {
			return nil, common.ErrCorruptPage
		}
		off += adv
		key := append([]byte(nil), body[off:off+int(keyLen)]...)
		off += int(keyLen)

		var e Entry
		e.Key = key
		if n.IsLeaf {
			valLen, adv2 := uvarint(body[off:])
			if adv2 <= 0 {
				return nil, common.ErrCorruptPage
			}
			off += adv2
			e.Value = append([]byte(nil), body[off:off+int(valLen)]...)
			off += int(valLen)
		} else {
			e.Child = binary.LittleEndian.Uint32(body[off:])
			off += 4
		}
		n.Entries = append(n.Entries, e)
	}

	return n, nil
}
