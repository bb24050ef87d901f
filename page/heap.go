package page

import (
	"encoding/binary"

	"github.com/intellect4all/storagecore/common"
)

// HeapPage header layout (11 bytes, little-endian):
//
//	kind(1) | page_id(4) | free_space_end(4) | slot_count(2)
//
// Rows grow downward from the page tail; each row is prefixed by its
// 4-byte length. The slot directory grows upward from just after the
// header; each slot is a 2-byte absolute offset into the page, with 0
// marking a deleted (tombstoned) row.
const (
	heapHeaderSize       = 11
	heapOffFreeSpaceEnd  = 5
	heapOffSlotCount     = 9
	heapSlotSize         = 2
	heapRowLenPrefixSize = 4
)

// HeapPage is a slotted-layout view over a Page of KindHeap.
type HeapPage struct {
	p *Page
}

// NewHeapPage creates a fresh, empty heap page with the given id.
func NewHeapPage(id uint32) *HeapPage {
	p := New(id, KindHeap)
	h := &HeapPage{p: p}
	h.setFreeSpaceEnd(Size)
	h.setSlotCount(0)
	return h
}

// LoadHeapPage wraps an existing Page as a HeapPage, validating its kind.
func LoadHeapPage(p *Page) (*HeapPage, error) {
	if p.Kind() != KindHeap {
		return nil, common.ErrCorruptPage
	}
	return &HeapPage{p: p}, nil
}

// Page returns the underlying raw page.
func (h *HeapPage) Page() *Page { return h.p }

// ID returns the page id.
func (h *HeapPage) ID() uint32 { return h.p.ID() }

func (h *HeapPage) freeSpaceEnd() uint32 {
	return binary.LittleEndian.Uint32(h.p.buf[heapOffFreeSpaceEnd:])
}

func (h *HeapPage) setFreeSpaceEnd(v uint32) {
	binary.LittleEndian.PutUint32(h.p.buf[heapOffFreeSpaceEnd:], v)
}

// SlotCount returns the number of slots, including tombstoned ones.
func (h *HeapPage) SlotCount() uint16 {
	return binary.LittleEndian.Uint16(h.p.buf[heapOffSlotCount:])
}

func (h *HeapPage) setSlotCount(v uint16) {
	binary.LittleEndian.PutUint16(h.p.buf[heapOffSlotCount:], v)
}

func (h *HeapPage) slotDirOffset(slotID uint16) int {
	return heapHeaderSize + int(slotID)*heapSlotSize
}

func (h *HeapPage) slotOffset(slotID uint16) uint16 {
	return binary.LittleEndian.Uint16(h.p.buf[h.slotDirOffset(slotID):])
}

func (h *HeapPage) setSlotOffset(slotID uint16, offset uint16) {
	binary.LittleEndian.PutUint16(h.p.buf[h.slotDirOffset(slotID):], offset)
}

// FreeSpace returns the bytes available between the slot directory and the
// row region.
func (h *HeapPage) FreeSpace() int {
	return int(h.freeSpaceEnd()) - (heapHeaderSize + int(h.SlotCount())*heapSlotSize)
}

// Insert appends a row's bytes to the page, returning its slot id.
// Returns common.ErrPageFull if there isn't room.
func (h *HeapPage) Insert(row []byte) (uint16, error) {
	need := len(row) + heapRowLenPrefixSize + heapSlotSize
	if h.FreeSpace() < need {
		return 0, common.ErrPageFull
	}

	newEnd := h.freeSpaceEnd() - uint32(heapRowLenPrefixSize+len(row))
	binary.LittleEndian.PutUint32(h.p.buf[newEnd:], uint32(len(row)))
	copy(h.p.buf[newEnd+heapRowLenPrefixSize:], row)

	slotID := h.SlotCount()
	h.setSlotOffset(slotID, uint16(newEnd))
	h.setSlotCount(slotID + 1)
	h.setFreeSpaceEnd(newEnd)

	return slotID, nil
}

// Read returns the bytes stored at slotID, or nil if the slot is out of
// range or tombstoned.
func (h *HeapPage) Read(slotID uint16) []byte {
	if slotID >= h.SlotCount() {
		return nil
	}
	offset := h.slotOffset(slotID)
	if offset == 0 {
		return nil
	}
	length := binary.LittleEndian.Uint32(h.p.buf[offset:])
	start := int(offset) + heapRowLenPrefixSize
	return h.p.buf[start : start+int(length)]
}

// Delete tombstones slotID by zeroing its slot offset. The freed space is
// not reclaimed: HeapPage has no compaction, so fragmentation persists for
// the life of the page.
func (h *HeapPage) Delete(slotID uint16) bool {
	if slotID >= h.SlotCount() {
		return false
	}
	if h.slotOffset(slotID) == 0 {
		return false
	}
	h.setSlotOffset(slotID, 0)
	return true
}

// Rows yields the bytes of every non-tombstoned row, in slot order.
func (h *HeapPage) Rows() [][]byte {
	n := h.SlotCount()
	rows := make([][]byte, 0, n)
	for i := uint16(0); i < n; i++ {
		if b := h.Read(i); b != nil {
			rows = append(rows, b)
		}
	}
	return rows
}
