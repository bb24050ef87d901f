// Package alloc implements the per-table page allocator: a monotonic
// next-page-id counter plus a free list of reclaimed page ids, persisted
// to a small sidecar file so a table's allocation state survives restart.
package alloc

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/intellect4all/storagecore/common"
)

// Persisted format, big-endian throughout:
//
//	magic(4) | version(1) | reserved(3) | next_page_id(4) | free_count(4) | free_page_ids(4 * free_count)
const (
	magic       uint32 = 0x50474D54 // "PGMT"
	formatVersion byte = 0x01
	fixedHeaderSize     = 4 + 1 + 3 + 4 + 4
)

// PageAllocator hands out page ids for one table, reusing ids freed by
// compaction or page merges before growing the table's page count. Page id
// 0 is reserved (a tree node's link fields use 0 to mean "no page") and
// is never allocated.
type PageAllocator struct {
	path       string
	nextPageID uint32
	free       map[uint32]struct{}
}

// NewPageAllocator opens or creates the allocator state file for a table.
// A missing file starts a fresh allocator with nextPageID 1.
func NewPageAllocator(dataDir string, tableID uint32) (*PageAllocator, error) {
	path := filepath.Join(dataDir, fmt.Sprintf("table_%d.pagemeta", tableID))
	a := &PageAllocator{path: path, nextPageID: 1, free: make(map[uint32]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return a, nil
		}
		return nil, fmt.Errorf("alloc: reading %s: %w", path, err)
	}
	if err := a.decode(data); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *PageAllocator) decode(data []byte) error {
	if len(data) < fixedHeaderSize {
		return common.ErrCorruptPage
	}
	if binary.BigEndian.Uint32(data[0:4]) != magic {
		return common.ErrCorruptPage
	}
	if data[4] != formatVersion {
		return common.ErrCorruptPage
	}
	next := binary.BigEndian.Uint32(data[8:12])
	freeCount := binary.BigEndian.Uint32(data[12:16])

	want := fixedHeaderSize + int(freeCount)*4
	if len(data) != want {
		return common.ErrCorruptPage
	}

	free := make(map[uint32]struct{}, freeCount)
	off := fixedHeaderSize
	for i := uint32(0); i < freeCount; i++ {
		free[binary.BigEndian.Uint32(data[off:])] = struct{}{}
		off += 4
	}

	a.nextPageID = next
	a.free = free
	return nil
}

func (a *PageAllocator) encode() []byte {
	buf := make([]byte, fixedHeaderSize+len(a.free)*4)
	binary.BigEndian.PutUint32(buf[0:4], magic)
	buf[4] = formatVersion
	binary.BigEndian.PutUint32(buf[8:12], a.nextPageID)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(a.free)))

	off := fixedHeaderSize
	for id := range a.free {
		binary.BigEndian.PutUint32(buf[off:], id)
		off += 4
	}
	return buf
}

// Allocate returns a page id, preferring a reclaimed id over growing the
// table's page count.
func (a *PageAllocator) Allocate() uint32 {
	for id := range a.free {
		delete(a.free, id)
		return id
	}
	id := a.nextPageID
	a.nextPageID++
	return id
}

// Free marks id as reusable by a future Allocate.
func (a *PageAllocator) Free(id uint32) {
	a.free[id] = struct{}{}
}

// IsAllocated reports whether id is within the allocated range and not on
// the free list. It does not know which ids were actually ever handed out
// versus merely skipped; it's meant for sanity checks, not authority.
func (a *PageAllocator) IsAllocated(id uint32) bool {
	if id == 0 || id >= a.nextPageID {
		return false
	}
	_, freed := a.free[id]
	return !freed
}

// AllocatedCount returns the number of ids considered in use.
func (a *PageAllocator) AllocatedCount() int {
	return int(a.nextPageID) - 1 - len(a.free)
}

// FreeCount returns the number of reclaimed ids available for reuse.
func (a *PageAllocator) FreeCount() int {
	return len(a.free)
}

// Persist writes the allocator's state to disk atomically: write to a
// temp file in the same directory, then rename over the real path, so a
// crash mid-write never leaves a torn file behind.
func (a *PageAllocator) Persist() error {
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, a.encode(), 0644); err != nil {
		return fmt.Errorf("alloc: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("alloc: renaming %s: %w", tmp, err)
	}
	return nil
}
