// Package page implements the fixed 16384-byte on-disk block shared by
// heap (row) pages and index pages. A Page is an opaque frame in memory
// and a contiguous file region on disk; HeapPage and IndexPage interpret
// its body according to the kind byte in the header.
package page

import (
	"encoding/binary"

	"github.com/intellect4all/storagecore/common"
)

// Size is the fixed page size in bytes, in memory and on disk, always.
const Size = 16384

// Kind tags the first byte of every page header.
const (
	KindHeap  byte = 0x01
	KindIndex byte = 0x02
)

// Page is the raw 16384-byte block. HeapPage and IndexPage are thin views
// over it that know how to read and write their respective headers and
// bodies.
type Page struct {
	buf [Size]byte
}

// New allocates a blank page of the given kind, stamping the page id and
// kind byte into the header. The body is left zeroed.
func New(id uint32, kind byte) *Page {
	p := &Page{}
	p.buf[0] = kind
	binary.LittleEndian.PutUint32(p.buf[1:5], id)
	return p
}

// Load wraps an existing 16384-byte image read from disk. It validates the
// kind byte only; the body is trusted to its owning HeapPage/IndexPage.
func Load(data []byte) (*Page, error) {
	if len(data) != Size {
		return nil, common.ErrCorruptPage
	}
	p := &Page{}
	copy(p.buf[:], data)
	switch p.buf[0] {
	case KindHeap, KindIndex, 0:
		// 0 = freshly zero-filled page returned for a short/missing file.
	default:
		return nil, common.ErrCorruptPage
	}
	return p, nil
}

// ID returns the page id stored in the header.
func (p *Page) ID() uint32 {
	return binary.LittleEndian.Uint32(p.buf[1:5])
}

// Kind returns the page kind byte.
func (p *Page) Kind() byte {
	return p.buf[0]
}

// Bytes returns the full backing buffer. Callers that mutate it are
// responsible for keeping header fields consistent.
func (p *Page) Bytes() []byte {
	return p.buf[:]
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	c := &Page{}
	copy(c.buf[:], p.buf[:])
	return c
}
