package page

import (
	"bytes"
	"testing"
)

func TestHeapPageInsertRead(t *testing.T) {
	h := NewHeapPage(7)
	if h.ID() != 7 {
		t.Fatalf("ID() = %d, want 7", h.ID())
	}

	id1, err := h.Insert([]byte("hello"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id2, err := h.Insert([]byte("world!!"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id1 != 0 || id2 != 1 {
		t.Fatalf("slot ids = %d, %d, want 0, 1", id1, id2)
	}

	if got := h.Read(id1); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("Read(0) = %q, want %q", got, "hello")
	}
	if got := h.Read(id2); !bytes.Equal(got, []byte("world!!")) {
		t.Fatalf("Read(1) = %q, want %q", got, "world!!")
	}
}

func TestHeapPageDeleteTombstones(t *testing.T) {
	h := NewHeapPage(1)
	id, _ := h.Insert([]byte("row"))

	if !h.Delete(id) {
		t.Fatal("Delete returned false for a live slot")
	}
	if got := h.Read(id); got != nil {
		t.Fatalf("Read after delete = %v, want nil", got)
	}
	if h.Delete(id) {
		t.Fatal("Delete on an already-tombstoned slot returned true")
	}
}

func TestHeapPageRowsSkipsTombstones(t *testing.T) {
	h := NewHeapPage(1)
	h.Insert([]byte("a"))
	id2, _ := h.Insert([]byte("b"))
	h.Insert([]byte("c"))
	h.Delete(id2)

	rows := h.Rows()
	if len(rows) != 2 {
		t.Fatalf("Rows() len = %d, want 2", len(rows))
	}
	if !bytes.Equal(rows[0], []byte("a")) || !bytes.Equal(rows[1], []byte("c")) {
		t.Fatalf("Rows() = %q, want [a c]", rows)
	}
}

func TestHeapPageRoundTrip(t *testing.T) {
	h := NewHeapPage(42)
	h.Insert([]byte("first"))
	id2, _ := h.Insert([]byte("second"))
	h.Insert([]byte("third"))
	h.Delete(id2)

	raw := h.Page().Bytes()
	loadedPage, err := Load(append([]byte(nil), raw...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h2, err := LoadHeapPage(loadedPage)
	if err != nil {
		t.Fatalf("LoadHeapPage: %v", err)
	}

	if h2.ID() != h.ID() {
		t.Fatalf("round-tripped ID = %d, want %d", h2.ID(), h.ID())
	}
	if h2.SlotCount() != h.SlotCount() {
		t.Fatalf("round-tripped SlotCount = %d, want %d", h2.SlotCount(), h.SlotCount())
	}
	if h2.FreeSpace() != h.FreeSpace() {
		t.Fatalf("round-tripped FreeSpace = %d, want %d", h2.FreeSpace(), h.FreeSpace())
	}

	want := h.Rows()
	got := h2.Rows()
	if len(want) != len(got) {
		t.Fatalf("round-tripped Rows() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(want[i], got[i]) {
			t.Fatalf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeapPageFullOnOverflow(t *testing.T) {
	h := NewHeapPage(1)
	big := make([]byte, Size)
	if _, err := h.Insert(big); err == nil {
		t.Fatal("expected PageFull inserting a row larger than the page")
	}
}
