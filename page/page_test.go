package page

import "testing"

func TestPageNewAndLoad(t *testing.T) {
	p := New(123, KindHeap)
	if p.ID() != 123 {
		t.Fatalf("ID() = %d, want 123", p.ID())
	}
	if p.Kind() != KindHeap {
		t.Fatalf("Kind() = %v, want KindHeap", p.Kind())
	}

	loaded, err := Load(p.Bytes())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID() != p.ID() || loaded.Kind() != p.Kind() {
		t.Fatalf("loaded page = %+v, want matching id/kind", loaded)
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	if _, err := Load(make([]byte, Size-1)); err == nil {
		t.Fatal("expected an error loading a short buffer")
	}
}

func TestLoadRejectsBadKind(t *testing.T) {
	buf := make([]byte, Size)
	buf[0] = 0xff
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error loading a page with an unknown kind byte")
	}
}

func TestLoadAcceptsZeroKindAsFreshPage(t *testing.T) {
	if _, err := Load(make([]byte, Size)); err != nil {
		t.Fatalf("Load of an all-zero page: %v", err)
	}
}

func TestPageCloneIsIndependent(t *testing.T) {
	p := New(1, KindHeap)
	c := p.Clone()
	c.Bytes()[10] = 0xAB
	if p.Bytes()[10] == 0xAB {
		t.Fatal("Clone shares storage with the original page")
	}
}
