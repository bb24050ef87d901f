package page

import "testing"

func TestIndexPageSetNodeAndReload(t *testing.T) {
	n := &Node{
		IsLeaf: true,
		Entries: []Entry{
			{Key: []byte("k1"), Value: []byte("v1")},
			{Key: []byte("k2"), Value: []byte("v2")},
		},
	}
	ip, err := NewIndexPage(3, n)
	if err != nil {
		t.Fatalf("NewIndexPage: %v", err)
	}
	if ip.ID() != 3 {
		t.Fatalf("ID() = %d, want 3", ip.ID())
	}

	raw := ip.Page().Bytes()
	loaded, err := Load(append([]byte(nil), raw...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ip2, err := LoadIndexPage(loaded)
	if err != nil {
		t.Fatalf("LoadIndexPage: %v", err)
	}

	got, err := ip2.Node()
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if len(got.Entries) != 2 || string(got.Entries[0].Key) != "k1" {
		t.Fatalf("reloaded node = %+v", got)
	}
}

func TestLoadIndexPageRejectsWrongKind(t *testing.T) {
	h := NewHeapPage(1)
	if _, err := LoadIndexPage(h.Page()); err == nil {
		t.Fatal("expected an error loading a heap page as an index page")
	}
}

func TestIndexPageNodeLazyDecodeIsCached(t *testing.T) {
	n := &Node{IsLeaf: true, Entries: []Entry{{Key: []byte("a"), Value: []byte("1")}}}
	ip, err := NewIndexPage(1, n)
	if err != nil {
		t.Fatalf("NewIndexPage: %v", err)
	}

	raw := append([]byte(nil), ip.Page().Bytes()...)
	loaded, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fresh, err := LoadIndexPage(loaded)
	if err != nil {
		t.Fatalf("LoadIndexPage: %v", err)
	}

	got1, err := fresh.Node()
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	got2, err := fresh.Node()
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if got1 != got2 {
		t.Fatal("Node() decoded twice instead of returning the cached value")
	}
}
