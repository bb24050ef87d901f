package btree

import "testing"

func TestScanStreamsAscendingOrder(t *testing.T) {
	tr := newTestTree(t)
	const n = 300
	for i := 0; i < n; i++ {
		if err := tr.Put(key(i), val(i)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	it, err := tr.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer it.Close()

	count := 0
	for it.Next() {
		want := key(count)
		if string(it.Key()) != string(want) {
			t.Fatalf("Scan item %d key = %q, want %q", count, it.Key(), want)
		}
		count++
	}
	if err := it.Error(); err != nil {
		t.Fatalf("Scan iteration error: %v", err)
	}
	if count != n {
		t.Fatalf("Scan produced %d items, want %d", count, n)
	}
}

func TestScanRespectsBounds(t *testing.T) {
	tr := newTestTree(t)
	const n = 100
	for i := 0; i < n; i++ {
		if err := tr.Put(key(i), val(i)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	it, err := tr.Scan(key(10), key(19))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer it.Close()

	count := 0
	for it.Next() {
		count++
	}
	if count != 10 {
		t.Fatalf("bounded Scan produced %d items, want 10", count)
	}
}
