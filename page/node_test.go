package page

import "testing"

func TestNodeEncodeDecodeLeaf(t *testing.T) {
	n := &Node{
		IsLeaf: true,
		Entries: []Entry{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("bb"), Value: []byte("22")},
		},
		NextLeafPageID: 99,
	}

	buf := make([]byte, BodySize)
	if err := n.Encode(buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.IsLeaf {
		t.Fatal("decoded node lost IsLeaf")
	}
	if got.NextLeafPageID != 99 {
		t.Fatalf("NextLeafPageID = %d, want 99", got.NextLeafPageID)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	for i, e := range n.Entries {
		if string(got.Entries[i].Key) != string(e.Key) || string(got.Entries[i].Value) != string(e.Value) {
			t.Fatalf("entry %d = %+v, want %+v", i, got.Entries[i], e)
		}
	}
}

func TestNodeEncodeDecodeInternal(t *testing.T) {
	n := &Node{
		IsLeaf: false,
		Entries: []Entry{
			{Key: []byte("m"), Child: 5},
			{Key: []byte("z"), Child: 6},
		},
		LeftmostChild: 4,
	}

	buf := make([]byte, BodySize)
	if err := n.Encode(buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.IsLeaf {
		t.Fatal("decoded internal node as leaf")
	}
	if got.LeftmostChild != 4 {
		t.Fatalf("LeftmostChild = %d, want 4", got.LeftmostChild)
	}
	if got.Entries[0].Child != 5 || got.Entries[1].Child != 6 {
		t.Fatalf("children = %d, %d, want 5, 6", got.Entries[0].Child, got.Entries[1].Child)
	}
}

func TestNodeEncodeErrorsWhenOversized(t *testing.T) {
	n := &Node{IsLeaf: true, Entries: []Entry{{Key: []byte("k"), Value: make([]byte, BodySize)}}}
	if err := n.Encode(make([]byte, BodySize)); err == nil {
		t.Fatal("expected an error encoding an oversized node")
	}
}

func TestNodeEncodedSizeMatchesEncode(t *testing.T) {
	n := &Node{
		IsLeaf: true,
		Entries: []Entry{
			{Key: []byte("key-one"), Value: []byte("value-one")},
			{Key: []byte("key-two"), Value: []byte("value-two")},
		},
	}
	buf := make([]byte, n.EncodedSize())
	if err := n.Encode(buf); err != nil {
		t.Fatalf("Encode into exactly EncodedSize() bytes: %v", err)
	}
}
