package page

import "testing"

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40}
	for _, v := range values {
		buf := make([]byte, 10)
		n := putUvarint(buf, v)
		if n != varintSize(v) {
			t.Fatalf("putUvarint(%d) wrote %d bytes, varintSize said %d", v, n, varintSize(v))
		}
		got, adv := uvarint(buf)
		if adv != n {
			t.Fatalf("uvarint(%d) consumed %d bytes, want %d", v, adv, n)
		}
		if got != v {
			t.Fatalf("uvarint round-trip = %d, want %d", got, v)
		}
	}
}

func TestUvarintTruncated(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80}
	_, adv := uvarint(buf)
	if adv > 0 {
		t.Fatal("expected a non-positive count for a truncated varint")
	}
}
