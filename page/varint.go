package page

// Variable-length integer encoding for cell header fields inside a node
// body (key/value lengths). Same shape as protobuf varints: values under
// 128 cost a single byte, which keeps small keys cheap without the fixed
// 2-byte tax a short string or int32 key would otherwise pay.

// putUvarint encodes x into buf and returns the number of bytes written.
// The caller must size buf generously enough; putUvarint panics otherwise.
func putUvarint(buf []byte, x uint64) int {
	i := 0
	for x >= 0x80 {
		buf[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	buf[i] = byte(x)
	return i + 1
}

// uvarint decodes a uint64 from buf, returning the value and the number of
// bytes consumed. A non-positive count signals a truncated or overflowing
// encoding.
func uvarint(buf []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range buf {
		if i == 10 {
			return 0, -(i + 1)
		}
		if b < 0x80 {
			if i == 10-1 && b > 1 {
				return 0, -(i + 1)
			}
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}

func varintSize(x uint64) int {
	n := 1
	for x >= 0x80 {
		n++
		x >>= 7
	}
	return n
}
