package table

import (
	"bytes"
	"testing"

	"github.com/intellect4all/storagecore/common"
)

func TestEncodeKeyIntOrdering(t *testing.T) {
	col := common.Column{Name: "n", Type: common.TypeInt}
	neg, err := EncodeKey(common.IntValue(-5), col)
	if err != nil {
		t.Fatalf("EncodeKey(-5): %v", err)
	}
	zero, err := EncodeKey(common.IntValue(0), col)
	if err != nil {
		t.Fatalf("EncodeKey(0): %v", err)
	}
	pos, err := EncodeKey(common.IntValue(5), col)
	if err != nil {
		t.Fatalf("EncodeKey(5): %v", err)
	}
	if bytes.Compare(neg, zero) >= 0 {
		t.Fatal("encoded -5 should sort before 0")
	}
	if bytes.Compare(zero, pos) >= 0 {
		t.Fatal("encoded 0 should sort before 5")
	}
}

func TestEncodeKeyFloatOrdering(t *testing.T) {
	col := common.Column{Name: "f", Type: common.TypeFloat}
	neg, _ := EncodeKey(common.FloatValue(-1.5), col)
	zero, _ := EncodeKey(common.FloatValue(0), col)
	pos, _ := EncodeKey(common.FloatValue(1.5), col)
	if bytes.Compare(neg, zero) >= 0 {
		t.Fatal("encoded -1.5 should sort before 0")
	}
	if bytes.Compare(zero, pos) >= 0 {
		t.Fatal("encoded 0 should sort before 1.5")
	}
}

func TestEncodeKeyStringZeroPadded(t *testing.T) {
	col := common.Column{Name: "s", Type: common.TypeString, MaxLength: 4}
	ab, err := EncodeKey(common.StringValue("ab"), col)
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	if len(ab) != 4 {
		t.Fatalf("encoded length = %d, want 4 (MaxLength)", len(ab))
	}
	abc, _ := EncodeKey(common.StringValue("abc"), col)
	if bytes.Compare(ab, abc) >= 0 {
		t.Fatal("encoded \"ab\" should sort before \"abc\" once padded")
	}
}

func TestEncodeKeyRejectsNull(t *testing.T) {
	col := common.Column{Name: "n", Type: common.TypeInt}
	if _, err := EncodeKey(common.NullValue(common.TypeInt), col); err == nil {
		t.Fatal("expected an error encoding a null value as a key")
	}
}

func TestEncodeKeyRejectsOverlongString(t *testing.T) {
	col := common.Column{Name: "s", Type: common.TypeString, MaxLength: 2}
	if _, err := EncodeKey(common.StringValue("abc"), col); err == nil {
		t.Fatal("expected an error encoding a string longer than MaxLength")
	}
}
