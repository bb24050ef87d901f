package table

import (
	"testing"

	"github.com/intellect4all/storagecore/common"
)

func sampleSchema() common.Schema {
	return common.Schema{
		{Name: "id", Type: common.TypeInt},
		{Name: "score", Type: common.TypeFloat},
		{Name: "name", Type: common.TypeString, MaxLength: 16},
		{Name: "nickname", Type: common.TypeString, MaxLength: 16, Nullable: true},
	}
}

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	schema := sampleSchema()
	row := common.Row{
		common.IntValue(42),
		common.FloatValue(3.5),
		common.StringValue("alice"),
		common.NullValue(common.TypeString),
	}

	encoded, err := EncodeRow(schema, row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	decoded, err := DecodeRow(schema, encoded)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}

	if decoded[0].I32 != 42 {
		t.Fatalf("id = %d, want 42", decoded[0].I32)
	}
	if decoded[1].F64 != 3.5 {
		t.Fatalf("score = %v, want 3.5", decoded[1].F64)
	}
	if decoded[2].Str != "alice" {
		t.Fatalf("name = %q, want alice", decoded[2].Str)
	}
	if !decoded[3].Null {
		t.Fatal("nickname should decode as null")
	}
}

func TestEncodeRowRejectsOverlongString(t *testing.T) {
	schema := common.Schema{{Name: "s", Type: common.TypeString, MaxLength: 2}}
	_, err := EncodeRow(schema, common.Row{common.StringValue("too long")})
	if err == nil {
		t.Fatal("expected an error encoding a string past MaxLength")
	}
}

func TestDecodeRowRejectsTruncatedData(t *testing.T) {
	schema := sampleSchema()
	_, err := DecodeRow(schema, []byte{0})
	if err == nil {
		t.Fatal("expected an error decoding truncated row bytes")
	}
}
