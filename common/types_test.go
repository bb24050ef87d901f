package common

import "testing"

func TestCompareInt(t *testing.T) {
	c, err := Compare(IntValue(1), IntValue(2))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c >= 0 {
		t.Fatalf("Compare(1, 2) = %d, want negative", c)
	}
}

func TestCompareFloat(t *testing.T) {
	c, err := Compare(FloatValue(2.5), FloatValue(1.5))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c <= 0 {
		t.Fatalf("Compare(2.5, 1.5) = %d, want positive", c)
	}
}

func TestCompareString(t *testing.T) {
	c, err := Compare(StringValue("abc"), StringValue("abc"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != 0 {
		t.Fatalf("Compare(abc, abc) = %d, want 0", c)
	}
}

func TestCompareRejectsMismatchedTypes(t *testing.T) {
	if _, err := Compare(IntValue(1), StringValue("1")); err == nil {
		t.Fatal("expected an error comparing an int to a string")
	}
}

func TestCompareRejectsNull(t *testing.T) {
	if _, err := Compare(NullValue(TypeInt), IntValue(1)); err == nil {
		t.Fatal("expected an error comparing a null value")
	}
}

func TestSchemaValidate(t *testing.T) {
	schema := Schema{
		{Name: "id", Type: TypeInt},
		{Name: "nickname", Type: TypeString, Nullable: true},
	}
	if err := schema.Validate(Row{IntValue(1), NullValue(TypeString)}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := schema.Validate(Row{IntValue(1)}); err == nil {
		t.Fatal("expected an error validating a row with the wrong column count")
	}
	if err := schema.Validate(Row{NullValue(TypeInt), NullValue(TypeString)}); err == nil {
		t.Fatal("expected an error validating a null value in a non-nullable column")
	}
	if err := schema.Validate(Row{StringValue("x"), NullValue(TypeString)}); err == nil {
		t.Fatal("expected an error validating a type mismatch")
	}
}

func TestSchemaIndexOf(t *testing.T) {
	schema := Schema{{Name: "id", Type: TypeInt}, {Name: "name", Type: TypeString}}
	if schema.IndexOf("name") != 1 {
		t.Fatalf("IndexOf(name) = %d, want 1", schema.IndexOf("name"))
	}
	if schema.IndexOf("missing") != -1 {
		t.Fatalf("IndexOf(missing) = %d, want -1", schema.IndexOf("missing"))
	}
}
