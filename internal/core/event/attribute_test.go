package event

import "testing"

func TestWidenedType(t *testing.T) {
	cases := []struct {
		a, b AttributeType
		want AttributeType
		ok   bool
	}{
		{TypeInt, TypeLong, TypeLong, true},
		{TypeInt, TypeDouble, TypeDouble, true},
		{TypeFloat, TypeDouble, TypeDouble, true},
		{TypeFloat, TypeLong, TypeDouble, true},
		{TypeInt, TypeString, TypeNull, false},
	}
	for _, c := range cases {
		got, ok := WidenedType(c.a, c.b)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("WidenedType(%v,%v) = %v,%v want %v,%v", c.a, c.b, got, ok, c.want, c.ok)
		}
	}
}

func TestEqualNullSemantics(t *testing.T) {
	if Null.Equal(Null) {
		t.Fatal("NULL must never equal NULL (SQL semantics)")
	}
	if Int(1).Equal(Null) {
		t.Fatal("non-null must not equal NULL")
	}
	if !Int(1).Equal(Long(1)) {
		t.Fatal("cross-type numeric equality should hold for equal values")
	}
}

func TestCompareCrossTypeNumeric(t *testing.T) {
	got, ok := Int(1).Compare(Double(2.0))
	if !ok || got != -1 {
		t.Fatalf("expected -1,true got %v,%v", got, ok)
	}
	_, ok = Str("a").Compare(Int(1))
	if ok {
		t.Fatal("non-numeric cross-type compare must not be ok")
	}
}

func TestCloneDeepCopiesBytes(t *testing.T) {
	orig := Bytes([]byte{1, 2, 3})
	clone := orig.Clone()
	clone.AsBytes()[0] = 99
	if orig.AsBytes()[0] == 99 {
		t.Fatal("Clone must deep-copy the byte slice")
	}
}
