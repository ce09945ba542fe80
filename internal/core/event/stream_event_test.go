package event

import "testing"

func TestFromEventAndClone(t *testing.T) {
	meta := NewMetaStreamEvent("In", []Attribute{{Name: "v", Type: TypeInt}})
	e := New(100, []AttributeValue{Int(7)})
	se := FromEvent(meta, e)

	if se.Type != Current {
		t.Fatal("events converted from a Source arrival must be CURRENT")
	}
	clone := se.CloneAsType(Expired)
	if clone.Type != Expired {
		t.Fatal("CloneAsType must stamp the new type")
	}
	clone.BeforeWindowData[0] = Int(42)
	if se.BeforeWindowData[0].AsInt() != 7 {
		t.Fatal("cloning must deep-copy attribute arrays (invariant I1)")
	}
}

func TestChunkAppendAndFlatten(t *testing.T) {
	meta := NewMetaStreamEvent("In", []Attribute{{Name: "v", Type: TypeInt}})
	a := NewStreamEvent(meta)
	b := NewStreamEvent(meta)
	c := NewStreamEvent(meta)

	var head *StreamEvent
	head = Append(head, a)
	head = Append(head, b)
	head = Append(head, c)

	if Len(head) != 3 {
		t.Fatalf("expected chunk length 3, got %d", Len(head))
	}
	slice := ToSlice(head)
	if len(slice) != 3 || slice[0] != a || slice[2] != c {
		t.Fatal("ToSlice must preserve chain order")
	}

	rebuilt := FromSlice(slice)
	if Len(rebuilt) != 3 {
		t.Fatal("FromSlice must relink the full chain")
	}
}
