package event

import "testing"

func TestStateEventChainGrowthAndIndex(t *testing.T) {
	se := NewStateEvent(2, 2)
	meta := NewMetaStreamEvent("S", []Attribute{{Name: "v", Type: TypeInt}})
	for i := 0; i < 3; i++ {
		e := NewStreamEvent(meta)
		e.BeforeWindowData[0] = Int(int32(i))
		se.AddToChain(0, e)
	}
	if se.ChainLength(0) != 3 {
		t.Fatalf("expected chain length 3, got %d", se.ChainLength(0))
	}
	if se.EventAt(0, 1).BeforeWindowData[0].AsInt() != 1 {
		t.Fatal("EventAt(0,1) should be the second appended event")
	}
	if se.EventAt(0, 99) != nil {
		t.Fatal("out-of-bounds EventAt must return nil, not panic or error")
	}
	if se.LastEventAt(0).BeforeWindowData[0].AsInt() != 2 {
		t.Fatal("LastEventAt should return the most recently appended event")
	}
	if se.GetEventChain(1) != nil {
		t.Fatal("unmatched position must have an empty (nil) chain (invariant I3)")
	}
}

func TestStateEventCloneIsIndependent(t *testing.T) {
	se := NewStateEvent(1, 0)
	meta := NewMetaStreamEvent("S", []Attribute{{Name: "v", Type: TypeInt}})
	e := NewStreamEvent(meta)
	e.BeforeWindowData[0] = Int(1)
	se.AddToChain(0, e)

	clone := se.Clone()
	clone.GetEventChain(0).BeforeWindowData[0] = Int(99)

	if se.GetEventChain(0).BeforeWindowData[0].AsInt() != 1 {
		t.Fatal("cloning a StateEvent must not let mutations bleed back into the original")
	}
}
