package pcf

import (
	"errors"
	"testing"
)

func TestBOMGraphRejectsSelfReference(t *testing.T) {
	g := NewBOMGraph()
	err := g.AddLineItem(LineItem{ParentID: "p", ChildID: "p", Quantity: 1})
	if !errors.Is(err, ErrSelfReference) {
		t.Fatalf("expected ErrSelfReference, got %v", err)
	}
}

func TestBOMGraphRejectsNegativeQuantity(t *testing.T) {
	g := NewBOMGraph()
	if err := g.AddLineItem(LineItem{ParentID: "p", ChildID: "c", Quantity: -1}); !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
	if err := g.AddLineItem(LineItem{ParentID: "p", ChildID: "c", Quantity: 0}); err != nil {
		t.Fatalf("zero quantity should be accepted: %v", err)
	}
}

func TestBOMGraphRejectsDuplicateEdge(t *testing.T) {
	g := NewBOMGraph()
	if err := g.AddLineItem(LineItem{ParentID: "p", ChildID: "c", Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := g.AddLineItem(LineItem{ParentID: "p", ChildID: "c", Quantity: 2})
	if !errors.Is(err, ErrDuplicateEdge) {
		t.Fatalf("expected ErrDuplicateEdge, got %v", err)
	}
}

func TestBOMGraphCycleGuard(t *testing.T) {
	tests := []struct {
		name    string
		edges   [][2]string
		add     [2]string
		wantErr bool
	}{
		{"direct back edge", [][2]string{{"P", "A"}}, [2]string{"A", "P"}, true},
		{"long cycle", [][2]string{{"P", "A"}, {"A", "B"}, {"B", "C"}}, [2]string{"C", "P"}, true},
		{"diamond is legal", [][2]string{{"P", "A"}, {"P", "B"}, {"A", "C"}}, [2]string{"B", "C"}, false},
		{"closing diamond into cycle", [][2]string{{"P", "A"}, {"P", "B"}, {"A", "C"}, {"B", "C"}}, [2]string{"C", "P"}, true},
		{"unrelated branch", [][2]string{{"P", "A"}, {"X", "Y"}}, [2]string{"Y", "P"}, false},
		{"shared child reversed", [][2]string{{"A", "C"}, {"B", "C"}}, [2]string{"C", "D"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewBOMGraph()
			for _, e := range tt.edges {
				if err := g.AddLineItem(LineItem{ParentID: e[0], ChildID: e[1], Quantity: 1}); err != nil {
					t.Fatalf("seeding %v: %v", e, err)
				}
			}
			err := g.AddLineItem(LineItem{ParentID: tt.add[0], ChildID: tt.add[1], Quantity: 1})
			if tt.wantErr {
				var ce *CycleError
				if !errors.As(err, &ce) || !errors.Is(err, ErrCycle) {
					t.Fatalf("expected CycleError, got %v", err)
				}
				if ce.ParentID != tt.add[0] || ce.ChildID != tt.add[1] {
					t.Errorf("cycle error carries %s -> %s", ce.ParentID, ce.ChildID)
				}
				if g.Len() != len(tt.edges) {
					t.Errorf("rejected edge must not be inserted")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBOMGraphRemoveAndSetQuantity(t *testing.T) {
	g := NewBOMGraph()
	if err := g.AddLineItem(LineItem{ID: "li-1", ParentID: "P", ChildID: "A", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddLineItem(LineItem{ID: "li-2", ParentID: "P", ChildID: "B", Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.SetQuantity("li-1", -2); !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
	if err := g.SetQuantity("li-1", 3); err != nil {
		t.Fatal(err)
	}
	if li, _ := g.LineItem("li-1"); li.Quantity != 3 {
		t.Errorf("quantity = %v, want 3", li.Quantity)
	}
	if err := g.RemoveLineItem("li-1"); err != nil {
		t.Fatal(err)
	}
	if got := g.LineItems("P"); len(got) != 1 || got[0].ID != "li-2" {
		t.Fatalf("unexpected remaining edges: %+v", got)
	}
	// the pair is free again
	if err := g.AddLineItem(LineItem{ParentID: "P", ChildID: "A", Quantity: 1}); err != nil {
		t.Fatalf("re-adding removed pair: %v", err)
	}
	if err := g.RemoveLineItem("missing"); !errors.Is(err, ErrUnknownLineItem) {
		t.Fatalf("expected ErrUnknownLineItem, got %v", err)
	}
}
