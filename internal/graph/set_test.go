package graph

import (
	"reflect"
	"testing"
)

func TestSetAddDoesNotMutateReceiver(t *testing.T) {
	e1 := edge("A", "B", EdgeKindNew)
	e2 := edge("A", "C", EdgeKindUse)

	s0 := Set{}
	s1 := s0.Add(e1)

	if s0.Len() != 0 {
		t.Errorf("original set grew to %d after Add", s0.Len())
	}
	if s1.Len() != 1 {
		t.Fatalf("s1.Len() = %d, want 1", s1.Len())
	}

	// Two sets derived from the same parent must not clobber each other
	// even when the parent's backing array has spare capacity.
	s2 := s1.Add(e2)
	s3 := s1.Add(edge("A", "D", EdgeKindExtends))

	if got := s2.Edges()[1]; got != e2 {
		t.Errorf("s2 second edge = %v, want %v (overwritten by sibling Add)", got, e2)
	}
	if got := s3.Edges()[1]; got != edge("A", "D", EdgeKindExtends) {
		t.Errorf("s3 second edge = %v", got)
	}
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	edges := []Edge{
		edge("A", "C", EdgeKindImplements),
		edge("A", "B", EdgeKindExtends),
		edge("A", "B", EdgeKindNew),
	}

	s := Set{}
	for _, e := range edges {
		s = s.Add(e)
	}

	var seen []Edge
	s.Each(func(e Edge) { seen = append(seen, e) })

	if !reflect.DeepEqual(seen, edges) {
		t.Errorf("Each order = %v, want %v", seen, edges)
	}
	if !reflect.DeepEqual(s.Edges(), edges) {
		t.Errorf("Edges order = %v, want %v", s.Edges(), edges)
	}
}

func TestSetKeepsDuplicates(t *testing.T) {
	e := edge("A", "B", EdgeKindNew)
	s := NewSet(e, e)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 (multiset keeps duplicates)", s.Len())
	}
}

func TestSetEdgesReturnsCopy(t *testing.T) {
	s := NewSet(edge("A", "B", EdgeKindNew))
	out := s.Edges()
	out[0] = edge("X", "Y", EdgeKindUse)

	if got := s.Edges()[0]; got != edge("A", "B", EdgeKindNew) {
		t.Errorf("set mutated through Edges() copy: %v", got)
	}
}
