package graph

// Set is an append-only edge collection in discovery order. The zero value
// is an empty set. Add returns a new Set and never mutates the receiver, so
// sets can be shared freely. A Set is a multiset: recording the same edge
// twice keeps both occurrences; consumers deduplicate where they need to.
type Set struct {
	edges []Edge
}

// NewSet builds a Set holding the given edges in order.
func NewSet(edges ...Edge) Set {
	s := Set{edges: make([]Edge, len(edges))}
	copy(s.edges, edges)
	return s
}

// Add returns a Set extended with e. The receiver is unchanged.
func (s Set) Add(e Edge) Set {
	// The full slice expression caps capacity, so append always copies and
	// sets sharing a backing array never observe each other's additions.
	return Set{edges: append(s.edges[:len(s.edges):len(s.edges)], e)}
}

// Each calls fn for every edge in insertion order.
func (s Set) Each(fn func(Edge)) {
	for _, e := range s.edges {
		fn(e)
	}
}

// Len returns the number of recorded edges, counting duplicates.
func (s Set) Len() int {
	return len(s.edges)
}

// Edges returns a copy of the recorded edges in insertion order.
func (s Set) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}
