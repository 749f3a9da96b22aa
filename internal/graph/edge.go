package graph

// EdgeKind classifies how one class depends on another
type EdgeKind string

const (
	EdgeKindExtends    EdgeKind = "extends"
	EdgeKindImplements EdgeKind = "implements"
	EdgeKindNew        EdgeKind = "new"
	EdgeKindParam      EdgeKind = "param"
	EdgeKindUse        EdgeKind = "use"
	EdgeKindStaticCall EdgeKind = "call"
)

// Edge is an immutable ordered dependency pair: From depends on To.
// Edges are plain values and compare structurally.
type Edge struct {
	From Class
	To   Class
	Kind EdgeKind
}
