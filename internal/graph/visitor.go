package graph

import "github.com/zheng/phpdep/internal/ast"

// Visitor extracts class-to-class dependency edges from file traversals.
// It implements ast.Visitor: the walker calls BeforeTraverse at the start
// of each file, EnterNode for every node, AfterTraverse at the end.
//
// Edges found while walking a file are buffered with a placeholder source
// until the file's class declaration is known, then rewritten onto that
// class and moved to the permanent set. A file without a class-like
// declaration contributes nothing, no matter what else it contains.
//
// Not safe for concurrent lifecycle calls: drive files through one Visitor
// serially, or use a Visitor per file.
type Visitor struct {
	current   Class // placeholder until the file declares a class
	pending   Set   // provisional edges for the file in progress
	collected Set   // finalized edges across files
}

// NewVisitor returns a Visitor ready for its first traversal.
func NewVisitor() *Visitor {
	return &Visitor{current: Placeholder()}
}

// BeforeTraverse resets the per-file state.
func (v *Visitor) BeforeTraverse([]ast.Node) {
	v.current = Placeholder()
	v.pending = Set{}
}

// EnterNode dispatches a node to the extraction rules. Rules only append to
// the provisional set; nodes with missing pieces are skipped silently.
func (v *Visitor) EnterNode(n ast.Node) {
	switch x := n.(type) {
	case *ast.ClassDecl:
		v.enterClassDecl(x)
	case *ast.NewExpr:
		// Only literal targets count; new $cls() stays invisible.
		if x.Class != nil {
			v.depend(x.Class, EdgeKindNew)
		}
	case *ast.MethodDecl:
		for _, p := range x.Params {
			if cls, ok := p.Type.(*ast.Name); ok {
				v.depend(cls, EdgeKindParam)
			}
		}
	case *ast.UseDecl:
		// Only the first imported name counts, even for use A, B;
		if len(x.Names) > 0 {
			v.depend(x.Names[0], EdgeKindUse)
		}
	case *ast.MethodCall:
		// A static call registers only when its result is chained into a
		// method call: B::create()->configure() depends on B, while a bare
		// B::create() does not.
		if sc, ok := x.Recv.(*ast.StaticCall); ok && sc.Class != nil {
			v.depend(sc.Class, EdgeKindStaticCall)
		}
	}
}

// AfterTraverse rehomes the file's provisional edges onto the class the
// file declared, or discards them when no class was declared. Every pending
// edge gets its source rewritten, unconditionally.
func (v *Visitor) AfterTraverse([]ast.Node) {
	if v.current.IsPlaceholder() {
		v.pending = Set{}
		return
	}
	owner := v.current
	v.pending.Each(func(e Edge) {
		v.collected = v.collected.Add(Edge{From: owner, To: e.To, Kind: e.Kind})
	})
	v.pending = Set{}
}

// Dependencies returns every edge collected so far.
func (v *Visitor) Dependencies() Set {
	return v.collected
}

func (v *Visitor) enterClassDecl(d *ast.ClassDecl) {
	// The file's first named declaration owns the file. Anonymous class
	// expressions and later declarations never rebind; their edges attach
	// to the owning class like everything else in the file.
	if d.Name != nil && v.current.IsPlaceholder() {
		v.current = ClassOf(d.Name)
	}
	for _, parent := range d.Extends {
		v.depend(parent, EdgeKindExtends)
	}
	for _, iface := range d.Implements {
		v.depend(iface, EdgeKindImplements)
	}
}

// depend records a provisional edge from the placeholder to target.
func (v *Visitor) depend(target *ast.Name, kind EdgeKind) {
	if target == nil || len(target.Parts) == 0 {
		return
	}
	v.pending = v.pending.Add(Edge{From: Placeholder(), To: ClassOf(target), Kind: kind})
}

// ClassOf converts a syntactic name into a class identity.
func ClassOf(n *ast.Name) Class {
	return NewClass(n.Parts...)
}
