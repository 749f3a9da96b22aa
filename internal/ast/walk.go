package ast

// Visitor receives traversal lifecycle callbacks: BeforeTraverse once per
// file before any node, EnterNode for every node in depth-first pre-order,
// AfterTraverse once after the last node.
type Visitor interface {
	BeforeTraverse(nodes []Node)
	EnterNode(n Node)
	AfterTraverse(nodes []Node)
}

// Traverse drives v over one file's top-level nodes.
func Traverse(v Visitor, nodes []Node) {
	v.BeforeTraverse(nodes)
	for _, n := range nodes {
		walk(v, n)
	}
	v.AfterTraverse(nodes)
}

func walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	v.EnterNode(n)
	for _, c := range children(n) {
		walk(v, c)
	}
}

// children returns the child nodes of n in source order.
func children(n Node) []Node {
	switch x := n.(type) {
	case *ClassDecl:
		return x.Body
	case *MethodDecl:
		return x.Body
	case *FunctionDecl:
		return x.Body
	case *NewExpr:
		return x.Args
	case *StaticCall:
		return x.Args
	case *MethodCall:
		kids := make([]Node, 0, len(x.Args)+1)
		if x.Recv != nil {
			kids = append(kids, x.Recv)
		}
		return append(kids, x.Args...)
	default:
		return nil
	}
}

// Inspect walks nodes in pre-order calling fn for each. Returning false
// skips the node's children.
func Inspect(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		inspect(n, fn)
	}
}

func inspect(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range children(n) {
		inspect(c, fn)
	}
}
