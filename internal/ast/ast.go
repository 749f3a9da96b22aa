// Package ast defines the PHP syntax subset that dependency extraction
// consumes, plus the traversal that drives visitors over it.
package ast

import "strings"

// Name is a class-like name as written in source, split into namespace
// segments. Qualified marks a leading backslash (\Foo\Bar).
type Name struct {
	Parts     []string
	Qualified bool
}

// NewName builds a Name from segments.
func NewName(parts ...string) *Name {
	return &Name{Parts: parts}
}

// String joins the segments with the PHP namespace separator.
func (n *Name) String() string {
	return strings.Join(n.Parts, "\\")
}

// ClassKind distinguishes the class-like declaration forms.
type ClassKind string

const (
	ClassKindClass     ClassKind = "class"
	ClassKindInterface ClassKind = "interface"
	ClassKindTrait     ClassKind = "trait"
)

// Node is a syntax tree node. The set of implementations is closed: syntax
// the extractor does not recognize has no node type and is flattened away
// at parse time, so visitors only ever see the kinds below.
type Node interface {
	node()
}

// ClassDecl is a class, interface or trait declaration. Name is nil for
// anonymous class expressions. Extends lists superclasses (interfaces may
// extend several), Implements lists implemented interfaces in source order.
type ClassDecl struct {
	Kind       ClassKind
	Name       *Name // namespace-qualified at parse time; nil when anonymous
	Extends    []*Name
	Implements []*Name
	Abstract   bool
	Body       []Node
	Line       int
}

// MethodDecl is a method inside a class-like body.
type MethodDecl struct {
	Name   string
	Params []*Param
	Body   []Node
	Line   int
}

// FunctionDecl is a named function outside any class body.
type FunctionDecl struct {
	Name   string
	Params []*Param
	Body   []Node
	Line   int
}

// Param is a declared parameter. Type is nil when the parameter is untyped.
type Param struct {
	Var  string
	Type TypeHint
}

// TypeHint is a declared parameter type: a *Name for class-like types or a
// Builtin for scalar and builtin keywords.
type TypeHint interface {
	typeHint()
}

// Builtin is a scalar or builtin type keyword (int, string, array, ...).
type Builtin string

func (Builtin) typeHint() {}
func (*Name) typeHint()   {}

// NewExpr is an object instantiation. Class is nil when the target is
// dynamic (new $cls(), new (expr)()).
type NewExpr struct {
	Class *Name
	Args  []Node
	Line  int
}

// StaticCall is Foo::bar(...). Class is nil when the receiver is not a
// literal class name (dynamic class, self/parent/static).
type StaticCall struct {
	Class  *Name
	Method string
	Args   []Node
	Line   int
}

// MethodCall is expr->method(...). Recv is the receiver when it is itself
// a recognized node, nil otherwise.
type MethodCall struct {
	Recv   Node
	Method string
	Args   []Node
	Line   int
}

// UseDecl is a top-level import declaration (use A\B, C\D;).
type UseDecl struct {
	Names []*Name
	Line  int
}

func (*ClassDecl) node()    {}
func (*MethodDecl) node()   {}
func (*FunctionDecl) node() {}
func (*NewExpr) node()      {}
func (*StaticCall) node()   {}
func (*MethodCall) node()   {}
func (*UseDecl) node()      {}
