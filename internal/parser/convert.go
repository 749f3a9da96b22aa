package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/zheng/phpdep/internal/ast"
)

// converter maps the tree-sitter CST onto the extraction node set. It keeps
// the current namespace so declared class names come out fully qualified;
// referenced names stay exactly as written (alias resolution is out of
// scope).
type converter struct {
	src []byte
	ns  []string
}

// block converts the named children of n, dissolving unrecognized nodes
// into their children so nested recognized constructs still surface.
func (c *converter) block(n *tree_sitter.Node) []ast.Node {
	var out []ast.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		out = append(out, c.node(n.NamedChild(i))...)
	}
	return out
}

func (c *converter) node(n *tree_sitter.Node) []ast.Node {
	switch n.Kind() {
	case "namespace_definition":
		return c.namespaceDefinition(n)
	case "namespace_use_declaration":
		if u := c.useDeclaration(n); u != nil {
			return []ast.Node{u}
		}
		return nil
	case "class_declaration":
		return []ast.Node{c.classLike(n, ast.ClassKindClass)}
	case "interface_declaration":
		return []ast.Node{c.classLike(n, ast.ClassKindInterface)}
	case "trait_declaration":
		return []ast.Node{c.classLike(n, ast.ClassKindTrait)}
	case "method_declaration":
		return []ast.Node{c.methodDeclaration(n)}
	case "function_definition":
		return []ast.Node{c.functionDefinition(n)}
	case "object_creation_expression":
		return []ast.Node{c.objectCreation(n)}
	case "scoped_call_expression":
		return []ast.Node{c.scopedCall(n)}
	case "member_call_expression":
		return []ast.Node{c.memberCall(n)}
	default:
		return c.block(n)
	}
}

func (c *converter) namespaceDefinition(n *tree_sitter.Node) []ast.Node {
	var parts []string
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		if nm := c.name(nameNode); nm != nil {
			parts = nm.Parts
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		// Braced form scopes the namespace to its block.
		prev := c.ns
		c.ns = parts
		nodes := c.block(body)
		c.ns = prev
		return nodes
	}
	// Unbraced form applies to the rest of the file.
	c.ns = parts
	return nil
}

func (c *converter) useDeclaration(n *tree_sitter.Node) *ast.UseDecl {
	decl := &ast.UseDecl{Line: c.line(n)}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "namespace_use_group":
			// Grouped imports (use A\{B, C};) are a distinct construct
			// and record nothing.
			return nil
		case "namespace_use_clause":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				sub := child.NamedChild(j)
				if sub.Kind() == "name" || sub.Kind() == "qualified_name" {
					if nm := c.name(sub); nm != nil {
						decl.Names = append(decl.Names, nm)
					}
					break // the alias clause follows; one name per clause
				}
			}
		}
	}
	if len(decl.Names) == 0 {
		return nil
	}
	return decl
}

func (c *converter) classLike(n *tree_sitter.Node, kind ast.ClassKind) *ast.ClassDecl {
	decl := &ast.ClassDecl{Kind: kind, Line: c.line(n)}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		decl.Name = c.declaredName(c.text(nameNode))
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "base_clause":
			decl.Extends = c.clauseNames(child)
		case "class_interface_clause":
			decl.Implements = c.clauseNames(child)
		case "abstract_modifier":
			decl.Abstract = true
		case "declaration_list":
			decl.Body = c.block(child)
		}
	}
	return decl
}

func (c *converter) methodDeclaration(n *tree_sitter.Node) *ast.MethodDecl {
	m := &ast.MethodDecl{Line: c.line(n)}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		m.Name = c.text(nameNode)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		m.Params = c.parameters(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.Body = c.block(body)
	}
	return m
}

func (c *converter) functionDefinition(n *tree_sitter.Node) *ast.FunctionDecl {
	f := &ast.FunctionDecl{Line: c.line(n)}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		f.Name = c.text(nameNode)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		f.Params = c.parameters(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		f.Body = c.block(body)
	}
	return f
}

func (c *converter) parameters(n *tree_sitter.Node) []*ast.Param {
	var out []*ast.Param
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "simple_parameter", "property_promotion_parameter", "variadic_parameter":
			p := &ast.Param{}
			if v := child.ChildByFieldName("name"); v != nil {
				p.Var = strings.TrimPrefix(c.text(v), "$")
			}
			if tn := child.ChildByFieldName("type"); tn != nil {
				p.Type = c.typeHint(tn)
			}
			out = append(out, p)
		}
	}
	return out
}

// typeHint maps a declared type node. Union, intersection and DNF types
// resolve to nil: they are not a single class-like name.
func (c *converter) typeHint(n *tree_sitter.Node) ast.TypeHint {
	switch n.Kind() {
	case "named_type":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child.Kind() == "name" || child.Kind() == "qualified_name" {
				if nm := c.name(child); nm != nil {
					return nm
				}
			}
		}
		return nil
	case "primitive_type":
		return ast.Builtin(c.text(n))
	case "optional_type":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if h := c.typeHint(n.NamedChild(i)); h != nil {
				return h
			}
		}
		return nil
	case "name", "qualified_name":
		return c.name(n)
	default:
		return nil
	}
}

func (c *converter) objectCreation(n *tree_sitter.Node) ast.Node {
	line := c.line(n)
	var class *ast.Name
	var extends, implements []*ast.Name
	var args []ast.Node
	var anonBody *tree_sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "name", "qualified_name":
			if class == nil {
				class = c.name(child)
			}
		case "anonymous_class":
			// The grammar nests the clauses and body one level down.
			for j := uint(0); j < child.NamedChildCount(); j++ {
				gc := child.NamedChild(j)
				switch gc.Kind() {
				case "base_clause":
					extends = c.clauseNames(gc)
				case "class_interface_clause":
					implements = c.clauseNames(gc)
				case "declaration_list":
					anonBody = gc
				case "arguments":
					args = c.block(gc)
				}
			}
		case "base_clause":
			extends = c.clauseNames(child)
		case "class_interface_clause":
			implements = c.clauseNames(child)
		case "declaration_list":
			anonBody = child
		case "arguments":
			args = c.block(child)
		}
	}
	if anonBody != nil {
		// new class extends B {...}: an anonymous declaration, never an
		// instantiation edge.
		return &ast.ClassDecl{
			Kind:       ast.ClassKindClass,
			Extends:    extends,
			Implements: implements,
			Body:       c.block(anonBody),
			Line:       line,
		}
	}
	// class stays nil for dynamic targets like new $cls().
	return &ast.NewExpr{Class: class, Args: args, Line: line}
}

func (c *converter) scopedCall(n *tree_sitter.Node) *ast.StaticCall {
	call := &ast.StaticCall{Line: c.line(n)}
	if scope := n.ChildByFieldName("scope"); scope != nil {
		switch scope.Kind() {
		case "name", "qualified_name":
			call.Class = c.name(scope)
		}
		// relative_scope (self/parent/static) and dynamic scopes carry no
		// literal class name.
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		call.Method = c.text(nameNode)
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		call.Args = c.block(args)
	}
	return call
}

func (c *converter) memberCall(n *tree_sitter.Node) *ast.MethodCall {
	call := &ast.MethodCall{Line: c.line(n)}
	if obj := n.ChildByFieldName("object"); obj != nil {
		call.Recv = c.receiver(obj)
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		call.Method = c.text(nameNode)
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		call.Args = c.block(args)
	}
	return call
}

// receiver keeps the converted receiver when it maps onto exactly one node.
func (c *converter) receiver(n *tree_sitter.Node) ast.Node {
	nodes := c.node(n)
	if len(nodes) == 1 {
		return nodes[0]
	}
	return nil
}

// clauseNames collects the names listed in an extends or implements clause.
func (c *converter) clauseNames(clause *tree_sitter.Node) []*ast.Name {
	var out []*ast.Name
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		if child.Kind() == "name" || child.Kind() == "qualified_name" {
			if nm := c.name(child); nm != nil {
				out = append(out, nm)
			}
		}
	}
	return out
}

// name converts a name-like node into segments as written in source.
func (c *converter) name(n *tree_sitter.Node) *ast.Name {
	raw := c.text(n)
	qualified := strings.HasPrefix(raw, nsSeparator)
	var parts []string
	for _, p := range strings.Split(raw, nsSeparator) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &ast.Name{Parts: parts, Qualified: qualified}
}

const nsSeparator = `\`

// declaredName qualifies a declared class-like name with the current
// namespace.
func (c *converter) declaredName(raw string) *ast.Name {
	parts := append(append([]string{}, c.ns...), raw)
	return &ast.Name{Parts: parts}
}

func (c *converter) text(n *tree_sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *converter) line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}
