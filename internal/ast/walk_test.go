package ast

import (
	"reflect"
	"testing"
)

type recordingVisitor struct {
	events []string
}

func (r *recordingVisitor) BeforeTraverse([]Node) {
	r.events = append(r.events, "before")
}

func (r *recordingVisitor) EnterNode(n Node) {
	r.events = append(r.events, label(n))
}

func (r *recordingVisitor) AfterTraverse([]Node) {
	r.events = append(r.events, "after")
}

func label(n Node) string {
	switch x := n.(type) {
	case *ClassDecl:
		if x.Name == nil {
			return "class:<anon>"
		}
		return "class:" + x.Name.String()
	case *MethodDecl:
		return "method:" + x.Name
	case *FunctionDecl:
		return "func:" + x.Name
	case *NewExpr:
		if x.Class == nil {
			return "new:<dyn>"
		}
		return "new:" + x.Class.String()
	case *StaticCall:
		return "static:" + x.Method
	case *MethodCall:
		return "call:" + x.Method
	case *UseDecl:
		return "use"
	default:
		return "?"
	}
}

func TestTraversePreOrder(t *testing.T) {
	nodes := []Node{
		&UseDecl{Names: []*Name{NewName("App", "Logger")}},
		&ClassDecl{
			Kind: ClassKindClass,
			Name: NewName("App", "Service"),
			Body: []Node{
				&MethodDecl{
					Name: "run",
					Body: []Node{
						&NewExpr{Class: NewName("App", "Job")},
						&MethodCall{
							Recv:   &StaticCall{Class: NewName("App", "Factory"), Method: "create"},
							Method: "configure",
						},
					},
				},
			},
		},
	}

	v := &recordingVisitor{}
	Traverse(v, nodes)

	want := []string{
		"before",
		"use",
		"class:App\\Service",
		"method:run",
		"new:App\\Job",
		"call:configure",
		"static:create",
		"after",
	}
	if !reflect.DeepEqual(v.events, want) {
		t.Errorf("traversal order = %v, want %v", v.events, want)
	}
}

func TestTraverseEmptyFile(t *testing.T) {
	v := &recordingVisitor{}
	Traverse(v, nil)

	want := []string{"before", "after"}
	if !reflect.DeepEqual(v.events, want) {
		t.Errorf("events = %v, want %v", v.events, want)
	}
}

func TestInspectSkipsChildren(t *testing.T) {
	nodes := []Node{
		&ClassDecl{
			Kind: ClassKindClass,
			Name: NewName("A"),
			Body: []Node{
				&MethodDecl{Name: "m", Body: []Node{&NewExpr{Class: NewName("B")}}},
			},
		},
		&FunctionDecl{Name: "helper", Body: []Node{&NewExpr{Class: NewName("C")}}},
	}

	var seen []string
	Inspect(nodes, func(n Node) bool {
		seen = append(seen, label(n))
		// Do not descend into class bodies.
		_, isClass := n.(*ClassDecl)
		return !isClass
	})

	want := []string{"class:A", "func:helper", "new:C"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestNameString(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"Foo"}, "Foo"},
		{[]string{"App", "Domain", "User"}, "App\\Domain\\User"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := NewName(tt.parts...).String(); got != tt.want {
			t.Errorf("NewName(%v).String() = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
