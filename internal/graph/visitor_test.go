package graph

import (
	"reflect"
	"sort"
	"testing"

	"github.com/zheng/phpdep/internal/ast"
)

// extract drives a fresh visitor over the given files and returns the
// collected edges in discovery order.
func extract(files ...[]ast.Node) []Edge {
	v := NewVisitor()
	for _, f := range files {
		ast.Traverse(v, f)
	}
	return v.Dependencies().Edges()
}

// classA wraps body nodes in a plain "class A" declaration.
func classA(body ...ast.Node) *ast.ClassDecl {
	return &ast.ClassDecl{Kind: ast.ClassKindClass, Name: ast.NewName("A"), Body: body}
}

func edge(from, to string, kind EdgeKind) Edge {
	return Edge{From: ParseClass(from), To: ParseClass(to), Kind: kind}
}

func sortEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From.String() < out[j].From.String()
		}
		if out[i].To != out[j].To {
			return out[i].To.String() < out[j].To.String()
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func TestExtendsAndImplements(t *testing.T) {
	got := extract([]ast.Node{
		&ast.ClassDecl{
			Kind:       ast.ClassKindClass,
			Name:       ast.NewName("A"),
			Extends:    []*ast.Name{ast.NewName("B")},
			Implements: []*ast.Name{ast.NewName("C"), ast.NewName("D")},
		},
	})

	want := []Edge{
		edge("A", "B", EdgeKindExtends),
		edge("A", "C", EdgeKindImplements),
		edge("A", "D", EdgeKindImplements),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestInterfaceExtendsSeveralParents(t *testing.T) {
	got := extract([]ast.Node{
		&ast.ClassDecl{
			Kind:    ast.ClassKindInterface,
			Name:    ast.NewName("I"),
			Extends: []*ast.Name{ast.NewName("P"), ast.NewName("Q")},
		},
	})

	want := []Edge{
		edge("I", "P", EdgeKindExtends),
		edge("I", "Q", EdgeKindExtends),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestInstantiation(t *testing.T) {
	tests := []struct {
		name string
		body ast.Node
		want []Edge
	}{
		{
			name: "literal name",
			body: &ast.NewExpr{Class: ast.NewName("B")},
			want: []Edge{edge("A", "B", EdgeKindNew)},
		},
		{
			name: "qualified literal name",
			body: &ast.NewExpr{Class: &ast.Name{Parts: []string{"Lib", "B"}, Qualified: true}},
			want: []Edge{edge("A", `Lib\B`, EdgeKindNew)},
		},
		{
			name: "dynamic target",
			body: &ast.NewExpr{Class: nil},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{tt.body}})})
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("edges = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMethodParamTypes(t *testing.T) {
	got := extract([]ast.Node{classA(
		&ast.MethodDecl{Name: "__construct", Params: []*ast.Param{
			{Var: "b", Type: ast.NewName("B")},
			{Var: "s", Type: ast.Builtin("string")},
			{Var: "raw"},
			{Var: "c", Type: ast.NewName("Lib", "C")},
		}},
	)})

	want := []Edge{
		edge("A", "B", EdgeKindParam),
		edge("A", `Lib\C`, EdgeKindParam),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestTopLevelFunctionParamsIgnored(t *testing.T) {
	got := extract([]ast.Node{
		classA(),
		&ast.FunctionDecl{Name: "helper", Params: []*ast.Param{
			{Var: "b", Type: ast.NewName("B")},
		}},
	})
	if len(got) != 0 {
		t.Errorf("function params produced edges %v, want none", got)
	}
}

// Importing several names in one declaration records only the first. The
// narrowing is deliberate: the remaining names are dropped on purpose.
func TestUseDeclarationFirstNameOnly(t *testing.T) {
	got := extract([]ast.Node{
		&ast.UseDecl{Names: []*ast.Name{ast.NewName("B"), ast.NewName("C")}},
		classA(),
	})

	want := []Edge{edge("A", "B", EdgeKindUse)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

// A static call counts only when its result is chained into a method call.
// The asymmetry between the bare and chained form is deliberate.
func TestStaticCallChainAsymmetry(t *testing.T) {
	chained := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{
		&ast.MethodCall{
			Recv:   &ast.StaticCall{Class: ast.NewName("B"), Method: "create"},
			Method: "configure",
		},
	}})})
	want := []Edge{edge("A", "B", EdgeKindStaticCall)}
	if !reflect.DeepEqual(chained, want) {
		t.Errorf("chained call edges = %v, want %v", chained, want)
	}

	bare := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{
		&ast.StaticCall{Class: ast.NewName("B"), Method: "create"},
	}})})
	if len(bare) != 0 {
		t.Errorf("bare static call produced edges %v, want none", bare)
	}
}

func TestChainedCallOnDynamicReceiver(t *testing.T) {
	got := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{
		&ast.MethodCall{
			Recv:   &ast.StaticCall{Class: nil, Method: "create"},
			Method: "configure",
		},
	}})})
	if len(got) != 0 {
		t.Errorf("dynamic chained call produced edges %v, want none", got)
	}
}

func TestFileWithoutClassContributesNothing(t *testing.T) {
	got := extract([]ast.Node{
		&ast.UseDecl{Names: []*ast.Name{ast.NewName("B")}},
		&ast.FunctionDecl{Name: "main", Body: []ast.Node{
			&ast.NewExpr{Class: ast.NewName("C")},
			&ast.MethodCall{
				Recv:   &ast.StaticCall{Class: ast.NewName("D"), Method: "make"},
				Method: "run",
			},
		}},
	})
	if len(got) != 0 {
		t.Errorf("class-less file produced edges %v, want none", got)
	}
}

func TestNoPlaceholderEverEscapes(t *testing.T) {
	files := [][]ast.Node{
		{&ast.UseDecl{Names: []*ast.Name{ast.NewName("X")}}},
		{&ast.UseDecl{Names: []*ast.Name{ast.NewName("B")}}, classA()},
		{&ast.NewExpr{Class: ast.NewName("Y")}},
	}
	for _, e := range extract(files...) {
		if e.From.IsPlaceholder() {
			t.Errorf("placeholder escaped into collected set: %v", e)
		}
	}
}

// The class header's position in the file must not matter: edges recorded
// before the declaration rebinds the cursor end up on the same class.
func TestClassHeaderPositionIrrelevant(t *testing.T) {
	headerLast := extract([]ast.Node{
		&ast.UseDecl{Names: []*ast.Name{ast.NewName("B")}},
		&ast.NewExpr{Class: ast.NewName("C")},
		classA(),
	})
	headerFirst := extract([]ast.Node{
		classA(),
		&ast.UseDecl{Names: []*ast.Name{ast.NewName("B")}},
		&ast.NewExpr{Class: ast.NewName("C")},
	})

	if !reflect.DeepEqual(sortEdges(headerLast), sortEdges(headerFirst)) {
		t.Errorf("edge sets differ by header position: %v vs %v", headerLast, headerFirst)
	}
}

func TestDuplicateEdgesAreKept(t *testing.T) {
	got := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{
		&ast.NewExpr{Class: ast.NewName("B")},
		&ast.NewExpr{Class: ast.NewName("B")},
	}})})

	want := []Edge{
		edge("A", "B", EdgeKindNew),
		edge("A", "B", EdgeKindNew),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestEdgesAccumulateAcrossFiles(t *testing.T) {
	got := extract(
		[]ast.Node{&ast.ClassDecl{
			Kind:    ast.ClassKindClass,
			Name:    ast.NewName("A"),
			Extends: []*ast.Name{ast.NewName("Base")},
		}},
		[]ast.Node{&ast.UseDecl{Names: []*ast.Name{ast.NewName("X")}}}, // discarded
		[]ast.Node{&ast.ClassDecl{
			Kind:       ast.ClassKindClass,
			Name:       ast.NewName("B"),
			Implements: []*ast.Name{ast.NewName("I")},
		}},
	)

	want := []Edge{
		edge("A", "Base", EdgeKindExtends),
		edge("B", "I", EdgeKindImplements),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

// The cursor binds to the file's first named declaration; a second
// declaration in the same file does not rebind it.
func TestFirstDeclarationOwnsTheFile(t *testing.T) {
	got := extract([]ast.Node{
		classA(),
		&ast.ClassDecl{
			Kind:    ast.ClassKindClass,
			Name:    ast.NewName("B"),
			Extends: []*ast.Name{ast.NewName("C")},
		},
	})

	want := []Edge{edge("A", "C", EdgeKindExtends)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestAnonymousClassNeverRebinds(t *testing.T) {
	// An anonymous class inside a method: its parent dependency attaches
	// to the enclosing class.
	got := extract([]ast.Node{classA(&ast.MethodDecl{Name: "m", Body: []ast.Node{
		&ast.ClassDecl{Kind: ast.ClassKindClass, Extends: []*ast.Name{ast.NewName("B")}},
	}})})
	want := []Edge{edge("A", "B", EdgeKindExtends)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}

	// A file containing only an anonymous class declares nothing.
	orphan := extract([]ast.Node{
		&ast.ClassDecl{Kind: ast.ClassKindClass, Extends: []*ast.Name{ast.NewName("B")}},
	})
	if len(orphan) != 0 {
		t.Errorf("anonymous-only file produced edges %v, want none", orphan)
	}
}

func TestTraitDeclarationBindsCursor(t *testing.T) {
	got := extract([]ast.Node{&ast.ClassDecl{
		Kind: ast.ClassKindTrait,
		Name: ast.NewName("T"),
		Body: []ast.Node{&ast.MethodDecl{Name: "m", Params: []*ast.Param{
			{Var: "b", Type: ast.NewName("B")},
		}}},
	}})

	want := []Edge{edge("T", "B", EdgeKindParam)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestPendingClearedBetweenFiles(t *testing.T) {
	v := NewVisitor()

	// First file records provisional edges but never declares a class.
	ast.Traverse(v, []ast.Node{&ast.UseDecl{Names: []*ast.Name{ast.NewName("X")}}})
	// Second file declares a class; the first file's edges must not leak
	// into it.
	ast.Traverse(v, []ast.Node{classA()})

	if got := v.Dependencies().Len(); got != 0 {
		t.Errorf("collected %d edges, want 0: %v", got, v.Dependencies().Edges())
	}
}
