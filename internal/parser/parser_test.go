package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zheng/phpdep/internal/ast"
)

func parseSource(t *testing.T, src string) []ast.Node {
	t.Helper()
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	nodes, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return nodes
}

// firstClass returns the first class-like declaration in the tree.
func firstClass(t *testing.T, nodes []ast.Node) *ast.ClassDecl {
	t.Helper()
	var found *ast.ClassDecl
	ast.Inspect(nodes, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		if c, ok := n.(*ast.ClassDecl); ok {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		t.Fatal("no class declaration found")
	}
	return found
}

func collectNews(nodes []ast.Node) []*ast.NewExpr {
	var out []*ast.NewExpr
	ast.Inspect(nodes, func(n ast.Node) bool {
		if ne, ok := n.(*ast.NewExpr); ok {
			out = append(out, ne)
		}
		return true
	})
	return out
}

func names(list []*ast.Name) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.String()
	}
	return out
}

func TestParseClassDeclaration(t *testing.T) {
	nodes := parseSource(t, `<?php
class Child extends Base implements Countable, Serializable {
    public function run() {}
}
`)
	decl := firstClass(t, nodes)

	if decl.Kind != ast.ClassKindClass {
		t.Errorf("kind = %q, want class", decl.Kind)
	}
	if got := decl.Name.String(); got != "Child" {
		t.Errorf("name = %q, want Child", got)
	}
	if got := names(decl.Extends); len(got) != 1 || got[0] != "Base" {
		t.Errorf("extends = %v, want [Base]", got)
	}
	if got := names(decl.Implements); len(got) != 2 || got[0] != "Countable" || got[1] != "Serializable" {
		t.Errorf("implements = %v, want [Countable Serializable]", got)
	}
	if len(decl.Body) != 1 {
		t.Fatalf("body has %d nodes, want 1 method", len(decl.Body))
	}
	if m, ok := decl.Body[0].(*ast.MethodDecl); !ok || m.Name != "run" {
		t.Errorf("body[0] = %#v, want method run", decl.Body[0])
	}
	if decl.Line != 2 {
		t.Errorf("line = %d, want 2", decl.Line)
	}
}

func TestParseNamespaceQualifiesDeclaredNames(t *testing.T) {
	nodes := parseSource(t, `<?php
namespace App\Domain;

class User extends Model {
    public function touch() {
        return new Clock();
    }
}
`)
	decl := firstClass(t, nodes)

	if got := decl.Name.String(); got != `App\Domain\User` {
		t.Errorf("declared name = %q, want App\\Domain\\User", got)
	}
	// Referenced names stay as written: no namespace is applied to them.
	if got := names(decl.Extends); got[0] != "Model" {
		t.Errorf("extends = %v, want [Model]", got)
	}
	news := collectNews(nodes)
	if len(news) != 1 || news[0].Class.String() != "Clock" {
		t.Errorf("new targets = %v, want [Clock]", news)
	}
}

func TestParseBracedNamespaceScopes(t *testing.T) {
	nodes := parseSource(t, `<?php
namespace First {
    class A {}
}
namespace Second {
    class B {}
}
`)
	var got []string
	ast.Inspect(nodes, func(n ast.Node) bool {
		if c, ok := n.(*ast.ClassDecl); ok && c.Name != nil {
			got = append(got, c.Name.String())
		}
		return true
	})
	if len(got) != 2 || got[0] != `First\A` || got[1] != `Second\B` {
		t.Errorf("declared names = %v, want [First\\A Second\\B]", got)
	}
}

func TestParseInterfaceAndTrait(t *testing.T) {
	nodes := parseSource(t, `<?php
interface Repo extends Readable, Writable {}
`)
	decl := firstClass(t, nodes)
	if decl.Kind != ast.ClassKindInterface {
		t.Errorf("kind = %q, want interface", decl.Kind)
	}
	if got := names(decl.Extends); len(got) != 2 || got[0] != "Readable" || got[1] != "Writable" {
		t.Errorf("interface extends = %v, want [Readable Writable]", got)
	}

	nodes = parseSource(t, `<?php
trait Logging {
    public function log(Logger $l) {}
}
`)
	decl = firstClass(t, nodes)
	if decl.Kind != ast.ClassKindTrait {
		t.Errorf("kind = %q, want trait", decl.Kind)
	}
	if got := decl.Name.String(); got != "Logging" {
		t.Errorf("trait name = %q, want Logging", got)
	}
}

func TestParseAbstractClass(t *testing.T) {
	decl := firstClass(t, parseSource(t, `<?php
abstract class Handler {}
`))
	if !decl.Abstract {
		t.Error("abstract modifier not detected")
	}
}

func TestParseMethodParameters(t *testing.T) {
	decl := firstClass(t, parseSource(t, `<?php
class Service {
    public function __construct(Logger $log, string $name, ?Config $cfg, $raw, \Lib\Bus $bus) {}
}
`))
	m, ok := decl.Body[0].(*ast.MethodDecl)
	if !ok {
		t.Fatalf("body[0] = %#v, want method", decl.Body[0])
	}
	if m.Name != "__construct" {
		t.Errorf("method name = %q", m.Name)
	}
	if len(m.Params) != 5 {
		t.Fatalf("got %d params, want 5", len(m.Params))
	}

	if nm, ok := m.Params[0].Type.(*ast.Name); !ok || nm.String() != "Logger" {
		t.Errorf("param 0 type = %#v, want Logger", m.Params[0].Type)
	}
	if b, ok := m.Params[1].Type.(ast.Builtin); !ok || b != "string" {
		t.Errorf("param 1 type = %#v, want builtin string", m.Params[1].Type)
	}
	// Nullable hints unwrap to the inner name.
	if nm, ok := m.Params[2].Type.(*ast.Name); !ok || nm.String() != "Config" {
		t.Errorf("param 2 type = %#v, want Config", m.Params[2].Type)
	}
	if m.Params[3].Type != nil {
		t.Errorf("param 3 type = %#v, want nil", m.Params[3].Type)
	}
	if nm, ok := m.Params[4].Type.(*ast.Name); !ok || nm.String() != `Lib\Bus` || !nm.Qualified {
		t.Errorf("param 4 type = %#v, want qualified Lib\\Bus", m.Params[4].Type)
	}
	if m.Params[0].Var != "log" {
		t.Errorf("param 0 var = %q, want log", m.Params[0].Var)
	}
}

func TestParseUnionTypeYieldsNoHint(t *testing.T) {
	decl := firstClass(t, parseSource(t, `<?php
class S {
    public function m(A|B $x) {}
}
`))
	m := decl.Body[0].(*ast.MethodDecl)
	if len(m.Params) != 1 {
		t.Fatalf("got %d params, want 1", len(m.Params))
	}
	if m.Params[0].Type != nil {
		t.Errorf("union type = %#v, want nil", m.Params[0].Type)
	}
}

func TestParseNewExpressions(t *testing.T) {
	nodes := parseSource(t, `<?php
$a = new Job();
$b = new \Lib\Task(new Payload());
$c = new $cls();
`)
	news := collectNews(nodes)
	if len(news) != 4 {
		t.Fatalf("got %d new expressions, want 4", len(news))
	}
	if news[0].Class.String() != "Job" {
		t.Errorf("news[0] = %v, want Job", news[0].Class)
	}
	if news[1].Class.String() != `Lib\Task` || !news[1].Class.Qualified {
		t.Errorf("news[1] = %#v, want qualified Lib\\Task", news[1].Class)
	}
	// Nested argument surfaces as a child of the outer expression.
	if len(news[1].Args) != 1 {
		t.Errorf("news[1] args = %v, want nested Payload", news[1].Args)
	}
	if news[2].Class.String() != "Payload" {
		t.Errorf("news[2] = %v, want Payload", news[2].Class)
	}
	if news[3].Class != nil {
		t.Errorf("dynamic new has class %v, want nil", news[3].Class)
	}
}

func TestParseNewInsideControlFlow(t *testing.T) {
	nodes := parseSource(t, `<?php
if ($x) {
    foreach ($items as $item) {
        $h = new Handler();
    }
}
`)
	news := collectNews(nodes)
	if len(news) != 1 || news[0].Class.String() != "Handler" {
		t.Errorf("news = %v, want [Handler]", news)
	}
}

func TestParseUseDeclarations(t *testing.T) {
	nodes := parseSource(t, `<?php
use App\Logger, App\Mailer;
use Vendor\Thing as T;
`)
	var uses []*ast.UseDecl
	ast.Inspect(nodes, func(n ast.Node) bool {
		if u, ok := n.(*ast.UseDecl); ok {
			uses = append(uses, u)
		}
		return true
	})
	if len(uses) != 2 {
		t.Fatalf("got %d use declarations, want 2", len(uses))
	}
	if got := names(uses[0].Names); len(got) != 2 || got[0] != `App\Logger` || got[1] != `App\Mailer` {
		t.Errorf("uses[0] = %v, want [App\\Logger App\\Mailer]", got)
	}
	// The alias is dropped; the imported name is kept.
	if got := names(uses[1].Names); len(got) != 1 || got[0] != `Vendor\Thing` {
		t.Errorf("uses[1] = %v, want [Vendor\\Thing]", got)
	}
}

func TestParseGroupUseIgnored(t *testing.T) {
	nodes := parseSource(t, `<?php
use App\{Logger, Mailer};
class A {}
`)
	ast.Inspect(nodes, func(n ast.Node) bool {
		if _, ok := n.(*ast.UseDecl); ok {
			t.Error("group use produced a UseDecl")
		}
		return true
	})
}

func TestParseTraitUseIsNotAnImport(t *testing.T) {
	nodes := parseSource(t, `<?php
class A {
    use Logging;
}
`)
	ast.Inspect(nodes, func(n ast.Node) bool {
		if _, ok := n.(*ast.UseDecl); ok {
			t.Error("trait use inside a class body produced a UseDecl")
		}
		return true
	})
}

func TestParseChainedStaticCall(t *testing.T) {
	nodes := parseSource(t, `<?php
class A {
    public function m() {
        Factory::create()->configure();
        Factory::create();
        self::make()->run();
    }
}
`)
	var chained []*ast.MethodCall
	var bare []*ast.StaticCall
	ast.Inspect(nodes, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.MethodCall:
			chained = append(chained, x)
		case *ast.StaticCall:
			bare = append(bare, x)
		}
		return true
	})

	if len(chained) != 2 {
		t.Fatalf("got %d method calls, want 2", len(chained))
	}
	sc, ok := chained[0].Recv.(*ast.StaticCall)
	if !ok || sc.Class == nil || sc.Class.String() != "Factory" || sc.Method != "create" {
		t.Errorf("chained receiver = %#v, want Factory::create", chained[0].Recv)
	}
	if chained[0].Method != "configure" {
		t.Errorf("chained method = %q, want configure", chained[0].Method)
	}
	// self:: has no literal class name.
	if sc, ok := chained[1].Recv.(*ast.StaticCall); !ok || sc.Class != nil {
		t.Errorf("self:: receiver = %#v, want static call without class", chained[1].Recv)
	}
}

func TestParseAnonymousClass(t *testing.T) {
	nodes := parseSource(t, `<?php
class Outer {
    public function m() {
        $h = new class extends Base {
            public function handle() {}
        };
    }
}
`)
	var anon *ast.ClassDecl
	ast.Inspect(nodes, func(n ast.Node) bool {
		if c, ok := n.(*ast.ClassDecl); ok && c.Name == nil {
			anon = c
		}
		return true
	})
	if anon == nil {
		t.Fatal("anonymous class not found")
	}
	if got := names(anon.Extends); len(got) != 1 || got[0] != "Base" {
		t.Errorf("anonymous extends = %v, want [Base]", got)
	}
	if len(collectNews(nodes)) != 0 {
		t.Error("anonymous class produced a new expression")
	}
}

func TestParseAnonymousClassBody(t *testing.T) {
	nodes := parseSource(t, `<?php
class Outer {
    public function m() {
        $h = new class implements Handler {
            public function handle(Request $r) {
                $log = new Logger();
            }
        };
    }
}
`)
	var anon *ast.ClassDecl
	ast.Inspect(nodes, func(n ast.Node) bool {
		if c, ok := n.(*ast.ClassDecl); ok && c.Name == nil {
			anon = c
		}
		return true
	})
	if anon == nil {
		t.Fatal("anonymous class not found")
	}
	if got := names(anon.Implements); len(got) != 1 || got[0] != "Handler" {
		t.Errorf("anonymous implements = %v, want [Handler]", got)
	}

	// Nested instantiations and typed params inside the body must survive.
	news := collectNews(nodes)
	if len(news) != 1 || news[0].Class == nil || news[0].Class.String() != "Logger" {
		t.Errorf("nested new inside anonymous body lost: %+v", news)
	}
	var params []string
	ast.Inspect(anon.Body, func(n ast.Node) bool {
		if m, ok := n.(*ast.MethodDecl); ok {
			for _, p := range m.Params {
				if nm, ok := p.Type.(*ast.Name); ok {
					params = append(params, nm.String())
				}
			}
		}
		return true
	})
	if len(params) != 1 || params[0] != "Request" {
		t.Errorf("typed params inside anonymous body lost: %v", params)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "User.php")
	src := "<?php\nnamespace App;\nclass User {}\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	nodes, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	decl := firstClass(t, nodes)
	if got := decl.Name.String(); got != `App\User` {
		t.Errorf("name = %q, want App\\User", got)
	}
}

func TestParseFileMissing(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if _, err := p.ParseFile(filepath.Join(t.TempDir(), "absent.php")); err == nil {
		t.Error("expected error for missing file")
	}
}
