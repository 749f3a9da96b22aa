package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zheng/phpdep/internal/storage"
)

func seedGraph(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, _ := db.EnsureClass(`App\Repo\UserRepository`, "class", "src/Repo/UserRepository.php", 5, false)
	base, _ := db.EnsureClass(`App\Repo\BaseRepository`, "class", "src/Repo/BaseRepository.php", 3, false)
	logger, _ := db.EnsureClass(`Monolog\Logger`, "", "", 0, true)

	db.InsertEdge(repo, base, "extends", "src/Repo/UserRepository.php")
	db.InsertEdge(repo, logger, "new", "src/Repo/UserRepository.php")

	return db
}

func TestExportMarkdown(t *testing.T) {
	db := seedGraph(t)
	var buf bytes.Buffer

	opts := DefaultExportOptions()
	opts.ProjectName = "测试"
	if err := NewExporter(db).Export(&buf, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# 测试类依赖图谱",
		"```mermaid",
		"-->|extends|",
		"### 📦 App\\Repo",
		"## 修改影响速查",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestExportMarkdownNoMermaid(t *testing.T) {
	db := seedGraph(t)
	var buf bytes.Buffer

	opts := DefaultExportOptions()
	opts.IncludeMermaid = false
	if err := NewExporter(db).Export(&buf, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(buf.String(), "mermaid") {
		t.Errorf("mermaid diagram should be omitted")
	}
}

func TestExportDOT(t *testing.T) {
	db := seedGraph(t)
	var buf bytes.Buffer

	opts := DefaultExportOptions()
	opts.Format = "dot"
	if err := NewExporter(db).Export(&buf, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"digraph dependencies {",
		`"App\\Repo\\UserRepository" -> "App\\Repo\\BaseRepository" [label="extends", color=blue];`,
		"style=dashed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestExportJSON(t *testing.T) {
	db := seedGraph(t)
	var buf bytes.Buffer

	opts := DefaultExportOptions()
	opts.Format = "json"
	if err := NewExporter(db).Export(&buf, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc struct {
		Stats   *storage.Stats       `json:"stats"`
		Classes []*storage.Class     `json:"classes"`
		Edges   []*storage.NamedEdge `json:"edges"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Classes) != 3 || len(doc.Edges) != 2 {
		t.Errorf("expected 3 classes and 2 edges, got %d/%d", len(doc.Classes), len(doc.Edges))
	}
	if doc.Stats == nil || doc.Stats.EdgeCount != 2 {
		t.Errorf("stats wrong: %+v", doc.Stats)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	db := seedGraph(t)
	opts := DefaultExportOptions()
	opts.Format = "xml"
	if err := NewExporter(db).Export(&bytes.Buffer{}, opts); err == nil {
		t.Errorf("expected error for unknown format")
	}
}

func TestExportIncremental(t *testing.T) {
	db := seedGraph(t)
	var buf bytes.Buffer

	err := NewExporter(db).ExportIncremental(&buf, []string{"src/Repo/BaseRepository.php"})
	if err != nil {
		t.Fatalf("ExportIncremental: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "### ⚠️ `BaseRepository`") {
		t.Errorf("changed class with dependents should be flagged:\n%s", out)
	}
	if !strings.Contains(out, `App\Repo\UserRepository`) {
		t.Errorf("dependent should be listed:\n%s", out)
	}

	buf.Reset()
	if err := NewExporter(db).ExportIncremental(&buf, nil); err != nil {
		t.Fatalf("ExportIncremental empty: %v", err)
	}
	if !strings.Contains(buf.String(), "没有检测到变更") {
		t.Errorf("empty change set should report no changes")
	}
}
