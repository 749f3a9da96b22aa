// Package export renders the stored dependency graph as documentation
// (markdown + Mermaid), Graphviz DOT, or machine-readable JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/storage"
)

// Exporter generates dependency documentation from the graph database
type Exporter struct {
	db *storage.DB
}

// NewExporter creates a new exporter
func NewExporter(db *storage.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format         string // markdown / dot / json
	IncludeMermaid bool
	ProjectName    string
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:         "markdown",
		IncludeMermaid: true,
		ProjectName:    "项目",
	}
}

// Export writes the full graph in the requested format
func (e *Exporter) Export(w io.Writer, opts ExportOptions) error {
	switch opts.Format {
	case "", "markdown":
		return e.exportMarkdown(w, opts)
	case "dot":
		return e.exportDOT(w)
	case "json":
		return e.exportJSON(w)
	default:
		return fmt.Errorf("不支持的导出格式: %s", opts.Format)
	}
}

// exportMarkdown generates a complete dependency document
func (e *Exporter) exportMarkdown(w io.Writer, opts ExportOptions) error {
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	edges, err := e.db.GetAllNamedEdges()
	if err != nil {
		return fmt.Errorf("failed to get edges: %w", err)
	}

	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	nsClasses := groupByNamespace(classes)

	// Header
	fmt.Fprintf(w, "# %s类依赖图谱\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 类: %d (外部 %d) | 依赖边: %d\n\n", stats.ClassCount, stats.ExternalCount, stats.EdgeCount)

	// Dependency diagram
	if opts.IncludeMermaid && len(edges) > 0 {
		e.writeMermaidDiagram(w, edges)
	}

	// Namespace details
	fmt.Fprintf(w, "---\n\n## 命名空间详解\n\n")

	for _, ns := range sortedNamespaces(nsClasses) {
		e.writeNamespaceSection(w, ns, nsClasses[ns])
	}

	// Impact reference table
	e.writeImpactTable(w)

	return nil
}

// writeMermaidDiagram writes the dependency graph as a Mermaid flowchart
// with one kind-labeled arrow per class pair and kind
func (e *Exporter) writeMermaidDiagram(w io.Writer, edges []*storage.NamedEdge) {
	fmt.Fprintf(w, "## 依赖图\n\n```mermaid\nflowchart LR\n")

	ids := make(map[string]string)
	nodeID := func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		id := makeNodeID(name)
		ids[name] = id
		fmt.Fprintf(w, "    %s[%s]\n", id, display.ShortClassName(name))
		return id
	}

	type pair struct{ from, to, kind string }
	seen := make(map[pair]bool)
	for _, edge := range edges {
		p := pair{edge.From, edge.To, edge.Kind}
		if seen[p] {
			continue
		}
		seen[p] = true
		fmt.Fprintf(w, "    %s -->|%s| %s\n", nodeID(edge.From), edge.Kind, nodeID(edge.To))
	}

	fmt.Fprintf(w, "```\n\n")
}

// writeNamespaceSection writes detailed info for one namespace
func (e *Exporter) writeNamespaceSection(w io.Writer, ns string, classes []*storage.Class) {
	title := ns
	if title == "" {
		title = "(全局)"
	}
	fmt.Fprintf(w, "### 📦 %s\n\n", title)

	// Declared classes first, then by name
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].External != classes[j].External {
			return !classes[i].External
		}
		return classes[i].Name < classes[j].Name
	})

	fmt.Fprintf(w, "| 类 | 类型 | 位置 | 被依赖 | 依赖 |\n")
	fmt.Fprintf(w, "|----|------|------|--------|------|\n")

	for _, c := range classes {
		dependents, _ := e.db.GetDirectDependents(c.ID)
		dependencies, _ := e.db.GetDirectDependencies(c.ID)
		fmt.Fprintf(w, "| `%s` | %s | %s | %d | %d |\n",
			display.ShortClassName(c.Name), c.Kind, display.Location(c), len(dependents), len(dependencies))
	}

	fmt.Fprintf(w, "\n")
}

// writeImpactTable writes a summary table sorted by dependent count
func (e *Exporter) writeImpactTable(w io.Writer) {
	couplings, err := e.db.GetCouplingCounts()
	if err != nil {
		return
	}

	fmt.Fprintf(w, "---\n\n## 修改影响速查\n\n")
	fmt.Fprintf(w, "| 类 | 位置 | 被依赖 | 依赖 | 风险 |\n")
	fmt.Fprintf(w, "|----|------|--------|------|------|\n")

	for _, c := range couplings {
		if c.Ca == 0 {
			continue
		}
		risk := "🟢"
		if c.Ca >= 10 {
			risk = "🔴 高"
		} else if c.Ca >= 5 {
			risk = "🟡 中"
		}
		fmt.Fprintf(w, "| `%s` | %s | %d | %d | %s |\n",
			display.ShortClassName(c.Class.Name), display.Location(c.Class), c.Ca, c.Ce, risk)
	}
}

// exportDOT writes the graph in Graphviz DOT format, with edge colors per
// dependency kind and dashed boxes for external classes
func (e *Exporter) exportDOT(w io.Writer) error {
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	edges, err := e.db.GetAllNamedEdges()
	if err != nil {
		return fmt.Errorf("failed to get edges: %w", err)
	}

	fmt.Fprintf(w, "digraph dependencies {\n")
	fmt.Fprintf(w, "    rankdir=LR;\n")
	fmt.Fprintf(w, "    node [shape=box, fontname=\"Helvetica\"];\n\n")

	for _, c := range classes {
		attrs := fmt.Sprintf("label=%q", display.ShortClassName(c.Name))
		if c.External {
			attrs += ", style=dashed, color=gray"
		}
		fmt.Fprintf(w, "    %q [%s];\n", c.Name, attrs)
	}
	fmt.Fprintf(w, "\n")

	for _, edge := range edges {
		fmt.Fprintf(w, "    %q -> %q [label=%q, color=%s];\n",
			edge.From, edge.To, edge.Kind, edgeColor(edge.Kind))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

func edgeColor(kind string) string {
	switch kind {
	case "extends":
		return "blue"
	case "implements":
		return "purple"
	case "new":
		return "red"
	case "param":
		return "darkgreen"
	case "use":
		return "gray"
	case "call":
		return "orange"
	default:
		return "black"
	}
}

// jsonDocument is the JSON export payload
type jsonDocument struct {
	GeneratedAt string               `json:"generated_at"`
	Stats       *storage.Stats       `json:"stats"`
	Classes     []*storage.Class     `json:"classes"`
	Edges       []*storage.NamedEdge `json:"edges"`
}

// exportJSON writes the full graph as one JSON document
func (e *Exporter) exportJSON(w io.Writer) error {
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	edges, err := e.db.GetAllNamedEdges()
	if err != nil {
		return fmt.Errorf("failed to get edges: %w", err)
	}
	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	doc := jsonDocument{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Stats:       stats,
		Classes:     classes,
		Edges:       edges,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportIncremental generates a report for changed files only
func (e *Exporter) ExportIncremental(w io.Writer, changedFiles []string) error {
	if len(changedFiles) == 0 {
		fmt.Fprintf(w, "# 增量更新报告\n\n> 没有检测到变更\n")
		return nil
	}

	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}

	changed := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changed[f] = true
	}

	var changedClasses []*storage.Class
	for _, c := range classes {
		if !c.External && changed[c.File] {
			changedClasses = append(changedClasses, c)
		}
	}

	fmt.Fprintf(w, "# 增量更新报告\n\n")
	fmt.Fprintf(w, "> 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 变更文件: %d | 变更类: %d\n\n", len(changedFiles), len(changedClasses))

	fmt.Fprintf(w, "## 变更范围\n\n")
	for _, f := range changedFiles {
		fmt.Fprintf(w, "- `%s`\n", f)
	}
	fmt.Fprintf(w, "\n")

	if len(changedClasses) == 0 {
		fmt.Fprintf(w, "_没有受影响的类_\n")
		return nil
	}

	fmt.Fprintf(w, "## 影响分析\n\n")

	for _, c := range changedClasses {
		dependents, _ := e.db.GetDirectDependents(c.ID)
		if len(dependents) == 0 {
			continue
		}

		fmt.Fprintf(w, "### ⚠️ `%s`\n\n", display.ShortClassName(c.Name))
		fmt.Fprintf(w, "**位置**: `%s`\n\n", display.Location(c))
		fmt.Fprintf(w, "**以下 %d 个类依赖此类，可能需要检查：**\n\n", len(dependents))
		fmt.Fprintf(w, "| 依赖者 | 类型 | 位置 |\n")
		fmt.Fprintf(w, "|--------|------|------|\n")
		for _, d := range dependents {
			fmt.Fprintf(w, "| `%s` | %s | %s |\n", d.Name, d.Kind, display.Location(d))
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// Helper functions

func groupByNamespace(classes []*storage.Class) map[string][]*storage.Class {
	result := make(map[string][]*storage.Class)
	for _, c := range classes {
		ns := display.ShortNamespace(c.Name)
		result[ns] = append(result[ns], c)
	}
	return result
}

func sortedNamespaces(nsClasses map[string][]*storage.Class) []string {
	var names []string
	for ns := range nsClasses {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

func makeNodeID(name string) string {
	id := strings.ReplaceAll(name, `\`, "_")
	id = strings.ReplaceAll(id, ".", "_")
	id = strings.ReplaceAll(id, "-", "_")
	return id
}
