// Package metrics computes coupling metrics over the stored dependency
// graph: afferent/efferent coupling and instability per class.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/storage"
)

// ClassMetrics holds the coupling numbers of one class
type ClassMetrics struct {
	Class       *storage.Class `json:"class"`
	Ca          int            `json:"ca"`          // afferent coupling: classes depending on this one
	Ce          int            `json:"ce"`          // efferent coupling: classes this one depends on
	Instability float64        `json:"instability"` // Ce / (Ca + Ce), 0 for isolated classes
	Level       string         `json:"level"`       // critical / high / medium / low, by Ca
}

// Report is the coupling report for a whole project
type Report struct {
	Classes []*ClassMetrics `json:"classes"`
	Stats   *storage.Stats  `json:"stats"`
}

// CalculateLevel determines the change-risk level based on dependent count
func CalculateLevel(ca int) string {
	if ca >= 20 {
		return "critical"
	}
	if ca >= 10 {
		return "high"
	}
	if ca >= 5 {
		return "medium"
	}
	return "low"
}

// Compute builds the coupling report from the stored graph
func Compute(db *storage.DB) (*Report, error) {
	couplings, err := db.GetCouplingCounts()
	if err != nil {
		return nil, fmt.Errorf("查询耦合度失败: %w", err)
	}
	stats, err := db.GetStats()
	if err != nil {
		return nil, fmt.Errorf("查询统计失败: %w", err)
	}

	report := &Report{Stats: stats}
	for _, c := range couplings {
		m := &ClassMetrics{
			Class: c.Class,
			Ca:    c.Ca,
			Ce:    c.Ce,
			Level: CalculateLevel(c.Ca),
		}
		if c.Ca+c.Ce > 0 {
			m.Instability = float64(c.Ce) / float64(c.Ca+c.Ce)
		}
		report.Classes = append(report.Classes, m)
	}
	return report, nil
}

// TopByCa returns the n most depended-upon classes
func (r *Report) TopByCa(n int) []*ClassMetrics {
	return topN(r.Classes, n, func(a, b *ClassMetrics) bool {
		if a.Ca != b.Ca {
			return a.Ca > b.Ca
		}
		return a.Class.Name < b.Class.Name
	})
}

// TopByInstability returns the n most unstable classes (declared only:
// external stubs have no dependencies of their own by construction)
func (r *Report) TopByInstability(n int) []*ClassMetrics {
	var declared []*ClassMetrics
	for _, m := range r.Classes {
		if !m.Class.External {
			declared = append(declared, m)
		}
	}
	return topN(declared, n, func(a, b *ClassMetrics) bool {
		if a.Instability != b.Instability {
			return a.Instability > b.Instability
		}
		return a.Class.Name < b.Class.Name
	})
}

func topN(classes []*ClassMetrics, n int, less func(a, b *ClassMetrics) bool) []*ClassMetrics {
	sorted := append([]*ClassMetrics(nil), classes...)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// FormatText renders the report for terminal output
func (r *Report) FormatText(top int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📊 耦合度报告\n\n")
	fmt.Fprintf(&sb, "类: %d (外部 %d)  依赖边: %d\n\n", r.Stats.ClassCount, r.Stats.ExternalCount, r.Stats.EdgeCount)

	fmt.Fprintf(&sb, "被依赖最多 (Top %d)\n\n", top)
	for _, m := range r.TopByCa(top) {
		fmt.Fprintf(&sb, "%s %-8s  %s\n", levelIcon(m.Level), m.Level, display.ShortClassName(m.Class.Name))
		fmt.Fprintf(&sb, "             被依赖: %d  依赖: %d  不稳定度: %.2f\n\n", m.Ca, m.Ce, m.Instability)
	}

	sb.WriteString("风险等级: 🔴critical(>=20) 🟠high(>=10) 🟡medium(>=5) 🟢low\n")
	sb.WriteString("\n💡 使用 phpdep dependents <类名> 查看具体依赖者\n")
	return sb.String()
}

// FormatMarkdown renders the report as a markdown document
func (r *Report) FormatMarkdown(top int) string {
	var sb strings.Builder

	sb.WriteString("## 耦合度报告\n\n")
	fmt.Fprintf(&sb, "类: %d (外部 %d) | 依赖边: %d\n\n", r.Stats.ClassCount, r.Stats.ExternalCount, r.Stats.EdgeCount)

	fmt.Fprintf(&sb, "### 被依赖最多 (Top %d)\n\n", top)
	sb.WriteString("| 类 | 被依赖 Ca | 依赖 Ce | 不稳定度 I | 风险 |\n")
	sb.WriteString("|----|-----------|---------|------------|------|\n")
	for _, m := range r.TopByCa(top) {
		fmt.Fprintf(&sb, "| `%s` | %d | %d | %.2f | %s %s |\n",
			m.Class.Name, m.Ca, m.Ce, m.Instability, levelIcon(m.Level), m.Level)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "### 最不稳定 (Top %d)\n\n", top)
	sb.WriteString("| 类 | 不稳定度 I | 依赖 Ce | 被依赖 Ca |\n")
	sb.WriteString("|----|------------|---------|------------|\n")
	for _, m := range r.TopByInstability(top) {
		fmt.Fprintf(&sb, "| `%s` | %.2f | %d | %d |\n", m.Class.Name, m.Instability, m.Ce, m.Ca)
	}

	return sb.String()
}

func levelIcon(level string) string {
	switch level {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	default:
		return "🟢"
	}
}
