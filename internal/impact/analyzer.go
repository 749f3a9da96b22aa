// Package impact builds change-impact reports for a class: who depends on
// it, and what it depends on, directly and transitively.
package impact

import (
	"fmt"
	"strings"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/storage"
)

// Analyzer performs impact analysis on the dependency graph
type Analyzer struct {
	db *storage.DB
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(db *storage.DB) *Analyzer {
	return &Analyzer{db: db}
}

// Report represents the impact analysis of a class change
type Report struct {
	Target               *storage.Class   `json:"target"`
	DirectDependents     []*storage.Class `json:"direct_dependents"`
	IndirectDependents   []*storage.Class `json:"indirect_dependents"`
	DirectDependencies   []*storage.Class `json:"direct_dependencies"`
	IndirectDependencies []*storage.Class `json:"indirect_dependencies"`
	Cycles               []*storage.Class `json:"cycles,omitempty"`
}

// Analyze analyzes the impact of changing a class. Ambiguous names fail
// with a message listing the candidates; callers resolve via pattern
// search and retry with the exact name.
func (a *Analyzer) Analyze(className string, upstreamDepth, downstreamDepth int) (*Report, error) {
	target, err := a.db.GetClassByName(className)
	if err != nil {
		// Try pattern matching if exact match fails
		classes, err := a.db.FindClassesByPattern(className)
		if err != nil {
			return nil, fmt.Errorf("failed to find class: %w", err)
		}
		if len(classes) == 0 {
			return nil, fmt.Errorf("class not found: %s", className)
		}
		if len(classes) > 1 {
			var names []string
			for _, c := range classes {
				names = append(names, c.Name)
			}
			return nil, fmt.Errorf("ambiguous class name, found %d matches: %s", len(classes), strings.Join(names, ", "))
		}
		target = classes[0]
	}

	report := &Report{Target: target}

	report.DirectDependents, err = a.db.GetDirectDependents(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependents: %w", err)
	}

	if upstreamDepth != 1 {
		all, err := a.db.GetTransitiveDependents(target.ID, upstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get transitive dependents: %w", err)
		}
		report.IndirectDependents = subtract(all, report.DirectDependents)
	}

	report.DirectDependencies, err = a.db.GetDirectDependencies(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependencies: %w", err)
	}

	if downstreamDepth != 1 {
		all, err := a.db.GetTransitiveDependencies(target.ID, downstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get transitive dependencies: %w", err)
		}
		report.IndirectDependencies = subtract(all, report.DirectDependencies)
	}

	// Mutual dependencies between the target and its direct dependencies
	// deserve a warning: changing one side usually forces the other.
	for _, dep := range report.DirectDependencies {
		cyclic, err := a.db.HasCycle(target.ID, dep.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check cycle: %w", err)
		}
		if cyclic {
			report.Cycles = append(report.Cycles, dep)
		}
	}

	return report, nil
}

// subtract filters direct matches out of the transitive result
func subtract(all, direct []*storage.Class) []*storage.Class {
	directMap := make(map[int64]bool, len(direct))
	for _, c := range direct {
		directMap[c.ID] = true
	}
	var out []*storage.Class
	for _, c := range all {
		if !directMap[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// FormatMarkdown formats the impact report as markdown
func (r *Report) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 变更影响分析: %s\n\n", display.ShortClassName(r.Target.Name)))
	sb.WriteString(fmt.Sprintf("**完整名称:** `%s`\n\n", r.Target.Name))
	sb.WriteString(fmt.Sprintf("**位置:** %s\n\n", display.Location(r.Target)))
	sb.WriteString(fmt.Sprintf("**类型:** %s\n\n", r.Target.Kind))

	// Direct dependents
	sb.WriteString("### 直接依赖者 (需检查是否需要同步修改)\n\n")
	writeClassTable(&sb, r.DirectDependents, "_无直接依赖者_")

	// Indirect dependents
	if len(r.IndirectDependents) > 0 {
		sb.WriteString("### 间接依赖者 (可能受影响)\n\n")
		writeClassTable(&sb, r.IndirectDependents, "")
	}

	// Direct dependencies
	sb.WriteString("### 下游依赖 (本类依赖的)\n\n")
	writeClassTable(&sb, r.DirectDependencies, "_无下游依赖_")

	// Indirect dependencies
	if len(r.IndirectDependencies) > 0 {
		sb.WriteString("### 间接下游依赖\n\n")
		writeClassTable(&sb, r.IndirectDependencies, "")
	}

	// Cycles
	if len(r.Cycles) > 0 {
		sb.WriteString("### ⚠️ 循环依赖 (互相依赖，修改需同步)\n\n")
		writeClassTable(&sb, r.Cycles, "")
	}

	return sb.String()
}

func writeClassTable(sb *strings.Builder, classes []*storage.Class, emptyText string) {
	if len(classes) == 0 {
		if emptyText != "" {
			sb.WriteString(emptyText + "\n\n")
		}
		return
	}
	sb.WriteString("| 类 | 类型 | 位置 |\n")
	sb.WriteString("|----|------|------|\n")
	for _, c := range classes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c)))
	}
	sb.WriteString("\n")
}

// FormatTree formats the impact report as a tree structure
func (r *Report) FormatTree() string {
	var sb strings.Builder

	allDependents := append(r.DirectDependents, r.IndirectDependents...)
	allDependencies := append(r.DirectDependencies, r.IndirectDependencies...)

	maxWidth := len(display.Location(r.Target))
	for _, c := range allDependents {
		if w := len(display.Location(c)); w > maxWidth {
			maxWidth = w
		}
	}
	for _, c := range allDependencies {
		if w := len(display.Location(c)); w > maxWidth {
			maxWidth = w
		}
	}

	// Target class
	sb.WriteString("📍 当前类\n")
	sb.WriteString(fmt.Sprintf("%-*s  %s\n\n", maxWidth, display.Location(r.Target), display.ShortClassName(r.Target.Name)))

	// Upstream dependents
	if len(allDependents) > 0 {
		sb.WriteString(fmt.Sprintf("⬆️ 依赖者 (共 %d 个)\n", len(allDependents)))
		for i, c := range allDependents {
			prefix := "├──"
			if i == len(allDependents)-1 {
				prefix = "└──"
			}
			sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, maxWidth, display.Location(c), display.ShortClassName(c.Name)))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("⬆️ 依赖者\n")
		sb.WriteString("└── (无)\n\n")
	}

	// Downstream dependencies
	if len(allDependencies) > 0 {
		sb.WriteString(fmt.Sprintf("⬇️ 依赖 (共 %d 个)\n", len(allDependencies)))
		for i, c := range allDependencies {
			prefix := "├──"
			if i == len(allDependencies)-1 {
				prefix = "└──"
			}
			sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, maxWidth, display.Location(c), display.ShortClassName(c.Name)))
		}
	} else {
		sb.WriteString("⬇️ 依赖\n")
		sb.WriteString("└── (无)\n")
	}

	if len(r.Cycles) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ 循环依赖 (共 %d 个)\n", len(r.Cycles)))
		for i, c := range r.Cycles {
			prefix := "├──"
			if i == len(r.Cycles)-1 {
				prefix = "└──"
			}
			sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, maxWidth, display.Location(c), display.ShortClassName(c.Name)))
		}
	}

	return sb.String()
}

// Summary returns a brief summary of the impact report
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Dependents: %d, Indirect Dependents: %d, Direct Dependencies: %d, Indirect Dependencies: %d",
		display.ShortClassName(r.Target.Name),
		len(r.DirectDependents),
		len(r.IndirectDependents),
		len(r.DirectDependencies),
		len(r.IndirectDependencies),
	)
}
