// mockgen generates a synthetic PHP project with a layered, acyclic class
// dependency structure, sized for benchmarking the analyzer.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir     string
	NumNamespaces int
	NumClasses    int // classes per namespace
	MaxDepth      int
	Density       float64 // 每个类平均依赖几个其他类
}

// ClassInfo represents a class in the mock project
type ClassInfo struct {
	Namespace   string
	Name        string
	FullName    string
	IsInterface bool
	Depth       int
	NsIdx       int
}

// DepInfo represents one dependency a class carries
type DepInfo struct {
	Target *ClassInfo
	Kind   string // extends / implements / new / param
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-php-project", "输出目录")
	flag.IntVar(&cfg.NumNamespaces, "ns", 10, "命名空间数量")
	flag.IntVar(&cfg.NumClasses, "classes", 50, "每个命名空间的类数量")
	flag.IntVar(&cfg.MaxDepth, "depth", 8, "最大依赖深度")
	flag.Float64Var(&cfg.Density, "density", 3.0, "平均每个类依赖几个其他类")
	flag.Parse()

	rand.Seed(time.Now().UnixNano())

	fmt.Printf("正在生成 mock PHP 项目...\n")
	fmt.Printf("  命名空间数: %d\n", cfg.NumNamespaces)
	fmt.Printf("  每命名空间类数: %d\n", cfg.NumClasses)
	fmt.Printf("  总类数: %d\n", cfg.NumNamespaces*cfg.NumClasses)
	fmt.Printf("  最大深度: %d\n", cfg.MaxDepth)
	fmt.Printf("  依赖密度: %.1f\n", cfg.Density)

	if err := generateProject(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ 项目生成完成: %s\n", cfg.OutputDir)
	fmt.Printf("\n下一步:\n")
	fmt.Printf("  phpdep analyze %s -o .phpdep.db\n", cfg.OutputDir)
}

func generateProject(cfg *Config) error {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}

	allClasses := generateClassRegistry(cfg)
	classesByDepth := organizeByDepth(allClasses, cfg.MaxDepth)

	for nsIdx := 0; nsIdx < cfg.NumNamespaces; nsIdx++ {
		nsName := fmt.Sprintf("Ns%02d", nsIdx)
		if err := generateNamespace(cfg, nsName, nsIdx, classesByDepth, allClasses); err != nil {
			return err
		}
		fmt.Printf("  ✓ 生成命名空间 App\\%s (%d/%d)\n", nsName, nsIdx+1, cfg.NumNamespaces)
	}

	return nil
}

func generateClassRegistry(cfg *Config) []*ClassInfo {
	var classes []*ClassInfo
	for nsIdx := 0; nsIdx < cfg.NumNamespaces; nsIdx++ {
		nsName := fmt.Sprintf("Ns%02d", nsIdx)
		for classIdx := 0; classIdx < cfg.NumClasses; classIdx++ {
			// 每 10 个类中有 1 个接口
			isInterface := classIdx%10 == 9
			prefix := "Class"
			if isInterface {
				prefix = "Contract"
			}
			name := fmt.Sprintf("%s%03d", prefix, classIdx)
			classes = append(classes, &ClassInfo{
				Namespace:   nsName,
				Name:        name,
				FullName:    fmt.Sprintf("App\\%s\\%s", nsName, name),
				IsInterface: isInterface,
				NsIdx:       nsIdx,
			})
		}
	}
	return classes
}

func organizeByDepth(all []*ClassInfo, maxDepth int) [][]*ClassInfo {
	byDepth := make([][]*ClassInfo, maxDepth+1)

	// 均匀分配类到各个深度层
	for i, c := range all {
		depth := i % (maxDepth + 1)
		c.Depth = depth
		byDepth[depth] = append(byDepth[depth], c)
	}

	return byDepth
}

func generateNamespace(cfg *Config, nsName string, nsIdx int, classesByDepth [][]*ClassInfo, all []*ClassInfo) error {
	nsDir := filepath.Join(cfg.OutputDir, "src", nsName)
	if err := os.MkdirAll(nsDir, 0755); err != nil {
		return err
	}

	startIdx := nsIdx * cfg.NumClasses
	endIdx := startIdx + cfg.NumClasses
	nsClasses := all[startIdx:endIdx]

	for _, c := range nsClasses {
		deps := generateDeps(c, classesByDepth, cfg)
		content := generateClassFile(c, deps)
		path := filepath.Join(nsDir, c.Name+".php")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}

	return nil
}

// generateDeps picks dependency targets strictly from deeper layers, so the
// generated graph stays acyclic.
func generateDeps(c *ClassInfo, classesByDepth [][]*ClassInfo, cfg *Config) []DepInfo {
	// 叶子层不依赖其他类
	if c.Depth >= len(classesByDepth)-1 {
		return nil
	}

	numDeps := rand.Intn(int(cfg.Density*2)) + 1
	if numDeps > int(cfg.Density*1.5) {
		numDeps = int(cfg.Density)
	}

	var deps []DepInfo
	seen := make(map[string]bool)
	hasExtends := false

	nextDepth := c.Depth + 1
	for i := 0; i < numDeps; i++ {
		var target *ClassInfo
		if rand.Float64() < 0.8 && len(classesByDepth[nextDepth]) > 0 {
			// 优先依赖下一层
			target = classesByDepth[nextDepth][rand.Intn(len(classesByDepth[nextDepth]))]
		} else {
			// 随机依赖任意更深层的类
			var deeper []*ClassInfo
			for d := nextDepth; d < len(classesByDepth); d++ {
				deeper = append(deeper, classesByDepth[d]...)
			}
			if len(deeper) > 0 {
				target = deeper[rand.Intn(len(deeper))]
			}
		}

		if target == nil || target.FullName == c.FullName || seen[target.FullName] {
			continue
		}
		seen[target.FullName] = true

		kind := pickKind(c, target, hasExtends)
		if kind == "" {
			continue
		}
		if kind == "extends" {
			hasExtends = true
		}
		deps = append(deps, DepInfo{Target: target, Kind: kind})
	}

	return deps
}

func pickKind(c, target *ClassInfo, hasExtends bool) string {
	if c.IsInterface {
		// 接口只能继承接口
		if target.IsInterface && !hasExtends {
			return "extends"
		}
		return ""
	}
	if target.IsInterface {
		return "implements"
	}
	r := rand.Float64()
	switch {
	case r < 0.15 && !hasExtends:
		return "extends"
	case r < 0.55:
		return "new"
	default:
		return "param"
	}
}

func generateClassFile(c *ClassInfo, deps []DepInfo) string {
	var sb strings.Builder

	sb.WriteString("<?php\n\n")
	sb.WriteString("declare(strict_types=1);\n\n")
	fmt.Fprintf(&sb, "namespace App\\%s;\n\n", c.Namespace)

	// use 语句（按完整名引用，跨命名空间时导入）
	var extends, implements []string
	var newDeps, paramDeps []*ClassInfo
	for _, d := range deps {
		ref := d.Target.Name
		if d.Target.Namespace != c.Namespace {
			fmt.Fprintf(&sb, "use App\\%s\\%s;\n", d.Target.Namespace, d.Target.Name)
		}
		switch d.Kind {
		case "extends":
			extends = append(extends, ref)
		case "implements":
			implements = append(implements, ref)
		case "new":
			newDeps = append(newDeps, d.Target)
		case "param":
			paramDeps = append(paramDeps, d.Target)
		}
	}
	if len(deps) > 0 {
		sb.WriteString("\n")
	}

	keyword := "class"
	if c.IsInterface {
		keyword = "interface"
	}
	fmt.Fprintf(&sb, "%s %s", keyword, c.Name)
	if len(extends) > 0 {
		fmt.Fprintf(&sb, " extends %s", extends[0])
	}
	if len(implements) > 0 {
		fmt.Fprintf(&sb, " implements %s", strings.Join(implements, ", "))
	}
	sb.WriteString("\n{\n")

	if c.IsInterface {
		sb.WriteString("    public function handle(int $input): int;\n")
	} else {
		// 构造函数携带 param 依赖
		if len(paramDeps) > 0 {
			var params []string
			for i, p := range paramDeps {
				params = append(params, fmt.Sprintf("%s $dep%d", p.Name, i))
			}
			fmt.Fprintf(&sb, "    public function __construct(%s)\n    {\n    }\n\n", strings.Join(params, ", "))
		}

		sb.WriteString("    public function handle(int $input): int\n    {\n")
		sb.WriteString("        $result = $input;\n")
		for i, n := range newDeps {
			fmt.Fprintf(&sb, "        $obj%d = new %s();\n", i, n.Name)
			fmt.Fprintf(&sb, "        $result += $obj%d->handle($result + %d);\n", i, i)
		}
		sb.WriteString("        return $result;\n")
		sb.WriteString("    }\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}
