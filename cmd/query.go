package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/impact"
	"github.com/zheng/phpdep/internal/storage"
)

func dependentsCmd() *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "dependents <class-name>",
		Short: "查询依赖指定类的上游类",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			class, err := resolveClassArg(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.Analyze(class.Name, depth, 1)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(append(report.DirectDependents, report.IndirectDependents...))
			case "markdown":
				fmt.Printf("## 依赖者: %s\n\n", report.Target.Name)
				if len(report.DirectDependents) == 0 && len(report.IndirectDependents) == 0 {
					fmt.Println("_无依赖者_")
				} else {
					fmt.Println("| 类 | 类型 | 位置 |")
					fmt.Println("|----|------|------|")
					for _, c := range report.DirectDependents {
						fmt.Printf("| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c))
					}
					for _, c := range report.IndirectDependents {
						fmt.Printf("| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c))
					}
				}
			default:
				tree, err := db.GetDependentTree(report.Target.ID, depth)
				if err != nil {
					return fmt.Errorf("获取依赖树失败: %w", err)
				}

				maxWidth := len(display.ShortClassName(report.Target.Name))
				maxDepth := 0
				display.CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)

				fmt.Println("📍 当前类")
				targetPadding := maxWidth + maxDepth*4
				fmt.Printf("%-*s  %s\n\n", targetPadding, display.ShortClassName(report.Target.Name), display.Location(report.Target))

				if len(tree) > 0 {
					fmt.Printf("⬆️ 依赖者 (深度 %d)\n", depth)
					printDepTree(tree, maxWidth, maxDepth)
				} else {
					fmt.Println("⬆️ 依赖者")
					fmt.Println("└── (无)")
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个类时，直接选择第N个（跳过交互提示）")

	return cmd
}

func depsCmd() *cobra.Command {
	var depth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "deps <class-name>",
		Short: "查询指定类依赖的下游类",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			class, err := resolveClassArg(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.Analyze(class.Name, 1, depth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(append(report.DirectDependencies, report.IndirectDependencies...))
			case "markdown":
				fmt.Printf("## 下游依赖: %s\n\n", report.Target.Name)
				if len(report.DirectDependencies) == 0 && len(report.IndirectDependencies) == 0 {
					fmt.Println("_无下游依赖_")
				} else {
					fmt.Println("| 类 | 类型 | 位置 |")
					fmt.Println("|----|------|------|")
					for _, c := range report.DirectDependencies {
						fmt.Printf("| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c))
					}
					for _, c := range report.IndirectDependencies {
						fmt.Printf("| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c))
					}
				}
			default:
				tree, err := db.GetDependencyTree(report.Target.ID, depth)
				if err != nil {
					return fmt.Errorf("获取依赖树失败: %w", err)
				}

				maxWidth := len(display.ShortClassName(report.Target.Name))
				maxDepth := 0
				display.CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)

				fmt.Println("📍 当前类")
				targetPadding := maxWidth + maxDepth*4
				fmt.Printf("%-*s  %s\n\n", targetPadding, display.ShortClassName(report.Target.Name), display.Location(report.Target))

				if len(tree) > 0 {
					fmt.Printf("⬇️ 依赖 (深度 %d)\n", depth)
					printDepTree(tree, maxWidth, maxDepth)
				} else {
					fmt.Println("⬇️ 依赖")
					fmt.Println("└── (无)")
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个类时，直接选择第N个（跳过交互提示）")

	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "impact <class-name>",
		Short: "分析类变更的影响范围",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			class, err := resolveClassArg(db, args[0], selectN)
			if err != nil {
				return err
			}

			a := impact.NewAnalyzer(db)
			report, err := a.Analyze(class.Name, upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report)
			case "markdown":
				fmt.Print(report.FormatMarkdown())
			default:
				fmt.Print(report.FormatTree())
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 7, "上游递归深度")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 7, "下游递归深度")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个类时，直接选择第N个（跳过交互提示）")

	return cmd
}

func listCmd() *cobra.Command {
	var limit int
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有类",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			var classes []*storage.Class
			if kind != "" {
				classes, err = db.GetClassesByKind(kind)
			} else {
				classes, err = db.GetAllClasses()
			}
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}

			fmt.Printf("共 %d 个类:\n\n", len(classes))

			count := 0
			for _, c := range classes {
				if limit > 0 && count >= limit {
					fmt.Printf("... 还有 %d 个类\n", len(classes)-limit)
					break
				}
				fmt.Printf("  %s\n    %s %s\n", c.Name, c.Kind, display.Location(c))
				count++
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")
	cmd.Flags().StringVar(&kind, "kind", "", "按类型过滤 (class/interface/trait/enum)")

	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "搜索类",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			classes, err := db.FindClassesByPattern(pattern)
			if err != nil {
				return fmt.Errorf("搜索失败: %w", err)
			}

			if len(classes) == 0 {
				fmt.Println("未找到匹配的类")
				return nil
			}

			fmt.Printf("找到 %d 个匹配:\n\n", len(classes))
			for _, c := range classes {
				fmt.Printf("  %s\n    %s %s\n", c.Name, c.Kind, display.Location(c))
			}

			return nil
		},
	}

	return cmd
}

func statsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "显示依赖图统计信息",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return fmt.Errorf("查询统计失败: %w", err)
			}

			if format == "json" {
				return outputJSON(stats)
			}

			fmt.Println("📊 依赖图统计")
			fmt.Printf("  类:     %d (其中外部 %d)\n", stats.ClassCount, stats.ExternalCount)
			fmt.Printf("  依赖边: %d\n", stats.EdgeCount)
			if len(stats.EdgesByKind) > 0 {
				fmt.Println("  按类型:")
				for _, kind := range []string{"extends", "implements", "new", "param", "use", "call"} {
					if n, ok := stats.EdgesByKind[kind]; ok {
						fmt.Printf("    %-10s %d\n", kind, n)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}
