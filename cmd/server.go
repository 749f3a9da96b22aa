package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/analyzer"
	"github.com/zheng/phpdep/internal/mcp"
	"github.com/zheng/phpdep/internal/storage"
	"github.com/zheng/phpdep/internal/watcher"
	"github.com/zheng/phpdep/internal/web"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "启动 MCP (Model Context Protocol) 服务器",
		Long: `启动 MCP 服务器，允许 AI 助手（如 Cursor、Claude）直接查询类依赖图。

MCP 工具包括：
  - analyze_impact: 分析类变更的影响范围
  - find_dependents: 查询上游依赖者
  - find_dependencies: 查询下游依赖
  - search_class: 搜索类
  - list_classes: 列出所有类
  - generate_mermaid: 生成依赖关系 Mermaid 图`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			server := mcp.NewServer(db)
			return server.Run()
		},
	}

	return cmd
}

func watchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "监控文件变更并自动更新依赖图",
		Long: `启动 watch 模式，监控项目中的 PHP 文件变更。
当检测到文件变更时，自动重新分析并更新依赖图数据库。

特性：
  - 自动递归监控所有目录
  - 防抖处理，避免频繁触发分析
  - 忽略隐藏目录、vendor、node_modules 等

示例：
  phpdep watch .                  # 监控当前目录
  phpdep watch . -d .phpdep.db    # 指定数据库路径
  phpdep watch . --debounce 1000  # 设置 1 秒防抖延迟`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			fmt.Println("执行初始分析...")
			classCount, edgeCount, err := runInitialAnalysis(projectPath, DbPath)
			if err != nil {
				return fmt.Errorf("初始分析失败: %w", err)
			}
			fmt.Printf("初始分析完成: %d 类, %d 依赖边\n", classCount, edgeCount)

			fmt.Printf("\n开始监控目录: %s\n", projectPath)
			fmt.Printf("数据库路径: %s\n", DbPath)
			fmt.Printf("防抖延迟: %dms\n", debounceMs)
			fmt.Println("\n按 Ctrl+C 停止...")
			fmt.Println()

			w, err := watcher.New(
				projectPath,
				DbPath,
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnAnalysisStart(func() {
					fmt.Printf("[%s] 检测到变更，开始分析...\n", time.Now().Format("15:04:05"))
				}),
				watcher.WithOnAnalysisDone(func(classes, edges int64, duration time.Duration) {
					fmt.Printf("[%s] 分析完成: %d 类, %d 依赖边 (耗时 %v)\n",
						time.Now().Format("15:04:05"), classes, edges, duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] 错误: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("创建监控器失败: %w", err)
			}

			w.Start()
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\n停止监控...")
			return nil
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "防抖延迟（毫秒）")

	return cmd
}

func runInitialAnalysis(projectPath, dbPath string) (classCount, edgeCount int64, err error) {
	a, err := analyzer.New()
	if err != nil {
		return 0, 0, fmt.Errorf("创建分析器失败: %w", err)
	}

	report, err := a.AnalyzeProject(projectPath)
	if err != nil {
		return 0, 0, fmt.Errorf("分析失败: %w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return 0, 0, fmt.Errorf("打开数据库失败: %w", err)
	}
	defer db.Close()

	if err := db.Clear(); err != nil {
		return 0, 0, fmt.Errorf("清空数据库失败: %w", err)
	}

	return analyzer.SaveReport(db, report)
}

func viewCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "view",
		Short: "启动 Web UI 可视化依赖图",
		Long: `启动一个本地 Web 服务器，提供交互式的类依赖可视化界面。

特性：
  - 类列表与搜索过滤
  - 类详情：上游依赖者、下游依赖
  - 外部类标记

示例：
  phpdep view              # 使用默认端口 9998
  phpdep view -p 3000      # 指定端口
  phpdep view -d my.db     # 指定数据库`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			server := web.NewServer(db, port)
			return server.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 9998, "服务器端口")

	return cmd
}
