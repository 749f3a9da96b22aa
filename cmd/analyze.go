package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/analyzer"
	"github.com/zheng/phpdep/internal/storage"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var incremental bool
	var gitBase string
	var remote bool
	var workers int

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "分析 PHP 项目并构建类依赖图",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			if outputPath != "" {
				DbPath = outputPath
			}

			// Incremental mode: detect changed files
			var changedFiles []string
			if incremental {
				// remote 模式下自动获取远程分支作为 base
				if remote {
					remoteBranch, err := analyzer.GetRemoteTrackingBranch(projectPath)
					if err != nil {
						fmt.Printf("警告: 无法获取远程分支: %v，将使用默认 HEAD\n", err)
					} else {
						gitBase = remoteBranch
						fmt.Printf("对比远程分支: %s\n", remoteBranch)
					}
				}

				fmt.Println("检测 git 变更...")
				changes, err := analyzer.GetGitChanges(projectPath, gitBase)
				if err != nil {
					fmt.Printf("警告: 无法获取 git 变更，将执行全量分析: %v\n", err)
					incremental = false
				} else if !changes.HasChanges() {
					fmt.Println("没有检测到 PHP 文件变更，跳过分析")
					return nil
				} else {
					fmt.Printf("检测到 %d 个变更文件:\n", len(changes.ChangedFiles))
					for _, f := range changes.ChangedFiles {
						fmt.Printf("  - %s\n", f)
					}
					changedFiles = changes.ChangedFiles
				}
			}

			a, err := analyzer.New(analyzer.WithWorkers(workers))
			if err != nil {
				return fmt.Errorf("创建分析器失败: %w", err)
			}

			// Open database
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			var report *analyzer.Report
			if incremental && len(changedFiles) > 0 {
				// Deleted files drop out of the re-analysis set on their own;
				// their stored classes and edges are removed below.
				existing := make([]string, 0, len(changedFiles))
				for _, f := range changedFiles {
					if _, statErr := os.Stat(filepath.Join(projectPath, f)); statErr == nil {
						existing = append(existing, f)
					}
				}

				report, err = a.AnalyzeFiles(projectPath, existing)
				if err != nil {
					return fmt.Errorf("分析失败: %w", err)
				}

				fmt.Printf("增量模式：删除 %d 个变更文件的旧数据...\n", len(changedFiles))
				deletedEdges, err := db.DeleteEdgesByFile(changedFiles)
				if err != nil {
					fmt.Printf("警告：删除旧数据失败: %v，将执行全量重建\n", err)
					if err := db.Clear(); err != nil {
						return fmt.Errorf("清空数据库失败: %w", err)
					}
					report, err = a.AnalyzeProject(projectPath)
					if err != nil {
						return fmt.Errorf("分析失败: %w", err)
					}
				} else {
					deletedClasses, err := db.DeleteClassesByFile(changedFiles)
					if err != nil {
						fmt.Printf("警告：删除旧类失败: %v\n", err)
					}
					if err := db.DeleteFileHashes(changedFiles); err != nil {
						fmt.Printf("警告：删除文件哈希失败: %v\n", err)
					}
					fmt.Printf("已删除 %d 个旧类, %d 条旧边\n", deletedClasses, deletedEdges)
				}
			} else {
				report, err = a.AnalyzeProject(projectPath)
				if err != nil {
					return fmt.Errorf("分析失败: %w", err)
				}

				if err := db.Clear(); err != nil {
					return fmt.Errorf("清空数据库失败: %w", err)
				}
			}

			classCount, edgeCount, err := analyzer.SaveReport(db, report)
			if err != nil {
				return fmt.Errorf("写入数据库失败: %w", err)
			}

			if incremental {
				orphanCount, _ := db.DeleteOrphanClasses()
				if orphanCount > 0 {
					fmt.Printf("清理 %d 个孤立的外部类\n", orphanCount)
				}
			}

			fmt.Printf("写入数据库: %s\n", DbPath)
			fmt.Printf("完成! 已分析 %d 个文件, %d 个类声明\n", len(report.Files), len(report.Declarations))
			fmt.Printf("数据库总计: %d 类, %d 依赖边\n", classCount, edgeCount)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "输出数据库路径")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "增量分析模式 (只分析 git 变更)")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准 (默认 HEAD，即未提交的变更)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "与远程同分支对比 (origin/<当前分支>)")
	cmd.Flags().IntVar(&workers, "workers", 0, "并行解析的 worker 数量 (0=CPU 核数)")

	return cmd
}
