package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/analyzer"
	"github.com/zheng/phpdep/internal/export"
	"github.com/zheng/phpdep/internal/storage"
)

func exportCmd() *cobra.Command {
	var outputFile string
	var format string
	var incremental bool
	var gitBase string
	var noMermaid bool
	var projectName string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出依赖图文档",
		Long:  "导出完整的类依赖图谱，支持 Markdown（含 Mermaid 图）、Graphviz DOT 和 JSON 格式",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			exporter := export.NewExporter(db)
			opts := export.DefaultExportOptions()
			opts.Format = format
			opts.IncludeMermaid = !noMermaid
			if projectName != "" {
				opts.ProjectName = projectName
			}

			var w *os.File
			if outputFile == "" || outputFile == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("创建输出文件失败: %w", err)
				}
				defer w.Close()
			}

			if incremental {
				cwd, _ := os.Getwd()
				changes, err := analyzer.GetGitChanges(cwd, gitBase)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}

				if !changes.HasChanges() {
					fmt.Fprintln(os.Stderr, "没有检测到变更")
					return nil
				}

				fmt.Fprintf(os.Stderr, "检测到 %d 个变更文件\n", len(changes.ChangedFiles))
				return exporter.ExportIncremental(w, changes.ChangedFiles)
			}

			return exporter.Export(w, opts)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出文件路径 (默认输出到 stdout)")
	cmd.Flags().StringVar(&format, "format", "markdown", "输出格式 (markdown/dot/json)")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "增量导出 (只输出 git 变更部分)")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "不生成 Mermaid 图表")
	cmd.Flags().StringVar(&projectName, "name", "", "文档中显示的项目名称")

	return cmd
}
