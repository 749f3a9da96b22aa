package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/metrics"
	"github.com/zheng/phpdep/internal/storage"
)

func metricsCmd() *cobra.Command {
	var top int
	var format string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "计算类耦合度指标",
		Long: `计算每个类的耦合度指标：

  Ca (afferent coupling)  被依赖数，有多少类依赖它
  Ce (efferent coupling)  依赖数，它依赖多少类
  I  (instability)        不稳定度 Ce/(Ca+Ce)

被依赖越多的类，修改风险越高。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			report, err := metrics.Compute(db)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report.TopByCa(top))
			case "markdown":
				fmt.Print(report.FormatMarkdown(top))
			default:
				fmt.Print(report.FormatText(top))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "显示前 N 个类")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")

	return cmd
}
