package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/cmd"
)

func main() {
	// .env 中可以放 NEO4J_URI 等连接参数
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "phpdep",
		Short: "PHP 类依赖图分析工具",
		Long: `phpdep 是一个 PHP 代码静态分析工具，用于构建类依赖图谱，
帮助追踪类变更的影响范围，减少 AI 编码时的漏改问题。`,
	}

	defaultDb := ".phpdep.db"
	if env := os.Getenv("PHPDEP_DB"); env != "" {
		defaultDb = env
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cmd.DbPath, "db", "d", defaultDb, "数据库文件路径")

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
