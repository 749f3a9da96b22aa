package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/phpdep/internal/neo4j"
	"github.com/zheng/phpdep/internal/storage"
)

func pushCmd() *cobra.Command {
	var uri string
	var user string
	var password string
	var timeout int

	cmd := &cobra.Command{
		Use:   "push",
		Short: "推送依赖图到 Neo4j",
		Long: `将本地数据库中的类依赖图推送到 Neo4j，便于用 Cypher 做复杂的图查询。

连接参数也可以通过环境变量设置：
  NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD

示例：
  phpdep push --uri bolt://localhost:7687 --user neo4j --password secret
  MATCH (a:Class)-[:DEPENDS_ON*1..3]->(b:Class {name: 'App\\Db'}) RETURN a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env := os.Getenv("NEO4J_URI"); uri == "" && env != "" {
				uri = env
			}
			if env := os.Getenv("NEO4J_USER"); user == "" && env != "" {
				user = env
			}
			if env := os.Getenv("NEO4J_PASSWORD"); password == "" && env != "" {
				password = env
			}
			if uri == "" {
				uri = "bolt://localhost:7687"
			}
			if user == "" {
				user = "neo4j"
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			fmt.Printf("连接 Neo4j: %s\n", uri)
			loader, err := neo4j.Connect(ctx, uri, user, password)
			if err != nil {
				return err
			}
			defer loader.Close(ctx)

			start := time.Now()
			classCount, edgeCount, err := loader.Push(ctx, db)
			if err != nil {
				return err
			}

			fmt.Printf("✅ 推送完成: %d 类, %d 依赖边 (耗时 %v)\n",
				classCount, edgeCount, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Neo4j 连接地址 (默认 bolt://localhost:7687)")
	cmd.Flags().StringVar(&user, "user", "", "Neo4j 用户名 (默认 neo4j)")
	cmd.Flags().StringVar(&password, "password", "", "Neo4j 密码")
	cmd.Flags().IntVar(&timeout, "timeout", 120, "超时时间（秒）")

	return cmd
}
