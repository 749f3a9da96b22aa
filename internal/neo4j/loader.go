// Package neo4j pushes the stored class dependency graph into a Neo4j
// database using batch UNWIND queries.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zheng/phpdep/internal/storage"
)

const batchSize = 1000

// Loader loads classes and dependency edges into Neo4j
type Loader struct {
	driver neo4j.DriverWithContext
}

// Connect creates a loader and verifies connectivity
func Connect(ctx context.Context, uri, user, password string) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("创建 neo4j 驱动失败: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("连接 neo4j 失败: %w", err)
	}
	return &Loader{driver: driver}, nil
}

// Close releases the underlying driver resources
func (l *Loader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

func (l *Loader) runCypher(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, l.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// Clean removes all previously loaded class nodes and relationships
func (l *Loader) Clean(ctx context.Context) error {
	return l.runCypher(ctx, "MATCH (n:Class) DETACH DELETE n", nil)
}

// EnsureSchema creates the uniqueness constraint on class names
func (l *Loader) EnsureSchema(ctx context.Context) error {
	return l.runCypher(ctx,
		"CREATE CONSTRAINT class_name IF NOT EXISTS FOR (n:Class) REQUIRE n.name IS UNIQUE", nil)
}

// LoadClasses upserts Class nodes in batches
func (l *Loader) LoadClasses(ctx context.Context, classes []*storage.Class) error {
	for start := 0; start < len(classes); start += batchSize {
		end := start + batchSize
		if end > len(classes) {
			end = len(classes)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, c := range classes[start:end] {
			batch = append(batch, map[string]any{
				"name":     c.Name,
				"kind":     c.Kind,
				"file":     c.File,
				"line":     c.Line,
				"external": c.External,
			})
		}
		err := l.runCypher(ctx,
			`UNWIND $batch AS row
			 MERGE (n:Class {name: row.name})
			 SET n.kind = row.kind, n.file = row.file,
			     n.line = row.line, n.external = row.external`,
			map[string]any{"batch": batch},
		)
		if err != nil {
			return fmt.Errorf("导入类节点失败: %w", err)
		}
	}
	return nil
}

// LoadEdges upserts DEPENDS_ON relationships in batches. Endpoints are
// merged so an edge never dangles even if its classes were not loaded.
func (l *Loader) LoadEdges(ctx context.Context, edges []*storage.NamedEdge) error {
	for start := 0; start < len(edges); start += batchSize {
		end := start + batchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, e := range edges[start:end] {
			batch = append(batch, map[string]any{
				"from": e.From,
				"to":   e.To,
				"kind": e.Kind,
				"file": e.File,
			})
		}
		err := l.runCypher(ctx,
			`UNWIND $batch AS row
			 MERGE (from:Class {name: row.from})
			 MERGE (to:Class {name: row.to})
			 MERGE (from)-[r:DEPENDS_ON {kind: row.kind}]->(to)
			 SET r.file = row.file`,
			map[string]any{"batch": batch},
		)
		if err != nil {
			return fmt.Errorf("导入依赖边失败: %w", err)
		}
	}
	return nil
}

// Push loads the whole graph from the local database into Neo4j
func (l *Loader) Push(ctx context.Context, db *storage.DB) (int, int, error) {
	classes, err := db.GetAllClasses()
	if err != nil {
		return 0, 0, fmt.Errorf("查询类失败: %w", err)
	}
	edges, err := db.GetAllNamedEdges()
	if err != nil {
		return 0, 0, fmt.Errorf("查询依赖边失败: %w", err)
	}

	if err := l.EnsureSchema(ctx); err != nil {
		return 0, 0, err
	}
	if err := l.Clean(ctx); err != nil {
		return 0, 0, fmt.Errorf("清理旧图失败: %w", err)
	}
	if err := l.LoadClasses(ctx, classes); err != nil {
		return 0, 0, err
	}
	if err := l.LoadEdges(ctx, edges); err != nil {
		return 0, 0, err
	}
	return len(classes), len(edges), nil
}
