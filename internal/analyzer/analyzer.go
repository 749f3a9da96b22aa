// Package analyzer orchestrates project analysis: it discovers PHP source
// files, parses them concurrently, drives the dependency extraction visitor
// over the parsed trees and persists the resulting graph.
package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/zheng/phpdep/internal/ast"
	"github.com/zheng/phpdep/internal/graph"
	"github.com/zheng/phpdep/internal/parser"
	"github.com/zheng/phpdep/internal/storage"
)

// parseCacheSize bounds the per-analyzer parse cache, keyed by file path.
const parseCacheSize = 1024

// Declaration is a class-like declaration found in the project
type Declaration struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// FileEdge is an extracted dependency edge together with the file it was
// discovered in.
type FileEdge struct {
	Edge graph.Edge
	File string
}

// Report is the result of analyzing a set of files
type Report struct {
	Root         string
	Files        []string          // analyzed files, relative to Root, sorted
	Hashes       map[string]string // content hash per file
	Declarations []Declaration
	Edges        []FileEdge
	Dependencies graph.Set // the visitor's permanent set
}

type cachedParse struct {
	hash  uint64
	nodes []ast.Node
}

// Analyzer parses and extracts dependencies from PHP projects. The parse
// cache makes repeated runs over a mostly-unchanged tree cheap, which is
// what watch mode relies on.
type Analyzer struct {
	workers int
	cache   *lru.Cache[string, cachedParse]
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithWorkers sets the number of concurrent parser goroutines
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// New creates an Analyzer
func New(opts ...Option) (*Analyzer, error) {
	cache, err := lru.New[string, cachedParse](parseCacheSize)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		workers: runtime.NumCPU(),
		cache:   cache,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// FindSourceFiles walks root collecting .php files, skipping hidden
// directories and common non-source directories.
func FindSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "cache" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".php") {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// AnalyzeProject discovers and analyzes every PHP file under root
func (a *Analyzer) AnalyzeProject(root string) (*Report, error) {
	files, err := FindSourceFiles(root)
	if err != nil {
		return nil, fmt.Errorf("扫描源文件失败: %w", err)
	}
	return a.AnalyzeFiles(root, files)
}

// AnalyzeFiles analyzes the given files (relative to root). Files are
// parsed concurrently, one parser per worker; extraction then runs a
// single visitor serially over the parsed trees in sorted file order, so
// every file's edges land in the permanent set in deterministic order.
func (a *Analyzer) AnalyzeFiles(root string, files []string) (*Report, error) {
	files = append([]string(nil), files...)
	sort.Strings(files)

	parsed := make([]cachedParse, len(files))
	parseErrs := make([]error, len(files))

	workers := a.workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int, len(files))
	for i := range files {
		indexes <- i
	}
	close(indexes)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			p, err := parser.New()
			if err != nil {
				return err
			}
			defer p.Close()
			for i := range indexes {
				parsed[i], parseErrs[i] = a.parseOne(p, filepath.Join(root, files[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("解析失败: %w", err)
	}

	report := &Report{
		Root:   root,
		Files:  files,
		Hashes: make(map[string]string, len(files)),
	}

	v := graph.NewVisitor()
	for i, file := range files {
		if parseErrs[i] != nil {
			// Unreadable files are skipped, matching the best-effort
			// extraction contract.
			continue
		}
		report.Hashes[file] = strconv.FormatUint(parsed[i].hash, 16)
		report.Declarations = append(report.Declarations, collectDeclarations(parsed[i].nodes, file)...)

		before := v.Dependencies().Len()
		ast.Traverse(v, parsed[i].nodes)
		for _, e := range v.Dependencies().Edges()[before:] {
			report.Edges = append(report.Edges, FileEdge{Edge: e, File: file})
		}
	}
	report.Dependencies = v.Dependencies()

	return report, nil
}

// parseOne parses a single file, reusing the cached tree when the content
// hash is unchanged.
func (a *Analyzer) parseOne(p *parser.Parser, path string) (cachedParse, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cachedParse{}, err
	}
	hash := xxh3.Hash(src)

	if cached, ok := a.cache.Get(path); ok && cached.hash == hash {
		return cached, nil
	}

	nodes, err := p.Parse(src)
	if err != nil {
		return cachedParse{}, err
	}
	result := cachedParse{hash: hash, nodes: nodes}
	a.cache.Add(path, result)
	return result, nil
}

// collectDeclarations gathers named class-like declarations, including
// nested ones, in source order.
func collectDeclarations(nodes []ast.Node, file string) []Declaration {
	var decls []Declaration
	ast.Inspect(nodes, func(n ast.Node) bool {
		if d, ok := n.(*ast.ClassDecl); ok && d.Name != nil {
			decls = append(decls, Declaration{
				Name: d.Name.String(),
				Kind: string(d.Kind),
				File: file,
				Line: d.Line,
			})
		}
		return true
	})
	return decls
}

// SaveReport persists a report: declared classes, external stubs for
// referenced-but-undeclared classes, edges and file hashes.
// Returns the number of stored classes and edges.
func SaveReport(db *storage.DB, report *Report) (classCount, edgeCount int64, err error) {
	ids := make(map[string]int64, len(report.Declarations))
	for _, d := range report.Declarations {
		id, err := db.EnsureClass(d.Name, d.Kind, d.File, d.Line, false)
		if err != nil {
			return 0, 0, fmt.Errorf("写入类 %s 失败: %w", d.Name, err)
		}
		ids[d.Name] = id
	}

	// Edge endpoints not declared in this report get an external stub;
	// the DO NOTHING upsert leaves any stored declaration untouched.
	classID := func(name string) (int64, error) {
		if id, ok := ids[name]; ok {
			return id, nil
		}
		id, err := db.EnsureClass(name, "", "", 0, true)
		if err != nil {
			return 0, err
		}
		ids[name] = id
		return id, nil
	}

	for _, fe := range report.Edges {
		fromID, err := classID(fe.Edge.From.String())
		if err != nil {
			return 0, 0, fmt.Errorf("写入类 %s 失败: %w", fe.Edge.From, err)
		}
		toID, err := classID(fe.Edge.To.String())
		if err != nil {
			return 0, 0, fmt.Errorf("写入类 %s 失败: %w", fe.Edge.To, err)
		}
		if err := db.InsertEdge(fromID, toID, string(fe.Edge.Kind), fe.File); err != nil {
			return 0, 0, fmt.Errorf("写入依赖边失败: %w", err)
		}
	}

	for file, hash := range report.Hashes {
		if err := db.SetFileHash(file, hash); err != nil {
			return 0, 0, fmt.Errorf("写入文件哈希失败: %w", err)
		}
	}

	stats, err := db.GetStats()
	if err != nil {
		return 0, 0, err
	}
	return stats.ClassCount, stats.EdgeCount, nil
}
