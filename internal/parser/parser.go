// Package parser turns PHP source into the syntax subset the extractor
// consumes, using the tree-sitter PHP grammar.
package parser

import (
	"fmt"
	"os"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/zheng/phpdep/internal/ast"
)

// Parser wraps a tree-sitter parser configured for PHP. Instances are not
// safe for concurrent use; hold one per goroutine.
type Parser struct {
	inner *tree_sitter.Parser
}

// New creates a PHP parser.
func New() (*Parser, error) {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to load PHP grammar: %w", err)
	}
	return &Parser{inner: p}, nil
}

// Close releases the underlying parser.
func (p *Parser) Close() {
	if p.inner != nil {
		p.inner.Close()
		p.inner = nil
	}
}

// Parse converts PHP source into extraction nodes.
func (p *Parser) Parse(src []byte) ([]ast.Node, error) {
	tree := p.inner.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse source")
	}
	defer tree.Close()

	c := &converter{src: src}
	return c.block(tree.RootNode()), nil
}

// ParseFile reads and parses one PHP file.
func (p *Parser) ParseFile(path string) ([]ast.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	nodes, err := p.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nodes, nil
}
