package display

import (
	"fmt"
	"strings"

	"github.com/zheng/phpdep/internal/storage"
)

// ShortClassName simplifies a fully qualified class name.
// e.g., "App\Domain\User\UserRepository" -> "UserRepository"
func ShortClassName(fullName string) string {
	if idx := strings.LastIndex(fullName, `\`); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

// ShortNamespace returns the namespace part of a fully qualified name.
// e.g., "App\Domain\User\UserRepository" -> "App\Domain\User"
func ShortNamespace(fullName string) string {
	if idx := strings.LastIndex(fullName, `\`); idx >= 0 {
		return fullName[:idx]
	}
	return ""
}

// Location formats a class's declaration site, or marks it external.
func Location(c *storage.Class) string {
	if c.External {
		return "(外部)"
	}
	return fmt.Sprintf("%s:%d", c.File, c.Line)
}

// CalcTreeMaxWidth calculates the maximum class name width and depth for alignment in the dependency tree.
func CalcTreeMaxWidth(tree []*storage.DepTreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(ShortClassName(node.Class.Name))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatDependencyTree renders a dependency tree as a string with ASCII art box-drawing characters.
func FormatDependencyTree(tree []*storage.DepTreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		className := ShortClassName(node.Class.Name)
		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, className, Location(node.Class)))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatDependencyTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}
