package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveClassArg resolves a class name argument to a single stored class.
// Exact match wins; otherwise pattern matches are offered for selection,
// either via --select or an interactive prompt.
func resolveClassArg(db *storage.DB, name string, selectN int) (*storage.Class, error) {
	if class, err := db.GetClassByName(name); err == nil {
		return class, nil
	}

	classes, err := db.FindClassesByPattern(name)
	if err != nil {
		return nil, fmt.Errorf("搜索类失败: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("未找到类: %s", name)
	}
	if len(classes) == 1 {
		return classes[0], nil
	}

	if selectN >= 1 && selectN <= len(classes) {
		return classes[selectN-1], nil
	}

	fmt.Println("找到多个匹配的类，请选择:")
	for i, c := range classes {
		fmt.Printf("  [%d] %s\n      %s\n", i+1, c.Name, display.Location(c))
	}
	fmt.Print("\n请输入序号 [1-" + fmt.Sprint(len(classes)) + "]: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(classes) {
		return nil, fmt.Errorf("无效的选择")
	}

	return classes[choice-1], nil
}

// printDepTree prints a dependency tree to stdout
func printDepTree(tree []*storage.DepTreeNode, maxWidth int, maxDepth int) {
	fmt.Print(display.FormatDependencyTree(tree, "", maxWidth, maxDepth, 0))
}
