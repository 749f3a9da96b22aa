package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/impact"
	"github.com/zheng/phpdep/internal/storage"
)

// Server implements the MCP protocol for phpdep
type Server struct {
	db     *storage.DB
	input  io.Reader
	output io.Writer
}

// NewServer creates a new MCP server
func NewServer(db *storage.DB) *Server {
	return &Server{
		db:     db,
		input:  os.Stdin,
		output: os.Stdout,
	}
}

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP specific types
type InitializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ClientInfo `json:"clientInfo"`
}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run starts the MCP server
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	// Increase buffer size for large messages
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized":
		// Notification, no response needed
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(req)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "phpdep",
			Version: "1.0.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsList(req *Request) {
	tools := []Tool{
		{
			Name:        "analyze_impact",
			Description: "分析类变更的影响范围，返回依赖该类的上游类和该类依赖的下游类",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"class": {
						Type:        "string",
						Description: "要分析的类名（支持模糊匹配）",
					},
					"limit": {
						Type:        "number",
						Description: "每个分类最多返回的类数量，默认 50",
						Default:     50,
					},
				},
				Required: []string{"class"},
			},
		},
		{
			Name:        "find_dependents",
			Description: "查询依赖指定类的所有上游类（修改该类时需要检查这些类）",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"class": {
						Type:        "string",
						Description: "要查询的类名",
					},
					"depth": {
						Type:        "number",
						Description: "递归查询深度，0表示无限",
					},
					"limit": {
						Type:        "number",
						Description: "最多返回的类数量，默认 50",
						Default:     50,
					},
				},
				Required: []string{"class"},
			},
		},
		{
			Name:        "find_dependencies",
			Description: "查询指定类依赖的所有下游类",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"class": {
						Type:        "string",
						Description: "要查询的类名",
					},
					"depth": {
						Type:        "number",
						Description: "递归查询深度，0表示无限",
					},
					"limit": {
						Type:        "number",
						Description: "最多返回的类数量，默认 50",
						Default:     50,
					},
				},
				Required: []string{"class"},
			},
		},
		{
			Name:        "search_class",
			Description: "搜索类，支持模糊匹配",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"pattern": {
						Type:        "string",
						Description: "搜索模式（类名的一部分）",
					},
					"limit": {
						Type:        "number",
						Description: "最多返回的类数量，默认 50",
						Default:     50,
					},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "list_classes",
			Description: "列出项目中的所有类",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"limit": {
						Type:        "number",
						Description: "最多返回的类数量，默认 50",
						Default:     50,
					},
					"offset": {
						Type:        "number",
						Description: "跳过前N个类，用于分页，默认 0",
						Default:     0,
					},
				},
			},
		},
		{
			Name:        "generate_mermaid",
			Description: "生成类依赖关系的 Mermaid 流程图，可视化类的上下游依赖",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"class": {
						Type:        "string",
						Description: "要分析的类名（支持模糊匹配）",
					},
					"direction": {
						Type:        "string",
						Description: "方向：upstream（依赖者）、downstream（依赖）、both（双向）",
					},
					"depth": {
						Type:        "number",
						Description: "递归深度，默认2",
					},
				},
				Required: []string{"class"},
			},
		},
	}

	s.sendResult(req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	var result string
	var isError bool

	switch params.Name {
	case "analyze_impact":
		result, isError = s.toolImpact(params.Arguments)
	case "find_dependents":
		result, isError = s.toolDependents(params.Arguments)
	case "find_dependencies":
		result, isError = s.toolDependencies(params.Arguments)
	case "search_class":
		result, isError = s.toolSearch(params.Arguments)
	case "list_classes":
		result, isError = s.toolList(params.Arguments)
	case "generate_mermaid":
		result, isError = s.toolMermaid(params.Arguments)
	default:
		result = fmt.Sprintf("Unknown tool: %s", params.Name)
		isError = true
	}

	s.sendResult(req.ID, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: result}},
		IsError: isError,
	})
}

// resolveClass finds a single class by pattern, preferring exact matches
func (s *Server) resolveClass(name string) (*storage.Class, error) {
	if class, err := s.db.GetClassByName(name); err == nil {
		return class, nil
	}
	classes, err := s.db.FindClassesByPattern(name)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("未找到类：%s\n\n💡 提示：如果这是新添加的类，请运行以下命令更新数据库：\n```bash\nphpdep analyze -i\n```", name)
	}
	return classes[0], nil
}

func (s *Server) toolImpact(args map[string]interface{}) (string, bool) {
	className, ok := args["class"].(string)
	if !ok || className == "" {
		return "错误：需要提供类名", true
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	target, err := s.resolveClass(className)
	if err != nil {
		return err.Error(), true
	}

	analyzer := impact.NewAnalyzer(s.db)
	report, err := analyzer.Analyze(target.Name, 3, 2)
	if err != nil {
		return fmt.Sprintf("错误：%v", err), true
	}

	return formatImpactWithLimit(report, limit), false
}

func formatImpactWithLimit(report *impact.Report, limit int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## 变更影响分析: %s\n\n", report.Target.Name)
	fmt.Fprintf(&sb, "**位置:** %s\n\n", display.Location(report.Target))
	fmt.Fprintf(&sb, "**类型:** %s\n\n", report.Target.Kind)

	writeSection(&sb, "### 直接依赖者 (需检查是否需要同步修改)", report.DirectDependents, limit, "_无直接依赖者_")
	if len(report.IndirectDependents) > 0 {
		writeSection(&sb, "### 间接依赖者 (可能受影响)", report.IndirectDependents, limit, "")
	}
	writeSection(&sb, "### 下游依赖 (本类依赖的)", report.DirectDependencies, limit, "_无下游依赖_")
	if len(report.IndirectDependencies) > 0 {
		writeSection(&sb, "### 间接下游依赖", report.IndirectDependencies, limit, "")
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, title string, classes []*storage.Class, limit int, emptyText string) {
	sb.WriteString(title + "\n\n")
	if len(classes) == 0 {
		if emptyText != "" {
			sb.WriteString(emptyText + "\n\n")
		}
		return
	}
	total := len(classes)
	if len(classes) > limit {
		classes = classes[:limit]
	}
	writeClassTable(sb, classes)
	if total > limit {
		fmt.Fprintf(sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", total, limit)
	}
	sb.WriteString("\n")
}

func writeClassTable(sb *strings.Builder, classes []*storage.Class) {
	sb.WriteString("| 类 | 类型 | 位置 |\n")
	sb.WriteString("|----|------|------|\n")
	for _, c := range classes {
		fmt.Fprintf(sb, "| %s | %s | %s |\n", c.Name, c.Kind, display.Location(c))
	}
}

func (s *Server) toolDependents(args map[string]interface{}) (string, bool) {
	className, ok := args["class"].(string)
	if !ok || className == "" {
		return "错误：需要提供类名", true
	}

	depth := 0
	if d, ok := args["depth"].(float64); ok {
		depth = int(d)
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	class, err := s.resolveClass(className)
	if err != nil {
		return err.Error(), true
	}

	dependents, err := s.db.GetTransitiveDependents(class.ID, depth)
	if err != nil {
		return fmt.Sprintf("错误：%v", err), true
	}

	if len(dependents) == 0 {
		return fmt.Sprintf("类 %s 没有依赖者", class.Name), false
	}

	total := len(dependents)
	if len(dependents) > limit {
		dependents = dependents[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s 的依赖者\n\n", class.Name)
	writeClassTable(&sb, dependents)
	if total > limit {
		fmt.Fprintf(&sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", total, limit)
	}

	return sb.String(), false
}

func (s *Server) toolDependencies(args map[string]interface{}) (string, bool) {
	className, ok := args["class"].(string)
	if !ok || className == "" {
		return "错误：需要提供类名", true
	}

	depth := 0
	if d, ok := args["depth"].(float64); ok {
		depth = int(d)
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	class, err := s.resolveClass(className)
	if err != nil {
		return err.Error(), true
	}

	dependencies, err := s.db.GetTransitiveDependencies(class.ID, depth)
	if err != nil {
		return fmt.Sprintf("错误：%v", err), true
	}

	if len(dependencies) == 0 {
		return fmt.Sprintf("类 %s 没有下游依赖", class.Name), false
	}

	total := len(dependencies)
	if len(dependencies) > limit {
		dependencies = dependencies[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s 的下游依赖\n\n", class.Name)
	writeClassTable(&sb, dependencies)
	if total > limit {
		fmt.Fprintf(&sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", total, limit)
	}

	return sb.String(), false
}

func (s *Server) toolSearch(args map[string]interface{}) (string, bool) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return "错误：需要提供搜索模式", true
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	classes, err := s.db.FindClassesByPattern(pattern)
	if err != nil {
		return fmt.Sprintf("错误：%v", err), true
	}

	if len(classes) == 0 {
		return fmt.Sprintf("未找到匹配 '%s' 的类\n\n💡 提示：如果代码最近有更新，请运行以下命令更新数据库：\n```bash\nphpdep analyze -i\n```", pattern), false
	}

	total := len(classes)
	if len(classes) > limit {
		classes = classes[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 搜索结果：%s\n\n找到 %d 个匹配", pattern, total)
	if total > limit {
		fmt.Fprintf(&sb, "（显示前 %d 个）", limit)
	}
	sb.WriteString("\n\n")
	writeClassTable(&sb, classes)

	return sb.String(), false
}

func (s *Server) toolList(args map[string]interface{}) (string, bool) {
	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	offset := 0
	if o, ok := args["offset"].(float64); ok && o > 0 {
		offset = int(o)
	}

	classes, err := s.db.GetAllClasses()
	if err != nil {
		return fmt.Sprintf("错误：%v", err), true
	}

	if len(classes) == 0 {
		return "项目中没有类", false
	}

	total := len(classes)

	// Apply offset
	if offset >= total {
		return fmt.Sprintf("偏移量 %d 超出范围（共 %d 个类）", offset, total), false
	}
	if offset > 0 {
		classes = classes[offset:]
	}

	// Apply limit
	displayed := len(classes)
	if limit > 0 && limit < len(classes) {
		classes = classes[:limit]
		displayed = limit
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 类列表\n\n共 %d 个类", total)
	if offset > 0 || displayed < total-offset {
		fmt.Fprintf(&sb, "（显示 %d-%d）", offset+1, offset+displayed)
	}
	sb.WriteString("\n\n")
	writeClassTable(&sb, classes)

	return sb.String(), false
}

func (s *Server) toolMermaid(args map[string]interface{}) (string, bool) {
	className, ok := args["class"].(string)
	if !ok || className == "" {
		return "错误：需要提供类名", true
	}

	direction := "both"
	if d, ok := args["direction"].(string); ok && d != "" {
		direction = d
	}

	depth := 2
	if d, ok := args["depth"].(float64); ok && d > 0 {
		depth = int(d)
	}

	class, err := s.resolveClass(className)
	if err != nil {
		return err.Error(), true
	}

	// Build Mermaid diagram
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s 依赖图\n\n", display.ShortClassName(class.Name))
	sb.WriteString("```mermaid\nflowchart TB\n")

	// Keep track of added nodes and edges to avoid duplicates
	addedNodes := make(map[int64]bool)
	addedEdges := make(map[string]bool)

	// Style the central node
	centerID := nodeID(class.Name)
	fmt.Fprintf(&sb, "    %s[\"🎯 %s\"]\n", centerID, display.ShortClassName(class.Name))
	fmt.Fprintf(&sb, "    style %s fill:#f96,stroke:#333,stroke-width:2px\n", centerID)
	addedNodes[class.ID] = true

	// Upstream dependents
	if direction == "upstream" || direction == "both" {
		dependents, _ := s.db.GetTransitiveDependents(class.ID, depth)
		for _, dep := range dependents {
			if !addedNodes[dep.ID] {
				dID := nodeID(dep.Name)
				fmt.Fprintf(&sb, "    %s[\"%s\"]\n", dID, display.ShortClassName(dep.Name))
				fmt.Fprintf(&sb, "    style %s fill:#9cf,stroke:#333\n", dID)
				addedNodes[dep.ID] = true
			}
		}
		s.writeNeighborEdges(&sb, append(dependents, class), addedNodes, addedEdges)
	}

	// Downstream dependencies
	if direction == "downstream" || direction == "both" {
		dependencies, _ := s.db.GetTransitiveDependencies(class.ID, depth)
		for _, dep := range dependencies {
			if !addedNodes[dep.ID] {
				dID := nodeID(dep.Name)
				fmt.Fprintf(&sb, "    %s[\"%s\"]\n", dID, display.ShortClassName(dep.Name))
				fmt.Fprintf(&sb, "    style %s fill:#9f9,stroke:#333\n", dID)
				addedNodes[dep.ID] = true
			}
		}
		s.writeNeighborEdges(&sb, append(dependencies, class), addedNodes, addedEdges)
	}

	sb.WriteString("```\n\n")

	// Add legend
	sb.WriteString("**图例说明:**\n")
	sb.WriteString("- 🎯 橙色: 目标类\n")
	if direction == "upstream" || direction == "both" {
		sb.WriteString("- 蓝色: 依赖者（依赖目标类）\n")
	}
	if direction == "downstream" || direction == "both" {
		sb.WriteString("- 绿色: 下游依赖（被目标类依赖）\n")
	}

	return sb.String(), false
}

// writeNeighborEdges emits edges between classes already present in the diagram
func (s *Server) writeNeighborEdges(sb *strings.Builder, classes []*storage.Class, addedNodes map[int64]bool, addedEdges map[string]bool) {
	for _, c := range classes {
		edges, err := s.db.GetEdgesForClass(c.ID)
		if err != nil {
			continue
		}
		for _, e := range edges {
			if !addedNodes[e.FromID] || !addedNodes[e.ToID] {
				continue
			}
			edgeKey := fmt.Sprintf("%d-%s->%d", e.FromID, e.Kind, e.ToID)
			if addedEdges[edgeKey] {
				continue
			}
			addedEdges[edgeKey] = true
			from, err1 := s.db.GetClassByID(e.FromID)
			to, err2 := s.db.GetClassByID(e.ToID)
			if err1 != nil || err2 != nil {
				continue
			}
			fmt.Fprintf(sb, "    %s -->|%s| %s\n", nodeID(from.Name), e.Kind, nodeID(to.Name))
		}
	}
}

func nodeID(name string) string {
	// Create a valid Mermaid node ID
	var sb strings.Builder
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

func (s *Server) sendError(id interface{}, code int, message string) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
	s.send(resp)
}

func (s *Server) send(resp Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.output, string(data))
}
