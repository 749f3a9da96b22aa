package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"

	"github.com/zheng/phpdep/internal/display"
	"github.com/zheng/phpdep/internal/storage"
)

//go:embed static/*
var staticFS embed.FS

// Server is the web server for visualizing the dependency graph
type Server struct {
	db   *storage.DB
	port int
}

// NewServer creates a new web server
func NewServer(db *storage.DB, port int) *Server {
	return &Server{db: db, port: port}
}

// API response types
type GraphData struct {
	Nodes []NodeData `json:"nodes"`
	Edges []EdgeData `json:"edges"`
}

type NodeData struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	FullName  string `json:"fullName"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	External  bool   `json:"external"`
}

type EdgeData struct {
	From int64  `json:"from"`
	To   int64  `json:"to"`
	Kind string `json:"kind"`
	File string `json:"file"`
}

type StatsData struct {
	ClassCount    int64            `json:"classCount"`
	ExternalCount int64            `json:"externalCount"`
	EdgeCount     int64            `json:"edgeCount"`
	EdgesByKind   map[string]int64 `json:"edgesByKind"`
}

// Run starts the web server
func (s *Server) Run() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/classes", s.handleClasses)
	mux.HandleFunc("/api/class", s.handleClass)
	mux.HandleFunc("/api/stats", s.handleStats)

	// Static files
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to get static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticContent)))

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("🌐 Web UI 启动: http://localhost%s", addr)
	return http.ListenAndServe(addr, mux)
}

// handleGraph returns the complete graph data
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	classes, err := s.db.GetAllClasses()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	edges, err := s.db.GetAllEdges()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := GraphData{
		Nodes: make([]NodeData, 0, len(classes)),
		Edges: make([]EdgeData, 0, len(edges)),
	}

	for _, c := range classes {
		data.Nodes = append(data.Nodes, classToData(c))
	}

	for _, edge := range edges {
		data.Edges = append(data.Edges, EdgeData{
			From: edge.FromID,
			To:   edge.ToID,
			Kind: edge.Kind,
			File: edge.File,
		})
	}

	writeJSON(w, data)
}

// handleClasses returns all classes, optionally filtered by pattern
func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	var classes []*storage.Class
	var err error

	if pattern := r.URL.Query().Get("q"); pattern != "" {
		classes, err = s.db.FindClassesByPattern(pattern)
	} else {
		classes, err = s.db.GetAllClasses()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, classesToData(classes))
}

// handleClass returns a single class with its direct neighbors
func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", http.StatusBadRequest)
		return
	}

	class, err := s.db.GetClassByName(name)
	if err != nil {
		http.Error(w, "class not found", http.StatusNotFound)
		return
	}

	depth := 1
	if d := r.URL.Query().Get("depth"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil {
			depth = parsed
		}
	}

	var dependents, dependencies []*storage.Class
	if depth <= 1 {
		dependents, _ = s.db.GetDirectDependents(class.ID)
		dependencies, _ = s.db.GetDirectDependencies(class.ID)
	} else {
		dependents, _ = s.db.GetTransitiveDependents(class.ID, depth)
		dependencies, _ = s.db.GetTransitiveDependencies(class.ID, depth)
	}

	result := map[string]interface{}{
		"class":        classToData(class),
		"dependents":   classesToData(dependents),
		"dependencies": classesToData(dependencies),
	}

	writeJSON(w, result)
}

// handleStats returns database statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, StatsData{
		ClassCount:    stats.ClassCount,
		ExternalCount: stats.ExternalCount,
		EdgeCount:     stats.EdgeCount,
		EdgesByKind:   stats.EdgesByKind,
	})
}

// Helper functions
func classToData(c *storage.Class) NodeData {
	return NodeData{
		ID:        c.ID,
		Label:     display.ShortClassName(c.Name),
		FullName:  c.Name,
		Namespace: display.ShortNamespace(c.Name),
		Kind:      c.Kind,
		File:      c.File,
		Line:      c.Line,
		External:  c.External,
	}
}

func classesToData(classes []*storage.Class) []NodeData {
	result := make([]NodeData, 0, len(classes))
	for _, c := range classes {
		result = append(result, classToData(c))
	}
	return result
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}
