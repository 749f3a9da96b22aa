package storage

import (
	"database/sql"
	"strings"
)

// Class is a stored class row. External classes are referenced by some edge
// but never declared in the analyzed project, so file and line are empty.
type Class struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	External bool   `json:"external"`
}

// Edge is a stored dependency edge row.
type Edge struct {
	ID     int64  `json:"id"`
	FromID int64  `json:"from_id"`
	ToID   int64  `json:"to_id"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
}

// NamedEdge is an edge joined with both class names, for export and loaders.
type NamedEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
	File string `json:"file"`
}

const classColumns = `id, name, kind, file, line, external`

// EnsureClass upserts a class and returns its ID.
// A declaration (external=false) always wins over a previously stored
// external stub; an external reference never overwrites declaration info.
func (db *DB) EnsureClass(name, kind, file string, line int, external bool) (int64, error) {
	var err error
	if external {
		_, err = db.conn.Exec(
			`INSERT INTO classes (name, kind, external) VALUES (?, 'class', 1)
			 ON CONFLICT(name) DO NOTHING`,
			name,
		)
	} else {
		_, err = db.conn.Exec(
			`INSERT INTO classes (name, kind, file, line, external) VALUES (?, ?, ?, ?, 0)
			 ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, file = excluded.file,
			     line = excluded.line, external = 0`,
			name, kind, file, line,
		)
	}
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.conn.QueryRow(`SELECT id FROM classes WHERE name = ?`, name).Scan(&id)
	return id, err
}

// InsertEdge inserts a dependency edge. Duplicate (from, to, kind, file)
// rows are ignored: the extraction core keeps its multiset semantics, the
// database dedups for query purposes.
func (db *DB) InsertEdge(fromID, toID int64, kind, file string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO edges (from_id, to_id, kind, file) VALUES (?, ?, ?, ?)`,
		fromID, toID, kind, file,
	)
	return err
}

// GetClassByName returns a class by its fully qualified name
func (db *DB) GetClassByName(name string) (*Class, error) {
	row := db.conn.QueryRow(
		`SELECT `+classColumns+` FROM classes WHERE name = ?`,
		name,
	)
	return scanClass(row)
}

// GetClassByID returns a class by its ID
func (db *DB) GetClassByID(id int64) (*Class, error) {
	row := db.conn.QueryRow(
		`SELECT `+classColumns+` FROM classes WHERE id = ?`,
		id,
	)
	return scanClass(row)
}

// FindClassesByPattern returns classes matching a name pattern (using LIKE)
// Results are sorted by match quality: exact name > exact short name > ends with pattern > contains pattern
func (db *DB) FindClassesByPattern(pattern string) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT `+classColumns+` FROM classes
		 WHERE name LIKE ?
		 ORDER BY
			CASE
				-- Exact full name
				WHEN name = ? THEN 0
				-- Exact match on the last segment: name ends with "\pattern"
				WHEN name LIKE '%\' || ? THEN 1
				-- Name ends with the pattern
				WHEN name LIKE '%' || ? THEN 2
				-- Contains pattern
				ELSE 3
			END,
			length(name) ASC`,
		"%"+pattern+"%", pattern, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetAllClasses returns every stored class, declared classes first
func (db *DB) GetAllClasses() ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT ` + classColumns + ` FROM classes ORDER BY external ASC, name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetClassesByKind returns classes of one declaration kind (class/interface/trait)
func (db *DB) GetClassesByKind(kind string) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT `+classColumns+` FROM classes WHERE kind = ? AND external = 0 ORDER BY name ASC`,
		kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetDirectDependencies returns classes the given class directly depends on
func (db *DB) GetDirectDependencies(classID int64) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT c.id, c.name, c.kind, c.file, c.line, c.external
		 FROM classes c
		 JOIN edges e ON e.to_id = c.id
		 WHERE e.from_id = ?
		 ORDER BY c.name`,
		classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetDirectDependents returns classes that directly depend on the given class
func (db *DB) GetDirectDependents(classID int64) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT c.id, c.name, c.kind, c.file, c.line, c.external
		 FROM classes c
		 JOIN edges e ON e.from_id = c.id
		 WHERE e.to_id = ?
		 ORDER BY c.name`,
		classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetTransitiveDependencies returns all downstream dependencies recursively up to maxDepth
// If maxDepth is 0, it returns all dependencies with no depth limit
func (db *DB) GetTransitiveDependencies(classID int64, maxDepth int) ([]*Class, error) {
	var query string
	var args []interface{}

	if maxDepth == 0 {
		// No depth limit requested; still capped at 50 so dependency cycles terminate
		query = `
		WITH RECURSIVE deps(id, name, kind, file, line, external, depth) AS (
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, 1
			FROM classes c
			JOIN edges e ON e.to_id = c.id
			WHERE e.from_id = ?
			UNION
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, d.depth + 1
			FROM classes c
			JOIN edges e ON e.to_id = c.id
			JOIN deps d ON e.from_id = d.id
			WHERE d.depth < 50
		)
		SELECT DISTINCT id, name, kind, file, line, external FROM deps`
		args = []interface{}{classID}
	} else {
		// With depth limit
		query = `
		WITH RECURSIVE deps(id, name, kind, file, line, external, depth) AS (
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, 1
			FROM classes c
			JOIN edges e ON e.to_id = c.id
			WHERE e.from_id = ?
			UNION
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, d.depth + 1
			FROM classes c
			JOIN edges e ON e.to_id = c.id
			JOIN deps d ON e.from_id = d.id
			WHERE d.depth < ?
		)
		SELECT DISTINCT id, name, kind, file, line, external FROM deps`
		args = []interface{}{classID, maxDepth}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetTransitiveDependents returns all upstream dependents recursively up to maxDepth
// If maxDepth is 0, it returns all dependents with no depth limit
func (db *DB) GetTransitiveDependents(classID int64, maxDepth int) ([]*Class, error) {
	var query string
	var args []interface{}

	if maxDepth == 0 {
		query = `
		WITH RECURSIVE dependents(id, name, kind, file, line, external, depth) AS (
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, 1
			FROM classes c
			JOIN edges e ON e.from_id = c.id
			WHERE e.to_id = ?
			UNION
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, d.depth + 1
			FROM classes c
			JOIN edges e ON e.from_id = c.id
			JOIN dependents d ON e.to_id = d.id
			WHERE d.depth < 50
		)
		SELECT DISTINCT id, name, kind, file, line, external FROM dependents`
		args = []interface{}{classID}
	} else {
		query = `
		WITH RECURSIVE dependents(id, name, kind, file, line, external, depth) AS (
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, 1
			FROM classes c
			JOIN edges e ON e.from_id = c.id
			WHERE e.to_id = ?
			UNION
			SELECT c.id, c.name, c.kind, c.file, c.line, c.external, d.depth + 1
			FROM classes c
			JOIN edges e ON e.from_id = c.id
			JOIN dependents d ON e.to_id = d.id
			WHERE d.depth < ?
		)
		SELECT DISTINCT id, name, kind, file, line, external FROM dependents`
		args = []interface{}{classID, maxDepth}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetEdgesForClass returns all edges where the class is the source
func (db *DB) GetEdgesForClass(classID int64) ([]*Edge, error) {
	rows, err := db.conn.Query(
		`SELECT id, from_id, to_id, kind, file FROM edges WHERE from_id = ?`,
		classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetAllEdges returns all edges in the database
func (db *DB) GetAllEdges() ([]*Edge, error) {
	rows, err := db.conn.Query(
		`SELECT id, from_id, to_id, kind, file FROM edges`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetAllNamedEdges returns every edge joined with its class names
func (db *DB) GetAllNamedEdges() ([]*NamedEdge, error) {
	rows, err := db.conn.Query(
		`SELECT f.name, t.name, e.kind, e.file
		 FROM edges e
		 JOIN classes f ON f.id = e.from_id
		 JOIN classes t ON t.id = e.to_id
		 ORDER BY f.name, t.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*NamedEdge
	for rows.Next() {
		var e NamedEdge
		if err := rows.Scan(&e.From, &e.To, &e.Kind, &e.File); err != nil {
			return nil, err
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// HasCycle reports whether two classes depend on each other, directly or
// transitively. The probe is bounded to avoid runaway traversal.
func (db *DB) HasCycle(aID, bID int64) (bool, error) {
	reaches := func(from, to int64) (bool, error) {
		var found int
		err := db.conn.QueryRow(`
			WITH RECURSIVE reach(id, depth) AS (
				SELECT to_id, 1 FROM edges WHERE from_id = ?
				UNION
				SELECT e.to_id, r.depth + 1
				FROM edges e
				JOIN reach r ON e.from_id = r.id
				WHERE r.depth < 50
			)
			SELECT COUNT(*) FROM reach WHERE id = ?
		`, from, to).Scan(&found)
		return found > 0, err
	}

	ab, err := reaches(aID, bID)
	if err != nil || !ab {
		return false, err
	}
	return reaches(bID, aID)
}

// DeleteEdgesByFile deletes all edges discovered in the specified files
// Returns the number of deleted edges
func (db *DB) DeleteEdgesByFile(files []string) (int64, error) {
	if len(files) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(files))
	args := make([]interface{}, len(files))
	for i, f := range files {
		placeholders[i] = "?"
		args[i] = f
	}

	result, err := db.conn.Exec(
		`DELETE FROM edges WHERE file IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteClassesByFile deletes classes declared in the specified files
// Returns the number of deleted classes
func (db *DB) DeleteClassesByFile(files []string) (int64, error) {
	if len(files) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(files))
	args := make([]interface{}, len(files))
	for i, f := range files {
		placeholders[i] = "?"
		args[i] = f
	}

	result, err := db.conn.Exec(
		`DELETE FROM classes WHERE external = 0 AND file IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteOrphanClasses deletes external classes no edge references anymore
func (db *DB) DeleteOrphanClasses() (int64, error) {
	result, err := db.conn.Exec(`
		DELETE FROM classes
		WHERE external = 1
		  AND id NOT IN (SELECT to_id FROM edges)
		  AND id NOT IN (SELECT from_id FROM edges)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ==================== File Hash Queries ====================

// GetFileHash returns the stored content hash for a file, or "" when unknown
func (db *DB) GetFileHash(path string) (string, error) {
	var hash string
	err := db.conn.QueryRow(`SELECT hash FROM file_hashes WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetFileHash records the content hash for a file
func (db *DB) SetFileHash(path, hash string) error {
	_, err := db.conn.Exec(
		`INSERT INTO file_hashes (path, hash, analyzed_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, analyzed_at = excluded.analyzed_at`,
		path, hash,
	)
	return err
}

// DeleteFileHashes removes the stored hashes for the specified files
func (db *DB) DeleteFileHashes(files []string) error {
	if len(files) == 0 {
		return nil
	}
	placeholders := make([]string, len(files))
	args := make([]interface{}, len(files))
	for i, f := range files {
		placeholders[i] = "?"
		args[i] = f
	}
	_, err := db.conn.Exec(
		`DELETE FROM file_hashes WHERE path IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	return err
}

// ==================== Stats and Coupling Queries ====================

// Stats summarizes the stored graph
type Stats struct {
	ClassCount    int64            `json:"classCount"`
	ExternalCount int64            `json:"externalCount"`
	EdgeCount     int64            `json:"edgeCount"`
	EdgesByKind   map[string]int64 `json:"edgesByKind"`
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{EdgesByKind: make(map[string]int64)}

	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM classes`).Scan(&s.ClassCount); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM classes WHERE external = 1`).Scan(&s.ExternalCount); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&s.EdgeCount); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`SELECT kind, COUNT(*) FROM edges GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		s.EdgesByKind[kind] = count
	}
	return s, rows.Err()
}

// Coupling holds the fan-in / fan-out counts of one class
type Coupling struct {
	Class *Class
	Ca    int // afferent coupling: distinct classes depending on this one
	Ce    int // efferent coupling: distinct classes this one depends on
}

// GetCouplingCounts returns fan-in and fan-out per class, most depended-upon first
func (db *DB) GetCouplingCounts() ([]*Coupling, error) {
	rows, err := db.conn.Query(`
		SELECT c.id, c.name, c.kind, c.file, c.line, c.external,
		       (SELECT COUNT(DISTINCT e.from_id) FROM edges e WHERE e.to_id = c.id) AS ca,
		       (SELECT COUNT(DISTINCT e.to_id) FROM edges e WHERE e.from_id = c.id) AS ce
		FROM classes c
		ORDER BY ca DESC, ce DESC, c.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Coupling
	for rows.Next() {
		var c Class
		var ext int
		var coupling Coupling
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.File, &c.Line, &ext, &coupling.Ca, &coupling.Ce); err != nil {
			return nil, err
		}
		c.External = ext != 0
		coupling.Class = &c
		results = append(results, &coupling)
	}
	return results, rows.Err()
}

// ==================== Dependency Trees ====================

// DepTreeNode represents a class in the dependency tree with its children
type DepTreeNode struct {
	Class    *Class
	Children []*DepTreeNode
}

// GetDependencyTree builds a tree of downstream dependencies
func (db *DB) GetDependencyTree(classID int64, maxDepth int) ([]*DepTreeNode, error) {
	return db.buildTree(classID, maxDepth, db.GetDirectDependencies)
}

// GetDependentTree builds a tree of upstream dependents
func (db *DB) GetDependentTree(classID int64, maxDepth int) ([]*DepTreeNode, error) {
	return db.buildTree(classID, maxDepth, db.GetDirectDependents)
}

func (db *DB) buildTree(classID int64, maxDepth int, next func(int64) ([]*Class, error)) ([]*DepTreeNode, error) {
	classes, err := next(classID)
	if err != nil {
		return nil, err
	}

	if maxDepth == 1 || len(classes) == 0 {
		result := make([]*DepTreeNode, len(classes))
		for i, c := range classes {
			result[i] = &DepTreeNode{Class: c}
		}
		return result, nil
	}

	result := make([]*DepTreeNode, len(classes))
	for i, c := range classes {
		children, err := db.buildTree(c.ID, maxDepth-1, next)
		if err != nil {
			return nil, err
		}
		result[i] = &DepTreeNode{
			Class:    c,
			Children: children,
		}
	}
	return result, nil
}

// Helper functions

func scanClass(row *sql.Row) (*Class, error) {
	var c Class
	var ext int
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.File, &c.Line, &ext)
	if err != nil {
		return nil, err
	}
	c.External = ext != 0
	return &c, nil
}

func scanClasses(rows *sql.Rows) ([]*Class, error) {
	var classes []*Class
	for rows.Next() {
		var c Class
		var ext int
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.File, &c.Line, &ext); err != nil {
			return nil, err
		}
		c.External = ext != 0
		classes = append(classes, &c)
	}
	return classes, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var edges []*Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.Kind, &e.File); err != nil {
			return nil, err
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}
