package schema

import (
	"context"
	"fmt"
	"sync"

	"genbiapi/pkg/logger"
)

// ColumnDef describes one column of a table.
type ColumnDef struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// FKEdge describes one outgoing foreign-key reference.
type FKEdge struct {
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// TableInfo holds the columns and foreign keys of one table.
type TableInfo struct {
	Name        string      `json:"name"`
	Columns     []ColumnDef `json:"columns"`
	ForeignKeys []FKEdge    `json:"foreign_keys"`
}

// Graph is the full schema of the target database, keyed by table name.
// A Graph is built wholesale and never mutated afterwards, so concurrent
// readers need no locking.
type Graph struct {
	Database string                `json:"database,omitempty"`
	Tables   map[string]*TableInfo `json:"tables"`
}

// Table returns the table info for name, or nil when unknown.
func (g *Graph) Table(name string) *TableInfo {
	if g == nil {
		return nil
	}
	return g.Tables[name]
}

// TableNames returns all table names in the graph.
func (g *Graph) TableNames() []string {
	names := make([]string, 0, len(g.Tables))
	for name := range g.Tables {
		names = append(names, name)
	}
	return names
}

// ReferencingTables returns the names of tables holding a foreign key that
// points at the given table.
func (g *Graph) ReferencingTables(table string) []string {
	var refs []string
	for name, info := range g.Tables {
		for _, fk := range info.ForeignKeys {
			if fk.ToTable == table {
				refs = append(refs, name)
				break
			}
		}
	}
	return refs
}

// Introspector builds a Graph from a live database.
// Implemented by the information_schema introspector; tests substitute fakes.
type Introspector interface {
	IntrospectSchema(ctx context.Context) (*Graph, error)
}

// Provider caches the target database schema graph. The cached graph is
// replaced wholesale on rebuild so readers never observe a partial update.
type Provider struct {
	mu           sync.RWMutex
	graph        *Graph
	introspector Introspector
}

// NewProvider creates a schema provider backed by the given introspector.
func NewProvider(introspector Introspector) *Provider {
	return &Provider{introspector: introspector}
}

// GetSchema returns the cached schema graph, building it on first use.
func (p *Provider) GetSchema(ctx context.Context) (*Graph, error) {
	p.mu.RLock()
	g := p.graph
	p.mu.RUnlock()
	if g != nil {
		return g, nil
	}
	return p.Rebuild(ctx)
}

// Rebuild re-introspects the target database and swaps in the fresh graph.
func (p *Provider) Rebuild(ctx context.Context) (*Graph, error) {
	g, err := p.introspector.IntrospectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema introspection failed: %w", err)
	}

	p.mu.Lock()
	p.graph = g
	p.mu.Unlock()

	logger.Infof("Schema graph rebuilt with %d tables", len(g.Tables))
	return g, nil
}

// Invalidate drops the cached graph so the next GetSchema re-introspects.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.graph = nil
	p.mu.Unlock()
}
