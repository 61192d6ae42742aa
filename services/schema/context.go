package schema

import (
	"sort"
	"strings"

	"genbiapi/pkg/logger"
)

// Hit is one ranked schema fragment. Column is empty for table-level hits.
type Hit struct {
	Table  string  `json:"table"`
	Column string  `json:"column,omitempty"`
	Score  float64 `json:"score"`
}

// SimilarityIndex ranks schema fragments by relevance to a query string.
// Best-effort ranking, no guarantee of completeness. External vector stores
// can be plugged in behind this interface.
type SimilarityIndex interface {
	Search(query string, topK int) []Hit
}

// QueryContext is the subset of the schema graph relevant to one question:
// the similarity-seeded table set closed under a single hop of foreign-key
// traversal in both directions. Created per request and discarded after.
type QueryContext struct {
	Graph  *Graph
	Tables map[string]*TableInfo

	// Seed holds the tables that came straight from similarity hits, in
	// ranking order, before closure was applied.
	Seed []string
}

// Contains reports whether the context includes the given table.
func (qc *QueryContext) Contains(table string) bool {
	_, ok := qc.Tables[table]
	return ok
}

// TableNames returns the context's table names sorted lexically.
func (qc *QueryContext) TableNames() []string {
	names := make([]string, 0, len(qc.Tables))
	for name := range qc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serialize renders the context as prompt text, one table per block with its
// columns and foreign keys.
func (qc *QueryContext) Serialize() string {
	var b strings.Builder
	for _, name := range qc.TableNames() {
		info := qc.Tables[name]
		b.WriteString("Table: " + name + "\n")
		for _, col := range info.Columns {
			b.WriteString("  - " + col.Name + " (" + col.DataType)
			if !col.Nullable {
				b.WriteString(", NOT NULL")
			}
			if col.PrimaryKey {
				b.WriteString(", PRIMARY KEY")
			}
			b.WriteString(")\n")
		}
		for _, fk := range info.ForeignKeys {
			b.WriteString("  FK: " + name + "." + fk.FromColumn + " -> " + fk.ToTable + "." + fk.ToColumn + "\n")
		}
	}
	return b.String()
}

// ContextBuilder expands similarity hits into a query context.
type ContextBuilder struct {
	index SimilarityIndex
	topK  int
}

// NewContextBuilder creates a context builder over the given similarity index.
// topK bounds how many ranked hits seed the context.
func NewContextBuilder(index SimilarityIndex, topK int) *ContextBuilder {
	return &ContextBuilder{index: index, topK: topK}
}

// Build seeds a table set from the top-K similarity hits for the question
// and applies exactly one closure hop: for every seed table, the tables its
// foreign keys reference and the tables referencing it are added. The hop is
// applied to the original seed only, never iterated, which bounds context
// size. Returns a context with no tables when the index finds nothing.
func (cb *ContextBuilder) Build(question string, graph *Graph) *QueryContext {
	qc := &QueryContext{Graph: graph, Tables: map[string]*TableInfo{}}

	hits := cb.index.Search(question, cb.topK)
	for _, hit := range hits {
		info := graph.Table(hit.Table)
		if info == nil {
			continue
		}
		if !qc.Contains(hit.Table) {
			qc.Seed = append(qc.Seed, hit.Table)
			qc.Tables[hit.Table] = info
		}
	}

	// One closure hop from the seed set, both FK directions.
	for _, name := range qc.Seed {
		info := graph.Table(name)
		for _, fk := range info.ForeignKeys {
			if ref := graph.Table(fk.ToTable); ref != nil {
				qc.Tables[fk.ToTable] = ref
			}
		}
		for _, referencing := range graph.ReferencingTables(name) {
			qc.Tables[referencing] = graph.Table(referencing)
		}
	}

	logger.Debugf("Query context built: %d seed tables, %d after closure",
		len(qc.Seed), len(qc.Tables))
	return qc
}
