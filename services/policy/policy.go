// Package policy is the single source of truth for access control over
// generated SQL. It evaluates a principal's permission set at three layers:
// schema-level before generation, statement-level after generation, and
// connection-level at execution time.
package policy

import (
	"fmt"
	"strings"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/services/schema"
	"genbiapi/utils"
)

// Layer identifies which enforcement layer produced an authorization decision.
type Layer string

// Enforcement layers, in pipeline order.
const (
	LayerSchema     Layer = "SCHEMA"
	LayerStatement  Layer = "STATEMENT"
	LayerConnection Layer = "CONNECTION"
)

// Decision is the immutable outcome of one authorization check.
type Decision struct {
	Authorized bool   `json:"authorized"`
	Layer      Layer  `json:"layer"`
	Reason     string `json:"reason"`
}

// Engine evaluates permission sets. It is stateless given a principal and a
// query object and safe for concurrent use.
type Engine struct {
	extractor ObjectExtractor

	// columnCheckLimit bounds how many leading columns per table the
	// schema-level check inspects, as a proxy for likely-used columns
	// before any SQL exists.
	columnCheckLimit int
}

// NewEngine creates a policy engine using the given statement object
// extractor.
func NewEngine(extractor ObjectExtractor, columnCheckLimit int) *Engine {
	if columnCheckLimit <= 0 {
		columnCheckLimit = 5
	}
	return &Engine{extractor: extractor, columnCheckLimit: columnCheckLimit}
}

// CheckDatabase reports whether the principal may use the named database.
func (e *Engine) CheckDatabase(database string, principal *models.Principal) bool {
	return containsOrWildcard(principal.Permissions.Databases, database)
}

// CheckTable reports whether the principal may read the named table.
func (e *Engine) CheckTable(table string, principal *models.Principal) bool {
	return containsOrWildcard(principal.Permissions.Tables, table)
}

// CheckColumn reports whether the principal may read table.column. Grants
// match on the wildcard, on the qualified "table.column" form, or on the
// bare column name.
func (e *Engine) CheckColumn(table, column string, principal *models.Principal) bool {
	allowed := principal.Permissions.Columns
	if containsOrWildcard(allowed, table+"."+column) {
		return true
	}
	for _, c := range allowed {
		if c == column {
			return true
		}
	}
	return false
}

// AuthorizeTables is the schema-level (pre-generation) check. The graph's
// database must pass CheckDatabase, every predicted table must pass
// CheckTable and its first few columns must pass CheckColumn. Any failure
// blocks generation entirely, so forbidden schema is never exposed to the
// generation prompt.
func (e *Engine) AuthorizeTables(tables []string, qc *schema.QueryContext, principal *models.Principal) Decision {
	if db := qc.Graph.Database; db != "" && !e.CheckDatabase(db, principal) {
		return denied(LayerSchema, fmt.Sprintf("access denied to database: %s", db))
	}
	for _, table := range tables {
		if !e.CheckTable(table, principal) {
			return denied(LayerSchema, fmt.Sprintf("access denied to table: %s", table))
		}
		info := qc.Graph.Table(table)
		if info == nil {
			continue
		}
		limit := e.columnCheckLimit
		if limit > len(info.Columns) {
			limit = len(info.Columns)
		}
		for _, col := range info.Columns[:limit] {
			if !e.CheckColumn(table, col.Name, principal) {
				return denied(LayerSchema, fmt.Sprintf("access denied to column: %s.%s", table, col.Name))
			}
		}
	}
	return Decision{Authorized: true, Layer: LayerSchema, Reason: "table set authorized"}
}

// AuthorizeStatement is the statement-level (post-generation) check. The
// statement's referenced objects are extracted lexically; every table must
// pass CheckTable. Qualified columns are checked against their named table.
// An unqualified column is granted when at least one referenced table's
// permission set covers it, which can under-deny ambiguous columns shared
// by tables of different sensitivity; such grants are logged.
func (e *Engine) AuthorizeStatement(sql string, principal *models.Principal) Decision {
	objects := e.extractor.ExtractReferencedObjects(sql)

	for _, table := range objects.Tables {
		if !e.CheckTable(table, principal) {
			return denied(LayerStatement, fmt.Sprintf("access denied to table: %s", table))
		}
	}

	for _, column := range objects.Columns {
		if table, col, ok := strings.Cut(column, "."); ok {
			if !e.CheckColumn(table, col, principal) {
				return denied(LayerStatement, fmt.Sprintf("access denied to column: %s", column))
			}
			continue
		}

		granted := false
		for i, table := range objects.Tables {
			if e.CheckColumn(table, column, principal) {
				granted = true
				if i > 0 {
					logger.Warnf("Unqualified column %q granted via table %q rather than the first referenced table", column, table)
				}
				break
			}
		}
		if !granted {
			return denied(LayerStatement, fmt.Sprintf("access denied to column: %s", column))
		}
	}

	return Decision{Authorized: true, Layer: LayerStatement, Reason: "statement authorized"}
}

// FilterSchema strips unauthorized tables and columns from a schema graph
// for display. Tables the principal cannot see any column of are dropped
// entirely. The input graph is never modified.
func (e *Engine) FilterSchema(graph *schema.Graph, principal *models.Principal) *schema.Graph {
	filtered := &schema.Graph{Database: graph.Database, Tables: map[string]*schema.TableInfo{}}
	for name, info := range graph.Tables {
		if !e.CheckTable(name, principal) {
			continue
		}
		var columns []schema.ColumnDef
		for _, col := range info.Columns {
			if e.CheckColumn(name, col.Name, principal) {
				columns = append(columns, col)
			}
		}
		if len(columns) == 0 {
			continue
		}
		filtered.Tables[name] = &schema.TableInfo{
			Name:        name,
			Columns:     columns,
			ForeignKeys: info.ForeignKeys,
		}
	}
	return filtered
}

func containsOrWildcard(values []string, target string) bool {
	for _, v := range values {
		if v == models.Wildcard || v == target {
			return true
		}
	}
	return false
}

func denied(layer Layer, reason string) Decision {
	logger.Warnf("Authorization denied at layer %s: %s", layer, reason)
	if dl := utils.GetDenialLogger(); dl != nil {
		dl.Printf("layer=%s %s", layer, reason)
	}
	return Decision{Authorized: false, Layer: layer, Reason: reason}
}
