package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genbiapi/models"
	"genbiapi/services/schema"
)

func testGraph() *schema.Graph {
	return &schema.Graph{Tables: map[string]*schema.TableInfo{
		"orders": {
			Name: "orders",
			Columns: []schema.ColumnDef{
				{Name: "order_id", DataType: "int", PrimaryKey: true},
				{Name: "customer_id", DataType: "int"},
				{Name: "order_date", DataType: "date"},
				{Name: "total_amount", DataType: "decimal"},
				{Name: "discount", DataType: "decimal"},
				{Name: "internal_margin", DataType: "decimal"},
			},
		},
		"salaries": {
			Name: "salaries",
			Columns: []schema.ColumnDef{
				{Name: "salary_id", DataType: "int", PrimaryKey: true},
				{Name: "amount", DataType: "decimal"},
			},
		},
	}}
}

func principalWith(perms models.Permissions) *models.Principal {
	return &models.Principal{UserID: 7, Username: "analyst", Permissions: perms}
}

// TestCheckColumn covers the three grant forms: wildcard, qualified
// table.column, and bare column name.
func TestCheckColumn(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)

	wildcard := principalWith(models.Permissions{Columns: []string{models.Wildcard}})
	assert.True(t, e.CheckColumn("orders", "total_amount", wildcard))

	qualified := principalWith(models.Permissions{Columns: []string{"orders.total_amount"}})
	assert.True(t, e.CheckColumn("orders", "total_amount", qualified))
	assert.False(t, e.CheckColumn("salaries", "total_amount", qualified))

	bare := principalWith(models.Permissions{Columns: []string{"total_amount"}})
	assert.True(t, e.CheckColumn("orders", "total_amount", bare))
	assert.True(t, e.CheckColumn("salaries", "total_amount", bare))
	assert.False(t, e.CheckColumn("orders", "discount", bare))
}

// TestAuthorizeTables_Granted checks the schema-level gate for a fully
// granted table set.
func TestAuthorizeTables_Granted(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()
	qc := &schema.QueryContext{Graph: graph, Tables: graph.Tables}

	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{models.Wildcard},
	})

	d := e.AuthorizeTables([]string{"orders"}, qc, p)
	assert.True(t, d.Authorized)
	assert.Equal(t, LayerSchema, d.Layer)
}

// TestAuthorizeTables_DatabaseDenied checks the database dimension: a graph
// naming its database blocks principals without a grant for it before any
// table is considered.
func TestAuthorizeTables_DatabaseDenied(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()
	graph.Database = "sales"
	qc := &schema.QueryContext{Graph: graph, Tables: graph.Tables}

	denied := principalWith(models.Permissions{
		Databases: []string{"marketing"},
		Tables:    []string{models.Wildcard},
		Columns:   []string{models.Wildcard},
	})
	d := e.AuthorizeTables([]string{"orders"}, qc, denied)
	require.False(t, d.Authorized)
	assert.Contains(t, d.Reason, "database: sales")

	granted := principalWith(models.Permissions{
		Databases: []string{"sales"},
		Tables:    []string{models.Wildcard},
		Columns:   []string{models.Wildcard},
	})
	assert.True(t, e.AuthorizeTables([]string{"orders"}, qc, granted).Authorized)
}

// TestAuthorizeTables_TableDenied checks that one forbidden table blocks
// the whole set.
func TestAuthorizeTables_TableDenied(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()
	qc := &schema.QueryContext{Graph: graph, Tables: graph.Tables}

	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{models.Wildcard},
	})

	d := e.AuthorizeTables([]string{"orders", "salaries"}, qc, p)
	require.False(t, d.Authorized)
	assert.Equal(t, LayerSchema, d.Layer)
	assert.Contains(t, d.Reason, "salaries")
}

// TestAuthorizeTables_ColumnCheckBounded checks that only the first
// columnCheckLimit columns of each table are inspected before generation:
// a denied sixth column does not block, a denied first column does.
func TestAuthorizeTables_ColumnCheckBounded(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()
	qc := &schema.QueryContext{Graph: graph, Tables: graph.Tables}

	// grants cover the first five columns of orders but not internal_margin
	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{"order_id", "customer_id", "order_date", "total_amount", "discount"},
	})

	d := e.AuthorizeTables([]string{"orders"}, qc, p)
	assert.True(t, d.Authorized, "column past the check limit must not block generation")

	narrow := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{"order_date"},
	})
	d = e.AuthorizeTables([]string{"orders"}, qc, narrow)
	require.False(t, d.Authorized)
	assert.Contains(t, d.Reason, "orders.order_id")
}

// TestAuthorizeStatement_Granted checks the statement-level gate on a
// fully granted statement.
func TestAuthorizeStatement_Granted(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{"orders.order_id", "orders.total_amount"},
	})

	d := e.AuthorizeStatement("SELECT order_id, total_amount FROM orders", p)
	assert.True(t, d.Authorized)
	assert.Equal(t, LayerStatement, d.Layer)
}

// TestAuthorizeStatement_TableDenied checks denial on a forbidden table
// reference.
func TestAuthorizeStatement_TableDenied(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{models.Wildcard},
	})

	d := e.AuthorizeStatement("SELECT amount FROM salaries", p)
	require.False(t, d.Authorized)
	assert.Equal(t, LayerStatement, d.Layer)
	assert.Contains(t, d.Reason, "salaries")
}

// TestAuthorizeStatement_AliasedColumnGranted checks that a qualified
// grant covers the aliased shape generated SQL typically uses.
func TestAuthorizeStatement_AliasedColumnGranted(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{"orders.total_amount"},
	})

	d := e.AuthorizeStatement("SELECT o.total_amount FROM orders o", p)
	require.True(t, d.Authorized, d.Reason)
}

// TestAuthorizeStatement_QualifiedColumnDenied checks that a qualified
// column is evaluated against its named table only.
func TestAuthorizeStatement_QualifiedColumnDenied(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders", "salaries"},
		Columns: []string{"orders.order_id"},
	})

	d := e.AuthorizeStatement("SELECT salaries.amount FROM salaries", p)
	require.False(t, d.Authorized)
	assert.Contains(t, d.Reason, "salaries.amount")
}

// TestAuthorizeStatement_UnqualifiedColumnUnion documents the permissive
// union over referenced tables: an unqualified column is granted when any
// referenced table's permission set covers it.
func TestAuthorizeStatement_UnqualifiedColumnUnion(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders", "salaries"},
		Columns: []string{"salaries.amount"},
	})

	d := e.AuthorizeStatement("SELECT amount FROM orders JOIN salaries ON 1 = 1", p)
	assert.True(t, d.Authorized)
}

// TestAuthorizeStatement_UnqualifiedColumnDenied checks denial when no
// referenced table grants the column.
func TestAuthorizeStatement_UnqualifiedColumnDenied(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	p := principalWith(models.Permissions{
		Tables:  []string{"orders"},
		Columns: []string{"orders.order_id"},
	})

	d := e.AuthorizeStatement("SELECT total_amount FROM orders", p)
	require.False(t, d.Authorized)
	assert.Contains(t, d.Reason, "total_amount")
}

// TestFilterSchema checks the display projection: unauthorized tables and
// columns are stripped, tables left without visible columns are dropped,
// and the source graph stays untouched.
func TestFilterSchema(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()

	p := principalWith(models.Permissions{
		Tables:  []string{"orders", "salaries"},
		Columns: []string{"orders.order_id", "orders.order_date"},
	})

	filtered := e.FilterSchema(graph, p)

	require.Contains(t, filtered.Tables, "orders")
	assert.Len(t, filtered.Tables["orders"].Columns, 2)
	assert.NotContains(t, filtered.Tables, "salaries", "table with no visible columns must be dropped")

	// original graph unchanged
	assert.Len(t, graph.Tables["orders"].Columns, 6)
	assert.Contains(t, graph.Tables, "salaries")
}

// TestFilterSchema_Wildcard checks that full grants pass the graph
// through intact.
func TestFilterSchema_Wildcard(t *testing.T) {
	e := NewEngine(NewLexicalExtractor(), 5)
	graph := testGraph()

	p := principalWith(models.Permissions{
		Tables:  []string{models.Wildcard},
		Columns: []string{models.Wildcard},
	})

	filtered := e.FilterSchema(graph, p)
	assert.Len(t, filtered.Tables, len(graph.Tables))
}
