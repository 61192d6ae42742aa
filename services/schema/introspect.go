package schema

import (
	"context"
	"database/sql"
	"fmt"

	"genbiapi/config"
	"genbiapi/pkg/logger"
)

// mysqlIntrospector reads table, column and foreign-key metadata from a
// MySQL information_schema.
type mysqlIntrospector struct {
	db     *sql.DB
	dbName string
}

// NewMySQLIntrospector creates an introspector reading the given database's
// metadata through db.
func NewMySQLIntrospector(db *sql.DB, dbName string) Introspector {
	return &mysqlIntrospector{db: db, dbName: dbName}
}

// IntrospectSchema builds the schema graph for the configured database.
// System schemas are skipped entirely.
func (m *mysqlIntrospector) IntrospectSchema(ctx context.Context) (*Graph, error) {
	if config.IsSystemDatabase(m.dbName) {
		return nil, fmt.Errorf("refusing to introspect system database %s", m.dbName)
	}

	graph := &Graph{Database: m.dbName, Tables: map[string]*TableInfo{}}

	if err := m.loadColumns(ctx, graph); err != nil {
		return nil, err
	}
	if err := m.loadForeignKeys(ctx, graph); err != nil {
		return nil, err
	}

	logger.Infof("Introspected schema for %s: %d tables", m.dbName, len(graph.Tables))
	return graph, nil
}

func (m *mysqlIntrospector) loadColumns(ctx context.Context, graph *Graph) error {
	const q = `
		SELECT c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.COLUMN_KEY
		FROM information_schema.COLUMNS c
		JOIN information_schema.TABLES t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = ? AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

	rows, err := m.db.QueryContext(ctx, q, m.dbName)
	if err != nil {
		return fmt.Errorf("failed to query columns for %s: %w", m.dbName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, dataType, nullable, columnKey string
		if err := rows.Scan(&table, &column, &dataType, &nullable, &columnKey); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}

		info := graph.Tables[table]
		if info == nil {
			info = &TableInfo{Name: table}
			graph.Tables[table] = info
		}
		info.Columns = append(info.Columns, ColumnDef{
			Name:       column,
			DataType:   dataType,
			Nullable:   nullable == "YES",
			PrimaryKey: columnKey == "PRI",
		})
	}
	return rows.Err()
}

func (m *mysqlIntrospector) loadForeignKeys(ctx context.Context, graph *Graph) error {
	const q = `
		SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, ORDINAL_POSITION`

	rows, err := m.db.QueryContext(ctx, q, m.dbName)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys for %s: %w", m.dbName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return fmt.Errorf("failed to scan foreign key row: %w", err)
		}

		info := graph.Tables[table]
		if info == nil {
			// FK on a view or a table filtered out of the column pass
			continue
		}
		info.ForeignKeys = append(info.ForeignKeys, FKEdge{
			FromColumn: column,
			ToTable:    refTable,
			ToColumn:   refColumn,
		})
	}
	return rows.Err()
}
