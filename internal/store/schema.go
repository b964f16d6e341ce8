package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Schema struct {
	Tables []Table `json:"tables"`
}

// String renders one line per table, e.g. "Table defects: id (INTEGER), status (TEXT)".
func (s Schema) String() string {
	lines := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		cols := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", col.Name, col.Type))
		}
		lines = append(lines, fmt.Sprintf("Table %s: %s", table.Name, strings.Join(cols, ", ")))
	}
	return strings.Join(lines, "\n")
}

const (
	sqliteTablesSQL = `SELECT name FROM sqlite_master WHERE type='table'`

	informationSchemaTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema()
  AND table_type = 'BASE TABLE'
ORDER BY table_name`

	informationSchemaColumnsSQL = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = current_schema()
  AND table_name = $1
ORDER BY ordinal_position`
)

// Describe reads the live schema over a connection that is released before returning.
func (s *Store) Describe(ctx context.Context) (Schema, error) {
	var schema Schema
	err := s.WithConn(ctx, func(db *sql.DB) error {
		names, err := s.tableNames(ctx, db)
		if err != nil {
			return err
		}
		schema.Tables = make([]Table, 0, len(names))
		for _, name := range names {
			columns, err := s.tableColumns(ctx, db, name)
			if err != nil {
				return err
			}
			schema.Tables = append(schema.Tables, Table{Name: name, Columns: columns})
		}
		return nil
	})
	if err != nil {
		return Schema{}, fmt.Errorf("describe store: %w", err)
	}
	return schema, nil
}

func (s *Store) tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	query := informationSchemaTablesSQL
	if s.dialect == DialectSQLite {
		query = sqliteTablesSQL
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func (s *Store) tableColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	if s.dialect == DialectSQLite {
		return sqliteColumns(ctx, db, table)
	}

	rows, err := db.QueryContext(ctx, informationSchemaColumnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]Column, 0)
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column for table %q: %w", table, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for table %q: %w", table, err)
	}
	return columns, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info for table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]Column, 0)
	for rows.Next() {
		var (
			cid          int64
			col          Column
			notNull      int64
			defaultValue any
			primaryKey   int64
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan table_info for table %q: %w", table, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info for table %q: %w", table, err)
	}
	return columns, nil
}
