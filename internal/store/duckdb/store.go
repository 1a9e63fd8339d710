package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/datachat/datachat/internal/store"
)

// Store reads a single DuckDB database file. Every call opens its own
// connection and closes it before returning, so concurrent requests only
// share the file itself.
type Store struct {
	Path string
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &Store{Path: strings.TrimSpace(path)}, nil
}

const schemaQuery = `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = 'main'
ORDER BY table_name, ordinal_position`

func (s *Store) Schema(ctx context.Context) (store.Schema, error) {
	db, err := s.open()
	if err != nil {
		return store.Schema{}, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, schemaQuery)
	if err != nil {
		return store.Schema{}, fmt.Errorf("read catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schema store.Schema
	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return store.Schema{}, fmt.Errorf("scan catalog row: %w", err)
		}
		if n := len(schema.Tables); n == 0 || schema.Tables[n-1].Name != tableName {
			schema.Tables = append(schema.Tables, store.Table{Name: tableName})
		}
		last := &schema.Tables[len(schema.Tables)-1]
		last.Columns = append(last.Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return store.Schema{}, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return schema, nil
}

func (s *Store) Execute(ctx context.Context, sqlText string) (store.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return store.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	db, err := s.open()
	if err != nil {
		return store.Result{}, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return store.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return store.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return store.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return store.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return store.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// open returns a read-only handle. Ingestion is the only writer and uses
// OpenWritable before the API ever serves a query.
func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("duckdb", s.Path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

// OpenWritable opens the database file for writing, creating it when absent.
// The caller owns the handle.
func OpenWritable(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("duckdb", strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
