package store

import (
	"context"
	"time"
)

// Table is one entry of a schema snapshot: a table name plus its column
// names in catalog order.
type Table struct {
	Name    string   `json:"table_name"`
	Columns []string `json:"columns"`
}

// Schema is a point-in-time inventory of the backing store. It is fetched
// live for every pipeline run and never cached across calls.
type Schema struct {
	Tables []Table
}

func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	return names
}

func (s Schema) HasTable(name string) bool {
	for _, table := range s.Tables {
		if table.Name == name {
			return true
		}
	}
	return false
}

// Result is the tabular output of one executed statement.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

func (r Result) Empty() bool {
	return len(r.Rows) == 0
}

type SchemaProvider interface {
	Schema(ctx context.Context) (Schema, error)
}

type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}
