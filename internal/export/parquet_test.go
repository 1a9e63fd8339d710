package export

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/datachat/datachat/internal/store"
)

func TestEncodeResultToParquet(t *testing.T) {
	result := store.Result{
		Columns: []string{"customer_state", "order_count", "avg_price"},
		Rows: [][]any{
			{"SP", int64(120), 35.5},
			{"RJ", int64(80), nil},
			{nil, int64(12), 12.25},
		},
	}

	data, err := EncodeResultToParquet(result)
	if err != nil {
		t.Fatalf("EncodeResultToParquet() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty parquet payload")
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parquet.OpenFile() error = %v", err)
	}
	if file.NumRows() != 3 {
		t.Fatalf("NumRows() = %d", file.NumRows())
	}
	fields := file.Schema().Fields()
	if len(fields) != 3 {
		t.Fatalf("schema fields = %d", len(fields))
	}
	for _, field := range fields {
		if !field.Optional() {
			t.Fatalf("field %q should be optional", field.Name())
		}
	}

	reader := parquet.NewGenericReader[map[string]any](bytes.NewReader(data), file.Schema())
	defer func() { _ = reader.Close() }()
	rows := make([]map[string]any, 3)
	for i := range rows {
		rows[i] = map[string]any{}
	}
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("read rows = %d", count)
	}
	if rows[0]["customer_state"] != "SP" {
		t.Fatalf("customer_state = %v", rows[0]["customer_state"])
	}
	if rows[1]["order_count"] != int64(80) {
		t.Fatalf("order_count = %v", rows[1]["order_count"])
	}
	if _, ok := rows[1]["avg_price"]; ok {
		t.Fatalf("expected NULL avg_price to stay absent, got %v", rows[1]["avg_price"])
	}
}

func TestEncodeResultToParquetEmptyRows(t *testing.T) {
	result := store.Result{Columns: []string{"customer_city"}}

	data, err := EncodeResultToParquet(result)
	if err != nil {
		t.Fatalf("EncodeResultToParquet() error = %v", err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parquet.OpenFile() error = %v", err)
	}
	if file.NumRows() != 0 {
		t.Fatalf("NumRows() = %d", file.NumRows())
	}
}

func TestEncodeResultToParquetRejectsBadShapes(t *testing.T) {
	if _, err := EncodeResultToParquet(store.Result{}); err == nil {
		t.Fatal("expected error for result without columns")
	}
	dup := store.Result{Columns: []string{"n", "n"}}
	if _, err := EncodeResultToParquet(dup); err == nil {
		t.Fatal("expected error for duplicate column names")
	}
}

func TestInferKindStringifiesMixedColumns(t *testing.T) {
	result := store.Result{
		Columns: []string{"v"},
		Rows:    [][]any{{nil}, {"texty"}, {int64(3)}},
	}
	if got := inferKind(result, 0); got != kindText {
		t.Fatalf("inferKind() = %v, want text", got)
	}
}
