// Package export serializes query results for download.
package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/datachat/datachat/internal/store"
)

// EncodeResultToParquet writes a Query Result as a single-row-group parquet
// file. Column types are inferred from the first non-nil value per column:
// integers and floats stay numeric, booleans stay boolean, everything else
// is rendered as text. Every column is optional since SQL results carry
// NULLs freely.
func EncodeResultToParquet(result store.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	group := parquet.Group{}
	kinds := make([]valueKind, len(result.Columns))
	for i, column := range result.Columns {
		if _, exists := group[column]; exists {
			return nil, fmt.Errorf("duplicate column %q in result", column)
		}
		kinds[i] = inferKind(result, i)
		group[column] = parquet.Optional(kinds[i].node())
	}
	schema := parquet.NewSchema("query_result", group)

	records := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, column := range result.Columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			if converted := kinds[i].convert(row[i]); converted != nil {
				record[column] = converted
			}
		}
		records = append(records, record)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]any](buf, schema)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

type valueKind int

const (
	kindText valueKind = iota
	kindInt
	kindFloat
	kindBool
)

func (k valueKind) node() parquet.Node {
	switch k {
	case kindInt:
		return parquet.Int(64)
	case kindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

// convert coerces a value to the column's parquet type. Values that do not
// fit the inferred type become nulls rather than corrupting the column.
func (k valueKind) convert(value any) any {
	switch k {
	case kindInt:
		if v, ok := asInt64(value); ok {
			return v
		}
		return nil
	case kindFloat:
		if v, ok := asFloat64(value); ok {
			return v
		}
		return nil
	case kindBool:
		if v, ok := value.(bool); ok {
			return v
		}
		return nil
	default:
		return fmt.Sprintf("%v", value)
	}
}

func inferKind(result store.Result, index int) valueKind {
	for _, row := range result.Rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		switch row[index].(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return kindInt
		case float32, float64:
			return kindFloat
		case bool:
			return kindBool
		default:
			return kindText
		}
	}
	return kindText
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
