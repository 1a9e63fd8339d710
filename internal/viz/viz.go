// Package viz chooses a chart encoding for a query result. Selection is a
// pure shape heuristic; no model call is involved.
package viz

import (
	"fmt"

	"github.com/datachat/datachat/internal/store"
)

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartScatter ChartType = "scatter"
	ChartPie     ChartType = "pie"
	ChartTable   ChartType = "table"
)

// ChartSpec is the renderable chart payload of a Response Envelope. Exactly
// one field group is populated per type: X/Y for bar, line and scatter,
// Names/Values for pie, Columns/Rows for table.
type ChartSpec struct {
	Type   ChartType `json:"type"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	X      []any     `json:"x,omitempty"`
	Y      []any     `json:"y,omitempty"`
	Names  []any     `json:"names,omitempty"`
	Values []any     `json:"values,omitempty"`

	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

// Select auto-detects the encoding: two columns with a numeric second column
// become a bar chart, two columns with a non-numeric second column become a
// pie chart (the second column is kept as the value series, matching the
// shipped behavior), and every other shape renders as a table.
func Select(result store.Result) ChartSpec {
	if len(result.Columns) == 2 {
		if columnIsNumeric(result, 1) {
			return barLike(ChartBar, result)
		}
		return ChartSpec{
			Type:   ChartPie,
			Names:  columnValues(result, 0),
			Values: columnValues(result, 1),
		}
	}
	return tableSpec(result)
}

// ParseChartType validates a caller-supplied chart type. The empty string
// means auto-detect.
func ParseChartType(s string) (ChartType, error) {
	switch ChartType(s) {
	case "", ChartBar, ChartLine, ChartScatter, ChartPie, ChartTable:
		return ChartType(s), nil
	}
	return "", fmt.Errorf("unsupported visualization type: %q", s)
}

// New builds a chart of an explicitly requested type. Unlike Select, an
// unsupported type is an error rather than a fallback.
func New(result store.Result, chartType ChartType) (ChartSpec, error) {
	switch chartType {
	case ChartBar, ChartLine, ChartScatter:
		if len(result.Columns) < 2 {
			return ChartSpec{}, fmt.Errorf("%s chart needs at least two columns, got %d", chartType, len(result.Columns))
		}
		return barLike(chartType, result), nil
	case ChartPie:
		if len(result.Columns) < 2 {
			return ChartSpec{}, fmt.Errorf("pie chart needs at least two columns, got %d", len(result.Columns))
		}
		return ChartSpec{
			Type:   ChartPie,
			Names:  columnValues(result, 0),
			Values: columnValues(result, 1),
		}, nil
	case ChartTable:
		return tableSpec(result), nil
	default:
		return ChartSpec{}, fmt.Errorf("unsupported visualization type: %q", chartType)
	}
}

func barLike(chartType ChartType, result store.Result) ChartSpec {
	return ChartSpec{
		Type:   chartType,
		XLabel: result.Columns[0],
		YLabel: result.Columns[1],
		X:      columnValues(result, 0),
		Y:      columnValues(result, 1),
	}
}

func tableSpec(result store.Result) ChartSpec {
	return ChartSpec{
		Type:    ChartTable,
		Columns: result.Columns,
		Rows:    result.Rows,
	}
}

func columnValues(result store.Result, index int) []any {
	values := make([]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		if index < len(row) {
			values = append(values, row[index])
		}
	}
	return values
}

// columnIsNumeric reports whether every non-nil value in the column is a
// numeric scalar. Columns with no non-nil values count as non-numeric, so a
// two-column result whose second column is all NULL renders as a pie; there
// is no type information to justify a numeric axis.
func columnIsNumeric(result store.Result, index int) bool {
	sawValue := false
	for _, row := range result.Rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		switch row[index].(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			sawValue = true
		default:
			return false
		}
	}
	return sawValue
}
