package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/datachat/datachat/internal/auth"
)

type schemaTable struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	SampleRows [][]any  `json:"sample_rows,omitempty"`
}

// handleSchema returns the live table catalog plus a few sample rows per
// table so the chat UI can show users what they can ask about.
func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	schema, err := deps.Schema.Schema(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	sampleRows := deps.UISchemaSamples
	if sampleRows <= 0 {
		sampleRows = 5
	}

	tables := make([]schemaTable, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		entry := schemaTable{Name: table.Name, Columns: table.Columns}
		if deps.Executor != nil {
			// Sampling is best effort; a broken table should not hide
			// the rest of the catalog.
			result, err := deps.Executor.Execute(r.Context(),
				"SELECT * FROM "+quoteIdent(table.Name)+" LIMIT "+strconv.Itoa(sampleRows))
			if err == nil {
				entry.SampleRows = result.Rows
			}
		}
		tables = append(tables, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
