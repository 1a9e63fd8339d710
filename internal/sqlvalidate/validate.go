// Package sqlvalidate gates generated SQL against the live schema. It scans
// for identifiers after FROM/JOIN rather than parsing the statement; the gate
// is deliberately cheap and conservative, rejecting only references to tables
// the backing store does not have.
package sqlvalidate

import (
	"regexp"
	"sort"

	"github.com/datachat/datachat/internal/store"
)

var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_]\w*)`)

// Validation reports whether a candidate statement may be executed. When OK
// is false, Missing holds the referenced tables absent from the schema and
// Available the full table list, both for the user-facing report.
type Validation struct {
	OK        bool
	Missing   []string
	Available []string
}

func Validate(sqlText string, schema store.Schema) Validation {
	referenced := referencedTables(sqlText)

	missing := make([]string, 0)
	for _, name := range referenced {
		if !schema.HasTable(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return Validation{OK: true}
	}
	return Validation{
		Missing:   missing,
		Available: schema.TableNames(),
	}
}

func referencedTables(sqlText string) []string {
	seen := map[string]struct{}{}
	for _, match := range tableRefPattern.FindAllStringSubmatch(sqlText, -1) {
		seen[match[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
