// Package sqlextract isolates a single executable SQL statement from
// free-form language-model output.
package sqlextract

import (
	"regexp"
	"strings"
)

var (
	sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	anyFencePattern = regexp.MustCompile("(?s)```(.*?)```")
	// Word boundaries keep "SQLite" and friends from matching.
	keywordPattern = regexp.MustCompile(`(?i)\b(select|with)\b`)
	// The filler strip only looks at the first line; a colon later in the
	// statement (string literals, casts) must not be eaten.
	fillerPattern = regexp.MustCompile(`(?i)^(here[^\n]*?:|sql\s*:)`)
)

// Extract returns one normalized candidate statement from raw model output.
// Heuristics are tried in order, first hit wins:
//
//  1. a fenced block explicitly labeled sql,
//  2. any fenced block containing a whole-word select/with,
//  3. the full text from its first whole-word select/with.
//
// The second return is false when no SQL-shaped content was found.
func Extract(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}

	if m := sqlFencePattern.FindStringSubmatch(text); m != nil {
		return Clean(m[1])
	}

	if m := anyFencePattern.FindStringSubmatch(text); m != nil {
		if keywordPattern.MatchString(m[1]) {
			return Clean(m[1])
		}
	}

	if loc := keywordPattern.FindStringIndex(text); loc != nil {
		return Clean(text[loc[0]:])
	}

	return "", false
}

// Clean normalizes a candidate: drops filler prefixes such as "Here is the
// query:", truncates at the first semicolon re-appending exactly one, and
// re-anchors the statement at select/with. Idempotent. Returns false when no
// statement survives.
func Clean(candidate string) (string, bool) {
	sqlText := strings.TrimSpace(candidate)
	sqlText = strings.TrimSpace(fillerPattern.ReplaceAllString(sqlText, ""))

	if idx := strings.Index(sqlText, ";"); idx >= 0 {
		sqlText = sqlText[:idx] + ";"
	} else {
		sqlText = strings.TrimRight(sqlText, " \t\r\n") + ";"
	}

	lower := strings.ToLower(sqlText)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		loc := keywordPattern.FindStringIndex(sqlText)
		if loc == nil {
			return "", false
		}
		sqlText = strings.TrimSpace(sqlText[loc[0]:])
	}

	if sqlText == ";" {
		return "", false
	}
	return sqlText, true
}
