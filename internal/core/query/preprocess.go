package query

import (
	"regexp"
	"strings"
)

// windowClauseRe matches a `WINDOW('type', arg1, arg2, ...)` clause
// anywhere in a FROM clause. xwb1989/sqlparser has no notion of this
// syntax, so it's extracted and stripped before the remaining text is
// handed to the standard-SQL parser (spec §4.6 step 1: "CREATE STREAM is
// parsed as CREATE TABLE ... and normalized" establishes the same
// precedent — lean on the real parser for everything it understands, and
// hand-extract only the extension syntax it doesn't).
var windowClauseRe = regexp.MustCompile(`(?i)WINDOW\s*\(\s*'([a-zA-Z]+)'\s*((?:,[^()]*)*)\)`)

// extractWindowClause removes the first WINDOW(...) clause from sql,
// returning the cleaned text (safe to feed to sqlparser.Parse) and the
// parsed WindowSpec, if one was present.
func extractWindowClause(sql string) (string, *WindowSpec, bool) {
	loc := windowClauseRe.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql, nil, false
	}
	typeName := sql[loc[2]:loc[3]]
	argsText := ""
	if loc[4] >= 0 {
		argsText = sql[loc[4]:loc[5]]
	}
	var args []string
	for _, part := range strings.Split(argsText, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			args = append(args, part)
		}
	}
	cleaned := sql[:loc[0]] + " " + sql[loc[1]:]
	return cleaned, &WindowSpec{Type: typeName, Args: args}, true
}

// insertIntoRe splits `INSERT INTO target SELECT ...` into its target name
// and the trailing SELECT text, which is then parsed on its own.
var insertIntoRe = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+([A-Za-z_][A-Za-z0-9_]*)\s+(SELECT\b.*)$`)

// splitInsertInto reports the INSERT target name and the SELECT body, if
// stmt is an `INSERT INTO target SELECT ...` statement.
func splitInsertInto(stmt string) (target string, selectText string, ok bool) {
	m := insertIntoRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// fromPatternRe recognizes the `FROM PATTERN (` that opens a pattern query's
// PATTERN clause (spec §6), whether its SELECT list follows the clause or
// precedes it; the construct has no standard-SQL analogue and is parsed entirely by
// hand (see pattern_parse.go) rather than preprocessed into something
// xwb1989/sqlparser could accept.
var fromPatternRe = regexp.MustCompile(`(?is)FROM\s+PATTERN\s*\(`)

func isPatternQuery(selectText string) bool {
	return fromPatternRe.MatchString(selectText)
}
