package postgres

import (
	"strconv"
	"strings"
)

// RewritePlaceholders converts portable "?" placeholders into PostgreSQL's
// positional "$n" form. Question marks inside single-quoted literals and
// quoted identifiers are left alone.
func RewritePlaceholders(sql string) string {
	if !strings.ContainsRune(sql, '?') {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	inString := false
	inIdent := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inString:
			b.WriteByte(ch)
			if ch == '\'' {
				inString = false
			}
		case inIdent:
			b.WriteByte(ch)
			if ch == '"' {
				inIdent = false
			}
		case ch == '\'':
			inString = true
			b.WriteByte(ch)
		case ch == '"':
			inIdent = true
			b.WriteByte(ch)
		case ch == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
