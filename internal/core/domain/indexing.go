package domain

import (
	"fmt"
	"strings"
)

// CoversColumns reports whether the index's leading columns cover cols in
// order. An index on (a, b) covers a lookup on (a) and on (a, b), but an
// index on (b, a) does not cover (a).
func (idx *Index) CoversColumns(cols []string) bool {
	if len(cols) > len(idx.Columns) {
		return false
	}
	for i, c := range cols {
		if idx.Columns[i] != c {
			return false
		}
	}
	return true
}

// HasCoveringIndex reports whether any index on the table covers cols.
func (t *Table) HasCoveringIndex(cols []string) bool {
	for i := range t.Indexes {
		if t.Indexes[i].CoversColumns(cols) {
			return true
		}
	}
	// A primary key acts as an implicit index even when the backend does
	// not surface it in the index list.
	if len(t.PrimaryKey) > 0 {
		pk := Index{Columns: t.PrimaryKey}
		if pk.CoversColumns(cols) {
			return true
		}
	}
	return false
}

// RedundantIndexPair names a dominated index and the wider index covering it.
type RedundantIndexPair struct {
	Narrow Index
	Wide   Index
}

// FindRedundantIndexes returns every index whose column list is a strict
// prefix of another index's on the same table. The narrower index is
// dominated: scans it satisfies can use the wider one instead. Unique
// indexes are never flagged, since they enforce a constraint the wider
// index does not.
func FindRedundantIndexes(t *Table) []RedundantIndexPair {
	var pairs []RedundantIndexPair
	for i := range t.Indexes {
		narrow := &t.Indexes[i]
		if narrow.Unique || narrow.Primary || len(narrow.Columns) == 0 {
			continue
		}
		for j := range t.Indexes {
			if i == j {
				continue
			}
			wide := &t.Indexes[j]
			if len(wide.Columns) > len(narrow.Columns) && wide.CoversColumns(narrow.Columns) {
				pairs = append(pairs, RedundantIndexPair{Narrow: *narrow, Wide: *wide})
				break
			}
		}
	}
	return pairs
}

// CreateIndexStatement renders remediation DDL for a missing index. The
// text is advisory output only, it is never executed.
func CreateIndexStatement(table string, cols []string) string {
	name := fmt.Sprintf("idx_%s_%s", table, strings.Join(cols, "_"))
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);", name, table, strings.Join(cols, ", "))
}

// IndexAdviceReason classifies why an unindexed column looks worth indexing.
type IndexAdviceReason string

const (
	AdviceIDColumn       IndexAdviceReason = "id_column"
	AdviceDatetimeColumn IndexAdviceReason = "datetime_column"
	AdviceLookupText     IndexAdviceReason = "lookup_text_column"
)

// IndexAdvice is a naming-pattern suggestion for a column that carries no
// index but is commonly filtered or joined on.
type IndexAdvice struct {
	Column string
	Reason IndexAdviceReason
}

var lookupNameHints = []string{"name", "email", "username"}

// SuggestColumnIndexes scans a table for unindexed non-key columns whose
// name or type suggests frequent filtering: *_id columns, datetime columns,
// and name/email-style text columns.
func SuggestColumnIndexes(t *Table) []IndexAdvice {
	var advice []IndexAdvice
	for _, col := range t.Columns {
		if contains(t.PrimaryKey, col.Name) || t.HasCoveringIndex([]string{col.Name}) {
			continue
		}
		lower := strings.ToLower(col.Name)
		switch {
		case strings.HasSuffix(lower, "_id") && col.Semantic == TypeInteger:
			advice = append(advice, IndexAdvice{Column: col.Name, Reason: AdviceIDColumn})
		case col.Semantic == TypeDatetime || strings.Contains(lower, "date"):
			advice = append(advice, IndexAdvice{Column: col.Name, Reason: AdviceDatetimeColumn})
		case col.Semantic == TypeText && hasAnyHint(lower, lookupNameHints):
			advice = append(advice, IndexAdvice{Column: col.Name, Reason: AdviceLookupText})
		}
	}
	return advice
}

func hasAnyHint(name string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(name, h) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
