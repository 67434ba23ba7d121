package postgres

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotReadOnly    = errors.New("only SELECT queries are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
)

// ReadOnlyGuard validates statements with PostgreSQL's actual parser before
// they reach the server. Analysis reads arbitrary schemas, so every workload
// statement is re-checked rather than trusted; only the probe transaction
// bypasses the guard.
type ReadOnlyGuard struct{}

func NewReadOnlyGuard() *ReadOnlyGuard {
	return &ReadOnlyGuard{}
}

// Validate rejects anything that is not a single SELECT statement.
func (g *ReadOnlyGuard) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 {
		return ErrEmptyQuery
	}
	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyQuery
	}

	if _, ok := stmt.Node.(*pg_query.Node_SelectStmt); !ok {
		return ErrNotReadOnly
	}
	return nil
}
