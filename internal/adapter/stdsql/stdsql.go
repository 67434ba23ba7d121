// Package stdsql carries the database/sql plumbing shared by the sqlite and
// mysql dialects: generic row scanning, timed execution, the rollback-only
// write probe, and connection-loss classification.
package stdsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tneupaney/dbanalyzer/internal/core/domain"
	"github.com/tneupaney/dbanalyzer/internal/core/port"
)

// Conn wraps a *sql.DB with the execution half of the dialect port. The
// embedding dialect supplies introspection and value mapping.
type Conn struct {
	DB           *sql.DB
	QueryTimeout time.Duration
}

// QueryTimed executes one statement and reports rows plus round-trip time.
func (c *Conn) QueryTimed(ctx context.Context, query string, params ...any) ([]map[string]any, time.Duration, error) {
	if c.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.QueryTimeout)
		defer cancel()
	}

	started := time.Now()
	rows, err := c.DB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, 0, Classify(&domain.ExecutionError{SQL: query, Reason: err})
	}
	defer rows.Close()

	result, err := ScanMaps(rows)
	elapsed := time.Since(started)
	if err != nil {
		return nil, 0, Classify(&domain.ExecutionError{SQL: query, Reason: err})
	}
	return result, elapsed, nil
}

// BeginProbe opens a transaction that only ever rolls back.
func (c *Conn) BeginProbe(ctx context.Context) (port.WriteProbe, error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(fmt.Errorf("beginning probe transaction: %w", err))
	}
	return &Probe{tx: tx}, nil
}

// Ping verifies connectivity, tagging failure as connection loss.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
	}
	return nil
}

// Close releases the pool.
func (c *Conn) Close() error { return c.DB.Close() }

// ScanMaps drains sql.Rows into maps keyed by column name. Values arrive as
// whatever the driver produces; []byte stays []byte for the caller to decode.
func ScanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading column names: %w", err)
	}

	var result []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, name := range cols {
			row[name] = vals[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// Classify tags network-level failures as connection loss so the engine can
// tell a dead backend from a bad statement.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConnectionLost) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "invalid connection") {
		return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
	}
	return err
}

// Probe is the rollback-only transaction behind the trigger overhead probe.
type Probe struct {
	tx     *sql.Tx
	closed bool
}

func (p *Probe) Exec(ctx context.Context, query string, params ...any) (time.Duration, error) {
	started := time.Now()
	if _, err := p.tx.ExecContext(ctx, query, params...); err != nil {
		return 0, &domain.ExecutionError{SQL: query, Reason: err}
	}
	return time.Since(started), nil
}

func (p *Probe) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
