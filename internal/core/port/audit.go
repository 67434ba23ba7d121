package port

import "context"

// AuditEntry records one statement the engine executed against the target
// database. Parameter values are redacted before they reach the auditor.
type AuditEntry struct {
	Phase  string
	SQL    string
	Params []string
	// Fingerprints are stable digests of the raw parameter values, so
	// repeated parameters can be correlated across entries without
	// storing the values themselves.
	Fingerprints []string
	DurationMS   int64
	Err          error
}

// StatementAuditor receives an entry for every executed statement.
// Implementations must be safe for concurrent use.
type StatementAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
}
