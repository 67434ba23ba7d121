package domain

import "strings"

// SemanticType is the normalized, backend-independent classification of a
// column's declared type. Adapters map their native type vocabulary onto it
// once at discovery time; everything downstream (workload generation,
// synthetic values, heuristics) works on semantic types only.
type SemanticType string

const (
	TypeInteger  SemanticType = "integer"
	TypeText     SemanticType = "text"
	TypeDecimal  SemanticType = "decimal"
	TypeDatetime SemanticType = "datetime"
	TypeBoolean  SemanticType = "boolean"
	TypeBinary   SemanticType = "binary"
	TypeUnknown  SemanticType = "unknown"
)

// SemanticFromDeclared classifies a declared type name shared across the
// supported backends (SQLite affinity keywords, MySQL and PostgreSQL names).
// Adapters may override individual mappings before calling this fallback.
func SemanticFromDeclared(declared string) SemanticType {
	t := strings.ToUpper(strings.TrimSpace(declared))
	// Strip length/precision suffixes like VARCHAR(255) or DECIMAL(10,2).
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}

	switch {
	case t == "":
		return TypeUnknown
	case strings.Contains(t, "BOOL"):
		return TypeBoolean
	case strings.Contains(t, "INT"), t == "SERIAL", t == "BIGSERIAL", t == "SMALLSERIAL":
		return TypeInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"),
		strings.Contains(t, "CLOB"), t == "ENUM", t == "UUID", t == "JSON", t == "JSONB":
		return TypeText
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"),
		strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"), t == "MONEY":
		return TypeDecimal
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return TypeDatetime
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"),
		t == "BYTEA", t == "BIT":
		return TypeBinary
	default:
		return TypeUnknown
	}
}
