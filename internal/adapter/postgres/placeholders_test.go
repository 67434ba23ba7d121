package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewritePlaceholders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "SELECT 1", "SELECT 1"},
		{"single", "SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{
			"multiple",
			"SELECT * FROM t WHERE a = ? AND b = ? AND c = ?",
			"SELECT * FROM t WHERE a = $1 AND b = $2 AND c = $3",
		},
		{
			"inside string literal",
			"SELECT * FROM t WHERE a = '?' AND b = ?",
			"SELECT * FROM t WHERE a = '?' AND b = $1",
		},
		{
			"inside quoted identifier",
			`SELECT "what?" FROM t WHERE "what?" = ?`,
			`SELECT "what?" FROM t WHERE "what?" = $1`,
		},
		{
			"like pattern stays quoted",
			`SELECT * FROM "customers" WHERE "email" LIKE ? LIMIT 100`,
			`SELECT * FROM "customers" WHERE "email" LIKE $1 LIMIT 100`,
		},
		{
			"insert values",
			`INSERT INTO "t" ("a", "b") VALUES (?, ?)`,
			`INSERT INTO "t" ("a", "b") VALUES ($1, $2)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewritePlaceholders(tt.in))
		})
	}
}
