package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByDistinctCount(t *testing.T) {
	tests := []struct {
		name          string
		distinctCount int64
		sampledRows   int64
		want          CardinalityClass
	}{
		{"all unique", 1000, 1000, CardinalityUnique},
		{"near unique (96%)", 960, 1000, CardinalityNearUnique},
		{"high cardinality (50%)", 500, 1000, CardinalityHighCardinality},
		{"enum-like (5 distinct)", 5, 1000, CardinalityEnumLike},
		{"enum-like boundary (20 distinct)", 20, 1000, CardinalityEnumLike},
		{"low cardinality (50 distinct)", 50, 1000, CardinalityLowCardinality},
		{"low cardinality boundary (200 distinct)", 200, 1000, CardinalityLowCardinality},
		{"high cardinality (500 distinct)", 500, 1000, CardinalityHighCardinality},
		{"zero distinct", 0, 1000, CardinalityEnumLike},
		{"zero rows zero distinct", 0, 0, CardinalityEnumLike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyByDistinctCount(tt.distinctCount, tt.sampledRows)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistinctRatio(t *testing.T) {
	assert.Equal(t, 0.5, DistinctRatio(500, 1000))
	assert.Equal(t, 1.0, DistinctRatio(10, 10))
	assert.Equal(t, 0.0, DistinctRatio(5, 0))
}

func TestSuggestsUniqueness(t *testing.T) {
	assert.True(t, SuggestsUniqueness(1000, 1000))
	assert.True(t, SuggestsUniqueness(960, 1000))
	assert.False(t, SuggestsUniqueness(950, 1000)) // exactly at threshold, not above
	assert.False(t, SuggestsUniqueness(500, 1000))
	assert.False(t, SuggestsUniqueness(0, 0))
}
