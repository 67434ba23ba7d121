package domain

// CardinalityClass describes the distribution shape of a column's values,
// measured from a bounded benchmark-time sample rather than planner
// statistics so the classification works identically on every backend.
type CardinalityClass string

const (
	CardinalityUnique          CardinalityClass = "unique"
	CardinalityNearUnique      CardinalityClass = "near_unique"
	CardinalityHighCardinality CardinalityClass = "high_cardinality"
	CardinalityLowCardinality  CardinalityClass = "low_cardinality"
	CardinalityEnumLike        CardinalityClass = "enum_like"
)

// nearUniqueRatio is the distinct-to-sampled ratio above which a non-unique
// indexed column is worth investigating for a uniqueness constraint.
const nearUniqueRatio = 0.95

// ClassifyByDistinctCount determines the cardinality class from absolute
// distinct and sampled row counts.
func ClassifyByDistinctCount(distinctCount, sampledRows int64) CardinalityClass {
	if sampledRows > 0 && distinctCount == sampledRows {
		return CardinalityUnique
	}
	if sampledRows > 0 && DistinctRatio(distinctCount, sampledRows) > nearUniqueRatio {
		return CardinalityNearUnique
	}
	if distinctCount <= 20 {
		return CardinalityEnumLike
	}
	if distinctCount <= 200 {
		return CardinalityLowCardinality
	}
	return CardinalityHighCardinality
}

// DistinctRatio returns distinct/sampled, or 0 when nothing was sampled.
func DistinctRatio(distinctCount, sampledRows int64) float64 {
	if sampledRows <= 0 {
		return 0
	}
	return float64(distinctCount) / float64(sampledRows)
}

// SuggestsUniqueness reports whether a column's sampled distinct ratio is
// high enough (>95%) that a non-unique index over it looks like a missed
// uniqueness constraint.
func SuggestsUniqueness(distinctCount, sampledRows int64) bool {
	return sampledRows > 0 && DistinctRatio(distinctCount, sampledRows) > nearUniqueRatio
}
