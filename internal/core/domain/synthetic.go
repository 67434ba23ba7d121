package domain

import (
	"fmt"
	"time"
)

// syntheticEpoch anchors generated datetimes. A fixed anchor keeps synthetic
// values a pure function of the sequence number.
var syntheticEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// SyntheticScalar produces a deterministic literal for a semantic type.
// Dialects wrap it to adjust representation (boolean encoding, datetime
// formatting) without changing the underlying value.
func SyntheticScalar(sem SemanticType, seq int) any {
	switch sem {
	case TypeInteger:
		return int64(seq)
	case TypeDecimal:
		return float64(seq) + 0.25
	case TypeBoolean:
		return seq%2 == 0
	case TypeDatetime:
		return syntheticEpoch.Add(time.Duration(seq) * time.Hour)
	case TypeBinary:
		return []byte(fmt.Sprintf("synthetic_%06d", seq))
	default:
		return fmt.Sprintf("synthetic_%06d", seq)
	}
}

// SyntheticTimeLayout is how dialects that take datetimes as text render
// SyntheticScalar's time values.
const SyntheticTimeLayout = "2006-01-02 15:04:05"
