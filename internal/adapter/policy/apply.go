package policy

import (
	"context"

	"github.com/tneupaney/dbanalyzer/internal/core/port"
	"github.com/tneupaney/dbanalyzer/internal/core/service"
)

// ApplyThresholds folds the policy's overrides into a threshold set. Zero
// values in the policy keep the incoming values.
func (p *Policy) ApplyThresholds(th service.Thresholds) service.Thresholds {
	if p == nil {
		return th
	}
	if p.Thresholds.TriggerOverhead > 0 {
		th.TriggerOverhead = p.Thresholds.TriggerOverhead
	}
	if p.Thresholds.JoinCostMultiplier > 0 {
		th.JoinMultiplier = p.Thresholds.JoinCostMultiplier
	}
	if p.Thresholds.SecuritySampleSize > 0 {
		th.SecuritySampleSize = p.Thresholds.SecuritySampleSize
	}
	th.SensitiveKeywords = append(th.SensitiveKeywords, p.Security.ExtraKeywords...)
	return th
}

// Dialect decorates another dialect so that excluded tables never surface:
// they disappear from discovery, and with them from workload generation and
// every analyzer.
type Dialect struct {
	port.Dialect
	policy *Policy
}

func NewDialect(inner port.Dialect, pol *Policy) *Dialect {
	return &Dialect{Dialect: inner, policy: pol}
}

func (d *Dialect) DiscoverTables(ctx context.Context) ([]string, error) {
	names, err := d.Dialect.DiscoverTables(ctx)
	if err != nil {
		return nil, err
	}
	kept := names[:0]
	for _, name := range names {
		if !d.policy.Excluded(name) {
			kept = append(kept, name)
		}
	}
	return kept, nil
}
