// Package policy loads operator-controlled analysis policy from a YAML file:
// tables to exclude from analysis, additional sensitive-column keywords, and
// analyzer threshold overrides.
package policy

import (
	"time"
)

// Policy holds operator-controlled configuration loaded from a YAML file.
type Policy struct {
	Exclude    ExcludeConfig    `yaml:"exclude"`
	Security   SecurityConfig   `yaml:"security"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// ExcludeConfig names tables the run must not touch at all: no discovery,
// no workload, no sampling.
type ExcludeConfig struct {
	Tables []string `yaml:"tables"`
}

// SecurityConfig extends the sensitive-column keyword list.
type SecurityConfig struct {
	ExtraKeywords []string `yaml:"extra_keywords"`
}

// ThresholdsConfig overrides analyzer thresholds. Zero values keep defaults.
type ThresholdsConfig struct {
	TriggerOverhead    time.Duration `yaml:"trigger_overhead"`
	JoinCostMultiplier float64       `yaml:"join_cost_multiplier"`
	SecuritySampleSize int           `yaml:"security_sample_size"`
}

// Excluded reports whether a table is named in the exclusion list.
func (p *Policy) Excluded(table string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Exclude.Tables {
		if t == table {
			return true
		}
	}
	return false
}
