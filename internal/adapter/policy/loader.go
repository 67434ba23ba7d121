package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// thresholdsYAML mirrors ThresholdsConfig with the overhead as text so the
// policy file can say "10ms" instead of nanoseconds.
type thresholdsYAML struct {
	TriggerOverhead    string  `yaml:"trigger_overhead"`
	JoinCostMultiplier float64 `yaml:"join_cost_multiplier"`
	SecuritySampleSize int     `yaml:"security_sample_size"`
}

func (c *ThresholdsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw thresholdsYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TriggerOverhead != "" {
		d, err := time.ParseDuration(raw.TriggerOverhead)
		if err != nil {
			return fmt.Errorf("parsing trigger_overhead: %w", err)
		}
		c.TriggerOverhead = d
	}
	c.JoinCostMultiplier = raw.JoinCostMultiplier
	c.SecuritySampleSize = raw.SecuritySampleSize
	return nil
}

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	for _, t := range pol.Exclude.Tables {
		if t == "" {
			return fmt.Errorf("exclude.tables contains an empty entry")
		}
	}
	for _, k := range pol.Security.ExtraKeywords {
		if k == "" {
			return fmt.Errorf("security.extra_keywords contains an empty entry")
		}
	}
	if pol.Thresholds.TriggerOverhead < 0 {
		return fmt.Errorf("thresholds.trigger_overhead must not be negative")
	}
	if pol.Thresholds.JoinCostMultiplier < 0 {
		return fmt.Errorf("thresholds.join_cost_multiplier must not be negative")
	}
	if pol.Thresholds.SecuritySampleSize < 0 {
		return fmt.Errorf("thresholds.security_sample_size must not be negative")
	}
	return nil
}
