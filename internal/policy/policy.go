// Package policy holds the configurable knobs of the consensus engine:
// quorum size defaults, assignment slack, due dates, and sweep cadence.
// Scoring weights and approval thresholds are fixed formulas and live in
// the scoring package, not here.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region policy
// Policy configures assignment and quorum behavior.
type Policy struct {
	// DefaultRequiredCount is the quorum applied to evidence submitted
	// without an explicit required-judgment count.
	DefaultRequiredCount int `yaml:"default_required_count"`

	// AssignmentSlack is how many concurrent assignments an evidence item
	// may hold beyond its outstanding judgment need.
	AssignmentSlack int `yaml:"assignment_slack"`

	// JudgmentDue bounds how long a validator has to complete an assignment.
	JudgmentDue time.Duration `yaml:"judgment_due"`

	// DefaultPriority is applied to assignments created without one.
	DefaultPriority domain.Priority `yaml:"default_priority"`

	// SweepInterval is the cadence of the overdue-assignment sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// SweepParallelism bounds concurrent expirations in one sweep pass.
	SweepParallelism int `yaml:"sweep_parallelism"`
}

// Default returns the stock policy.
func Default() Policy {
	return Policy{
		DefaultRequiredCount: 3,
		AssignmentSlack:      1,
		JudgmentDue:          72 * time.Hour,
		DefaultPriority:      domain.PriorityNormal,
		SweepInterval:        5 * time.Minute,
		SweepParallelism:     4,
	}
}

// #endregion policy

// #region yaml
// UnmarshalYAML decodes a policy document, leaving fields absent from the
// document untouched so Load can pre-populate defaults. Durations are
// written as Go duration strings ("72h", "5m").
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DefaultRequiredCount *int    `yaml:"default_required_count"`
		AssignmentSlack      *int    `yaml:"assignment_slack"`
		JudgmentDue          *string `yaml:"judgment_due"`
		DefaultPriority      *string `yaml:"default_priority"`
		SweepInterval        *string `yaml:"sweep_interval"`
		SweepParallelism     *int    `yaml:"sweep_parallelism"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.DefaultRequiredCount != nil {
		p.DefaultRequiredCount = *raw.DefaultRequiredCount
	}
	if raw.AssignmentSlack != nil {
		p.AssignmentSlack = *raw.AssignmentSlack
	}
	if raw.JudgmentDue != nil {
		d, err := time.ParseDuration(*raw.JudgmentDue)
		if err != nil {
			return fmt.Errorf("judgment_due: %w", err)
		}
		p.JudgmentDue = d
	}
	if raw.DefaultPriority != nil {
		p.DefaultPriority = domain.Priority(*raw.DefaultPriority)
	}
	if raw.SweepInterval != nil {
		d, err := time.ParseDuration(*raw.SweepInterval)
		if err != nil {
			return fmt.Errorf("sweep_interval: %w", err)
		}
		p.SweepInterval = d
	}
	if raw.SweepParallelism != nil {
		p.SweepParallelism = *raw.SweepParallelism
	}
	return nil
}

// #endregion yaml

// #region load
// Load reads a policy YAML file, applying defaults for omitted fields.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks policy values for internal consistency.
func (p Policy) Validate() error {
	if p.DefaultRequiredCount < 1 {
		return fmt.Errorf("default_required_count must be >= 1, got %d", p.DefaultRequiredCount)
	}
	if p.AssignmentSlack < 0 {
		return fmt.Errorf("assignment_slack must be >= 0, got %d", p.AssignmentSlack)
	}
	if p.JudgmentDue <= 0 {
		return fmt.Errorf("judgment_due must be positive, got %s", p.JudgmentDue)
	}
	if !domain.ValidPriority(p.DefaultPriority) {
		return fmt.Errorf("unknown default_priority %q", p.DefaultPriority)
	}
	if p.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", p.SweepInterval)
	}
	if p.SweepParallelism < 1 {
		return fmt.Errorf("sweep_parallelism must be >= 1, got %d", p.SweepParallelism)
	}
	return nil
}

// #endregion load
