package usecase

import (
	"errors"

	"github.com/fleetgrid/fleetgate/internal/domain"
)

// Action codes recorded on failed-login audit events.
const (
	ActionFailedLogin          = "failed_login"
	ActionMultipleFailedLogins = "multiple_failed_logins"
	ActionPotentialBruteForce  = "potential_brute_force_attack"
)

// severityRule maps a minimum failure count to the severity and action code
// recorded for it. Rules are kept as an ordered table rather than nested
// conditionals so thresholds stay tunable and testable.
type severityRule struct {
	minCount int64
	severity domain.Severity
	action   string
}

// SeverityClassifier grades a failure count. It is a pure function over the
// rule table; all cross-request state lives in the attempt tracker.
type SeverityClassifier struct {
	rules []severityRule
}

// NewSeverityClassifier builds the rule table from the two thresholds. The
// brute-force threshold must sit strictly above the repeated-failure one.
func NewSeverityClassifier(repeatedThreshold, bruteForceThreshold int64) (*SeverityClassifier, error) {
	if repeatedThreshold < 1 || bruteForceThreshold <= repeatedThreshold {
		return nil, errors.New("classifier thresholds must satisfy 1 <= repeated < brute-force")
	}
	return &SeverityClassifier{
		rules: []severityRule{
			{minCount: bruteForceThreshold, severity: domain.SeverityCritical, action: ActionPotentialBruteForce},
			{minCount: repeatedThreshold, severity: domain.SeverityHigh, action: ActionMultipleFailedLogins},
			{minCount: 0, severity: domain.SeverityHigh, action: ActionFailedLogin},
		},
	}, nil
}

// Classify returns the severity and action code for a failure count.
func (c *SeverityClassifier) Classify(count int64) (domain.Severity, string) {
	for _, rule := range c.rules {
		if count >= rule.minCount {
			return rule.severity, rule.action
		}
	}
	// Unreachable: the last rule's floor is 0 and counts are never negative.
	last := c.rules[len(c.rules)-1]
	return last.severity, last.action
}
