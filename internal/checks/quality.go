package checks

import (
	"fmt"

	"github.com/shopspring/decimal"

	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/probe"
)

// RuleResult is the evaluation record for a single quality rule. It is
// embedded verbatim in the outcome details.
type RuleResult struct {
	MetricType string   `json:"metric_type"`
	Threshold  string   `json:"threshold"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Actual     *float64 `json:"actual_value,omitempty"`
}

// QualityResult aggregates rule evaluations into a single check status.
type QualityResult struct {
	Status   string
	Checks   []RuleResult
	Errors   []string
	Warnings []string
}

// Details renders the result in the shape recorded with the compliance
// outcome.
func (r QualityResult) Details() map[string]any {
	passed, failed, warned := 0, 0, 0
	for _, check := range r.Checks {
		switch check.Status {
		case contract.CheckPass:
			passed++
		case contract.CheckFail:
			failed++
		default:
			warned++
		}
	}
	return map[string]any{
		"checks":   r.Checks,
		"passed":   passed,
		"failed":   failed,
		"warnings": warned,
	}
}

// QualityEvaluator applies a contract's quality rules to a metrics probe.
type QualityEvaluator struct{}

func NewQualityEvaluator() *QualityEvaluator {
	return &QualityEvaluator{}
}

// Evaluate runs every rule against the probe. The aggregate status is fail
// only when a breached rule has alert_on_breach set; breaches on
// non-alerting rules, unmeasurable metrics and malformed thresholds all
// degrade the aggregate to warning instead.
func (e *QualityEvaluator) Evaluate(rules []contract.QualityRule, declared []contract.FieldSpec, mp probe.MetricsProbe) QualityResult {
	result := QualityResult{
		Status:   contract.CheckPass,
		Checks:   make([]RuleResult, 0, len(rules)),
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	alerting, degraded := false, false
	for _, rule := range rules {
		check := e.evaluateRule(rule, declared, mp)
		result.Checks = append(result.Checks, check)

		switch check.Status {
		case contract.CheckPass:
		case contract.CheckFail:
			result.Errors = append(result.Errors, check.Message)
			if rule.AlertOnBreach {
				alerting = true
			} else {
				degraded = true
			}
		default:
			result.Warnings = append(result.Warnings, check.Message)
			degraded = true
		}
	}

	if alerting {
		result.Status = contract.CheckFail
	} else if degraded {
		result.Status = contract.CheckWarning
	}
	return result
}

func (e *QualityEvaluator) evaluateRule(rule contract.QualityRule, declared []contract.FieldSpec, mp probe.MetricsProbe) RuleResult {
	check := RuleResult{MetricType: rule.MetricType, Threshold: rule.Threshold}

	switch rule.MetricType {
	case contract.MetricFreshness:
		e.checkFreshness(&check, rule, mp.Freshness)
	case contract.MetricCompleteness:
		e.checkCompleteness(&check, rule, declared, mp.Completeness)
	case contract.MetricAvailability:
		e.checkAvailability(&check, rule, mp.Availability)
	case contract.MetricAccuracy, contract.MetricUniqueness:
		check.Status = contract.CheckWarning
		check.Message = fmt.Sprintf("Metric type '%s' is not measured by the probe", rule.MetricType)
	default:
		check.Status = contract.CheckWarning
		check.Message = fmt.Sprintf("Unknown metric type: %s", rule.MetricType)
	}
	return check
}

func (e *QualityEvaluator) checkFreshness(check *RuleResult, rule contract.QualityRule, fm probe.FreshnessMetrics) {
	maxAge, err := ParseDuration(rule.Threshold)
	if err != nil {
		check.Status = contract.CheckError
		check.Message = fmt.Sprintf("Invalid threshold format: %v", err)
		return
	}

	if fm.SecondsSinceUpdate == nil {
		check.Status = contract.CheckWarning
		check.Message = "No freshness data available"
		return
	}

	age := *fm.SecondsSinceUpdate
	check.Actual = &age
	if age > maxAge.Seconds() {
		check.Status = contract.CheckFail
		check.Message = fmt.Sprintf("Data is stale (updated %.0fs ago, threshold: %.0fs)", age, maxAge.Seconds())
		return
	}
	check.Status = contract.CheckPass
	check.Message = fmt.Sprintf("Data is fresh (updated %.0fs ago, threshold: %.0fs)", age, maxAge.Seconds())
}

func (e *QualityEvaluator) checkCompleteness(check *RuleResult, rule contract.QualityRule, declared []contract.FieldSpec, cm probe.CompletenessMetrics) {
	threshold, err := ParsePercent(rule.Threshold)
	if err != nil {
		check.Status = contract.CheckError
		check.Message = fmt.Sprintf("Invalid threshold format: %v", err)
		return
	}

	// Per-field measurements win over the overall figure: a contract
	// breaches when any declared field falls under the threshold, not
	// only when the average does.
	below := make([]string, 0)
	lowest := 0.0
	measured := false
	for _, field := range declared {
		value, ok := cm.FieldCompleteness[field.Name]
		if !ok {
			continue
		}
		if !measured || value < lowest {
			lowest = value
		}
		measured = true
		if decimal.NewFromFloat(value).LessThan(threshold) {
			below = append(below, field.Name)
		}
	}

	if !measured {
		if cm.OverallCompleteness == nil {
			check.Status = contract.CheckWarning
			check.Message = "No completeness data available"
			return
		}
		overall := *cm.OverallCompleteness
		check.Actual = &overall
		if decimal.NewFromFloat(overall).LessThan(threshold) {
			check.Status = contract.CheckFail
			check.Message = fmt.Sprintf("Completeness is %.1f%% (threshold: %s%%)", overall, threshold.String())
			return
		}
		check.Status = contract.CheckPass
		check.Message = fmt.Sprintf("Completeness is %.1f%% (threshold: %s%%)", overall, threshold.String())
		return
	}

	check.Actual = &lowest
	if len(below) > 0 {
		check.Status = contract.CheckFail
		check.Message = fmt.Sprintf("Completeness is %.1f%% (threshold: %s%%); %d field(s) below threshold", lowest, threshold.String(), len(below))
		return
	}
	check.Status = contract.CheckPass
	check.Message = fmt.Sprintf("Completeness is %.1f%% (threshold: %s%%)", lowest, threshold.String())
}

func (e *QualityEvaluator) checkAvailability(check *RuleResult, rule contract.QualityRule, am probe.AvailabilityMetrics) {
	threshold, err := ParsePercent(rule.Threshold)
	if err != nil {
		check.Status = contract.CheckError
		check.Message = fmt.Sprintf("Invalid threshold format: %v", err)
		return
	}

	if am.UptimePercentage == nil {
		check.Status = contract.CheckWarning
		check.Message = "No uptime data available"
		return
	}

	uptime := *am.UptimePercentage
	check.Actual = &uptime
	if decimal.NewFromFloat(uptime).LessThan(threshold) {
		check.Status = contract.CheckFail
		check.Message = fmt.Sprintf("Uptime is %.2f%% (threshold: %s%%)", uptime, threshold.String())
		return
	}
	check.Status = contract.CheckPass
	check.Message = fmt.Sprintf("Uptime is %.2f%% (threshold: %s%%)", uptime, threshold.String())
}

// SplitRules partitions a contract's rules into the sets consumed by the
// quality sweep and the availability sweep.
func SplitRules(rules []contract.QualityRule) (quality, availability []contract.QualityRule) {
	for _, rule := range rules {
		if rule.MetricType == contract.MetricAvailability {
			availability = append(availability, rule)
		} else {
			quality = append(quality, rule)
		}
	}
	return quality, availability
}
