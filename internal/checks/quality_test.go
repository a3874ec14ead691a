package checks

import (
	"strings"
	"testing"

	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/probe"
)

func floatPtr(v float64) *float64 { return &v }

func TestQualityFreshnessPassAndFail(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricFreshness, Threshold: "15 minutes", AlertOnBreach: true}}
	eval := NewQualityEvaluator()

	fresh := eval.Evaluate(rules, nil, probe.MetricsProbe{
		Freshness: probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(300)},
	})
	if fresh.Status != contract.CheckPass {
		t.Fatalf("300s 应通过 15 分钟阈值, 实际 %s", fresh.Status)
	}

	stale := eval.Evaluate(rules, nil, probe.MetricsProbe{
		Freshness: probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(3600)},
	})
	if stale.Status != contract.CheckFail {
		t.Fatalf("3600s 应判定失败, 实际 %s", stale.Status)
	}
	if len(stale.Errors) != 1 || !strings.Contains(stale.Errors[0], "Data is stale") {
		t.Fatalf("失败信息不正确: %v", stale.Errors)
	}
}

func TestQualityFreshnessExactThreshold(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricFreshness, Threshold: "15 minutes", AlertOnBreach: true}}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{
		Freshness: probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(900)},
	})
	if result.Status != contract.CheckPass {
		t.Fatalf("恰好等于阈值应通过, 实际 %s", result.Status)
	}
}

func TestQualityFreshnessMissingData(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricFreshness, Threshold: "15 minutes", AlertOnBreach: true}}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{})
	if result.Status != contract.CheckWarning {
		t.Fatalf("缺少数据应降级为警告, 实际 %s", result.Status)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "No freshness data available" {
		t.Fatalf("警告信息不正确: %v", result.Warnings)
	}
}

func TestQualityCompletenessPerField(t *testing.T) {
	declared := []contract.FieldSpec{{Name: "email"}, {Name: "phone"}}
	rules := []contract.QualityRule{{MetricType: contract.MetricCompleteness, Threshold: "99%", AlertOnBreach: true}}

	result := NewQualityEvaluator().Evaluate(rules, declared, probe.MetricsProbe{
		Completeness: probe.CompletenessMetrics{
			FieldCompleteness:   map[string]float64{"email": 99.9, "phone": 97.0, "legacy_ref": 10.0},
			OverallCompleteness: floatPtr(99.5),
		},
	})
	if result.Status != contract.CheckFail {
		t.Fatalf("phone 低于阈值应判定失败, 实际 %s", result.Status)
	}
	if !strings.Contains(result.Checks[0].Message, "1 field(s) below threshold") {
		t.Fatalf("应只统计契约声明的字段: %s", result.Checks[0].Message)
	}
}

func TestQualityCompletenessOverallFallback(t *testing.T) {
	declared := []contract.FieldSpec{{Name: "email"}}
	rules := []contract.QualityRule{{MetricType: contract.MetricCompleteness, Threshold: "99%", AlertOnBreach: true}}

	result := NewQualityEvaluator().Evaluate(rules, declared, probe.MetricsProbe{
		Completeness: probe.CompletenessMetrics{OverallCompleteness: floatPtr(99.9)},
	})
	if result.Status != contract.CheckPass {
		t.Fatalf("无字段级数据时应回退到整体完整度, 实际 %s", result.Status)
	}

	missing := NewQualityEvaluator().Evaluate(rules, declared, probe.MetricsProbe{})
	if missing.Status != contract.CheckWarning {
		t.Fatalf("完全无数据应降级为警告, 实际 %s", missing.Status)
	}
	if len(missing.Warnings) != 1 || missing.Warnings[0] != "No completeness data available" {
		t.Fatalf("警告信息不正确: %v", missing.Warnings)
	}
}

func TestQualityAvailabilityRule(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricAvailability, Threshold: "99.9%", AlertOnBreach: true}}
	eval := NewQualityEvaluator()

	up := eval.Evaluate(rules, nil, probe.MetricsProbe{
		Availability: probe.AvailabilityMetrics{Status: "healthy", UptimePercentage: floatPtr(99.99)},
	})
	if up.Status != contract.CheckPass {
		t.Fatalf("99.99%% 应通过, 实际 %s", up.Status)
	}

	down := eval.Evaluate(rules, nil, probe.MetricsProbe{
		Availability: probe.AvailabilityMetrics{Status: "degraded", UptimePercentage: floatPtr(98.5)},
	})
	if down.Status != contract.CheckFail {
		t.Fatalf("98.5%% 应判定失败, 实际 %s", down.Status)
	}
}

func TestQualityNonAlertingBreach(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricFreshness, Threshold: "1 minute", AlertOnBreach: false}}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{
		Freshness: probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(600)},
	})
	if result.Status != contract.CheckWarning {
		t.Fatalf("非告警规则的违反应降级为警告, 实际 %s", result.Status)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("违反详情仍应记录: %v", result.Errors)
	}
}

func TestQualityInvalidThreshold(t *testing.T) {
	rules := []contract.QualityRule{{MetricType: contract.MetricFreshness, Threshold: "soon", AlertOnBreach: true}}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{
		Freshness: probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(1)},
	})
	if result.Status != contract.CheckWarning {
		t.Fatalf("阈值格式错误不应判定失败, 实际 %s", result.Status)
	}
	if result.Checks[0].Status != contract.CheckError {
		t.Fatalf("规则状态应为 error, 实际 %s", result.Checks[0].Status)
	}
	if !strings.Contains(result.Checks[0].Message, "Invalid threshold format") {
		t.Fatalf("错误信息不正确: %s", result.Checks[0].Message)
	}
}

func TestQualityUnknownMetric(t *testing.T) {
	rules := []contract.QualityRule{
		{MetricType: "sentiment", Threshold: "1", AlertOnBreach: true},
		{MetricType: contract.MetricAccuracy, Threshold: "99%", AlertOnBreach: true},
	}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{})
	if result.Status != contract.CheckWarning {
		t.Fatalf("未知指标应降级为警告, 实际 %s", result.Status)
	}
	if result.Checks[0].Message != "Unknown metric type: sentiment" {
		t.Fatalf("未知指标信息不正确: %s", result.Checks[0].Message)
	}
	if !strings.Contains(result.Checks[1].Message, "not measured by the probe") {
		t.Fatalf("未测量指标信息不正确: %s", result.Checks[1].Message)
	}
}

func TestQualityAllPassDetails(t *testing.T) {
	rules := []contract.QualityRule{
		{MetricType: contract.MetricFreshness, Threshold: "1 hour", AlertOnBreach: true},
		{MetricType: contract.MetricAvailability, Threshold: "99%", AlertOnBreach: true},
	}
	result := NewQualityEvaluator().Evaluate(rules, nil, probe.MetricsProbe{
		Freshness:    probe.FreshnessMetrics{SecondsSinceUpdate: floatPtr(60)},
		Availability: probe.AvailabilityMetrics{UptimePercentage: floatPtr(100)},
	})
	if result.Status != contract.CheckPass {
		t.Fatalf("全部通过时应为 pass, 实际 %s", result.Status)
	}

	details := result.Details()
	if details["passed"] != 2 || details["failed"] != 0 {
		t.Fatalf("统计不正确: %v", details)
	}
}

func TestSplitRules(t *testing.T) {
	rules := []contract.QualityRule{
		{MetricType: contract.MetricFreshness},
		{MetricType: contract.MetricAvailability},
		{MetricType: contract.MetricCompleteness},
	}
	quality, availability := SplitRules(rules)
	if len(quality) != 2 || len(availability) != 1 {
		t.Fatalf("拆分不正确: quality=%d availability=%d", len(quality), len(availability))
	}
	if availability[0].MetricType != contract.MetricAvailability {
		t.Fatal("availability 规则应归入可用性检查")
	}
}
