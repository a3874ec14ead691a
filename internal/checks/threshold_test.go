package checks

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDurationUnits(t *testing.T) {
	cases := map[string]time.Duration{
		"15 minutes": 15 * time.Minute,
		"1 minute":   time.Minute,
		"30 seconds": 30 * time.Second,
		"1 hour":     time.Hour,
		"2 days":     48 * time.Hour,
		"1 Hour":     time.Hour,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if err != nil {
			t.Fatalf("%q 不应报错: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q 期望 %v, 实际 %v", input, want, got)
		}
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, input := range []string{"", "15", "minutes", "abc minutes", "15 fortnights", "1 2 3"} {
		if _, err := ParseDuration(input); err == nil {
			t.Fatalf("%q 应返回错误", input)
		}
	}
}

func TestParsePercent(t *testing.T) {
	got, err := ParsePercent("99.5%")
	if err != nil {
		t.Fatalf("解析 99.5%% 不应报错: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(99.5)) {
		t.Fatalf("期望 99.5, 实际 %s", got.String())
	}

	got, err = ParsePercent(" 95 ")
	if err != nil {
		t.Fatalf("无百分号也应解析: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("期望 95, 实际 %s", got.String())
	}
}

func TestParsePercentInvalid(t *testing.T) {
	for _, input := range []string{"", "%", "abc%", "9 9%"} {
		if _, err := ParsePercent(input); err == nil {
			t.Fatalf("%q 应返回错误", input)
		}
	}
}
