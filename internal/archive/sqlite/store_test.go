package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"contract-compliance-monitor/internal/archive"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("打开测试库失败: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOutcomeRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id := uuid.New()
	checkedAt := time.Now().UTC().Truncate(time.Millisecond)
	rec := archive.OutcomeRecord{
		ContractID:      id,
		ContractName:    "orders",
		ContractVersion: "1.2.0",
		CheckType:       "schema",
		Status:          "fail",
		Details:         json.RawMessage(`{"errors":["Missing required field: email"]}`),
		CheckedAt:       checkedAt,
	}
	if err := store.InsertOutcome(ctx, rec); err != nil {
		t.Fatalf("写入不应报错: %v", err)
	}

	got, err := store.ListRecentOutcomes(ctx, archive.OutcomeFilter{Contract: "orders"})
	if err != nil {
		t.Fatalf("查询不应报错: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 条记录, 实际 %d", len(got))
	}
	if got[0].ContractID != id || got[0].Status != "fail" {
		t.Fatalf("记录不正确: %+v", got[0])
	}
	if !got[0].CheckedAt.Equal(checkedAt) {
		t.Fatalf("checked_at 期望 %v, 实际 %v", checkedAt, got[0].CheckedAt)
	}

	var details map[string][]string
	if err := json.Unmarshal(got[0].Details, &details); err != nil {
		t.Fatalf("details 应为合法 JSON: %v", err)
	}
	if len(details["errors"]) != 1 {
		t.Fatalf("details 内容不正确: %v", details)
	}
}

func TestListRecentOutcomesFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, pair := range [][2]string{{"orders", "schema"}, {"orders", "quality"}, {"users", "schema"}} {
		rec := archive.OutcomeRecord{
			ContractID:      uuid.New(),
			ContractName:    pair[0],
			ContractVersion: "1.0.0",
			CheckType:       pair[1],
			Status:          "pass",
			CheckedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertOutcome(ctx, rec); err != nil {
			t.Fatalf("写入不应报错: %v", err)
		}
	}

	got, err := store.ListRecentOutcomes(ctx, archive.OutcomeFilter{Contract: "orders", CheckType: "schema"})
	if err != nil {
		t.Fatalf("查询不应报错: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("过滤结果期望 1 条, 实际 %d", len(got))
	}

	count, err := store.CountOutcomes(ctx)
	if err != nil {
		t.Fatalf("计数不应报错: %v", err)
	}
	if count != 3 {
		t.Fatalf("计数期望 3, 实际 %d", count)
	}
}

func TestListOutcomesBetweenWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := archive.OutcomeRecord{
			ContractID:      uuid.New(),
			ContractName:    "orders",
			ContractVersion: "1.0.0",
			CheckType:       "quality",
			Status:          "pass",
			CheckedAt:       base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.InsertOutcome(ctx, rec); err != nil {
			t.Fatalf("写入不应报错: %v", err)
		}
	}

	got, err := store.ListOutcomesBetween(ctx, archive.OutcomeFilter{
		From: base.Add(time.Hour),
		To:   base.Add(4 * time.Hour),
	})
	if err != nil {
		t.Fatalf("查询不应报错: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("窗口应含 3 条记录, 实际 %d", len(got))
	}
	if !got[0].CheckedAt.Before(got[2].CheckedAt) {
		t.Fatal("窗口查询应按时间升序")
	}
}

func TestAlertAuditTrail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.InsertAlert(ctx, archive.AlertRecord{
		ContractID:   uuid.New(),
		ContractName: "orders",
		CheckType:    "schema",
		Status:       "fail",
		Message:      "Missing required field: email",
	})
	if err != nil {
		t.Fatalf("写入告警不应报错: %v", err)
	}
	if rec.ID == 0 || rec.CreatedAt.IsZero() {
		t.Fatalf("应返回 id 与时间戳: %+v", rec)
	}

	alerts, err := store.ListRecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("查询告警不应报错: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Message != "Missing required field: email" {
		t.Fatalf("告警记录不正确: %+v", alerts)
	}

	if err := store.DeleteAlertsBefore(ctx, time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("清理不应报错: %v", err)
	}
	alerts, err = store.ListRecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("查询告警不应报错: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("清理后应为空, 实际 %d 条", len(alerts))
	}
}

func TestNilStoreNotConfigured(t *testing.T) {
	var store *Store
	if _, err := store.CountOutcomes(context.Background()); err != archive.ErrNotConfigured {
		t.Fatalf("未初始化应返回 ErrNotConfigured, 实际 %v", err)
	}
}
