package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthz(t *testing.T) {
	s := NewServer("", NewStats(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("status 期望 ok, 实际 %q", payload.Status)
	}
}

func TestStatusSnapshot(t *testing.T) {
	stats := NewStats()
	stats.IncSweep("schema", 5)
	stats.IncSweep("schema", 7)
	stats.IncOutcome("fail")
	stats.IncRetry()
	stats.IncAlertFired()
	stats.IncAlertSuppressed()

	queue := func() QueueInfo {
		return QueueInfo{Depth: 3, Capacity: 256, Dropped: 2}
	}

	s := NewServer("", stats, queue, zerolog.Nop())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Version string    `json:"version"`
		Queue   QueueInfo `json:"queue"`
		Stats   Snapshot  `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if payload.Queue.Depth != 3 || payload.Queue.Capacity != 256 || payload.Queue.Dropped != 2 {
		t.Fatalf("queue 段不正确: %+v", payload.Queue)
	}
	schema := payload.Stats.Sweeps["schema"]
	if schema.Runs != 2 {
		t.Fatalf("sweeps.runs 期望 2, 实际 %d", schema.Runs)
	}
	if schema.Enqueued != 12 {
		t.Fatalf("sweeps.enqueued 期望 12, 实际 %d", schema.Enqueued)
	}
	if schema.LastRun.IsZero() {
		t.Fatal("sweeps.last_run 不应为零值")
	}
	if payload.Stats.Outcomes["fail"] != 1 {
		t.Fatalf("outcomes 期望 1, 实际 %d", payload.Stats.Outcomes["fail"])
	}
	if payload.Stats.Retries != 1 || payload.Stats.AlertsFired != 1 || payload.Stats.AlertsSuppressed != 1 {
		t.Fatalf("计数不正确: %+v", payload.Stats)
	}
}
