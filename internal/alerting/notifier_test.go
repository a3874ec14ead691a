package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/contract"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testEvent() Event {
	return Event{
		ContractID:      uuid.New(),
		ContractName:    "orders",
		ContractVersion: "1.2.0",
		CheckType:       contract.CheckSchema,
		Status:          contract.CheckFail,
		PublisherTeam:   "data-platform",
		ContactEmail:    "data-platform@example.com",
		EndpointURL:     "http://orders-service:8080",
		Errors:          []string{"Missing required field: email"},
		CheckedAt:       time.Now().UTC(),
	}
}

func TestEventNotifierSuccess(t *testing.T) {
	received := make(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/api/v1/events/schema-drift") {
			t.Fatalf("路径应包含 schema-drift, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true})
	}))
	defer srv.Close()

	notifier := NewEventNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify 应成功: %v", err)
	}

	if received["contract_name"] != "orders" {
		t.Fatalf("contract_name 不正确: %#v", received)
	}
	if received["check_type"] != contract.CheckSchema {
		t.Fatalf("check_type 不正确: %#v", received)
	}
	if received["publisher_team"] != "data-platform" {
		t.Fatalf("publisher_team 不正确: %#v", received)
	}
	if received["contact_email"] != "data-platform@example.com" {
		t.Fatalf("contact_email 不正确: %#v", received)
	}
}

func TestEventNotifierRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": false})
	}))
	defer srv.Close()

	notifier := NewEventNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testEvent()); err == nil {
		t.Fatal("accepted=false 应报错")
	}
}

func TestEventNotifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewEventNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testEvent()); err == nil {
		t.Fatal("HTTP 500 应报错")
	}
}

func TestEventKindMapping(t *testing.T) {
	cases := map[string]string{
		contract.CheckSchema:       "schema-drift",
		contract.CheckQuality:      "quality-breach",
		contract.CheckAvailability: "availability-failure",
		"custom":                   "compliance-alert",
	}
	for checkType, want := range cases {
		if got := eventKind(checkType); got != want {
			t.Fatalf("%s 期望 %s, 实际 %s", checkType, want, got)
		}
	}
}

func TestLogNotifier(t *testing.T) {
	notifier := NewLogNotifier(testLogger())
	if err := notifier.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("日志告警器不应报错: %v", err)
	}
}
