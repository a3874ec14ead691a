package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/contract"
)

// Event 封装一次合规告警的上下文, 包含契约负责方信息便于定位责任人。
type Event struct {
	ContractID      uuid.UUID
	ContractName    string
	ContractVersion string
	CheckType       string
	Status          string
	PublisherTeam   string
	ContactEmail    string
	EndpointURL     string
	Errors          []string
	Warnings        []string
	ErrorMessage    string
	Metadata        map[string]any
	CheckedAt       time.Time
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// EventNotifier 将告警推送到通知服务的事件接口。
type EventNotifier struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewEventNotifier 构造事件告警器。
func NewEventNotifier(baseURL string, timeout time.Duration, logger zerolog.Logger) *EventNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &EventNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_notifier").Logger(),
	}
}

// Notify 按检查类型推送事件。
func (n *EventNotifier) Notify(ctx context.Context, event Event) error {
	payload := map[string]any{
		"contract_id":      event.ContractID.String(),
		"contract_name":    event.ContractName,
		"contract_version": event.ContractVersion,
		"check_type":       event.CheckType,
		"status":           event.Status,
		"publisher_team":   event.PublisherTeam,
		"contact_email":    event.ContactEmail,
		"endpoint_url":     event.EndpointURL,
		"errors":           event.Errors,
		"warnings":         event.Warnings,
		"error_message":    event.ErrorMessage,
		"checked_at":       event.CheckedAt.UTC().Format(time.RFC3339),
	}
	if len(event.Metadata) > 0 {
		payload["metadata"] = event.Metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/events/%s", n.baseURL, eventKind(event.CheckType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("通知服务响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		Accepted *bool `json:"accepted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.Accepted != nil && !*result.Accepted {
			return fmt.Errorf("通知服务返回 accepted=false")
		}
	}

	n.logger.Info().
		Str("contract", event.ContractName).
		Str("check_type", event.CheckType).
		Str("status", event.Status).
		Msg("告警已发送")
	return nil
}

// eventKind 将检查类型映射到通知服务的事件路径。
func eventKind(checkType string) string {
	switch checkType {
	case contract.CheckSchema:
		return "schema-drift"
	case contract.CheckQuality:
		return "quality-breach"
	case contract.CheckAvailability:
		return "availability-failure"
	default:
		return "compliance-alert"
	}
}

// LogNotifier 将告警写入结构化日志, 未配置通知服务时使用。
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier 构造日志告警器。
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify 输出一条 warn 级日志。
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	entry := n.logger.Warn().
		Str("contract", event.ContractName).
		Str("version", event.ContractVersion).
		Str("check_type", event.CheckType).
		Str("status", event.Status).
		Time("checked_at", event.CheckedAt)
	if event.PublisherTeam != "" {
		entry = entry.Str("publisher_team", event.PublisherTeam)
	}
	if len(event.Errors) > 0 {
		entry = entry.Strs("errors", event.Errors)
	}
	if event.ErrorMessage != "" {
		entry = entry.Str("error_message", event.ErrorMessage)
	}
	entry.Msg("契约合规告警")
	return nil
}

var (
	_ Notifier = (*EventNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
