package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/contract"
)

const (
	contractsPath = "/api/v1/contracts"
	maxPageSize   = 500
)

// RegistryOptions parameterise the contract registry client.
type RegistryOptions struct {
	BaseURL   string
	Timeout   time.Duration
	PageSize  int
	UserAgent string
}

// Registry talks to the contract registry's REST API.
type Registry struct {
	opts    RegistryOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewRegistry constructs a registry client.
func NewRegistry(opts RegistryOptions, logger zerolog.Logger) *Registry {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.PageSize > maxPageSize {
		opts.PageSize = maxPageSize
	}

	return &Registry{
		opts:    opts,
		logger:  logger.With().Str("component", "registry_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

type contractPage struct {
	Contracts []contract.Snapshot `json:"contracts"`
	Total     int                 `json:"total"`
	Skip      int                 `json:"skip"`
	Limit     int                 `json:"limit"`
}

// ListActive pages through every active contract the registry knows about.
func (r *Registry) ListActive(ctx context.Context) ([]contract.Snapshot, error) {
	if r.baseURL == "" {
		return nil, errors.New("registry base url not configured")
	}

	collected := make([]contract.Snapshot, 0)
	skip := 0
	for {
		page, err := r.listPage(ctx, skip)
		if err != nil {
			return nil, err
		}
		collected = append(collected, page.Contracts...)

		// An empty page also terminates when the reported total is
		// stale and larger than what the registry can actually serve.
		if len(page.Contracts) == 0 || len(collected) >= page.Total {
			break
		}
		skip += len(page.Contracts)
	}

	r.logger.Debug().Int("count", len(collected)).Msg("listed active contracts")
	return collected, nil
}

func (r *Registry) listPage(ctx context.Context, skip int) (contractPage, error) {
	query := url.Values{}
	query.Set("status", contract.StatusActive)
	query.Set("limit", strconv.Itoa(r.opts.PageSize))
	query.Set("skip", strconv.Itoa(skip))
	endpoint := r.baseURL + contractsPath + "?" + query.Encode()

	var page contractPage
	if err := r.getJSON(ctx, "list contracts", endpoint, &page); err != nil {
		return contractPage{}, err
	}
	return page, nil
}

// Get fetches a single contract by id.
func (r *Registry) Get(ctx context.Context, id string) (contract.Snapshot, error) {
	if r.baseURL == "" {
		return contract.Snapshot{}, errors.New("registry base url not configured")
	}

	var snap contract.Snapshot
	endpoint := r.baseURL + contractsPath + "/" + url.PathEscape(id)
	if err := r.getJSON(ctx, "get contract", endpoint, &snap); err != nil {
		return contract.Snapshot{}, err
	}
	return snap, nil
}

type complianceReport struct {
	CheckType    string         `json:"check_type"`
	Status       string         `json:"status"`
	Details      map[string]any `json:"details,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// RecordOutcome posts a compliance check result back to the registry.
func (r *Registry) RecordOutcome(ctx context.Context, out contract.Outcome) error {
	if r.baseURL == "" {
		return errors.New("registry base url not configured")
	}

	body, err := json.Marshal(complianceReport{
		CheckType:    out.CheckType,
		Status:       out.Status,
		Details:      out.Details,
		ErrorMessage: out.ErrorMessage,
	})
	if err != nil {
		return err
	}

	endpoint := r.baseURL + contractsPath + "/" + url.PathEscape(out.ContractID.String()) + "/compliance"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &TransientError{Op: "record outcome", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: "record outcome", Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return wrapStatus("record outcome", resp.StatusCode, parseRegistryError(resp.StatusCode, payload))
	}
	return nil
}

func (r *Registry) getJSON(ctx context.Context, op, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return wrapStatus(op, resp.StatusCode, parseRegistryError(resp.StatusCode, payload))
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (r *Registry) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pactwatch/1.0")
	}
}

func parseRegistryError(status int, payload []byte) error {
	var apiErr struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Detail != "" {
		return fmt.Errorf("registry error (%d): %s", status, apiErr.Detail)
	}
	if len(payload) > 0 {
		return fmt.Errorf("registry error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("registry error (%d)", status)
}

var _ ContractSource = (*Registry)(nil)
