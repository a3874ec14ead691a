package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/probe"
)

// ProviderOptions parameterise the provider probe client.
type ProviderOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Provider reads the /schema and /metrics surface a data provider exposes
// at the endpoint named in its contract's access config.
type Provider struct {
	opts   ProviderOptions
	logger zerolog.Logger
	client *http.Client
}

// NewProvider constructs a provider probe client.
func NewProvider(opts ProviderOptions, logger zerolog.Logger) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Provider{
		opts:   opts,
		logger: logger.With().Str("component", "probe_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchSchema retrieves the provider's live schema description.
func (p *Provider) FetchSchema(ctx context.Context, endpoint string) (probe.SchemaProbe, error) {
	var sp probe.SchemaProbe
	if err := p.getJSON(ctx, "fetch schema", endpoint, "/schema", &sp); err != nil {
		return probe.SchemaProbe{}, err
	}
	return sp, nil
}

// FetchMetrics retrieves the provider's quality metrics snapshot.
func (p *Provider) FetchMetrics(ctx context.Context, endpoint string) (probe.MetricsProbe, error) {
	var mp probe.MetricsProbe
	if err := p.getJSON(ctx, "fetch metrics", endpoint, "/metrics", &mp); err != nil {
		return probe.MetricsProbe{}, err
	}
	return mp, nil
}

func (p *Provider) getJSON(ctx context.Context, op, endpoint, path string, dest any) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("provider endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pactwatch/1.0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return wrapStatus(op, resp.StatusCode, parseProbeError(resp.StatusCode, payload))
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func parseProbeError(status int, payload []byte) error {
	if len(payload) > 0 {
		return fmt.Errorf("probe error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("probe error (%d)", status)
}

var _ ProbeSource = (*Provider)(nil)
