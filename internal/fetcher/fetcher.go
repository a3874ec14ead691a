package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/probe"
)

// ContractSource lists and reads contracts from the registry and records
// check outcomes against them.
type ContractSource interface {
	ListActive(ctx context.Context) ([]contract.Snapshot, error)
	Get(ctx context.Context, id string) (contract.Snapshot, error)
	RecordOutcome(ctx context.Context, out contract.Outcome) error
}

// ProbeSource reads the monitoring surface a provider exposes next to its
// data endpoint.
type ProbeSource interface {
	FetchSchema(ctx context.Context, endpoint string) (probe.SchemaProbe, error)
	FetchMetrics(ctx context.Context, endpoint string) (probe.MetricsProbe, error)
}

// TransientError marks a failure worth retrying: a network error or a 5xx
// from the remote side. Anything else is treated as permanent.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// wrapStatus classifies a non-2xx response. 5xx is the remote side's
// problem and retryable; 4xx means the request itself is wrong and a retry
// would only repeat it.
func wrapStatus(op string, status int, base error) error {
	if status >= http.StatusInternalServerError {
		return &TransientError{Op: op, StatusCode: status, Err: base}
	}
	return fmt.Errorf("%s: %w", op, base)
}
