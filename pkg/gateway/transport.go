package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transport performs the outbound call for an operation: a single
// form-encoded POST against a fixed endpoint. Implementations must be
// safe for concurrent use if the Client is shared across goroutines.
// The Client performs no retries; a transport error surfaces
// immediately as a failure envelope.
type Transport interface {
	Post(ctx context.Context, endpoint string, params map[string]string) (string, error)
}

type restyTransport struct {
	client *resty.Client
}

func newRestyTransport(timeout time.Duration) *restyTransport {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &restyTransport{client: client}
}

func (t *restyTransport) Post(ctx context.Context, endpoint string, params map[string]string) (string, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(params).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to reach gateway: %w", err)
	}

	return resp.String(), nil
}
