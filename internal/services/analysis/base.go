package analysis

import (
	"context"
	"fmt"
	"time"

	"heliowatch/pkg/config"
	xhttp "heliowatch/pkg/http"

	"github.com/sony/gobreaker/v2"
)

// HTTPServiceBase is the shared foundation for inference HTTP clients.
// It owns the JSON POST plumbing and a circuit breaker so a dead model
// backend fails fast instead of eating the request timeout every call.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewHTTPServiceBase builds a client against the configured model service.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Models.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "model-service",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &HTTPServiceBase{
		baseURL: cfg.Models.ServiceURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		breaker: cb,
	}
}

// PostJSON posts payload to path under the model service base URL and
// decodes the JSON response into dest. Calls go through the breaker.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("inference http client not initialized")
	}
	_, err := b.breaker.Execute(func() (struct{}, error) {
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    b.baseURL + path,
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: payload,
		}, dest)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
